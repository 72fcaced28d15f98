package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/goyek/goyek/v2"
)

// List prints the registered tasks; it is the default when no task is named
var List = goyek.Define(goyek.Task{
	Name:  "list",
	Usage: "List all available tasks",
	Action: func(a *goyek.A) {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TASK\tUSAGE")
		for _, task := range goyek.Tasks() {
			fmt.Fprintf(w, "%s\t%s\n", task.Name(), task.Usage())
		}
		if err := w.Flush(); err != nil {
			a.Error(err)
		}
	},
})
