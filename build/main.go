package main

import (
	"flag"

	"github.com/goyek/goyek/v2"
)

var schemaOut = flag.String("schema-out", "", "Output path for gen-schema (default: <module>/schema/oracle-config-schema.json)")

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		args = []string{"list"}
	}
	goyek.Main(args)
}
