package main

import "github.com/spachava753/oracle/cmd"

func main() {
	cmd.Execute()
}
