package main

import (
	"os"

	"github.com/sahib/dca/cmd"
)

func main() {
	os.Exit(cmd.RunCmdline(os.Args))
}
