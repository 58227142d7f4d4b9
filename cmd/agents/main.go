package main

import (
	"os"

	"github.com/grovetools/agents/cli"
	"github.com/grovetools/agents/cmd"
)

func main() {
	os.Exit(cli.Execute(cmd.NewRootCmd(), os.Stderr))
}
