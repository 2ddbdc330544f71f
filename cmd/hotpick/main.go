package main

import (
	"os"

	"github.com/fenghou-lab/hotpick/cmd/hotpick/commands"
)

// main is the entry point for the hotpick CLI.
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
