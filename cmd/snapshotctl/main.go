// Package main provides the entry point for snapshotctl.
//
// snapshotctl is the command-line operator tool for the snapshot transfer
// and persistence engine: list, take, prune, and inspect subcommands act
// directly on a partition's on-disk snapshot store.
package main

import (
	"fmt"
	"os"

	"github.com/yndnr/snapkeep-go/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
