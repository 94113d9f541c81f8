// Package main provides the Lectern command line tool.
package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"

	"github.com/lectern-ai/lectern/cmd/lectern-cli/commands"
)

const version = "0.1.0"

func main() {
	root := commands.NewRootCmd()

	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}
