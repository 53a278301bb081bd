// Package main provides the CLI entry point for the GEPA tool-description
// optimizer.
//
// GEPA searches the space of natural-language tool descriptions so that an
// LLM, shown a fixed tool inventory alongside a user query, selects the
// correct tool more often while keeping descriptions short.
//
// # Basic Usage
//
// Run an optimization:
//
//	gepa run --config run.yaml --tools tools.json --tests tests.json
//
// Replay a persisted run's event log:
//
//	gepa replay --run-id <id> --store gepa.db
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	root := &cobra.Command{
		Use:     "gepa",
		Short:   "GEPA: a Genetic-Pareto optimizer for LLM tool descriptions",
		Version: fmt.Sprintf("%s (%s)", version, commit),
	}

	root.AddCommand(newRunCommand())
	root.AddCommand(newReplayCommand())
	root.AddCommand(newServeCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
