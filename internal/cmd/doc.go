// Package cmd provides the command-line interface implementation for
// surveypipe.
//
// This package contains all the subcommand implementations for the
// surveypipe CLI tool. It uses the Cobra library for command structure and
// Fang for styling.
//
// The package is organized into the following commands:
//   - root: main command coordinator and entry point
//   - expand: recursive extraction of nested survey archives
//   - convert: packaging of raw geometry files via an external converter
//   - dedupe: content-level deduplication of packaged output trees
//   - seed: synthetic nested-archive fixture generation
//   - count: file counting utilities
//
// Each command is implemented as a separate file with its own constructor
// function that returns a *cobra.Command. Per-item failures during a run are
// reported in the final summary and exit with code 0; only invocation-level
// failures (bad arguments, missing paths, missing tool) exit non-zero.
package cmd
