// Package cmd implements the command-line interface of dSync. Every workload is a
// subcommand that runs with sensible defaults and prints its result to stdout, log
// lines go to stderr.
//
// The package is organized into several subpackages:
//
//   - counter: many workers incrementing one shared counter
//   - ledger: concurrent transfers between two accounts
//   - dine: the dining philosophers with a selectable fork acquisition policy
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Flags can also be set via environment variables with the DSYNC_ prefix
// (e.g. DSYNC_WORKERS=10) or in a .env / .env.local file.
//
// See dsync -help for a list of all commands.
package cmd
