// Package cmd implements the domspec CLI commands using Cobra.
//
// Available commands:
//   - run: Execute suite files and report the results
//   - validate: Check suite files against the schema without running them
//   - list: Display the tests defined in suite files
//   - init: Create a config file and an example suite
//   - history: Inspect runs recorded in the history database
//   - predicates: List the registered predicates
//   - completion: Generate shell completion scripts
//   - version: Show domspec version information
//
// The CLI supports filtering by name and tags, several report formats,
// parallel execution and a watch mode for development workflows.
package cmd
