// Package output provides reporters for domspec run results.
//
// Supported formats:
//   - console: human-readable colored terminal output
//   - json: machine-readable JSON with a run ID
//   - junit: JUnit XML for CI integration
//   - tap: Test Anything Protocol version 13
//   - html: a self-contained HTML report
//
// Every reporter implements Formatter. Reporters that accumulate results
// and write them once at the end also implement Flushable.
package output
