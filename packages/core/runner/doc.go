// Package runner executes domspec suite files.
//
// It provides functionality for:
//   - Running individual suite files
//   - Rebuilding the fixture document for every test
//   - Selecting each test's subject (element, node list or plain value)
//   - Filtering by name pattern, tags and only
//   - Variable resolution across config, .env and suite variables
//   - Optional parallel execution with bounded concurrency
package runner
