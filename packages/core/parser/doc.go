// Package parser provides parsing functionality for domspec suite files.
//
// Suites are YAML documents (*.domspec.yaml, *.domspec.yml, *.domspec)
// holding an HTML fixture, variables and a list of test cases. Each test
// selects a subject from the fixture and lists the predicates it expects to
// hold.
//
// The parser handles:
//   - Schema validation against an embedded JSON schema
//   - Suite variables, kept in declaration order
//   - Subject selection (element, select, value)
//   - Expectations with negation, chained "then" predicates and "fails"
//   - Metadata (tags, skip, only, per-test fixture overrides)
package parser
