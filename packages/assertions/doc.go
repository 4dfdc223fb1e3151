// Package assertions provides the DOM predicate registry and the chainable
// assertion API built on top of it.
//
// Supported predicates:
//   - Attributes (attr name, attr name value)
//   - Class membership and id (class foo, id bar)
//   - Markup, text and form values (html, text, value)
//   - Selector checks (match, contain, descendants)
//   - Counting and presence (length, exist, empty)
//
// Every predicate works on a single element or uniformly on each element of a
// node list, honours negation, and falls back to generic behaviour (equal,
// include, match, exist, empty, length, keys, fail) when the subject is not a
// DOM value.
package assertions
