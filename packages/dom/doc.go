// Package dom provides the document model that domspec assertions run against.
//
// Documents are parsed from HTML strings with goquery on top of
// golang.org/x/net/html. Selector handling is delegated to cascadia.
//
// The package exposes:
//   - Document: a parsed HTML document with querySelector-style lookups
//   - Element: a single element node with attribute, text and markup accessors
//   - NodeList: an ordered, possibly empty sequence of elements
//   - Subject: the tagged variant {Element, NodeList, Other} an assertion wraps
package dom
