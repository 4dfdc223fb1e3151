// Package capture reads values out of a test's fixture so later tests in
// the same suite can refer to them as {{name}}.
//
// Sources are the trimmed text content, inner or outer HTML, an attribute,
// a form control value, the number of matching elements, or a gjson path
// into JSON embedded in an element.
package capture
