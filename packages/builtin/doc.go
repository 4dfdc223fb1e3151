// Package builtin provides built-in functions for use in domspec suite files.
//
// Available functions:
//   - uuid(): Random UUID v4, handy for unique ids in fixtures
//   - now(), date(layout), timestamp(): Current time
//   - random(min, max), randomString(length): Random values
//   - upper(s), lower(s), trim(s), repeat(s, n): String helpers
//   - escapeHTML(s), unescapeHTML(s): Entity encoding for markup
//   - lorem(words): Placeholder text
//   - base64(s): Base64 encode a string
//
// Functions are invoked using the {{name(args)}} syntax in fixtures,
// arguments and variables.
package builtin
