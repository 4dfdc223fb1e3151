// Package env handles variables and their resolution for domspec.
//
// It provides functionality for:
//   - Loading .env files
//   - Interpolation with {{variable}}, {{$ENV_VAR}} and {{fn(args)}}
//   - Environment-specific variables from the project config
//   - Layering config, suite and CLI variables in precedence order
package env
