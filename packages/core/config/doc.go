// Package config handles configuration loading and management for domspec.
//
// It provides functionality for:
//   - Loading configuration from .domspec.config.json or .domspecrc files
//   - Default configuration values
//   - Environment-specific variables
package config
