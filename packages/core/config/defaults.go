package config

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		DefaultEnvironment: "dev",
		Reporters:          []string{"console"},
		LogLevel:           "warn",
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.DefaultEnvironment == defaults.DefaultEnvironment &&
		len(c.Environments) == 0 &&
		len(c.Variables) == 0 &&
		c.EnvFile == "" &&
		len(c.Reporters) == 1 && c.Reporters[0] == defaults.Reporters[0] &&
		c.OutputDir == "" &&
		c.History == "" &&
		c.LogLevel == defaults.LogLevel &&
		len(c.Tags) == 0 &&
		c.Bail == nil &&
		c.Verbose == nil &&
		c.NoColor == nil
}
