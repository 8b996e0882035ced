package local

import "github.com/kbukum/iopipe/validation"

// DefaultBasePath is the default root directory for local storage.
const DefaultBasePath = "./data"

// Config holds local filesystem storage configuration.
type Config struct {
	// BasePath is the root directory for local storage.
	BasePath string `mapstructure:"base_path" json:"base_path" yaml:"base_path"`
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.BasePath == "" {
		c.BasePath = DefaultBasePath
	}
}

// Validate checks that the local configuration is valid.
func (c *Config) Validate() error {
	return validation.New().Required("base_path", c.BasePath).Err()
}
