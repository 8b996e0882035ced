package storage

import (
	"github.com/kbukum/iopipe/util"
	"github.com/kbukum/iopipe/validation"
)

// Provider constants for supported storage backends.
const (
	ProviderLocal = "local"
	ProviderS3    = "s3"
	ProviderRedis = "redis"
)

// Default configuration values.
const (
	DefaultProvider    = ProviderLocal
	DefaultMaxFileSize = "100MiB"
)

// Providers lists the provider names accepted by Validate.
var Providers = []string{ProviderLocal, ProviderS3, ProviderRedis}

// Config holds the provider-independent storage settings. Provider-specific
// settings live in the backend packages and are passed to New separately.
type Config struct {
	// Provider selects the storage backend.
	Provider string `mapstructure:"provider" json:"provider" yaml:"provider"`

	// MaxFileSize caps what a Writer uploads, e.g. "100MiB". "0" disables
	// the cap.
	MaxFileSize string `mapstructure:"max_file_size" json:"max_file_size" yaml:"max_file_size"`
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	if c.MaxFileSize == "" {
		c.MaxFileSize = DefaultMaxFileSize
	}
}

// Validate checks the provider name and the size cap.
func (c *Config) Validate() error {
	v := validation.New().OneOf("provider", c.Provider, Providers)
	if _, err := util.ParseBytes(c.MaxFileSize); err != nil {
		v.AddError("max_file_size", err.Error())
	}
	return v.Err()
}

// MaxFileBytes returns the parsed size cap. Zero means unlimited.
func (c *Config) MaxFileBytes() int64 {
	return util.ParseSize(c.MaxFileSize, 0)
}
