package s3

import "github.com/kbukum/iopipe/validation"

// DefaultRegion is the default AWS region.
const DefaultRegion = "us-east-1"

// Config holds S3-specific storage configuration.
type Config struct {
	// Bucket is the S3 bucket name.
	Bucket string `mapstructure:"bucket" json:"bucket" yaml:"bucket"`

	// Region is the AWS region.
	Region string `mapstructure:"region" json:"region" yaml:"region"`

	// Endpoint is a custom S3-compatible endpoint (e.g. MinIO).
	Endpoint string `mapstructure:"endpoint" json:"endpoint" yaml:"endpoint"`

	// AccessKey is the AWS access key ID.
	AccessKey string `mapstructure:"access_key" json:"access_key" yaml:"access_key"`

	// SecretKey is the AWS secret access key.
	SecretKey string `mapstructure:"secret_key" json:"-" yaml:"secret_key"`

	// ForcePathStyle forces path-style URLs instead of virtual-hosted-style.
	// A custom endpoint always uses path style.
	ForcePathStyle bool `mapstructure:"force_path_style" json:"force_path_style" yaml:"force_path_style"`
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
}

// Validate checks that the S3 configuration is valid.
func (c *Config) Validate() error {
	return validation.New().
		Required("bucket", c.Bucket).
		Required("region", c.Region).
		Custom((c.AccessKey == "") == (c.SecretKey == ""), "secret_key", "access_key and secret_key must be set together").
		Err()
}
