package config

import (
	"fmt"

	"github.com/kbukum/iopipe/logger"
	"github.com/kbukum/iopipe/pipeline"
	"github.com/kbukum/iopipe/util"
	"github.com/kbukum/iopipe/validation"
)

var validEnvironments = []string{"development", "staging", "production"}

// ServiceConfig contains the fields every iopipe binary needs. Embed it in
// application configs with `mapstructure:",squash"`.
type ServiceConfig struct {
	Name        string         `yaml:"name" mapstructure:"name"`
	Environment string         `yaml:"environment" mapstructure:"environment"`
	Version     string         `yaml:"version" mapstructure:"version"`
	Debug       bool           `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config  `yaml:"logging" mapstructure:"logging"`
	Pipeline    PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
}

// GetServiceConfig returns the base ServiceConfig. When embedded, the method
// is promoted so the embedding struct satisfies Config.
func (c *ServiceConfig) GetServiceConfig() *ServiceConfig {
	return c
}

// ApplyDefaults applies default values to the base configuration.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "production"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.Logging.ServiceName == "" && c.Name != "" {
		c.Logging.ServiceName = c.Name
	}
	c.Logging.ApplyDefaults()
	c.Pipeline.ApplyDefaults()
}

// Validate validates the base configuration fields.
func (c *ServiceConfig) Validate() error {
	err := validation.New().
		Required("name", c.Name).
		OneOf("environment", c.Environment, validEnvironments).
		Err()
	if err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	return nil
}

// PipelineConfig holds defaults applied to every pipeline a binary builds.
type PipelineConfig struct {
	// BlockSize is the read chunk ceiling in human form ("1MiB", "64k").
	BlockSize string `yaml:"block_size" mapstructure:"block_size"`
}

// ApplyDefaults sets the block size to pipeline.DefaultBlockSize.
func (c *PipelineConfig) ApplyDefaults() {
	if c.BlockSize == "" {
		c.BlockSize = "1MiB"
	}
}

// Validate checks that the block size parses to a positive value.
func (c *PipelineConfig) Validate() error {
	n, err := util.ParseBytes(c.BlockSize)
	if err != nil {
		return validation.New().Custom(false, "block_size", err.Error()).Err()
	}
	return validation.New().Positive("block_size", n).Err()
}

// BlockBytes returns the block size in bytes.
func (c *PipelineConfig) BlockBytes() int {
	return int(util.ParseSize(c.BlockSize, pipeline.DefaultBlockSize))
}

// Config is implemented by every config struct embedding ServiceConfig.
type Config interface {
	GetServiceConfig() *ServiceConfig
	ApplyDefaults()
	Validate() error
}
