// Package config loads layered configuration for iopipe binaries.
//
// Values come from, in increasing precedence: defaults registered with
// WithDefaults, a config.yml found in the standard locations (or given with
// WithConfigFile), a .env file, and the process environment. Environment
// variables are matched against nested keys by splitting on underscores, so
// IOP_PIPELINE_BLOCK_SIZE sets pipeline.block_size when the prefix is IOP.
//
// Application configs embed ServiceConfig and add their own sections:
//
//	type Config struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Storage storage.Config `yaml:"storage" mapstructure:"storage"`
//	}
//
//	var cfg Config
//	err := config.LoadConfig("iop", &cfg, config.WithEnvPrefix("IOP"))
package config
