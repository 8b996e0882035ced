package main

import (
	"fmt"
	"os"

	"github.com/kbukum/iopipe/config"
	"github.com/kbukum/iopipe/encryption"
	apperrors "github.com/kbukum/iopipe/errors"
	"github.com/kbukum/iopipe/net/ftp"
	"github.com/kbukum/iopipe/net/sftp"
	"github.com/kbukum/iopipe/observability"
	"github.com/kbukum/iopipe/resilience"
	"github.com/kbukum/iopipe/storage"
	"github.com/kbukum/iopipe/storage/local"
	"github.com/kbukum/iopipe/storage/redis"
	"github.com/kbukum/iopipe/storage/s3"
	"github.com/kbukum/iopipe/util"
)

const (
	serviceName = "iop"
	envPrefix   = "IOP"
	// configKeyEnv holds the passphrase that opens sealed config values.
	configKeyEnv = "IOP_CONFIG_KEY"
)

// Config is the iop configuration file (iop.yml / config.yml).
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Storage   StorageConfig        `yaml:"storage" mapstructure:"storage"`
	SFTP      sftp.Credentials     `yaml:"sftp" mapstructure:"sftp"`
	FTP       ftp.Credentials      `yaml:"ftp" mapstructure:"ftp"`
	Metrics   MetricsConfig        `yaml:"metrics" mapstructure:"metrics"`
	Telemetry observability.Config `yaml:"telemetry" mapstructure:"telemetry"`
}

// StorageConfig selects the backend behind store:// endpoints.
type StorageConfig struct {
	storage.Config `yaml:",inline" mapstructure:",squash"`

	Local local.Config `yaml:"local" mapstructure:"local"`
	S3    s3.Config    `yaml:"s3" mapstructure:"s3"`
	Redis redis.Config `yaml:"redis" mapstructure:"redis"`
}

// providerConfig returns the settings of the selected backend.
func (c *StorageConfig) providerConfig() any {
	switch c.Provider {
	case storage.ProviderS3:
		return &c.S3
	case storage.ProviderRedis:
		return &c.Redis
	default:
		return &c.Local
	}
}

// MetricsConfig controls stage counters. Counters are always kept; they are
// exported only when a Pushgateway is configured or OTLP metrics are on.
type MetricsConfig struct {
	Pushgateway string `yaml:"pushgateway" mapstructure:"pushgateway"`
	Job         string `yaml:"job" mapstructure:"job"`
}

// ApplyDefaults fills every section.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	c.ServiceConfig.ApplyDefaults()
	c.Storage.Config.ApplyDefaults()
	c.Storage.Local.ApplyDefaults()
	c.Storage.S3.ApplyDefaults()
	c.Storage.Redis.ApplyDefaults()
	if c.Metrics.Job == "" {
		c.Metrics.Job = serviceName
	}
	c.Telemetry.ApplyDefaults()
	for _, r := range []*resilience.RetryConfig{&c.SFTP.Dial.Retry, &c.FTP.Dial.Retry} {
		if r.MaxAttempts == 0 {
			*r = resilience.DefaultRetryConfig()
		}
	}
}

// Validate checks the sections every command depends on. Backend sections
// are validated when the backend is opened.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Config.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	if err := c.FTP.TLS.Validate(); err != nil {
		return fmt.Errorf("ftp: %w", err)
	}
	return nil
}

// secrets lists the fields that may hold sealed values.
func (c *Config) secrets() map[string]*string {
	return map[string]*string{
		"sftp.password":          &c.SFTP.Password,
		"sftp.passphrase":        &c.SFTP.Passphrase,
		"ftp.password":           &c.FTP.Password,
		"storage.s3.secret_key":  &c.Storage.S3.SecretKey,
		"storage.redis.password": &c.Storage.Redis.Password,
	}
}

// resolveSecrets opens every sealed value in place with the key from
// IOP_CONFIG_KEY.
func (c *Config) resolveSecrets() error {
	var sealer *encryption.Secrets
	for field, p := range c.secrets() {
		if !encryption.IsSealed(*p) {
			continue
		}
		if sealer == nil {
			key := os.Getenv(configKeyEnv)
			if key == "" {
				return apperrors.InvalidInput(field, "sealed value needs "+configKeyEnv)
			}
			s, err := encryption.NewSecrets(key, "")
			if err != nil {
				return err
			}
			sealer = s
		}
		v, err := sealer.Open(*p)
		if err != nil {
			return apperrors.InvalidInput(field, err.Error())
		}
		*p = v
	}
	return nil
}

// masked returns a copy safe to print.
func (c Config) masked() Config {
	for _, p := range c.secrets() {
		if *p != "" && !encryption.IsSealed(*p) {
			*p = util.MaskSecret(*p, 0)
		}
	}
	return c
}

func loadConfig(path, envFile string) (*Config, error) {
	cfg := &Config{}
	opts := []config.LoaderOption{config.WithEnvPrefix(envPrefix)}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, apperrors.NotFound("config file", path)
		}
		opts = append(opts, config.WithConfigFile(path))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	return cfg, nil
}
