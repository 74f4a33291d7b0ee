// Package config loads storjctl settings from a config file and the environment.
//
// Values are resolved in order: built-in defaults, then the config file
// (YAML, JSON or TOML, read with viper), then STORJ_* environment variables.
package config

import (
	"fmt"
	"slices"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/input-output-hk/catalyst-forge-libs/storj/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storj/internal/validation"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "STORJ"

// Backend kinds.
const (
	BackendNetwork = "network"
	BackendGateway = "gateway"
	BackendMemory  = "memory"
)

const mib = 1024 * 1024

// Config holds the settings for one storjctl invocation.
type Config struct {
	Backend string `mapstructure:"backend" envconfig:"BACKEND"`
	Bucket  string `mapstructure:"bucket" envconfig:"BUCKET"`

	// Native network
	AccessGrant  string `mapstructure:"access_grant" envconfig:"ACCESS_GRANT"`
	AuthService  string `mapstructure:"auth_service" envconfig:"AUTH_SERVICE"`
	LinkshareURL string `mapstructure:"linkshare_url" envconfig:"LINKSHARE_URL"`
	EnsureBucket bool   `mapstructure:"ensure_bucket" envconfig:"ENSURE_BUCKET"`

	// S3 gateway
	GatewayEndpoint  string `mapstructure:"gateway_endpoint" envconfig:"GATEWAY_ENDPOINT"`
	GatewayRegion    string `mapstructure:"gateway_region" envconfig:"GATEWAY_REGION"`
	GatewayAccessKey string `mapstructure:"gateway_access_key" envconfig:"GATEWAY_ACCESS_KEY"`
	GatewaySecretKey string `mapstructure:"gateway_secret_key" envconfig:"GATEWAY_SECRET_KEY"`

	// Transfer tuning
	UploadChunkSize    int64 `mapstructure:"upload_chunk_size" envconfig:"UPLOAD_CHUNK_SIZE"`
	DownloadChunkSize  int64 `mapstructure:"download_chunk_size" envconfig:"DOWNLOAD_CHUNK_SIZE"`
	MultipartThreshold int64 `mapstructure:"multipart_threshold" envconfig:"MULTIPART_THRESHOLD"`
	Public             bool  `mapstructure:"public" envconfig:"PUBLIC"`

	// Logging
	LogLevel  string `mapstructure:"log_level" envconfig:"LOG_LEVEL"`
	LogFormat string `mapstructure:"log_format" envconfig:"LOG_FORMAT"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Backend:            BackendNetwork,
		UploadChunkSize:    5 * mib,
		DownloadChunkSize:  5 * mib,
		MultipartThreshold: 5 * mib,
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

// Load reads configFile, when given, and applies environment overrides.
// The result is validated.
func Load(configFile string) (*Config, error) {
	defaults := Defaults()

	v := viper.New()
	v.SetDefault("backend", defaults.Backend)
	v.SetDefault("upload_chunk_size", defaults.UploadChunkSize)
	v.SetDefault("download_chunk_size", defaults.DownloadChunkSize)
	v.SetDefault("multipart_threshold", defaults.MultipartThreshold)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_format", defaults.LogFormat)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewError("loadConfig", fmt.Errorf("failed to read config file: %w", err))
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.NewError("loadConfig", fmt.Errorf("failed to unmarshal config: %w", err))
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, errors.NewError("loadConfig", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("failed to process env vars: %v", err))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is complete for its backend.
func (c *Config) Validate() error {
	if err := validation.ValidateBucketName(c.Bucket); err != nil {
		return err
	}

	switch c.Backend {
	case BackendNetwork:
		if c.AccessGrant == "" {
			return invalid("access grant is required for the network backend")
		}
	case BackendGateway:
		if (c.GatewayAccessKey == "") != (c.GatewaySecretKey == "") {
			return invalid("gateway access key and secret key must be set together")
		}
	case BackendMemory:
	default:
		return invalid(fmt.Sprintf("unsupported backend %q", c.Backend))
	}

	if c.UploadChunkSize < 0 || c.DownloadChunkSize < 0 {
		return invalid("chunk sizes cannot be negative")
	}
	if c.MultipartThreshold <= 0 {
		return invalid("multipart threshold must be positive")
	}
	if !slices.Contains([]string{"text", "json"}, c.LogFormat) {
		return invalid(fmt.Sprintf("unsupported log format %q", c.LogFormat))
	}
	return nil
}

func invalid(message string) error {
	return errors.NewError("validateConfig", errors.ErrInvalidInput).WithMessage(message)
}
