// Package config loads bucketgate settings from a YAML file and the
// environment.
//
// Environment variables are applied after the file, so they always win:
//
//	AWS_REGION, AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY,
//	AWS_BUCKET_NAME, S3_ENDPOINT        storage.defaults
//	BUCKETGATE_ADDR                     server.addr
//	BUCKETGATE_DEBUG                    server.debug
//	BUCKETGATE_PROVIDER                 storage.provider
//	BUCKETGATE_LOG_LEVEL                log.level
//	BUCKETGATE_LOG_FORMAT               log.format
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/koustreak/bucketgate/internal/filestore"
	"github.com/koustreak/bucketgate/internal/logger"
)

// Config is the full process configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Storage StorageConfig `yaml:"storage"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`

	// Debug exposes error details on 5xx responses.
	Debug bool `yaml:"debug"`

	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// LogConfig mirrors logger.Config.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// StorageConfig selects the object-store client and the house credentials.
type StorageConfig struct {
	Provider string                `yaml:"provider"` // s3, minio, memory
	Timeout  time.Duration         `yaml:"timeout"`
	Defaults filestore.Credentials `yaml:"defaults"`
}

// Default returns the settings used when neither file nor environment
// says otherwise.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Storage: StorageConfig{
			Provider: string(filestore.ProviderS3),
			Timeout:  60 * time.Second,
		},
	}
}

// Load reads path (skipped when empty) over Default, then applies the
// environment. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := []struct {
		name string
		dst  *string
	}{
		{"AWS_REGION", &c.Storage.Defaults.Region},
		{"AWS_ACCESS_KEY_ID", &c.Storage.Defaults.AccessKeyID},
		{"AWS_SECRET_ACCESS_KEY", &c.Storage.Defaults.SecretAccessKey},
		{"AWS_BUCKET_NAME", &c.Storage.Defaults.BucketName},
		{"S3_ENDPOINT", &c.Storage.Defaults.Endpoint},
		{"BUCKETGATE_ADDR", &c.Server.Addr},
		{"BUCKETGATE_PROVIDER", &c.Storage.Provider},
		{"BUCKETGATE_LOG_LEVEL", &c.Log.Level},
		{"BUCKETGATE_LOG_FORMAT", &c.Log.Format},
	}
	for _, s := range strs {
		if v, ok := lookup(s.name); ok && v != "" {
			*s.dst = v
		}
	}

	if v, ok := lookup("BUCKETGATE_DEBUG"); ok && v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid BUCKETGATE_DEBUG %q: %w", v, err)
		}
		c.Server.Debug = debug
	}
	return nil
}

// Validate rejects settings the process cannot start with. Default
// credentials may stay incomplete; every call supplies or merges its own.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if _, err := filestore.ParseProvider(c.Storage.Provider); err != nil {
		return err
	}
	if c.Storage.Timeout < 0 {
		return fmt.Errorf("storage.timeout must not be negative, got %s", c.Storage.Timeout)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdownTimeout must be positive, got %s", c.Server.ShutdownTimeout)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	return nil
}

// Provider returns the parsed storage provider. Call after Validate.
func (c *Config) Provider() filestore.Provider {
	p, _ := filestore.ParseProvider(c.Storage.Provider)
	return p
}

// LoggerConfig converts the log section for logger.New.
func (c *Config) LoggerConfig() *logger.Config {
	lc := logger.DefaultConfig()
	lc.Level = c.Log.Level
	lc.Format = c.Log.Format
	return lc
}
