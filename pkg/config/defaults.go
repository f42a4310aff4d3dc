package config

import (
	"log/slog"
	"os"
	"time"
)

// Default values for configuration.
const (
	DefaultAddr           = ":8000"
	DefaultMaxUploadSize  = SizeBytes(32 * 1000 * 1000)
	DefaultReadTimeout    = 30 * time.Second
	DefaultWriteTimeout   = 30 * time.Second
	DefaultRPS            = 5
	DefaultBurst          = 10
	DefaultLogLevel       = "info"
	DefaultWebhookTimeout = 10 * time.Second
)

// Environment variable names.
const (
	EnvAddr          = "CHATCLEAN_ADDR"
	EnvLogLevel      = "CHATCLEAN_LOG_LEVEL"
	EnvTempDir       = "CHATCLEAN_TEMP_DIR"
	EnvMaxUploadSize = "CHATCLEAN_MAX_UPLOAD_SIZE"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:          DefaultAddr,
			MaxUploadSize: DefaultMaxUploadSize,
			ReadTimeout:   DefaultReadTimeout,
			WriteTimeout:  DefaultWriteTimeout,
			RateLimit: RateLimitConfig{
				RPS:   DefaultRPS,
				Burst: DefaultBurst,
			},
		},
		Output: OutputConfig{
			PersistTempFile: true,
		},
		Logging: LoggingConfig{
			Level: DefaultLogLevel,
		},
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() {
	if addr := os.Getenv(EnvAddr); addr != "" {
		c.Server.Addr = addr
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Logging.Level = level
	}
	if dir := os.Getenv(EnvTempDir); dir != "" {
		c.Output.TempDir = dir
	}
	if raw := os.Getenv(EnvMaxUploadSize); raw != "" {
		size, err := ParseSize(raw)
		if err != nil {
			slog.Warn("ignoring invalid environment override", "var", EnvMaxUploadSize, "error", err)
			return
		}
		c.Server.MaxUploadSize = size
	}
}
