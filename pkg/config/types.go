// Package config provides configuration loading and validation for chatclean.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure loaded from YAML.
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Parser   ParserConfig    `yaml:"parser"`
	Output   OutputConfig    `yaml:"output"`
	Logging  LoggingConfig   `yaml:"logging"`
	Webhooks []WebhookConfig `yaml:"webhooks,omitempty"`
}

// ServerConfig configures the upload endpoint.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8000".
	Addr string `yaml:"addr"`

	// MaxUploadSize caps the request body. Accepts "10MB", "512KiB" or a
	// plain byte count.
	MaxUploadSize SizeBytes `yaml:"max_upload_size"`

	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig is a per-client token bucket. RPS of zero disables limiting.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// ParserConfig tunes transcript parsing.
type ParserConfig struct {
	// ExtraSystemPhrases are filtered in addition to the built-in list.
	ExtraSystemPhrases []string `yaml:"extra_system_phrases,omitempty"`
}

// OutputConfig controls where cleaned transcripts are persisted.
type OutputConfig struct {
	// PersistTempFile writes every cleaned transcript to a JSON temp file.
	PersistTempFile bool `yaml:"persist_temp_file"`

	// TempDir is the directory for temp files. Empty means os.TempDir().
	TempDir string `yaml:"temp_dir,omitempty"`
}

// LoggingConfig selects the log level (debug, info, warn, error).
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnMessages fires only when at least one message was kept (default).
	WebhookTriggerOnMessages WebhookTrigger = "on_messages"
	// WebhookTriggerAlways fires after every parse.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines an endpoint that receives cleaned transcripts.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url"`

	// Token is an optional bearer token. "$VAR" and "${VAR}" are expanded.
	Token string `yaml:"token,omitempty"`

	// Trigger defaults to "on_messages".
	Trigger WebhookTrigger `yaml:"trigger,omitempty"`

	// Timeout defaults to 10s.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// SizeBytes is a byte count that unmarshals from human-friendly strings.
type SizeBytes int64

// UnmarshalYAML accepts "32MB", "1 GiB" or a plain integer.
func (s *SizeBytes) UnmarshalYAML(node *yaml.Node) error {
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*s = 0
		return nil
	}
	v, err := ParseSize(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// MarshalYAML writes the size in human-friendly form.
func (s SizeBytes) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

// String formats the size, e.g. "32 MB".
func (s SizeBytes) String() string {
	if s < 0 {
		return strconv.FormatInt(int64(s), 10)
	}
	return humanize.Bytes(uint64(s))
}

// Int64 returns the size as a plain byte count.
func (s SizeBytes) Int64() int64 { return int64(s) }

// ParseSize parses a human-friendly size string.
func ParseSize(raw string) (SizeBytes, error) {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return SizeBytes(i), nil
	}
	v, err := humanize.ParseBytes(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid size value %q: %w", raw, err)
	}
	return SizeBytes(v), nil
}
