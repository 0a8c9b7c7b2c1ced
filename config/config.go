package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/c360/sonto/errors"
	"github.com/c360/sonto/ontology/obo"
)

// Config represents the complete application configuration
type Config struct {
	Ontology OntologyConfig `json:"ontology"`
	Logging  LoggingConfig  `json:"logging"`
	Metrics  MetricsConfig  `json:"metrics"`
	NATS     NATSConfig     `json:"nats"`
	Service  ServiceConfig  `json:"service"`
}

// OntologyConfig selects the ontology release to load
type OntologyConfig struct {
	Source       string `json:"source"`                  // path, or obo.Bundled
	ArchiveEntry string `json:"archive_entry,omitempty"` // OBO entry inside a .zip source
}

// LoggingConfig controls the process logger
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port"`
	Path    string `json:"path"`
}

// NATSConfig defines NATS connection settings
type NATSConfig struct {
	URLs           []string      `json:"urls,omitempty"`
	MaxReconnects  int           `json:"max_reconnects"`
	ReconnectWait  time.Duration `json:"reconnect_wait"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
	Username       string        `json:"username,omitempty"`
	Password       string        `json:"password,omitempty"`
	Token          string        `json:"token,omitempty"`
}

// ServiceConfig configures the NATS query service
type ServiceConfig struct {
	Enabled          bool          `json:"enabled"`
	SubjectPrefix    string        `json:"subject_prefix"`
	SnapshotInterval time.Duration `json:"snapshot_interval"` // 0 disables KV publication
	Bucket           string        `json:"bucket"`
	InstanceID       string        `json:"instance_id,omitempty"` // generated when empty
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Ontology: OntologyConfig{
			Source: obo.Bundled,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
		NATS: NATSConfig{
			MaxReconnects:  -1,
			ReconnectWait:  2 * time.Second,
			ConnectTimeout: 5 * time.Second,
		},
		Service: ServiceConfig{
			Enabled:          false,
			SubjectPrefix:    "sonto",
			SnapshotInterval: 30 * time.Second,
			Bucket:           "SONTO_DIAGNOSTICS",
		},
	}
}

// Validate checks semantic constraints the schema cannot express
func (c *Config) Validate() error {
	if c.Ontology.Source == "" {
		return invalid("ontology.source is required")
	}

	c.Logging.Level = strings.ToLower(c.Logging.Level)
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid(fmt.Sprintf("logging.level %q must be debug, info, warn or error", c.Logging.Level))
	}
	c.Logging.Format = strings.ToLower(c.Logging.Format)
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return invalid(fmt.Sprintf("logging.format %q must be json or text", c.Logging.Format))
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
			return invalid(fmt.Sprintf("metrics.port %d out of range", c.Metrics.Port))
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return invalid(fmt.Sprintf("metrics.path %q must start with /", c.Metrics.Path))
		}
	}

	if c.NATS.ReconnectWait < 0 || c.NATS.ConnectTimeout < 0 {
		return invalid("nats durations cannot be negative")
	}

	if c.Service.Enabled {
		if len(c.NATS.URLs) == 0 {
			return invalid("service.enabled requires nats.urls")
		}
		if !isValidSubject(c.Service.SubjectPrefix) {
			return invalid(fmt.Sprintf(
				"service.subject_prefix %q is not valid for NATS subjects (alphanumeric with dots, dashes, underscores)",
				c.Service.SubjectPrefix))
		}
		if c.Service.SnapshotInterval < 0 {
			return invalid("service.snapshot_interval cannot be negative")
		}
		if c.Service.SnapshotInterval > 0 && !isValidSubjectPart(c.Service.Bucket) {
			return invalid(fmt.Sprintf("service.bucket %q is not a valid bucket name", c.Service.Bucket))
		}
	}

	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", errors.ErrInvalidConfig, msg)
}

// isValidSubject checks a dot separated NATS subject without wildcards
func isValidSubject(s string) bool {
	if s == "" {
		return false
	}
	for _, part := range strings.Split(s, ".") {
		if !isValidSubjectPart(part) {
			return false
		}
	}
	return true
}

// isValidSubjectPart checks a single subject token.
// Valid characters are alphanumeric, dashes, and underscores.
func isValidSubjectPart(s string) bool {
	if len(s) == 0 {
		return false
	}

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return false
		}
	}
	return true
}

// String returns a JSON representation of the config with secrets redacted
func (c *Config) String() string {
	redacted := *c
	if redacted.NATS.Password != "" {
		redacted.NATS.Password = "***"
	}
	if redacted.NATS.Token != "" {
		redacted.NATS.Token = "***"
	}
	data, _ := json.MarshalIndent(&redacted, "", "  ")
	return string(data)
}
