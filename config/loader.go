package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/sonto/errors"
)

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		layers:     []string{},
		validation: true,
		envPrefix:  "SONTO",
	}
}

// AddLayer adds a configuration file layer. Later layers override earlier ones.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load merges the defaults, every layer and the environment, then validates
// the result.
func (l *Loader) Load() (*Config, error) {
	merged, err := toMap(Default())
	if err != nil {
		return nil, errors.WrapFatal(err, "Loader", "Load", "encode defaults")
	}

	for _, path := range l.layers {
		raw, err := l.loadRaw(path)
		if err != nil {
			return nil, errors.WrapFatal(err, "Loader", "Load", "load "+path)
		}
		if l.validation {
			if err := validateSchema(raw); err != nil {
				return nil, errors.WrapFatal(err, "Loader", "Load", "validate "+path)
			}
		}
		if err := parseDurations(raw); err != nil {
			return nil, errors.WrapFatal(err, "Loader", "Load", "parse durations in "+path)
		}
		merged = deepMergeMaps(merged, raw)
	}

	cfg, err := fromMap(merged)
	if err != nil {
		return nil, errors.WrapFatal(err, "Loader", "Load", "decode configuration")
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, errors.WrapFatal(err, "Loader", "Load", "apply environment overrides")
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, errors.WrapFatal(err, "Loader", "Load", "validate configuration")
		}
	}

	return cfg, nil
}

// loadRaw reads a YAML or JSON layer into a generic map
func (l *Loader) loadRaw(path string) (map[string]any, error) {
	data, format, err := readLayer(path)
	if err != nil {
		return nil, err
	}

	raw := make(map[string]any)
	if format == formatJSON {
		if err := checkJSONDepth(data); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
		}
		return raw, nil
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
	}
	return raw, nil
}

var durationFields = map[string][]string{
	"nats":    {"reconnect_wait", "connect_timeout"},
	"service": {"snapshot_interval"},
}

// parseDurations converts duration strings to nanoseconds for json unmarshaling
func parseDurations(data map[string]any) error {
	for section, fields := range durationFields {
		m, ok := data[section].(map[string]any)
		if !ok {
			continue
		}
		for _, field := range fields {
			s, ok := m[field].(string)
			if !ok {
				continue
			}
			d, err := time.ParseDuration(s)
			if err != nil {
				return fmt.Errorf("%w: %s.%s: %v", errors.ErrInvalidConfig, section, field, err)
			}
			m[field] = d.Nanoseconds()
		}
	}
	return nil
}

// deepMergeMaps recursively merges two maps, with override taking precedence
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}
		if baseMap, ok := base[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}

	return result
}

func toMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func fromMap(m map[string]any) (*Config, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
	}
	return &cfg, nil
}

// applyEnvOverrides applies <prefix>_* environment variables
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	var firstErr error
	env := func(name string) (string, bool) {
		key := l.envPrefix + "_" + name
		val := os.Getenv(key)
		if val == "" {
			return "", false
		}
		if err := checkEnvValue(key, val); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return "", false
		}
		return val, true
	}
	envBool := func(name string, target *bool) {
		if val, ok := env(name); ok {
			b, err := strconv.ParseBool(val)
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("%s_%s: %w", l.envPrefix, name, err)
				}
				return
			}
			*target = b
		}
	}
	envInt := func(name string, target *int) {
		if val, ok := env(name); ok {
			n, err := strconv.Atoi(val)
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("%s_%s: %w", l.envPrefix, name, err)
				}
				return
			}
			*target = n
		}
	}
	envDuration := func(name string, target *time.Duration) {
		if val, ok := env(name); ok {
			d, err := time.ParseDuration(val)
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("%s_%s: %w", l.envPrefix, name, err)
				}
				return
			}
			*target = d
		}
	}

	// Ontology overrides
	if val, ok := env("ONTOLOGY_SOURCE"); ok {
		cfg.Ontology.Source = val
	}
	if val, ok := env("ONTOLOGY_ARCHIVE_ENTRY"); ok {
		cfg.Ontology.ArchiveEntry = val
	}

	// Logging overrides
	if val, ok := env("LOG_LEVEL"); ok {
		cfg.Logging.Level = val
	}
	if val, ok := env("LOG_FORMAT"); ok {
		cfg.Logging.Format = val
	}

	// Metrics overrides
	envBool("METRICS_ENABLED", &cfg.Metrics.Enabled)
	envInt("METRICS_PORT", &cfg.Metrics.Port)

	// NATS overrides
	if val, ok := env("NATS_URLS"); ok {
		cfg.NATS.URLs = strings.Split(val, ",")
	}
	if val, ok := env("NATS_USERNAME"); ok {
		cfg.NATS.Username = val
	}
	if val, ok := env("NATS_PASSWORD"); ok {
		cfg.NATS.Password = val
	}
	if val, ok := env("NATS_TOKEN"); ok {
		cfg.NATS.Token = val
	}

	// Service overrides
	envBool("SERVICE_ENABLED", &cfg.Service.Enabled)
	if val, ok := env("SERVICE_SUBJECT_PREFIX"); ok {
		cfg.Service.SubjectPrefix = val
	}
	envDuration("SERVICE_SNAPSHOT_INTERVAL", &cfg.Service.SnapshotInterval)
	if val, ok := env("SERVICE_INSTANCE_ID"); ok {
		cfg.Service.InstanceID = val
	}

	return firstErr
}
