package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/sonto/errors"
	"github.com/c360/sonto/ontology/obo"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, obo.Bundled, cfg.Ontology.Source)
	assert.Equal(t, "SONTO_DIAGNOSTICS", cfg.Service.Bucket)
	assert.False(t, cfg.Service.Enabled)
}

func TestLoader_LoadYAML(t *testing.T) {
	p := writeConfig(t, "sonto.yaml", `
ontology:
  source: /data/so.zip
  archive_entry: so-xp-simple.obo
logging:
  level: debug
  format: json
nats:
  urls: ["nats://localhost:4222", "nats://localhost:4223"]
  max_reconnects: 10
  reconnect_wait: 5s
service:
  enabled: true
  subject_prefix: so.queries
  snapshot_interval: 1m30s
`)

	cfg, err := NewLoader().LoadFile(p)
	require.NoError(t, err)

	assert.Equal(t, "/data/so.zip", cfg.Ontology.Source)
	assert.Equal(t, "so-xp-simple.obo", cfg.Ontology.ArchiveEntry)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Len(t, cfg.NATS.URLs, 2)
	assert.Equal(t, 10, cfg.NATS.MaxReconnects)
	assert.Equal(t, 5*time.Second, cfg.NATS.ReconnectWait)
	assert.Equal(t, 5*time.Second, cfg.NATS.ConnectTimeout, "default kept")
	assert.True(t, cfg.Service.Enabled)
	assert.Equal(t, "so.queries", cfg.Service.SubjectPrefix)
	assert.Equal(t, 90*time.Second, cfg.Service.SnapshotInterval)
	assert.Equal(t, "SONTO_DIAGNOSTICS", cfg.Service.Bucket, "default kept")
	assert.True(t, cfg.Metrics.Enabled, "default kept")
}

func TestLoader_LoadJSON(t *testing.T) {
	p := writeConfig(t, "sonto.json", `{
		"metrics": {"enabled": false},
		"logging": {"level": "WARN"}
	}`)

	cfg, err := NewLoader().LoadFile(p)
	require.NoError(t, err)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "warn", cfg.Logging.Level, "level normalized")
	assert.Equal(t, 9090, cfg.Metrics.Port)
}

func TestLoader_LayersOverride(t *testing.T) {
	base := writeConfig(t, "base.yaml", `
logging:
  level: info
  format: json
metrics:
  port: 9100
`)
	override := writeConfig(t, "override.yaml", `
logging:
  level: debug
`)

	l := NewLoader()
	l.AddLayer(base)
	l.AddLayer(override)
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format, "untouched fields survive")
	assert.Equal(t, 9100, cfg.Metrics.Port)
}

func TestLoader_SchemaRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown section", "unknown:\n  x: 1\n"},
		{"unknown field", "logging:\n  colour: red\n"},
		{"bad level", "logging:\n  level: loud\n"},
		{"port out of range", "metrics:\n  port: 70000\n"},
		{"duration not a string", "nats:\n  reconnect_wait: 5\n"},
		{"malformed duration", "nats:\n  reconnect_wait: five seconds\n"},
		{"bad url scheme", "nats:\n  urls: [\"http://localhost\"]\n"},
		{"wildcard subject", "service:\n  subject_prefix: \"so.*\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeConfig(t, "sonto.yaml", tt.body)
			_, err := NewLoader().LoadFile(p)
			require.Error(t, err)
			assert.True(t, errors.IsFatal(err))
			assert.True(t, stderrors.Is(err, errors.ErrInvalidConfig))
		})
	}
}

func TestLoader_ValidationDisabled(t *testing.T) {
	p := writeConfig(t, "sonto.yaml", "logging:\n  level: loud\n")

	l := NewLoader()
	l.EnableValidation(false)
	cfg, err := l.LoadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "loud", cfg.Logging.Level)
}

func TestLoader_SemanticValidation(t *testing.T) {
	p := writeConfig(t, "sonto.yaml", "service:\n  enabled: true\n")

	_, err := NewLoader().LoadFile(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service.enabled requires nats.urls")
}

func TestLoader_FileErrors(t *testing.T) {
	_, err := NewLoader().LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
	assert.True(t, stderrors.Is(err, errors.ErrMissingConfig))

	p := writeConfig(t, "sonto.toml", "x = 1\n")
	_, err = NewLoader().LoadFile(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only YAML or JSON")

	p = writeConfig(t, "broken.yaml", "logging: [unterminated\n")
	_, err = NewLoader().LoadFile(p)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidConfig))
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("SONTO_ONTOLOGY_SOURCE", "/srv/so.obo.gz")
	t.Setenv("SONTO_LOG_LEVEL", "error")
	t.Setenv("SONTO_METRICS_PORT", "9200")
	t.Setenv("SONTO_METRICS_ENABLED", "false")
	t.Setenv("SONTO_NATS_URLS", "nats://a:4222,nats://b:4222")
	t.Setenv("SONTO_NATS_PASSWORD", "secret")
	t.Setenv("SONTO_SERVICE_ENABLED", "true")
	t.Setenv("SONTO_SERVICE_SNAPSHOT_INTERVAL", "10s")
	t.Setenv("SONTO_SERVICE_INSTANCE_ID", "node-1")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/so.obo.gz", cfg.Ontology.Source)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, 9200, cfg.Metrics.Port)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, []string{"nats://a:4222", "nats://b:4222"}, cfg.NATS.URLs)
	assert.True(t, cfg.Service.Enabled)
	assert.Equal(t, 10*time.Second, cfg.Service.SnapshotInterval)
	assert.Equal(t, "node-1", cfg.Service.InstanceID)

	assert.NotContains(t, cfg.String(), "secret")
	assert.Contains(t, cfg.String(), `"password": "***"`)
	assert.Equal(t, "secret", cfg.NATS.Password, "String does not mutate")
}

func TestLoader_EnvOverrideErrors(t *testing.T) {
	t.Setenv("SONTO_METRICS_PORT", "ninety")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
	assert.Contains(t, err.Error(), "SONTO_METRICS_PORT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"empty source", func(c *Config) { c.Ontology.Source = "" }, false},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, false},
		{"metrics port zero", func(c *Config) { c.Metrics.Port = 0 }, false},
		{"metrics disabled ignores port", func(c *Config) { c.Metrics.Enabled = false; c.Metrics.Port = 0 }, true},
		{"service without nats", func(c *Config) { c.Service.Enabled = true }, false},
		{"service with nats", func(c *Config) {
			c.Service.Enabled = true
			c.NATS.URLs = []string{"nats://localhost:4222"}
		}, true},
		{"service bad bucket", func(c *Config) {
			c.Service.Enabled = true
			c.NATS.URLs = []string{"nats://localhost:4222"}
			c.Service.Bucket = "bad bucket"
		}, false},
		{"service empty prefix segment", func(c *Config) {
			c.Service.Enabled = true
			c.NATS.URLs = []string{"nats://localhost:4222"}
			c.Service.SubjectPrefix = "so..isa"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, errors.ErrInvalidConfig))
		})
	}
}

func TestCheckJSONDepth(t *testing.T) {
	assert.NoError(t, checkJSONDepth([]byte(`{"a": {"b": ["c", "{not a bracket", "\\\"]"]}}`)))
	assert.Error(t, checkJSONDepth([]byte(`{"a": {`)))
	assert.Error(t, checkJSONDepth([]byte(`}`)))
	assert.Error(t, checkJSONDepth([]byte(strings.Repeat("[", maxLayerDepth+1)+strings.Repeat("]", maxLayerDepth+1))))
}

func TestLoader_LayerLimits(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "layer.yaml")
	require.NoError(t, os.Mkdir(dir, 0o700))
	_, err := NewLoader().LoadFile(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a regular file")

	big := writeConfig(t, "big.yaml", "# "+strings.Repeat("x", maxLayerSize)+"\n")
	_, err = NewLoader().LoadFile(big)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidConfig))
	assert.Contains(t, err.Error(), "limit")

	deep := writeConfig(t, "deep.json", `{"x":`+strings.Repeat("[", maxLayerDepth)+strings.Repeat("]", maxLayerDepth)+`}`)
	_, err = NewLoader().LoadFile(deep)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nesting deeper")
}

func TestLoader_EnvValueLimits(t *testing.T) {
	t.Setenv("SONTO_ONTOLOGY_SOURCE", strings.Repeat("s", maxEnvValueLen+1))

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SONTO_ONTOLOGY_SOURCE")
}

func TestSchema_IsCopy(t *testing.T) {
	s := Schema()
	require.NotEmpty(t, s)
	s[0] = 'x'
	assert.Equal(t, byte('{'), Schema()[0])
}
