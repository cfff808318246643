package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 3, cfg.Engine.ConflictRetries)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "salesdoc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
store:
  driver: postgres
  dsn: postgres://localhost/salesdoc
engine:
  plugin_timeout: 2s
redis:
  addr: localhost:6379
notify:
  enabled: true
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 2*time.Second, cfg.Engine.PluginTimeout)
	assert.Equal(t, 4, cfg.Engine.NumberWidth, "unset keys keep defaults")
	assert.True(t, cfg.Notify.Enabled)
	assert.Equal(t, "notifications", cfg.Notify.Queue)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"SALESDOC_STORE_DRIVER":    "sqlite",
		"SALESDOC_STORE_DSN":       "file:test.db",
		"SALESDOC_NUMBER_WIDTH":    "6",
		"SALESDOC_REDIS_NUMBERING": "true",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := DefaultConfig()
	require.NoError(t, cfg.applyEnv(lookup))
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 6, cfg.Engine.NumberWidth)
	assert.True(t, cfg.Redis.Numbering)
	assert.ErrorIs(t, cfg.Validate(), errRedisRequired)

	env["SALESDOC_NUMBER_WIDTH"] = "wide"
	assert.Error(t, cfg.applyEnv(lookup))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"unknown driver", func(c *Config) { c.Store.Driver = "oracle" }, true},
		{"sqlite without dsn", func(c *Config) { c.Store.Driver = "sqlite" }, true},
		{"notify without redis", func(c *Config) { c.Notify.Enabled = true }, true},
		{"notify with redis", func(c *Config) {
			c.Notify.Enabled = true
			c.Redis.Addr = "localhost:6379"
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}
