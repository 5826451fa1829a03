package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flunq-io/restinvoke/internal/mapping"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.HTTP.MaxTotal)
	assert.Equal(t, 200, cfg.HTTP.MaxPerRoute)
	assert.Equal(t, time.Duration(0), cfg.HTTP.Timeout)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Store.TTL)
	assert.False(t, cfg.Events.Enabled)
	assert.False(t, cfg.NeedsRedis())
	assert.Equal(t, mapping.SplitFirstColon, cfg.SplitMode())

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)

	inv := cfg.InvokerConfig()
	assert.Equal(t, 200, inv.MaxTotal)
	assert.Equal(t, "text/plain; charset=utf-8", inv.ContentType)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("RESTINVOKE_HTTP_TIMEOUT", "15s")
	t.Setenv("RESTINVOKE_HTTP_MAX_TOTAL", "10")
	t.Setenv("RESTINVOKE_MAPPING_LEGACY_COLON_SPLIT", "true")
	t.Setenv("RESTINVOKE_EVENTS_ENABLED", "true")
	t.Setenv("RESTINVOKE_STORE_TTL", "10m")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 10, cfg.HTTP.MaxTotal)
	assert.Equal(t, mapping.SplitLegacy, cfg.SplitMode())
	assert.Equal(t, 10*time.Minute, cfg.Store.TTL)
	assert.True(t, cfg.NeedsRedis())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "restinvoke.yaml")
	content := `
http:
  max_total: 50
  max_per_route: 20
store:
  backend: redis
redis:
  addr: redis:6379
definition:
  path: /etc/restinvoke/inventory.yaml
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.HTTP.MaxTotal)
	assert.Equal(t, 20, cfg.HTTP.MaxPerRoute)
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "/etc/restinvoke/inventory.yaml", cfg.Definition)
	assert.True(t, cfg.NeedsRedis())
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	t.Run("store backend", func(t *testing.T) {
		t.Setenv("RESTINVOKE_STORE_BACKEND", "postgres")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("pool size", func(t *testing.T) {
		t.Setenv("RESTINVOKE_HTTP_MAX_PER_ROUTE", "0")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("negative ttl", func(t *testing.T) {
		t.Setenv("RESTINVOKE_STORE_TTL", "-1m")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}
