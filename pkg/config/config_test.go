package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "units", cfg.UnitsDir)
	assert.Equal(t, StoreMemory, cfg.Store.Backend)
	assert.Equal(t, ActuatorSimulated, cfg.Actuator.Backend)
	assert.True(t, cfg.Actuator.FailsafeEnabled())
}

func TestLoad_YAML(t *testing.T) {
	path := write(t, "autopilot.yaml", `
units_dir: ./flows
log_level: debug
store:
  backend: redis
  redis:
    addr: redis:6379
    ttl: 24h
actuator:
  backend: xdotool
  failsafe: false
commands:
  - name: matcher
    command: /usr/local/bin/find-template
    args: [--gray]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "./flows", cfg.UnitsDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, StoreRedis, cfg.Store.Backend)
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
	ttl, err := cfg.Store.Redis.TTLDuration()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, ttl)
	assert.False(t, cfg.Actuator.FailsafeEnabled())
	require.Len(t, cfg.Commands, 1)
	assert.Equal(t, []string{"--gray"}, cfg.Commands[0].Args)
	assert.Equal(t, ":8080", cfg.HTTP.Addr, "unset fields keep defaults")
}

func TestLoad_JSON(t *testing.T) {
	path := write(t, "autopilot.json", `{"http": {"addr": ":9090"}, "store": {"backend": "file", "path": "/tmp/st"}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, StoreFile, cfg.Store.Backend)
	assert.Equal(t, "/tmp/st", cfg.Store.Path)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":     "store: [",
		"bad backend":  "store: {backend: etcd}",
		"bad actuator": "actuator: {backend: robot}",
		"bad ttl":      "store: {redis: {ttl: soon}}",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(write(t, "c.yaml", content))
			assert.Error(t, err)
		})
	}
}
