package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, 30*time.Second, c.Codes.TTL)
	assert.Equal(t, "memory", c.Storage.Driver)
	assert.Equal(t, "store", c.Codes.Backend)
	assert.Equal(t, 32, c.Codes.Bytes)
}

func TestLoad_YAMLAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
storage:
  driver: postgres
  dsn: postgres://localhost/consolegate
codes:
  ttl: 45s
redis:
  addr: localhost:6379
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	t.Setenv("CODES_BACKEND", "redis")
	t.Setenv("BOOTSTRAP_PLATFORM_ADMINS", "u1, u2,,")

	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, "postgres", c.Storage.Driver)
	assert.Equal(t, 45*time.Second, c.Codes.TTL)
	assert.Equal(t, "redis", c.Codes.Backend)
	assert.Equal(t, []string{"u1", "u2"}, c.Bootstrap.PlatformAdmins)
	assert.True(t, c.NeedsRedis())
}

func TestValidate_CollectsErrors(t *testing.T) {
	c := Default()
	c.Storage.Driver = "postgres"
	c.Codes.TTL = 10 * time.Minute
	c.Cache.Kind = "redis"
	c.App.Env = "prod"

	err := c.Validate()
	require.Error(t, err)
	for _, want := range []string{"storage.dsn", "codes.ttl", "redis.addr", "signing_seed"} {
		assert.Contains(t, err.Error(), want)
	}
}
