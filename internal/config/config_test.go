package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Chain.PackageID = "0xpkg"
	return cfg
}

func TestDefaultsValidateExceptPackageID(t *testing.T) {
	cfg := Defaults()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "package_id")

	cfg.Chain.PackageID = "0xpkg"
	assert.NoError(t, cfg.Validate())
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "bogus"
	cfg.Redis.Addr = ""
	cfg.Server.Port = 70000

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "redis: addr")
	assert.Contains(t, err.Error(), "server: port")
}

func TestValidatePoolBounds(t *testing.T) {
	cfg := validConfig()
	cfg.Database.PoolMinConns = 20
	cfg.Database.PoolMaxConns = 10

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pool_min_conns must not exceed pool_max_conns")
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
mode = "serve"
log_level = "debug"

[chain]
package_id = "0xdeadbeef"

[indexer]
poll_interval = "10s"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "serve", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "0xdeadbeef", cfg.Chain.PackageID)
	assert.Equal(t, 10*time.Second, cfg.Indexer.PollInterval.Duration)
	// untouched sections keep defaults
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "vsyo", cfg.Chain.Module)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`[redis]
addr = "file:6379"
`), 0o600))

	t.Setenv("VSYOD_REDIS_ADDR", "env:6379")
	t.Setenv("VSYOD_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("VSYOD_INDEXER_POLL_INTERVAL", "30s")
	t.Setenv("VSYOD_DATABASE_RUN_MIGRATIONS", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env:6379", cfg.Redis.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 30*time.Second, cfg.Indexer.PollInterval.Duration)
	assert.False(t, cfg.Database.RunMigrations)
}

func TestRedactedConfigHidesSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Password = "hunter2"
	cfg.Redis.Password = "hunter2"
	cfg.S3.SecretKey = "hunter2"
	cfg.Server.APIKey = "hunter2"
	cfg.Notify.TelegramToken = "hunter2"

	red := RedactedConfig(&cfg)

	assert.Equal(t, "***", red.Database.Password)
	assert.Equal(t, "***", red.Redis.Password)
	assert.Equal(t, "***", red.S3.SecretKey)
	assert.Equal(t, "***", red.Server.APIKey)
	assert.Equal(t, "***", red.Notify.TelegramToken)
	// originals untouched
	assert.Equal(t, "hunter2", cfg.Database.Password)
	// empty secrets stay empty rather than becoming "***"
	assert.Empty(t, red.S3.AccessKey)
}
