package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies VSYOD_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known VSYOD_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "VSYOD_CHAIN_RPC_URL")
	setStr(&cfg.Chain.PackageID, "VSYOD_CHAIN_PACKAGE_ID")
	setStr(&cfg.Chain.Module, "VSYOD_CHAIN_MODULE")
	setStr(&cfg.Chain.CoinType, "VSYOD_CHAIN_COIN_TYPE")

	// ── Database ──
	setStr(&cfg.Database.DSN, "VSYOD_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "VSYOD_DATABASE_URL") // compatibility alias
	setStr(&cfg.Database.Host, "VSYOD_DATABASE_HOST")
	setInt(&cfg.Database.Port, "VSYOD_DATABASE_PORT")
	setStr(&cfg.Database.Database, "VSYOD_DATABASE_DATABASE")
	setStr(&cfg.Database.User, "VSYOD_DATABASE_USER")
	setStr(&cfg.Database.Password, "VSYOD_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "VSYOD_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "VSYOD_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "VSYOD_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "VSYOD_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "VSYOD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "VSYOD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "VSYOD_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "VSYOD_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "VSYOD_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "VSYOD_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "VSYOD_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "VSYOD_S3_REGION")
	setStr(&cfg.S3.Bucket, "VSYOD_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "VSYOD_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "VSYOD_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "VSYOD_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "VSYOD_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "VSYOD_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "VSYOD_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "VSYOD_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "VSYOD_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimitPerMin, "VSYOD_SERVER_RATE_LIMIT_PER_MIN")
	setBool(&cfg.Server.RateLimitEnabled, "VSYOD_SERVER_RATE_LIMIT_ENABLED")

	// ── Indexer ──
	setBool(&cfg.Indexer.Enabled, "VSYOD_INDEXER_ENABLED")
	setDuration(&cfg.Indexer.PollInterval, "VSYOD_INDEXER_POLL_INTERVAL")
	setDuration(&cfg.Indexer.SnapshotInterval, "VSYOD_INDEXER_SNAPSHOT_INTERVAL")
	setInt(&cfg.Indexer.EventPageSize, "VSYOD_INDEXER_EVENT_PAGE_SIZE")
	setInt(&cfg.Indexer.ArchiveRetentionDays, "VSYOD_INDEXER_ARCHIVE_RETENTION_DAYS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "VSYOD_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "VSYOD_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "VSYOD_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "VSYOD_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "VSYOD_MODE")
	setStr(&cfg.LogLevel, "VSYOD_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
