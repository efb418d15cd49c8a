package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies TICKD_* environment variable overrides, and
// returns the final Config. A missing file is not an error: defaults plus
// environment overrides are enough to run the synthetic feed. The returned
// Config has NOT been validated; call Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return nil, err
			}
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known TICKD_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject the Redis password and deployment-specific knobs
// without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Redis.Addr, "TICKD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "TICKD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "TICKD_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "TICKD_REDIS_POOL_SIZE")
	setBool(&cfg.Redis.TLSEnabled, "TICKD_REDIS_TLS_ENABLED")
	setInt(&cfg.Redis.OpTimeoutMs, "TICKD_REDIS_OP_TIMEOUT_MS")
	setInt(&cfg.Redis.HeartbeatSec, "TICKD_REDIS_HEARTBEAT_SEC")
	setInt(&cfg.Redis.ReconnectMinMs, "TICKD_REDIS_RECONNECT_MIN_MS")
	setInt(&cfg.Redis.ReconnectMaxMs, "TICKD_REDIS_RECONNECT_MAX_MS")

	setStr(&cfg.Feed.Source, "TICKD_FEED_SOURCE")
	setStrSlice(&cfg.Feed.Symbols, "TICKD_FEED_SYMBOLS")
	setInt(&cfg.Feed.IntervalMs, "TICKD_FEED_INTERVAL_MS")
	setFloat64(&cfg.Feed.BasePrice, "TICKD_FEED_BASE_PRICE")
	setFloat64(&cfg.Feed.PriceBand, "TICKD_FEED_PRICE_BAND")
	setFloat64(&cfg.Feed.TradeChance, "TICKD_FEED_TRADE_CHANCE")

	setInt(&cfg.Engine.Depth, "TICKD_ENGINE_DEPTH")
	setInt(&cfg.Engine.TradeCapacity, "TICKD_ENGINE_TRADE_CAPACITY")
	setInt(&cfg.Engine.LastPriceTTLSec, "TICKD_ENGINE_LAST_PRICE_TTL_SEC")

	setBool(&cfg.Server.Enabled, "TICKD_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "TICKD_SERVER_PORT")

	setStr(&cfg.LogLevel, "TICKD_LOG_LEVEL")
	setStr(&cfg.LogFile, "TICKD_LOG_FILE")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setStrSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			*dst = out
		}
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
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
