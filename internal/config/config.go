// Package config defines the tickd configuration and validation helpers.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by TICKD_* environment variables.
type Config struct {
	Redis    RedisConfig  `toml:"redis"`
	Feed     FeedConfig   `toml:"feed"`
	Engine   EngineConfig `toml:"engine"`
	Server   ServerConfig `toml:"server"`
	LogLevel string       `toml:"log_level"`
	LogFile  string       `toml:"log_file"`
}

// RedisConfig holds distribution transport parameters.
type RedisConfig struct {
	Addr           string `toml:"addr"`
	Password       string `toml:"password"`
	DB             int    `toml:"db"`
	PoolSize       int    `toml:"pool_size"`
	TLSEnabled     bool   `toml:"tls_enabled"`
	OpTimeoutMs    int    `toml:"op_timeout_ms"`
	HeartbeatSec   int    `toml:"heartbeat_sec"`
	ReconnectMinMs int    `toml:"reconnect_min_ms"`
	ReconnectMaxMs int    `toml:"reconnect_max_ms"`
}

// FeedConfig selects and tunes the ingestion source.
type FeedConfig struct {
	// Source is "synthetic" for the built-in generator. Real adapters
	// register under their own names.
	Source      string   `toml:"source"`
	Symbols     []string `toml:"symbols"`
	IntervalMs  int      `toml:"interval_ms"`
	BasePrice   float64  `toml:"base_price"`
	PriceBand   float64  `toml:"price_band"`
	TradeChance float64  `toml:"trade_chance"`
}

// EngineConfig tunes snapshot publishing.
type EngineConfig struct {
	Depth           int `toml:"depth"`
	TradeCapacity   int `toml:"trade_capacity"`
	LastPriceTTLSec int `toml:"last_price_ttl_sec"`
}

// ServerConfig holds the HTTP/WebSocket API parameters.
type ServerConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Redis: RedisConfig{
			Addr:           "localhost:6379",
			PoolSize:       10,
			OpTimeoutMs:    5000,
			HeartbeatSec:   30,
			ReconnectMinMs: 1000,
			ReconnectMaxMs: 30000,
		},
		Feed: FeedConfig{
			Source:      "synthetic",
			Symbols:     []string{"NIFTY"},
			IntervalMs:  10,
			BasePrice:   100.0,
			PriceBand:   1.0,
			TradeChance: 0.1,
		},
		Engine: EngineConfig{
			Depth:           10,
			TradeCapacity:   1000,
			LastPriceTTLSec: 60,
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    8080,
		},
		LogLevel: "info",
	}
}

// OpTimeout returns the transport call timeout as a duration.
func (c RedisConfig) OpTimeout() time.Duration {
	return time.Duration(c.OpTimeoutMs) * time.Millisecond
}

// HeartbeatInterval returns the heartbeat period as a duration.
func (c RedisConfig) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatSec) * time.Second
}

// ReconnectMin returns the backoff floor as a duration.
func (c RedisConfig) ReconnectMin() time.Duration {
	return time.Duration(c.ReconnectMinMs) * time.Millisecond
}

// ReconnectMax returns the backoff cap as a duration.
func (c RedisConfig) ReconnectMax() time.Duration {
	return time.Duration(c.ReconnectMaxMs) * time.Millisecond
}

// Interval returns the synthetic tick period as a duration.
func (c FeedConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

// LastPriceTTL returns the last-price cache expiry as a duration.
func (c EngineConfig) LastPriceTTL() time.Duration {
	return time.Duration(c.LastPriceTTLSec) * time.Second
}

// Validate checks the configuration for values that cannot work at runtime.
func (c *Config) Validate() error {
	if c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required")
	}
	switch c.Feed.Source {
	case "synthetic":
	default:
		return fmt.Errorf("config: unsupported feed.source %q", c.Feed.Source)
	}
	if len(c.Feed.Symbols) == 0 {
		return fmt.Errorf("config: feed.symbols must not be empty")
	}
	if c.Engine.Depth <= 0 {
		return fmt.Errorf("config: engine.depth must be positive")
	}
	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	return nil
}
