package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load() with missing file: %v", err)
	}

	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Redis.Addr = %q", cfg.Redis.Addr)
	}
	if cfg.Engine.Depth != 10 {
		t.Errorf("Engine.Depth = %d, want 10", cfg.Engine.Depth)
	}
	if cfg.Engine.TradeCapacity != 1000 {
		t.Errorf("Engine.TradeCapacity = %d, want 1000", cfg.Engine.TradeCapacity)
	}
	if cfg.Feed.Source != "synthetic" {
		t.Errorf("Feed.Source = %q", cfg.Feed.Source)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
log_level = "debug"

[redis]
addr = "redis.internal:6380"

[feed]
symbols = ["NIFTY", "BANKNIFTY"]

[engine]
depth = 25
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Redis.Addr != "redis.internal:6380" {
		t.Errorf("Redis.Addr = %q", cfg.Redis.Addr)
	}
	if len(cfg.Feed.Symbols) != 2 || cfg.Feed.Symbols[1] != "BANKNIFTY" {
		t.Errorf("Feed.Symbols = %v", cfg.Feed.Symbols)
	}
	if cfg.Engine.Depth != 25 {
		t.Errorf("Engine.Depth = %d, want 25", cfg.Engine.Depth)
	}
	// Unset file fields keep their defaults.
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080", cfg.Server.Port)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TICKD_REDIS_ADDR", "override:6379")
	t.Setenv("TICKD_FEED_SYMBOLS", "AAA, BBB ,CCC")
	t.Setenv("TICKD_ENGINE_DEPTH", "7")
	t.Setenv("TICKD_SERVER_ENABLED", "false")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Redis.Addr != "override:6379" {
		t.Errorf("Redis.Addr = %q", cfg.Redis.Addr)
	}
	if len(cfg.Feed.Symbols) != 3 || cfg.Feed.Symbols[1] != "BBB" {
		t.Errorf("Feed.Symbols = %v", cfg.Feed.Symbols)
	}
	if cfg.Engine.Depth != 7 {
		t.Errorf("Engine.Depth = %d", cfg.Engine.Depth)
	}
	if cfg.Server.Enabled {
		t.Error("Server.Enabled should be overridden to false")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"Missing Redis Addr", func(c *Config) { c.Redis.Addr = "" }},
		{"Unknown Feed Source", func(c *Config) { c.Feed.Source = "fix" }},
		{"No Symbols", func(c *Config) { c.Feed.Symbols = nil }},
		{"Zero Depth", func(c *Config) { c.Engine.Depth = 0 }},
		{"Bad Port", func(c *Config) { c.Server.Port = 70000 }},
		{"Bad Log Level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() accepted an invalid config")
			}
		})
	}
}
