package redis

import (
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	min := time.Second
	max := 30 * time.Second

	t.Run("Grows Exponentially", func(t *testing.T) {
		want := []time.Duration{
			1 * time.Second,
			2 * time.Second,
			4 * time.Second,
			8 * time.Second,
			16 * time.Second,
		}
		for attempt, w := range want {
			if got := backoff(min, max, attempt); got != w {
				t.Errorf("backoff(attempt=%d) = %v, want %v", attempt, got, w)
			}
		}
	})

	t.Run("Caps At Max", func(t *testing.T) {
		for _, attempt := range []int{5, 10, 62, 63, 100} {
			if got := backoff(min, max, attempt); got != max {
				t.Errorf("backoff(attempt=%d) = %v, want cap %v", attempt, got, max)
			}
		}
	})
}

func TestHasPattern(t *testing.T) {
	cases := []struct {
		channel string
		want    bool
	}{
		{"orderbook:NIFTY", false},
		{"orderbook:*", true},
		{"trades:?", true},
		{"x[ab]y", true},
		{"last_price:NIFTY", false},
	}
	for _, c := range cases {
		if got := hasPattern(c.channel); got != c.want {
			t.Errorf("hasPattern(%q) = %v, want %v", c.channel, got, c.want)
		}
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{Addr: "localhost:6379"}.withDefaults()

	if cfg.OpTimeout != 5*time.Second {
		t.Errorf("OpTimeout = %v", cfg.OpTimeout)
	}
	if cfg.HeartbeatInterval != 30*time.Second {
		t.Errorf("HeartbeatInterval = %v", cfg.HeartbeatInterval)
	}
	if cfg.ReconnectMin != time.Second || cfg.ReconnectMax != 30*time.Second {
		t.Errorf("backoff bounds = %v..%v", cfg.ReconnectMin, cfg.ReconnectMax)
	}

	t.Run("Explicit Values Kept", func(t *testing.T) {
		cfg := Config{OpTimeout: time.Second, HeartbeatInterval: time.Minute}.withDefaults()
		if cfg.OpTimeout != time.Second || cfg.HeartbeatInterval != time.Minute {
			t.Errorf("explicit values overridden: %+v", cfg)
		}
	})
}
