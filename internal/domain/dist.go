package domain

import (
	"context"
	"time"
)

// ConnState is the distributor connection state.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

// String returns the lowercase state name for logs and status payloads.
func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Distributor is the publish/subscribe transport the engine fans updates out
// on. Publish and the key-value operations fail fast with ErrNotConnected
// while the transport is down; they never block waiting for a reconnect.
type Distributor interface {
	// Publish sends payload on a named channel.
	Publish(ctx context.Context, channel string, payload []byte) error

	// SetValue stores a key with an optional expiry (ttl <= 0 means no
	// expiry). Used for lightweight state sharing such as the last-price
	// cache.
	SetValue(ctx context.Context, key, value string, ttl time.Duration) error

	// GetValue fetches a key; ErrNotFound when absent or expired.
	GetValue(ctx context.Context, key string) (string, error)

	// Subscribe returns a channel of raw payloads for a channel name,
	// which may contain glob-style wildcards. The returned channel closes
	// when ctx is cancelled.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)

	// Ping checks transport liveness.
	Ping(ctx context.Context) error

	// State reports the current connection state.
	State() ConnState
}
