// Package redis implements the domain.Distributor interface using
// go-redis/v9: pub/sub fan-out, key-value state sharing, and a heartbeat
// that reconnects with capped exponential backoff.
package redis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quantfeed/tickd/internal/domain"
)

// Config holds connection and heartbeat parameters for the Client.
type Config struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	TLSEnabled bool

	// OpTimeout bounds every transport call (publish, ping, kv) so a hung
	// transport delays, never blocks, the caller.
	OpTimeout time.Duration

	// HeartbeatInterval is the period between liveness pings.
	HeartbeatInterval time.Duration

	// ReconnectMin/ReconnectMax bound the exponential reconnect backoff.
	ReconnectMin time.Duration
	ReconnectMax time.Duration
}

func (c Config) withDefaults() Config {
	if c.OpTimeout <= 0 {
		c.OpTimeout = 5 * time.Second
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 30 * time.Second
	}
	if c.ReconnectMin <= 0 {
		c.ReconnectMin = time.Second
	}
	if c.ReconnectMax <= 0 {
		c.ReconnectMax = 30 * time.Second
	}
	return c
}

// Client is a Redis-backed distributor. Connection state transitions are
// funneled through a single heartbeat goroutine: publishers that hit a
// transport error report it on the down channel rather than mutating shared
// state, so a reconnect can neither be missed nor run twice.
type Client struct {
	cfg    Config
	logger *slog.Logger

	mu    sync.RWMutex
	rdb   *redis.Client
	state atomic.Int32

	down chan struct{}
	stop chan struct{}
	wg   sync.WaitGroup
}

// New creates a Client and establishes the initial connection. The caller
// treats an error here as fatal: without distribution the engine has no
// purpose. Call Start to begin heartbeating and Close to shut down.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	c := &Client{
		cfg:    cfg.withDefaults(),
		logger: logger.With(slog.String("component", "dist_redis")),
		down:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
	}
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// connect dials Redis and verifies the session with a ping. Authentication
// (when a password is configured) happens during the handshake; a failed
// AUTH surfaces as a connect error and is not retried here.
func (c *Client) connect(ctx context.Context) error {
	c.setState(domain.StateConnecting)

	opts := &redis.Options{
		Addr:     c.cfg.Addr,
		Password: c.cfg.Password,
		DB:       c.cfg.DB,
		PoolSize: c.cfg.PoolSize,
		// The client fails fast; retries are owned by the heartbeat.
		MaxRetries:   -1,
		ReadTimeout:  c.cfg.OpTimeout,
		WriteTimeout: c.cfg.OpTimeout,
	}
	if c.cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, c.cfg.OpTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		c.setState(domain.StateDisconnected)
		return fmt.Errorf("redis: connect %s: %w", c.cfg.Addr, err)
	}

	c.mu.Lock()
	old := c.rdb
	c.rdb = rdb
	c.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}

	c.setState(domain.StateConnected)
	c.logger.Info("connected", slog.String("addr", c.cfg.Addr), slog.Int("db", c.cfg.DB))
	return nil
}

// Start launches the heartbeat goroutine.
func (c *Client) Start() {
	c.wg.Add(1)
	go c.heartbeat()
}

// Close stops the heartbeat and closes the connection.
func (c *Client) Close() error {
	close(c.stop)
	c.wg.Wait()

	c.mu.Lock()
	rdb := c.rdb
	c.rdb = nil
	c.mu.Unlock()

	c.setState(domain.StateDisconnected)
	if rdb != nil {
		return rdb.Close()
	}
	return nil
}

// heartbeat pings the transport every HeartbeatInterval and reconnects when
// a ping fails or a publisher reports the connection down. Failures are
// logged, never propagated to publish callers.
func (c *Client) heartbeat() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-c.down:
			c.logger.Warn("connection reported down, reconnecting")
			c.reconnect()
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.cfg.OpTimeout)
			err := c.Ping(ctx)
			cancel()
			if err != nil {
				c.logger.Warn("heartbeat ping failed", slog.String("error", err.Error()))
				c.setState(domain.StateDisconnected)
				c.reconnect()
			}
		}
	}
}

// reconnect retries connect with capped exponential backoff until it
// succeeds or the client is closed.
func (c *Client) reconnect() {
	for attempt := 0; ; attempt++ {
		select {
		case <-c.stop:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.OpTimeout)
		err := c.connect(ctx)
		cancel()
		if err == nil {
			c.logger.Info("reconnected", slog.Int("attempts", attempt+1))
			// Drain a stale down report raced in while reconnecting.
			select {
			case <-c.down:
			default:
			}
			return
		}

		delay := backoff(c.cfg.ReconnectMin, c.cfg.ReconnectMax, attempt)
		c.logger.Warn("reconnect failed",
			slog.Int("attempt", attempt+1),
			slog.Duration("retry_in", delay),
			slog.String("error", err.Error()),
		)
		select {
		case <-c.stop:
			return
		case <-time.After(delay):
		}
	}
}

// backoff returns min(max, min<<attempt), saturating on overflow.
func backoff(min, max time.Duration, attempt int) time.Duration {
	if attempt >= 63 {
		return max
	}
	d := min << uint(attempt)
	if d <= 0 || d > max {
		return max
	}
	return d
}

// markDown flags the connection as dead and wakes the heartbeat goroutine to
// reconnect. Non-blocking: one pending report is enough.
func (c *Client) markDown() {
	c.setState(domain.StateDisconnected)
	select {
	case c.down <- struct{}{}:
	default:
	}
}

func (c *Client) setState(s domain.ConnState) {
	c.state.Store(int32(s))
}

// State reports the current connection state.
func (c *Client) State() domain.ConnState {
	return domain.ConnState(c.state.Load())
}

// Connected reports whether the client is currently connected.
func (c *Client) Connected() bool {
	return c.State() == domain.StateConnected
}

// conn returns the live driver handle, or an error while disconnected.
func (c *Client) conn() (*redis.Client, error) {
	if !c.Connected() {
		return nil, domain.ErrNotConnected
	}
	c.mu.RLock()
	rdb := c.rdb
	c.mu.RUnlock()
	if rdb == nil {
		return nil, domain.ErrNotConnected
	}
	return rdb, nil
}

// Publish sends payload on a pub/sub channel. It fails fast while
// disconnected and flags the connection down on a transport error; it never
// blocks waiting for a reconnect.
func (c *Client) Publish(ctx context.Context, channel string, payload []byte) error {
	rdb, err := c.conn()
	if err != nil {
		return err
	}

	opCtx, cancel := context.WithTimeout(ctx, c.cfg.OpTimeout)
	defer cancel()
	if err := rdb.Publish(opCtx, channel, payload).Err(); err != nil {
		c.markDown()
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// SetValue stores key=value with an optional expiry (ttl <= 0 means none).
func (c *Client) SetValue(ctx context.Context, key, value string, ttl time.Duration) error {
	rdb, err := c.conn()
	if err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}

	opCtx, cancel := context.WithTimeout(ctx, c.cfg.OpTimeout)
	defer cancel()
	if err := rdb.Set(opCtx, key, value, ttl).Err(); err != nil {
		c.markDown()
		return fmt.Errorf("redis: set %s: %w", key, err)
	}
	return nil
}

// GetValue fetches a key, returning domain.ErrNotFound when absent.
func (c *Client) GetValue(ctx context.Context, key string) (string, error) {
	rdb, err := c.conn()
	if err != nil {
		return "", err
	}

	opCtx, cancel := context.WithTimeout(ctx, c.cfg.OpTimeout)
	defer cancel()
	val, err := rdb.Get(opCtx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrNotFound
		}
		c.markDown()
		return "", fmt.Errorf("redis: get %s: %w", key, err)
	}
	return val, nil
}

// Subscribe creates a pub/sub subscription and returns a read-only channel
// of raw payloads. Glob-style channel names use PSubscribe. The
// subscription closes when ctx is cancelled.
func (c *Client) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	rdb, err := c.conn()
	if err != nil {
		return nil, err
	}

	var pubsub *redis.PubSub
	if hasPattern(channel) {
		pubsub = rdb.PSubscribe(ctx, channel)
	} else {
		pubsub = rdb.Subscribe(ctx, channel)
	}

	// Receive the subscription confirmation before handing out the channel.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", channel, err)
	}

	out := make(chan []byte, 128)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// hasPattern reports whether a channel name contains glob-style wildcards,
// which require PSubscribe.
func hasPattern(channel string) bool {
	return strings.ContainsAny(channel, "*?[")
}

// Ping checks the transport session.
func (c *Client) Ping(ctx context.Context) error {
	rdb, err := c.conn()
	if err != nil {
		return err
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.Distributor = (*Client)(nil)
