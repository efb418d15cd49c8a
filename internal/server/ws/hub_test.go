package ws

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/quantfeed/tickd/internal/domain"
)

// stubDist satisfies the distributor interface with subscriptions that stay
// open until the context is cancelled.
type stubDist struct{}

func (stubDist) Publish(ctx context.Context, channel string, payload []byte) error { return nil }

func (stubDist) SetValue(ctx context.Context, key, value string, ttl time.Duration) error {
	return nil
}

func (stubDist) GetValue(ctx context.Context, key string) (string, error) {
	return "", domain.ErrNotFound
}

func (stubDist) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (stubDist) Ping(ctx context.Context) error { return nil }

func (stubDist) State() domain.ConnState { return domain.StateConnected }

var _ domain.Distributor = stubDist{}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHub_ShutdownReleasesPendingDetach(t *testing.T) {
	h := NewHub(stubDist{}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(runDone)
	}()

	c := &client{hub: h, send: make(chan []byte, 1), subs: make(map[string]bool)}
	select {
	case h.register <- c:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not accept registration")
	}

	cancel()
	select {
	case <-runDone:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop on cancel")
	}

	// A client tearing down after the hub has exited must not block on the
	// unregister channel.
	detached := make(chan struct{})
	go func() {
		c.detach()
		close(detached)
	}()
	select {
	case <-detached:
	case <-time.After(2 * time.Second):
		t.Fatal("detach blocked after hub shutdown")
	}
}

func TestHub_SubscriptionFiltering(t *testing.T) {
	c := &client{subs: map[string]bool{"orderbook:*": true, "trades:*": true}}

	c.handleSubscription(subscribeMsg{Action: "unsubscribe", Channels: []string{"trades:*"}})
	if c.isSubscribed("trades:*") {
		t.Error("unsubscribe did not remove the pattern")
	}
	if !c.isSubscribed("orderbook:*") {
		t.Error("unsubscribe removed an unrelated pattern")
	}

	c.handleSubscription(subscribeMsg{Action: "subscribe", Channels: []string{"trades:*"}})
	if !c.isSubscribed("trades:*") {
		t.Error("resubscribe did not restore the pattern")
	}
}
