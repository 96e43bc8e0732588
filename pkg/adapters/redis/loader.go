package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aretw0/suitemux/pkg/ports"
	"github.com/aretw0/suitemux/pkg/wire"
	backend "github.com/redis/go-redis/v9"
)

// Loader implements ports.Loader over a Redis work queue. Every child becomes
// a Request on the requests list; its wire records come back, one per
// message, on the events channel of its handle.
type Loader struct {
	client *backend.Client
	cfg    config
}

// NewLoader creates a Loader using client.
func NewLoader(client *backend.Client, opts ...Option) *Loader {
	return &Loader{client: client, cfg: newConfig(opts)}
}

// Load subscribes to the handle's channel, then queues the request. Detaching
// the Instance drops the subscription.
func (l *Loader) Load(ctx context.Context, hs ports.Handshake) (ports.Instance, error) {
	subCtx, cancel := context.WithCancel(ctx)
	channel := l.cfg.eventsChannel(hs.ID())
	sub := l.client.Subscribe(subCtx, channel)
	// Wait for the confirmation so no record published by a fast worker is lost.
	if _, err := sub.Receive(subCtx); err != nil {
		cancel()
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	payload, err := json.Marshal(Request{Handle: hs.ID(), Label: hs.Label(), Location: hs.Location()})
	if err != nil {
		cancel()
		_ = sub.Close()
		return nil, err
	}
	if err := l.client.LPush(subCtx, l.cfg.requestsKey(), payload).Err(); err != nil {
		cancel()
		_ = sub.Close()
		return nil, fmt.Errorf("queue request: %w", err)
	}

	logger := l.cfg.logger.With("handle", hs.ID(), "location", hs.Location())
	logger.Debug("child request queued")

	pr, pw := io.Pipe()
	go func() {
		defer pw.Close()
		ch := sub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if _, err := io.WriteString(pw, msg.Payload+"\n"); err != nil {
					return
				}
			}
		}
	}()
	go func() {
		defer func() {
			cancel()
			_ = sub.Close()
			_ = pr.Close()
		}()
		if err := wire.Attach(subCtx, hs, pr, wire.WithLogger(logger)); err != nil {
			logger.Warn("child stream ended", "error", err)
		}
	}()

	return ports.InstanceFunc(func() error {
		cancel()
		return nil
	}), nil
}

var _ ports.Loader = (*Loader)(nil)
