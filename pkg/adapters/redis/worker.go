package redis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/aretw0/suitemux/pkg/adapters/memory"
	"github.com/aretw0/suitemux/pkg/wire"
	backend "github.com/redis/go-redis/v9"
)

// pollInterval bounds each blocking pop so Serve notices cancellation.
const pollInterval = time.Second

// Worker serves child requests with in-process pages.
type Worker struct {
	client *backend.Client
	pages  *memory.Loader
	cfg    config
	wg     sync.WaitGroup
}

// NewWorker creates a Worker answering requests with the pages of pages.
func NewWorker(client *backend.Client, pages *memory.Loader, opts ...Option) *Worker {
	return &Worker{client: client, pages: pages, cfg: newConfig(opts)}
}

// Serve pops requests until ctx is done, serving each on its own goroutine.
// It waits for the requests in flight before returning.
func (w *Worker) Serve(ctx context.Context) error {
	defer w.wg.Wait()
	key := w.cfg.requestsKey()
	w.cfg.logger.Info("worker serving", "key", key, "pages", w.pages.Paths())

	for {
		res, err := w.client.BRPop(ctx, pollInterval, key).Result()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, backend.Nil) {
			continue
		}
		if err != nil {
			return err
		}
		// res is [key, value].
		var req Request
		if err := json.Unmarshal([]byte(res[1]), &req); err != nil || req.Handle == "" {
			w.cfg.logger.Warn("malformed request dropped", "payload", res[1], "error", err)
			continue
		}
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.serve(ctx, req)
		}()
	}
}

func (w *Worker) serve(ctx context.Context, req Request) {
	logger := w.cfg.logger.With("handle", req.Handle, "location", req.Location)
	out := &publisher{ctx: ctx, client: w.client, channel: w.cfg.eventsChannel(req.Handle)}
	parent := wire.NewParent(req.Handle, req.Label, req.Location, out)

	page, err := w.pages.Lookup(req.Location)
	if err != nil {
		logger.Warn("no page for request", "error", err)
		parent.Fail(err)
		return
	}
	logger.Debug("serving child")
	if err := page(ctx, parent); err != nil {
		logger.Warn("page failed", "error", err)
		parent.Fail(err)
		return
	}
	if err := parent.Wait(ctx); err != nil {
		logger.Warn("publishing child failed", "error", err)
	}
}

// publisher writes every record as one message on a channel. The Encoder
// writes exactly one record per call.
type publisher struct {
	ctx     context.Context
	client  *backend.Client
	channel string
}

func (p *publisher) Write(b []byte) (int, error) {
	msg := bytes.TrimRight(b, "\n")
	if err := p.client.Publish(p.ctx, p.channel, msg).Err(); err != nil {
		return 0, err
	}
	return len(b), nil
}
