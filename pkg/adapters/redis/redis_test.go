package redis_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/suitemux"
	"github.com/aretw0/suitemux/internal/testutils"
	"github.com/aretw0/suitemux/pkg/adapters/memory"
	"github.com/aretw0/suitemux/pkg/adapters/redis"
	"github.com/aretw0/suitemux/pkg/domain"
	"github.com/aretw0/suitemux/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) *backend.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func startWorker(t *testing.T, client *backend.Client) {
	t.Helper()
	pages := memory.NewLoader(map[string]memory.Page{
		"child.html":  testutils.ChildPage("suite child 1"),
		"child2.html": testutils.ChildPage("suite child 2"),
		"broken.html": func(context.Context, ports.Handshake) error { return errors.New("syntax error") },
	})
	worker := redis.NewWorker(client, pages)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)
	})
}

func run(t *testing.T, ctl *suitemux.Controller) (*memory.Recorder, domain.Stats) {
	t.Helper()
	rec := memory.NewRecorder()
	rec.Record(ctl.Stream())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	stats, err := ctl.Run(ctx, testutils.LocalRunner())
	require.NoError(t, err)
	return rec, stats
}

func TestLoader_EndToEnd(t *testing.T) {
	client := setup(t)
	startWorker(t, client)

	ctl := suitemux.New(suitemux.WithLoader(redis.NewLoader(client)))
	defer ctl.Close()
	require.NoError(t, ctl.Declare("Child Suite 1", "child.html?a"))
	require.NoError(t, ctl.Declare("Child Suite 1", "child.html?b"))
	require.NoError(t, ctl.Declare("Child Suite 2", "child2.html"))

	rec, stats := run(t, ctl)

	assert.Equal(t, 7, ctl.Stream().Total())
	assert.Equal(t, 7, stats.Passes)
	assert.Zero(t, stats.Failures)
	assert.Equal(t, 1, rec.Count(domain.EventRunEnd))
	assert.Equal(t, "Top-Suite local test", rec.TestTitles(domain.EventTestPass)[0])
}

func TestLoader_UnknownPage(t *testing.T) {
	client := setup(t)
	startWorker(t, client)

	ctl := suitemux.New(suitemux.WithLoader(redis.NewLoader(client)))
	defer ctl.Close()
	require.NoError(t, ctl.Declare("Missing", "missing.html"))
	require.NoError(t, ctl.Declare("Broken", "broken.html"))

	rec, stats := run(t, ctl)

	assert.Equal(t, 2, stats.Failures)
	errs := testutils.Failures(rec)
	require.Len(t, errs, 2)
	for _, err := range errs {
		assert.ErrorIs(t, err, domain.ErrLoadFailure)
	}
	joined := errs[0].Error() + errs[1].Error()
	assert.Contains(t, joined, "unknown location")
	assert.Contains(t, joined, "syntax error")
}

func TestLoader_NoWorker(t *testing.T) {
	client := setup(t)

	ctl := suitemux.New(
		suitemux.WithLoader(redis.NewLoader(client, redis.WithPrefix("test:"))),
		suitemux.WithLoadTimeout(200*time.Millisecond),
	)
	defer ctl.Close()
	require.NoError(t, ctl.Declare("Orphan", "child.html"))

	rec, _ := run(t, ctl)

	errs := testutils.Failures(rec)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], domain.ErrLoadTimeout)

	// The request is still queued for a worker that never came.
	n, err := client.LLen(context.Background(), "test:requests").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestWorker_DropsMalformedRequests(t *testing.T) {
	client := setup(t)
	require.NoError(t, client.LPush(context.Background(), redis.DefaultPrefix+"requests", "not json").Err())
	startWorker(t, client)

	ctl := suitemux.New(suitemux.WithLoader(redis.NewLoader(client)))
	defer ctl.Close()
	require.NoError(t, ctl.Declare("Child Suite 1", "child.html"))

	_, stats := run(t, ctl)
	assert.Equal(t, 3, stats.Passes)
}
