package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/suitemux/pkg/adapters/memory"
	"github.com/aretw0/suitemux/pkg/domain"
	"github.com/aretw0/suitemux/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handshake struct {
	id       string
	location string

	mu     sync.Mutex
	failed []error
}

func newHandshake(id, location string) *handshake {
	return &handshake{id: id, location: location}
}

func (h *handshake) ID() string                 { return h.id }
func (h *handshake) Label() string              { return h.id }
func (h *handshake) Location() string           { return h.location }
func (h *handshake) Connect(ports.Source) error { return nil }
func (h *handshake) Fail(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failed = append(h.failed, err)
}

func TestLoader_MatchesPathIgnoringQuery(t *testing.T) {
	seen := make(chan string, 2)
	loader := memory.NewLoader(map[string]memory.Page{
		"./child.html": func(ctx context.Context, hs ports.Handshake) error {
			seen <- hs.Location()
			return nil
		},
	})

	for _, loc := range []string{"file:///suites/child.html?a", "file:///suites/child.html?b"} {
		_, err := loader.Load(context.Background(), newHandshake(loc, loc))
		require.NoError(t, err)
	}

	assert.ElementsMatch(t, []string{"file:///suites/child.html?a", "file:///suites/child.html?b"}, []string{<-seen, <-seen})
	assert.Equal(t, []string{"child.html"}, loader.Paths())
}

func TestLoader_UnknownLocation(t *testing.T) {
	loader := memory.NewLoader(nil)
	_, err := loader.Load(context.Background(), newHandshake("x", "file:///missing.html"))
	assert.ErrorIs(t, err, domain.ErrUnknownLocation)
}

func TestLoader_ConcurrentPages(t *testing.T) {
	release := make(chan struct{})
	secondRan := make(chan struct{})
	loader := memory.NewLoader(map[string]memory.Page{
		"first.html": func(ctx context.Context, hs ports.Handshake) error {
			<-release
			return nil
		},
		"second.html": func(ctx context.Context, hs ports.Handshake) error {
			close(secondRan)
			return nil
		},
	})
	defer close(release)

	_, err := loader.Load(context.Background(), newHandshake("1", "file:///first.html"))
	require.NoError(t, err)
	_, err = loader.Load(context.Background(), newHandshake("2", "file:///second.html"))
	require.NoError(t, err)

	select {
	case <-secondRan:
	case <-time.After(time.Second):
		t.Fatal("second page blocked behind the first")
	}
}

func TestLoader_PageErrorIsReported(t *testing.T) {
	hs := newHandshake("1", "file:///broken.html")
	loader := memory.NewLoader(map[string]memory.Page{
		"broken.html": func(ctx context.Context, hs ports.Handshake) error {
			return errors.New("syntax error")
		},
	})

	_, err := loader.Load(context.Background(), hs)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		hs.mu.Lock()
		defer hs.mu.Unlock()
		return len(hs.failed) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestLoader_DetachCancelsPage(t *testing.T) {
	canceled := make(chan struct{})
	loader := memory.NewLoader(map[string]memory.Page{
		"long.html": func(ctx context.Context, hs ports.Handshake) error {
			<-ctx.Done()
			close(canceled)
			return nil
		},
	})

	inst, err := loader.Load(context.Background(), newHandshake("1", "file:///long.html"))
	require.NoError(t, err)
	require.NoError(t, inst.Detach())

	select {
	case <-canceled:
	case <-time.After(time.Second):
		t.Fatal("detach did not cancel the page")
	}
}
