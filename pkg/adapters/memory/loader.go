package memory

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/suitemux/internal/logging"
	"github.com/aretw0/suitemux/pkg/domain"
	"github.com/aretw0/suitemux/pkg/ports"
)

// Page is the body of an in-process child. It receives the handshake of the
// handle that loaded it and is expected to connect a Source through it,
// usually by running its own controller with the handshake as parent.
type Page func(ctx context.Context, hs ports.Handshake) error

// Loader implements ports.Loader by running registered Pages in-process.
// Every page runs on its own goroutine, so a page that never connects cannot
// hold back its siblings.
type Loader struct {
	mu     sync.RWMutex
	pages  map[string]Page
	logger *slog.Logger
}

// LoaderOption configures the Loader.
type LoaderOption func(*Loader)

// WithLoaderLogger sets a structured logger.
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a Loader with the given pages, keyed by path.
func NewLoader(pages map[string]Page, opts ...LoaderOption) *Loader {
	l := &Loader{
		pages:  make(map[string]Page),
		logger: logging.NewNop(),
	}
	for path, page := range pages {
		l.pages[normalize(path)] = page
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Handle registers page under path. A location matches when its path, without
// query, equals path or ends with "/"+path.
func (l *Loader) Handle(path string, page Page) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pages[normalize(path)] = page
}

// Paths lists the registered paths.
func (l *Loader) Paths() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	keys := make([]string, 0, len(l.pages))
	for k := range l.pages {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys
}

func normalize(path string) string {
	return strings.TrimPrefix(path, "./")
}

// Lookup returns the page serving location.
func (l *Loader) Lookup(location string) (Page, error) {
	path := location
	if u, err := url.Parse(location); err == nil {
		path = u.Path
		if path == "" {
			path = u.Opaque
		}
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if page, ok := l.pages[path]; ok {
		return page, nil
	}
	for key, page := range l.pages {
		if strings.HasSuffix(path, "/"+key) {
			return page, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrUnknownLocation, location)
}

// Load schedules the page serving hs.Location(). Detaching the returned
// Instance cancels the page's context.
func (l *Loader) Load(ctx context.Context, hs ports.Handshake) (ports.Instance, error) {
	page, err := l.Lookup(hs.Location())
	if err != nil {
		return nil, err
	}

	pageCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer cancel()
		if err := page(pageCtx, hs); err != nil {
			l.logger.Warn("page failed", "location", hs.Location(), "error", err)
			hs.Fail(err)
		}
	}()
	return ports.InstanceFunc(func() error {
		cancel()
		return nil
	}), nil
}

var _ ports.Loader = (*Loader)(nil)
