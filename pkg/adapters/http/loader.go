package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/aretw0/suitemux/internal/logging"
	"github.com/aretw0/suitemux/pkg/domain"
	"github.com/aretw0/suitemux/pkg/ports"
	"github.com/aretw0/suitemux/pkg/wire"
)

// Handshake headers sent with every child request.
const (
	HeaderHandle   = "X-Suitemux-Handle"
	HeaderLabel    = "X-Suitemux-Label"
	HeaderLocation = "X-Suitemux-Location"
)

// Loader implements ports.Loader for http(s) locations: the child is a GET
// whose response body is the child's wire stream.
type Loader struct {
	client *http.Client
	logger *slog.Logger
}

// LoaderOption configures the Loader.
type LoaderOption func(*Loader)

// WithClient sets the HTTP client. It must not set a Timeout shorter than a
// whole child run; the load deadline is enforced by the handle.
func WithClient(c *http.Client) LoaderOption {
	return func(l *Loader) {
		l.client = c
	}
}

// WithLoaderLogger sets a structured logger.
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a Loader using http.DefaultClient.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{client: http.DefaultClient, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load requests hs.Location() in the background. A transport error or a
// non-2xx answer fails the child. Detaching the Instance aborts the request.
func (l *Loader) Load(ctx context.Context, hs ports.Handshake) (ports.Instance, error) {
	u, err := url.Parse(hs.Location())
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownLocation, hs.Location())
	}

	reqCtx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set(HeaderHandle, hs.ID())
	req.Header.Set(HeaderLabel, hs.Label())
	req.Header.Set(HeaderLocation, hs.Location())
	req.Header.Set("Accept", ContentType)

	logger := l.logger.With("handle", hs.ID(), "location", hs.Location())
	go func() {
		defer cancel()
		resp, err := l.client.Do(req)
		if err != nil {
			hs.Fail(err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			hs.Fail(fmt.Errorf("GET %s: %s", u.Redacted(), resp.Status))
			return
		}
		if err := wire.Attach(reqCtx, hs, resp.Body, wire.WithLogger(logger)); err != nil {
			logger.Warn("child stream ended", "error", err)
		}
	}()

	return ports.InstanceFunc(func() error {
		cancel()
		return nil
	}), nil
}

var _ ports.Loader = (*Loader)(nil)
