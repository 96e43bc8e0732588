package suitemux

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/aretw0/suitemux/internal/logging"
	"github.com/aretw0/suitemux/pkg/child"
	"github.com/aretw0/suitemux/pkg/domain"
	"github.com/aretw0/suitemux/pkg/merge"
	"github.com/aretw0/suitemux/pkg/observability"
	"github.com/aretw0/suitemux/pkg/ports"
	"github.com/aretw0/suitemux/pkg/registry"
)

// LocalSourceID identifies the in-process suite on the merged stream.
const LocalSourceID = "local"

// Controller is the high-level entry point of suitemux.
// It owns one merged run: the children declared for it, the merger their
// streams feed and the reporting sink attached to the merged stream.
type Controller struct {
	merger   *merge.Merger
	registry *registry.Registry

	loader    ports.Loader
	container *child.Container
	base      *url.URL
	timeout   time.Duration
	parent    ports.Handshake
	hooks     domain.LifecycleHooks
	logger    *slog.Logger

	reporter     ports.ReporterFactory
	reporterOpts ports.ReporterOptions

	mu       sync.Mutex
	started  bool
	localErr chan error
}

// Option defines a functional option for configuring the Controller.
type Option func(*Controller)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithLoadTimeout bounds the time each child has to connect (default 60s).
func WithLoadTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.timeout = d
	}
}

// WithLoader injects the Loader that instantiates children.
func WithLoader(l ports.Loader) Option {
	return func(c *Controller) {
		c.loader = l
	}
}

// WithContainer sets the container child instances are attached to.
// A private one is created when omitted.
func WithContainer(container *child.Container) Option {
	return func(c *Controller) {
		c.container = container
	}
}

// WithBaseLocation sets the base relative child locations resolve against.
func WithBaseLocation(base *url.URL) Option {
	return func(c *Controller) {
		c.base = base
	}
}

// WithParent makes this run a child: once its own children are connected,
// the merged stream is connected to hs.
func WithParent(hs ports.Handshake) Option {
	return func(c *Controller) {
		c.parent = hs
	}
}

// WithReporter attaches a reporting sink to the merged stream when the run starts.
func WithReporter(factory ports.ReporterFactory, opts ports.ReporterOptions) Option {
	return func(c *Controller) {
		c.reporter = factory
		c.reporterOpts = opts
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Controller) {
		c.hooks = c.hooks.Merge(hooks)
	}
}

// WithMetrics feeds m from the child lifecycle and the merged stream.
func WithMetrics(m *observability.Metrics) Option {
	return WithLifecycleHooks(m.Hooks())
}

// New creates a Controller for one run.
func New(opts ...Option) *Controller {
	c := &Controller{
		timeout:  child.DefaultLoadTimeout,
		localErr: make(chan error, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NewNop()
	}
	if c.container == nil {
		c.container = child.NewContainer()
	}
	if c.parent != nil {
		c.logger = c.logger.With("handle", c.parent.ID())
	}

	c.merger = merge.New(merge.WithLogger(c.logger))

	regOpts := []registry.Option{
		registry.WithContainer(c.container),
		registry.WithLoadTimeout(c.timeout),
		registry.WithLogger(c.logger),
		registry.WithLifecycleHooks(c.hooks),
	}
	if c.loader != nil {
		regOpts = append(regOpts, registry.WithLoader(c.loader))
	}
	if c.base != nil {
		regOpts = append(regOpts, registry.WithBaseLocation(c.base))
	}
	c.registry = registry.New(c.merger, regOpts...)
	return c
}

// Declare registers a child to run alongside the local suite. With a single
// argument it is both the label and the location.
func (c *Controller) Declare(labelOrLocation string, location ...string) error {
	_, err := c.registry.Declare(labelOrLocation, location...)
	if err != nil {
		return fmt.Errorf("declare %q: %w", labelOrLocation, err)
	}
	return nil
}

// Start loads every declared child and returns the merged stream at once.
// local starts running once every child has connected or failed; its error,
// if any, is reported by Run.
func (c *Controller) Start(ctx context.Context, local ports.Runnable) (ports.Stream, error) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil, domain.ErrAlreadyStarted
	}
	c.started = true
	c.mu.Unlock()

	if c.reporter != nil {
		opts := c.reporterOpts
		if opts.Logger == nil {
			opts.Logger = c.logger
		}
		if err := c.reporter(c.merger, opts); err != nil {
			return nil, fmt.Errorf("attach reporter: %w", err)
		}
	}
	if c.hooks.OnEvent != nil {
		for _, kind := range domain.Kinds() {
			c.merger.On(kind, func(ev domain.Event) {
				c.hooks.OnEvent(ctx, ev)
			})
		}
	}

	c.logger.Info("starting run", "children", c.registry.Len())
	err := c.registry.Start(ctx, func() {
		c.merger.Listen(local, domain.SourceInfo{ID: LocalSourceID, Label: LocalSourceID, Local: true})
		if c.parent != nil {
			if err := c.parent.Connect(c.merger); err != nil {
				c.logger.Error("connect to parent failed", "error", err)
			}
		}
		go func() {
			c.localErr <- local.Run(ctx)
		}()
	})
	if err != nil {
		if c.parent != nil {
			c.parent.Fail(err)
		}
		return nil, fmt.Errorf("start children: %w", err)
	}
	return c.merger, nil
}

// Stream is the merged event stream.
func (c *Controller) Stream() ports.Stream {
	return c.merger
}

// Statuses returns a snapshot of every declared child.
func (c *Controller) Statuses() []domain.SourceStatus {
	return c.registry.Statuses()
}

// Done is closed right after the merged RunEnd has been emitted.
func (c *Controller) Done() <-chan struct{} {
	return c.merger.Done()
}

// Close detaches every child instance still attached.
func (c *Controller) Close() error {
	return c.registry.Close()
}
