package registry

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/aretw0/suitemux/internal/logging"
	"github.com/aretw0/suitemux/pkg/child"
	"github.com/aretw0/suitemux/pkg/domain"
	"github.com/aretw0/suitemux/pkg/ports"
)

type entry struct {
	handle    *child.Handle
	source    ports.Source
	connected bool
	settled   bool
	done      bool
	// listened is closed once source was handed to the listener.
	listened chan struct{}
}

// Registry tracks the children declared for one run and wires each of them
// into the merger as soon as it connects.
type Registry struct {
	listener  ports.Listener
	loader    ports.Loader
	container *child.Container
	base      *url.URL
	timeout   time.Duration
	logger    *slog.Logger
	hooks     domain.LifecycleHooks

	mu          sync.Mutex
	ctx         context.Context
	entries     []*entry
	byID        map[string]*entry
	locations   map[string]int
	started     bool
	settled     int
	completed   int
	onConnected func()
	fired       bool
	done        chan struct{}
}

// Option configures the Registry.
type Option func(*Registry)

// WithLoader sets the loader used to instantiate children.
func WithLoader(loader ports.Loader) Option {
	return func(r *Registry) {
		r.loader = loader
	}
}

// WithContainer sets the container children are attached to.
func WithContainer(c *child.Container) Option {
	return func(r *Registry) {
		r.container = c
	}
}

// WithBaseLocation sets the base relative child locations resolve against.
func WithBaseLocation(base *url.URL) Option {
	return func(r *Registry) {
		r.base = base
	}
}

// WithLoadTimeout bounds the time each child has to connect.
func WithLoadTimeout(d time.Duration) Option {
	return func(r *Registry) {
		r.timeout = d
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(r *Registry) {
		r.hooks = r.hooks.Merge(hooks)
	}
}

// New creates an empty Registry feeding listener.
func New(listener ports.Listener, opts ...Option) *Registry {
	r := &Registry{
		listener:  listener,
		container: child.NewContainer(),
		timeout:   child.DefaultLoadTimeout,
		logger:    logging.NewNop(),
		ctx:       context.Background(),
		byID:      make(map[string]*entry),
		locations: make(map[string]int),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.base == nil {
		r.base = child.DefaultBase()
	}
	return r
}

// Declare registers a child. With a single argument it is both label and
// location. Declaring the same location twice yields two independent children.
func (r *Registry) Declare(labelOrLocation string, location ...string) (*child.Handle, error) {
	loc := ""
	if len(location) > 0 {
		loc = location[0]
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil, domain.ErrAlreadyStarted
	}

	h, err := child.New(labelOrLocation, loc, r.base,
		child.WithNotifier(r),
		child.WithLogger(r.logger),
	)
	if err != nil {
		return nil, err
	}
	e := &entry{handle: h, listened: make(chan struct{})}
	r.entries = append(r.entries, e)
	r.byID[h.ID()] = e
	r.locations[h.Location()]++

	r.logger.Debug("child declared", "label", h.Label(), "location", h.Location(), "handle", h.ID())
	return h, nil
}

// Start loads every declared child and calls onAllConnected exactly once, when
// every child has either connected or failed. Without children it is called
// before Start returns.
func (r *Registry) Start(ctx context.Context, onAllConnected func()) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return domain.ErrAlreadyStarted
	}
	if len(r.entries) > 0 && r.loader == nil {
		r.mu.Unlock()
		return domain.ErrNoLoader
	}
	r.started = true
	r.ctx = ctx
	r.onConnected = onAllConnected
	entries := append([]*entry(nil), r.entries...)
	fire := r.checkAllLocked()
	if len(entries) == 0 {
		close(r.done)
	}
	r.mu.Unlock()

	if fire {
		r.fireAllConnected()
		return nil
	}

	var errs []error
	for _, e := range entries {
		h := e.handle
		if r.hooks.OnSourceLoading != nil {
			r.hooks.OnSourceLoading(ctx, r.sourceEvent(h, nil))
		}
		if err := h.Start(ctx, r.container, r.loader, r.timeout); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Connected implements child.Notifier.
func (r *Registry) Connected(h *child.Handle, src ports.Source) error {
	r.mu.Lock()
	e, ok := r.byID[h.ID()]
	if !ok {
		r.mu.Unlock()
		err := domain.ProtocolErrorf("connected notified for unregistered handle %s", h.ID())
		r.logger.Error("protocol violation", "error", err)
		return err
	}
	if e.connected || e.done {
		r.mu.Unlock()
		err := domain.ProtocolErrorf("handle %s connected twice", h.ID())
		r.logger.Error("protocol violation", "error", err)
		return err
	}
	e.connected = true
	e.source = src
	info := r.infoLocked(h)
	r.mu.Unlock()

	// A child only counts as settled once the listener knows its Source.
	r.listener.Listen(src, info)
	close(e.listened)

	r.mu.Lock()
	e.settled = true
	r.settled++
	fire := r.checkAllLocked()
	r.mu.Unlock()

	r.logger.Info("child connected", "label", info.Label, "location", info.Location)
	if r.hooks.OnSourceConnected != nil {
		r.hooks.OnSourceConnected(r.ctx, r.sourceEvent(h, nil))
	}
	if fire {
		r.fireAllConnected()
	}
	return nil
}

// Completed implements child.Notifier. A child that failed before connecting is
// replaced in the merged stream by a FailureSource. A connected child that failed
// before its RunEnd is abandoned on the listener.
func (r *Registry) Completed(h *child.Handle, err error) {
	r.mu.Lock()
	e, ok := r.byID[h.ID()]
	if !ok || e.done {
		r.mu.Unlock()
		r.logger.Error("protocol violation", "error", domain.ProtocolErrorf("unexpected completion of handle %s", h.ID()))
		return
	}
	e.done = true
	connected, src := e.connected, e.source
	info := r.infoLocked(h)
	ctx := r.ctx
	r.mu.Unlock()

	var failure *child.FailureSource
	switch {
	case !connected:
		if err == nil {
			err = domain.NewLoadFailure(h.Location(), nil)
		}
		r.logger.Warn("child failed to connect", "label", info.Label, "location", info.Location, "error", err)
		failure = child.NewFailureSource(info.Label, info.Location, err)
		r.listener.Listen(failure, info)
	case err != nil:
		r.logger.Warn("child failed", "label", info.Label, "error", err)
		<-e.listened
		r.listener.Abandon(src, err)
	default:
		r.logger.Debug("child completed", "label", info.Label)
	}

	r.mu.Lock()
	if failure != nil {
		e.settled = true
		r.settled++
	}
	r.completed++
	fire := r.checkAllLocked()
	allDone := r.completed == len(r.entries)
	r.mu.Unlock()

	if failure != nil {
		_ = failure.Run(ctx)
	}

	if r.hooks.OnSourceCompleted != nil {
		r.hooks.OnSourceCompleted(ctx, r.sourceEvent(h, err))
	}
	if fire {
		r.fireAllConnected()
	}
	if allDone {
		close(r.done)
	}
}

// checkAllLocked reports whether onAllConnected is due. r.mu must be held.
func (r *Registry) checkAllLocked() bool {
	if !r.started || r.fired || r.settled < len(r.entries) {
		return false
	}
	r.fired = true
	return true
}

func (r *Registry) fireAllConnected() {
	r.logger.Debug("all children settled", "children", len(r.entries))
	if r.onConnected != nil {
		r.onConnected()
	}
}

// infoLocked describes h as a merger Source. Its ID is the location unless the
// location was declared more than once. r.mu must be held.
func (r *Registry) infoLocked(h *child.Handle) domain.SourceInfo {
	info := h.Info()
	if r.locations[h.Location()] == 1 {
		info.ID = h.Location()
	}
	return info
}

func (r *Registry) sourceEvent(h *child.Handle, err error) *domain.SourceEvent {
	r.mu.Lock()
	info := r.infoLocked(h)
	r.mu.Unlock()
	return &domain.SourceEvent{
		Timestamp: time.Now(),
		Source:    info,
		State:     h.State(),
		Elapsed:   h.Elapsed(),
		Err:       err,
	}
}

// Len is the number of declared children.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Handles lists the declared children in declaration order.
func (r *Registry) Handles() []*child.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*child.Handle, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.handle
	}
	return out
}

// Statuses returns a snapshot of every declared child.
func (r *Registry) Statuses() []domain.SourceStatus {
	r.mu.Lock()
	entries := append([]*entry(nil), r.entries...)
	r.mu.Unlock()

	out := make([]domain.SourceStatus, 0, len(entries))
	for _, e := range entries {
		st := e.handle.Status()
		r.mu.Lock()
		st.SourceInfo = r.infoLocked(e.handle)
		r.mu.Unlock()
		out = append(out, st)
	}
	return out
}

// Done is closed once every declared child has completed.
func (r *Registry) Done() <-chan struct{} {
	return r.done
}

// Close detaches every instantiated child.
func (r *Registry) Close() error {
	return r.container.DetachAll()
}

var _ child.Notifier = (*Registry)(nil)
