package child

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/aretw0/suitemux/internal/logging"
	"github.com/aretw0/suitemux/pkg/domain"
	"github.com/aretw0/suitemux/pkg/ports"
	"github.com/google/uuid"
)

// DefaultLoadTimeout bounds the time a child has to connect after it started loading.
const DefaultLoadTimeout = 60 * time.Second

// Notifier is told about the transitions of a Handle that matter to its owner.
type Notifier interface {
	// Connected is called once the child reported readiness with src.
	// The Notifier must start listening to src before returning.
	Connected(h *Handle, src ports.Source) error
	// Completed is called exactly once per start, with the terminal error if any.
	Completed(h *Handle, err error)
}

type nopNotifier struct{}

func (nopNotifier) Connected(*Handle, ports.Source) error { return nil }
func (nopNotifier) Completed(*Handle, error)              {}

// Handle manages the lifecycle of one child context:
// idle -> loading -> running -> completed | failed.
type Handle struct {
	id       string
	label    string
	location string

	notifier Notifier
	logger   *slog.Logger

	mu        sync.Mutex
	state     domain.SourceState
	err       error
	connected bool
	gen       uint64
	timer     *time.Timer
	container *Container
	startedAt time.Time
}

// Option configures a Handle.
type Option func(*Handle)

// WithNotifier sets the owner notified of connection and completion.
func WithNotifier(n Notifier) Option {
	return func(h *Handle) {
		h.notifier = n
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handle) {
		h.logger = logger
	}
}

// New creates an idle handle.
// When location is empty, labelOrLocation is used both as label and location.
func New(labelOrLocation, location string, base *url.URL, opts ...Option) (*Handle, error) {
	label := labelOrLocation
	if location == "" {
		location = labelOrLocation
	}
	resolved, err := ResolveLocation(base, location)
	if err != nil {
		return nil, err
	}
	if label == location || label == "" {
		label = resolved
	}

	h := &Handle{
		id:       uuid.NewString(),
		label:    label,
		location: resolved,
		notifier: nopNotifier{},
		logger:   logging.NewNop(),
		state:    domain.SourceIdle,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("handle", h.id, "location", h.location)
	return h, nil
}

func (h *Handle) ID() string       { return h.id }
func (h *Handle) Label() string    { return h.label }
func (h *Handle) Location() string { return h.location }

// State returns the current lifecycle state.
func (h *Handle) State() domain.SourceState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Err returns the terminal error of the last start, if any.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// WasConnected reports whether the child reached running during the last start.
func (h *Handle) WasConnected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connected
}

// Elapsed is the time since the last start.
func (h *Handle) Elapsed() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.startedAt.IsZero() {
		return 0
	}
	return time.Since(h.startedAt)
}

// Info describes the handle as a merger Source.
func (h *Handle) Info() domain.SourceInfo {
	return domain.SourceInfo{ID: h.id, Label: h.label, Location: h.location}
}

// Status is a point-in-time view of the handle.
func (h *Handle) Status() domain.SourceStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	st := domain.SourceStatus{
		SourceInfo: domain.SourceInfo{ID: h.id, Label: h.label, Location: h.location},
		State:      h.state,
	}
	if h.err != nil {
		st.Error = h.err.Error()
	}
	return st
}

// Start begins loading the child. It returns as soon as the loader has been
// invoked; readiness and failures arrive asynchronously. A handle that already
// completed is reset and loaded again.
func (h *Handle) Start(ctx context.Context, container *Container, loader ports.Loader, timeout time.Duration) error {
	if loader == nil {
		return domain.ErrNoLoader
	}
	if timeout <= 0 {
		timeout = DefaultLoadTimeout
	}

	h.mu.Lock()
	if h.state == domain.SourceLoading || h.state == domain.SourceRunning {
		state := h.state
		h.mu.Unlock()
		return domain.ProtocolErrorf("handle %s started while %s", h.id, state)
	}
	h.gen++
	gen := h.gen
	h.state = domain.SourceLoading
	h.err = nil
	h.connected = false
	h.container = container
	h.startedAt = time.Now()
	h.timer = time.AfterFunc(timeout, func() { h.onTimeout(gen) })
	h.mu.Unlock()

	h.logger.Debug("loading child", "timeout", timeout)

	inst, err := loader.Load(ctx, h)
	if err != nil {
		h.onLoadFailure(gen, err)
		return nil
	}
	if inst == nil || container == nil {
		return nil
	}
	if err := container.Attach(h.id, inst); err != nil {
		h.logger.Warn("previous instance failed to detach", "error", err)
	}
	// The child may have finished while Load was still returning.
	h.mu.Lock()
	finished := h.gen != gen || h.state.Terminal()
	h.mu.Unlock()
	if finished {
		go h.detach(container)
	}
	return nil
}

// Connect reports readiness. It implements ports.Handshake.
func (h *Handle) Connect(src ports.Source) error {
	h.mu.Lock()
	if h.state != domain.SourceLoading {
		state := h.state
		h.mu.Unlock()
		return domain.ProtocolErrorf("handle %s connected while %s", h.id, state)
	}
	h.state = domain.SourceRunning
	h.connected = true
	h.stopTimer()
	gen := h.gen
	h.mu.Unlock()

	h.logger.Debug("child connected")

	cancel := src.Once(domain.EventRunEnd, func(domain.Event) {
		h.complete(gen, domain.SourceRunning, nil)
	})
	if err := h.notifier.Connected(h, src); err != nil {
		cancel()
		h.complete(gen, domain.SourceRunning, err)
		return err
	}
	return nil
}

// Fail reports that the child could not be loaded. It implements ports.Handshake.
func (h *Handle) Fail(err error) {
	h.mu.Lock()
	gen := h.gen
	h.mu.Unlock()

	// loading only ever moves on to running, so one of the two applies.
	if h.onLoadFailure(gen, err) {
		return
	}
	if h.complete(gen, domain.SourceRunning, err) {
		h.logger.Warn("child failed after connecting", "error", err)
	}
}

// Complete ends the current start. Only the first call has an effect.
func (h *Handle) Complete(err error) {
	h.mu.Lock()
	gen := h.gen
	h.mu.Unlock()
	h.complete(gen, "", err)
}

func (h *Handle) onTimeout(gen uint64) {
	if h.complete(gen, domain.SourceLoading, domain.NewLoadTimeout(h.location)) {
		h.logger.Warn("child load timed out")
	}
}

func (h *Handle) onLoadFailure(gen uint64, cause error) bool {
	if h.complete(gen, domain.SourceLoading, domain.NewLoadFailure(h.location, cause)) {
		h.logger.Warn("child load failed", "error", cause)
		return true
	}
	return false
}

// complete ends start gen if the handle is still in state from, or in any
// active state when from is empty. It reports whether it did.
func (h *Handle) complete(gen uint64, from domain.SourceState, err error) bool {
	h.mu.Lock()
	active := h.state == domain.SourceLoading || h.state == domain.SourceRunning
	if h.gen != gen || !active || (from != "" && h.state != from) {
		h.mu.Unlock()
		return false
	}
	if err != nil {
		h.state = domain.SourceFailed
	} else {
		h.state = domain.SourceCompleted
	}
	h.err = err
	h.stopTimer()
	container := h.container
	h.mu.Unlock()

	// Let in-flight callbacks of the child settle before tearing it down.
	go h.detach(container)

	h.notifier.Completed(h, err)
	return true
}

func (h *Handle) detach(container *Container) {
	if container == nil {
		return
	}
	if err := container.Detach(h.id); err != nil {
		h.logger.Warn("detach failed", "error", err)
	}
}

// stopTimer must be called with h.mu held.
func (h *Handle) stopTimer() {
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}

var _ ports.Handshake = (*Handle)(nil)
