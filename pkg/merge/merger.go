package merge

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/aretw0/suitemux/internal/logging"
	"github.com/aretw0/suitemux/pkg/domain"
	"github.com/aretw0/suitemux/pkg/events"
	"github.com/aretw0/suitemux/pkg/ports"
)

// pending is an event waiting to be processed, remembered with its Source.
// A pending with abandon set closes the Source in place of its own RunEnd.
type pending struct {
	src     ports.Source
	ev      domain.Event
	abandon error
}

// sourceEntry is the merger's bookkeeping for one listened Source.
type sourceEntry struct {
	info        domain.SourceInfo
	contributed int
	begun       bool
	ended       bool
	open        []*domain.Suite

	// abandoning is set by Abandon, abandoned once the close is being relayed.
	abandoning bool
	abandoned  bool
}

// Merger sequences the events of several Sources into one stream.
//
// Only one Source is relayed at a time; events of other Sources are staged until
// the active one emits RunEnd. Nothing from a child is relayed before the local
// Source has begun. The merged suite tree is assembled under a synthetic root and
// relayed events are held on a release queue until every Source has ended, so the
// root SuiteBegin that opens the stream already references every sub-suite.
//
// Handlers subscribed to the Merger run while its internal lock is held: they may
// call Emit, Total, Stats and Root but must not call Listen, Abandon, Ended or
// Expected.
type Merger struct {
	bus    *events.Bus
	logger *slog.Logger

	mu      sync.Mutex
	root    *domain.Suite
	sources map[ports.Source]*sourceEntry
	local   ports.Source

	expected  int
	completed int
	active    ports.Source

	localBegun      bool
	runBeginEmitted bool
	runEndEmitted   bool

	staging []pending
	release []domain.Event

	total atomic.Int64

	statsMu sync.Mutex
	stats   domain.Stats

	done chan struct{}
}

// Option configures the Merger.
type Option func(*Merger)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Merger) {
		m.logger = logger
	}
}

// New creates a Merger with an empty synthetic root suite.
func New(opts ...Option) *Merger {
	m := &Merger{
		bus:     events.NewBus(),
		logger:  logging.NewNop(),
		root:    domain.NewRootSuite(),
		sources: make(map[ports.Source]*sourceEntry),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Listen subscribes to every event kind of src. It must be called before src
// starts emitting. Listening to the same Source twice is ignored.
func (m *Merger) Listen(src ports.Source, info domain.SourceInfo) {
	m.mu.Lock()
	if _, exists := m.sources[src]; exists {
		m.mu.Unlock()
		m.logger.Warn("source already listened", "source", info.ID)
		return
	}
	if info.Label == "" {
		info.Label = info.ID
	}
	m.sources[src] = &sourceEntry{info: info}
	m.expected++
	if info.Local {
		m.local = src
	}
	expected := m.expected
	m.mu.Unlock()

	m.logger.Debug("listening to source", "source", info.ID, "label", info.Label, "local", info.Local, "expected", expected)

	for _, kind := range domain.Kinds() {
		kind := kind
		src.On(kind, func(ev domain.Event) {
			ev.Kind = kind
			m.process(src, ev)
		})
	}
}

func (m *Merger) process(src ports.Source, ev domain.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handle(pending{src: src, ev: ev})
}

// handle runs the sequencing algorithm for one event. m.mu must be held.
func (m *Merger) handle(p pending) {
	// Another Source is being relayed: wait for its RunEnd.
	if m.active != nil && m.active != p.src {
		m.staging = append(m.staging, p)
		return
	}
	// The local Source reports first.
	if !m.localBegun && p.src != m.local {
		m.staging = append(m.staging, p)
		return
	}

	entry := m.sources[p.src]
	if p.abandon != nil {
		m.abandon(p.src, entry, p.abandon)
		return
	}
	if entry.ended {
		if p.ev.Kind == domain.EventRunEnd {
			m.logger.Warn("duplicate run end ignored", "source", entry.info.ID)
		} else {
			m.logger.Debug("event after run end dropped", "source", entry.info.ID, "kind", p.ev.Kind)
		}
		return
	}
	ev := p.ev
	ev.Source = entry.info.ID
	ev.Label = entry.info.Label

	switch ev.Kind {
	case domain.EventRunBegin:
		m.active = p.src
		entry.begun = true
		if !entry.abandoned {
			entry.contributed = p.src.Total()
			m.total.Add(int64(entry.contributed))
		}
		if entry.info.Local {
			m.localBegun = true
		}
		if !m.runBeginEmitted {
			m.runBeginEmitted = true
			// Relayed at once so the sink knows the run is alive; the root
			// SuiteBegin waits until every sub-suite is attached.
			m.emit(domain.NewEvent(domain.EventRunBegin))
			m.release = append(m.release, domain.SuiteEvent(domain.EventSuiteBegin, m.root))
		}

	case domain.EventRunEnd:
		m.active = nil
		m.completed++
		entry.ended = true
		// A nested merged stream keeps counting after its own RunBegin.
		if final := p.src.Total(); !entry.abandoned && final != entry.contributed {
			m.total.Add(int64(final - entry.contributed))
			entry.contributed = final
		}
		m.logger.Debug("source ended", "source", entry.info.ID, "completed", m.completed, "expected", m.expected)
		m.flushStaging()
		m.finish()

	case domain.EventSuiteBegin:
		if ev.IsRootSuite() {
			if entry.info.Local {
				m.flatten(ev.Suite)
				return
			}
			ev.Suite.Title = entry.info.Label
			ev.Suite.Root = false
			m.root.Adopt(ev.Suite)
		}
		entry.open = append(entry.open, ev.Suite)
		m.relay(ev)

	case domain.EventSuiteEnd:
		if n := len(entry.open); n > 0 && entry.open[n-1] == ev.Suite {
			entry.open = entry.open[:n-1]
		}
		// The local root is closed once, by the merged root's SuiteEnd.
		if ev.IsRootSuite() && entry.info.Local {
			return
		}
		m.relay(ev)

	default:
		m.relay(ev)
	}
}

// abandon closes a Source that stopped before its RunEnd: a failing test is
// reported in its innermost open suite, then every open suite and the run are
// ended. m.mu must be held and src must be relayable.
func (m *Merger) abandon(src ports.Source, entry *sourceEntry, cause error) {
	if entry.ended {
		return
	}
	entry.abandoned = true
	m.logger.Warn("source abandoned", "source", entry.info.ID, "error", cause)

	if !entry.begun {
		m.handle(pending{src: src, ev: domain.NewEvent(domain.EventRunBegin)})
	}
	test := &domain.Test{Title: "run aborted", State: domain.TestStateFailed}
	if n := len(entry.open); n > 0 {
		entry.open[n-1].AdoptTest(test)
	} else {
		// Nothing is open: report under a fresh root so the label still shows.
		root := domain.NewRootSuite()
		root.AdoptTest(test)
		m.handle(pending{src: src, ev: domain.SuiteEvent(domain.EventSuiteBegin, root)})
	}
	entry.contributed++
	m.total.Add(1)

	err := fmt.Errorf("%w: %w", domain.ErrIncompleteStream, cause)
	m.handle(pending{src: src, ev: domain.TestEvent(domain.EventTestBegin, test, nil)})
	m.handle(pending{src: src, ev: domain.TestEvent(domain.EventTestFail, test, err)})
	m.handle(pending{src: src, ev: domain.TestEvent(domain.EventTestEnd, test, nil)})
	for i := len(entry.open) - 1; i >= 0; i-- {
		m.handle(pending{src: src, ev: domain.SuiteEvent(domain.EventSuiteEnd, entry.open[i])})
	}
	m.handle(pending{src: src, ev: domain.NewEvent(domain.EventRunEnd)})
}

// flatten promotes the local root's children onto the merged root.
// The local root keeps its own slices so the local runner can still walk them.
func (m *Merger) flatten(localRoot *domain.Suite) {
	for _, s := range localRoot.Suites {
		m.root.Adopt(s)
	}
	for _, t := range localRoot.Tests {
		m.root.AdoptTest(t)
	}
}

func (m *Merger) relay(ev domain.Event) {
	m.release = append(m.release, ev)
}

// flushStaging re-runs every staged event in arrival order. Events that still
// cannot be relayed are staged again.
func (m *Merger) flushStaging() {
	staged := m.staging
	m.staging = nil
	for _, p := range staged {
		m.handle(p)
	}
}

// finish closes the merged run once every Source has ended.
func (m *Merger) finish() {
	if m.runEndEmitted || !m.localBegun || m.active != nil {
		return
	}
	if len(m.staging) > 0 || m.completed < m.expected {
		return
	}
	m.runEndEmitted = true
	m.release = append(m.release,
		domain.SuiteEvent(domain.EventSuiteEnd, m.root),
		domain.NewEvent(domain.EventRunEnd),
	)

	queue := m.release
	m.release = nil
	for _, ev := range queue {
		m.emit(ev)
	}

	stats := m.Stats()
	m.logger.Info("merged run complete",
		"sources", m.expected,
		"total", m.Total(),
		"passes", stats.Passes,
		"failures", stats.Failures,
		"pending", stats.Pending,
	)
	close(m.done)
}

// emit records ev in the stats and delivers it to subscribers.
func (m *Merger) emit(ev domain.Event) {
	m.statsMu.Lock()
	m.stats.Record(ev)
	m.statsMu.Unlock()
	m.bus.Emit(ev)
}

// On subscribes to merged events of the given kind.
func (m *Merger) On(kind domain.EventKind, h ports.Handler) func() {
	return m.bus.On(kind, h)
}

// Once subscribes to the next merged event of the given kind.
func (m *Merger) Once(kind domain.EventKind, h ports.Handler) func() {
	return m.bus.Once(kind, h)
}

// Emit publishes ev on the merged stream, bypassing sequencing.
func (m *Merger) Emit(ev domain.Event) {
	m.emit(ev)
}

// Total is the sum of the totals reported by every Source that has begun.
func (m *Merger) Total() int {
	return int(m.total.Load())
}

// Stats returns the counters observed on the merged stream.
func (m *Merger) Stats() domain.Stats {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	return m.stats
}

// Root is the synthetic merged root suite.
func (m *Merger) Root() *domain.Suite {
	return m.root
}

// Abandon closes src on its behalf when it stopped without emitting RunEnd. The
// merged stream reports a failing test for it, after every event src already
// emitted. Abandoning an unknown or ended Source is a no-op.
func (m *Merger) Abandon(src ports.Source, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.sources[src]
	if !ok || entry.ended || entry.abandoning {
		return
	}
	entry.abandoning = true
	if err == nil {
		err = domain.ErrIncompleteStream
	}
	m.handle(pending{src: src, abandon: err})
}

// Done is closed right after the merged RunEnd has been emitted.
func (m *Merger) Done() <-chan struct{} {
	return m.done
}

// Ended reports whether the merged RunEnd has been emitted, or is being emitted.
func (m *Merger) Ended() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runEndEmitted
}

// Expected is the number of Sources listened so far.
func (m *Merger) Expected() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expected
}

var _ ports.Stream = (*Merger)(nil)
var _ ports.Listener = (*Merger)(nil)
