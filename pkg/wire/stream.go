package wire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aretw0/suitemux/internal/logging"
	"github.com/aretw0/suitemux/pkg/domain"
	"github.com/aretw0/suitemux/pkg/events"
	"github.com/aretw0/suitemux/pkg/ports"
)

// Stream is a Source fed by decoded records. It rebuilds the emitter's suite
// tree from the identifiers carried by the records.
type Stream struct {
	*events.Bus
	logger *slog.Logger
	total  atomic.Int64

	root   *domain.Suite
	suites map[int]*domain.Suite
	tests  map[int]*domain.Test
	open   []*domain.Suite
	begun  bool
	ended  bool
}

// StreamOption configures a Stream.
type StreamOption func(*Stream)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) StreamOption {
	return func(s *Stream) {
		s.logger = logger
	}
}

// NewStream creates an empty Stream.
func NewStream(opts ...StreamOption) *Stream {
	s := &Stream{
		Bus:    events.NewBus(),
		logger: logging.NewNop(),
		suites: make(map[int]*domain.Suite),
		tests:  make(map[int]*domain.Test),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Total is the latest total announced by the emitter.
func (s *Stream) Total() int {
	return int(s.total.Load())
}

// Root is the rebuilt root suite, nil until the root SuiteBegin was decoded.
// It must not be read while Consume is running.
func (s *Stream) Root() *domain.Suite {
	return s.root
}

// Consume emits the events decoded from dec until RunEnd. When the input ends
// first, the run is closed with a failing test and the missing SuiteEnd and
// RunEnd events, and the cause is returned. Consume must be called once.
func (s *Stream) Consume(ctx context.Context, dec *Decoder) error {
	for !s.ended {
		if err := ctx.Err(); err != nil {
			s.interrupt(err)
			return err
		}
		rec, err := dec.Next()
		if errors.Is(err, io.EOF) {
			s.interrupt(domain.ErrIncompleteStream)
			return domain.ErrIncompleteStream
		}
		if err != nil {
			s.interrupt(err)
			return err
		}
		s.apply(rec)
	}
	return nil
}

func (s *Stream) apply(rec Record) {
	kind := domain.EventKind(rec.Kind)
	if !kind.Valid() {
		s.logger.Warn("unknown record kind ignored", "kind", rec.Kind)
		return
	}

	ev := domain.Event{Kind: kind, Timestamp: rec.Time, Source: rec.Source, Label: rec.Label}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	if rec.Error != "" {
		ev.Err = errors.New(rec.Error)
	}

	switch kind {
	case domain.EventRunBegin:
		s.begun = true
		s.total.Store(int64(rec.Total))
	case domain.EventRunEnd:
		s.ended = true
		if rec.Total > 0 {
			s.total.Store(int64(rec.Total))
		}
	case domain.EventSuiteBegin:
		if rec.Suite == nil {
			s.logger.Warn("suite record missing", "kind", rec.Kind)
			return
		}
		if rec.Suite.Root {
			ev.Suite = s.build(rec.Suite, nil)
			s.root = ev.Suite
		} else {
			ev.Suite = s.suite(rec.Suite)
		}
		s.open = append(s.open, ev.Suite)
	case domain.EventSuiteEnd:
		if rec.Suite == nil {
			s.logger.Warn("suite record missing", "kind", rec.Kind)
			return
		}
		ev.Suite = s.suite(rec.Suite)
		if n := len(s.open); n > 0 && s.open[n-1] == ev.Suite {
			s.open = s.open[:n-1]
		}
	case domain.EventHookBegin, domain.EventHookEnd:
		if rec.Hook != nil {
			ev.Hook = &domain.Hook{Title: rec.Hook.Title, Parent: s.suites[rec.Hook.Suite]}
		}
	default:
		if rec.Test == nil {
			s.logger.Warn("test record missing", "kind", rec.Kind)
			return
		}
		ev.Test = s.test(rec.Test)
	}

	s.Emit(ev)
}

// build registers rec and its skeleton below parent.
func (s *Stream) build(rec *SuiteRecord, parent *domain.Suite) *domain.Suite {
	suite := &domain.Suite{Title: rec.Title, Root: rec.Root, File: rec.File, Parent: parent}
	if parent != nil {
		parent.Suites = append(parent.Suites, suite)
	}
	s.suites[rec.ID] = suite
	for _, tr := range rec.Tests {
		t := suite.AddTest(tr.Title, nil)
		s.tests[tr.ID] = t
		applyTest(t, tr)
	}
	for _, child := range rec.Suites {
		s.build(child, suite)
	}
	return suite
}

func (s *Stream) suite(rec *SuiteRecord) *domain.Suite {
	if suite, ok := s.suites[rec.ID]; ok {
		return suite
	}
	parent := s.suites[rec.Parent]
	suite := &domain.Suite{Title: rec.Title, Root: rec.Root, File: rec.File, Parent: parent}
	if parent != nil {
		parent.Suites = append(parent.Suites, suite)
	}
	s.suites[rec.ID] = suite
	return suite
}

func (s *Stream) test(rec *TestRecord) *domain.Test {
	t, ok := s.tests[rec.ID]
	if !ok {
		if parent := s.suites[rec.Suite]; parent != nil {
			t = parent.AddTest(rec.Title, nil)
		} else {
			t = &domain.Test{Title: rec.Title}
		}
		s.tests[rec.ID] = t
	}
	applyTest(t, rec)
	return t
}

func applyTest(t *domain.Test, rec *TestRecord) {
	t.State = domain.TestState(rec.State)
	t.Duration = time.Duration(rec.Duration) * time.Millisecond
	t.Retries = rec.Retries
}

// interrupt closes a run whose input ended early.
func (s *Stream) interrupt(cause error) {
	if s.ended {
		return
	}
	s.logger.Warn("event stream interrupted", "error", cause)

	if !s.begun {
		s.begun = true
		s.total.Store(0)
		s.Emit(domain.NewEvent(domain.EventRunBegin))
	}
	if len(s.open) == 0 && s.root == nil {
		s.root = domain.NewRootSuite()
		s.Emit(domain.SuiteEvent(domain.EventSuiteBegin, s.root))
		s.open = append(s.open, s.root)
	}

	if n := len(s.open); n > 0 {
		t := s.open[n-1].AddTest("event stream interrupted", nil)
		t.State = domain.TestStateFailed
		s.total.Add(1)

		err := cause
		if !errors.Is(cause, domain.ErrIncompleteStream) {
			err = fmt.Errorf("%w: %w", domain.ErrIncompleteStream, cause)
		}
		s.Emit(domain.TestEvent(domain.EventTestBegin, t, nil))
		s.Emit(domain.TestEvent(domain.EventTestFail, t, err))
		s.Emit(domain.TestEvent(domain.EventTestEnd, t, nil))
	}

	for i := len(s.open) - 1; i >= 0; i-- {
		s.Emit(domain.SuiteEvent(domain.EventSuiteEnd, s.open[i]))
	}
	s.open = nil
	s.ended = true
	s.Emit(domain.NewEvent(domain.EventRunEnd))
}

var _ ports.Source = (*Stream)(nil)
