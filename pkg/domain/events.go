package domain

import (
	"time"
)

// EventKind defines the category of a test event.
type EventKind string

const (
	EventRunBegin    EventKind = "run_begin"
	EventRunEnd      EventKind = "run_end"
	EventSuiteBegin  EventKind = "suite_begin"
	EventSuiteEnd    EventKind = "suite_end"
	EventTestBegin   EventKind = "test_begin"
	EventTestEnd     EventKind = "test_end"
	EventTestPass    EventKind = "test_pass"
	EventTestFail    EventKind = "test_fail"
	EventTestPending EventKind = "test_pending"
	EventHookBegin   EventKind = "hook_begin"
	EventHookEnd     EventKind = "hook_end"
	EventRetry       EventKind = "retry"
)

// Kinds lists every event kind a Source may emit, in lifecycle order.
func Kinds() []EventKind {
	return []EventKind{
		EventRunBegin,
		EventRunEnd,
		EventSuiteBegin,
		EventSuiteEnd,
		EventTestBegin,
		EventTestEnd,
		EventTestPass,
		EventTestFail,
		EventTestPending,
		EventHookBegin,
		EventHookEnd,
		EventRetry,
	}
}

// Valid reports whether k is one of the known event kinds.
func (k EventKind) Valid() bool {
	for _, known := range Kinds() {
		if k == known {
			return true
		}
	}
	return false
}

// Event is a single notification emitted by a Source.
// Exactly one of Suite, Test or Hook is set for the kinds that carry a descriptor.
type Event struct {
	Kind      EventKind `json:"kind"`
	Timestamp time.Time `json:"timestamp"`

	// Source and Label identify the originating Source once the event has been
	// relayed by the merger. They are empty on events straight from a Source.
	Source string `json:"source,omitempty"`
	Label  string `json:"label,omitempty"`

	Suite *Suite `json:"-"`
	Test  *Test  `json:"-"`
	Hook  *Hook  `json:"-"`

	// Err is set on TestFail (and on Retry when the attempt failed).
	Err error `json:"-"`
}

// NewEvent stamps an event of the given kind with the current time.
func NewEvent(kind EventKind) Event {
	return Event{Kind: kind, Timestamp: time.Now()}
}

// SuiteEvent builds a SuiteBegin/SuiteEnd event.
func SuiteEvent(kind EventKind, s *Suite) Event {
	ev := NewEvent(kind)
	ev.Suite = s
	return ev
}

// TestEvent builds a test-scoped event. err is only meaningful for TestFail.
func TestEvent(kind EventKind, t *Test, err error) Event {
	ev := NewEvent(kind)
	ev.Test = t
	ev.Err = err
	return ev
}

// HookEvent builds a HookBegin/HookEnd event.
func HookEvent(kind EventKind, h *Hook) Event {
	ev := NewEvent(kind)
	ev.Hook = h
	return ev
}

// IsRootSuite reports whether the event concerns a suite still marked as root.
func (e Event) IsRootSuite() bool {
	return e.Suite != nil && e.Suite.Root
}
