package memory

import (
	"sync"

	"github.com/aretw0/suitemux/pkg/domain"
	"github.com/aretw0/suitemux/pkg/ports"
)

// Recorder keeps every event observed on the subscribers it records.
// Safe for concurrent use.
type Recorder struct {
	mu      sync.RWMutex
	events  []domain.Event
	cancels []func()
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record subscribes to every event kind of sub.
func (r *Recorder) Record(sub ports.Subscriber) {
	for _, kind := range domain.Kinds() {
		kind := kind
		cancel := sub.On(kind, func(ev domain.Event) {
			ev.Kind = kind
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, ev)
		})
		r.mu.Lock()
		r.cancels = append(r.cancels, cancel)
		r.mu.Unlock()
	}
}

// Stop unsubscribes from every recorded subscriber.
func (r *Recorder) Stop() {
	r.mu.Lock()
	cancels := r.cancels
	r.cancels = nil
	r.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

// Events returns a copy of the recorded events, in arrival order.
func (r *Recorder) Events() []domain.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Event(nil), r.events...)
}

// Since returns the events recorded after the first n.
func (r *Recorder) Since(n int) []domain.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n >= len(r.events) {
		return nil
	}
	if n < 0 {
		n = 0
	}
	return append([]domain.Event(nil), r.events[n:]...)
}

// Len is the number of recorded events.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events)
}

// Kinds lists the kinds of the recorded events, in arrival order.
func (r *Recorder) Kinds() []domain.EventKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]domain.EventKind, len(r.events))
	for i, ev := range r.events {
		kinds[i] = ev.Kind
	}
	return kinds
}

// Count is the number of recorded events of kind.
func (r *Recorder) Count(kind domain.EventKind) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

// TestTitles lists the full titles of the tests of the recorded events of kind.
func (r *Recorder) TestTitles(kind domain.EventKind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var titles []string
	for _, ev := range r.events {
		if ev.Kind == kind && ev.Test != nil {
			titles = append(titles, ev.Test.FullTitle())
		}
	}
	return titles
}

// Reset drops the recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
