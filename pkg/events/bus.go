package events

import (
	"sync"

	"github.com/aretw0/suitemux/pkg/domain"
	"github.com/aretw0/suitemux/pkg/ports"
)

type subscription struct {
	id      uint64
	handler ports.Handler
	once    bool
}

// Bus is a synchronous publish/subscribe hub keyed by event kind.
// Handlers run on the goroutine calling Emit, in subscription order.
// Safe for concurrent use.
type Bus struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[domain.EventKind][]subscription
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[domain.EventKind][]subscription),
	}
}

// On registers h for every event of kind.
func (b *Bus) On(kind domain.EventKind, h ports.Handler) func() {
	return b.add(kind, h, false)
}

// Once registers h for the next event of kind.
func (b *Bus) Once(kind domain.EventKind, h ports.Handler) func() {
	return b.add(kind, h, true)
}

func (b *Bus) add(kind domain.EventKind, h ports.Handler, once bool) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[kind] = append(b.subs[kind], subscription{id: id, handler: h, once: once})

	return func() { b.remove(kind, id) }
}

func (b *Bus) remove(kind domain.EventKind, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[kind]
	for i, s := range subs {
		if s.id == id {
			b.subs[kind] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Emit delivers ev to the handlers subscribed to ev.Kind.
// Once handlers are removed before any handler runs, so a handler that emits
// the same kind again does not re-trigger them.
func (b *Bus) Emit(ev domain.Event) {
	b.mu.Lock()
	subs := b.subs[ev.Kind]
	if len(subs) == 0 {
		b.mu.Unlock()
		return
	}
	snapshot := make([]subscription, len(subs))
	copy(snapshot, subs)

	kept := subs[:0:0]
	for _, s := range subs {
		if !s.once {
			kept = append(kept, s)
		}
	}
	b.subs[ev.Kind] = kept
	b.mu.Unlock()

	for _, s := range snapshot {
		s.handler(ev)
	}
}

// Len returns the number of handlers registered for kind.
func (b *Bus) Len(kind domain.EventKind) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[kind])
}
