package ports

import (
	"context"

	"github.com/aretw0/suitemux/pkg/domain"
)

// Handler receives one event.
type Handler func(ev domain.Event)

// Subscriber is the listening half of an event emitter.
type Subscriber interface {
	// On registers h for every event of the given kind.
	// The returned function removes the subscription.
	On(kind domain.EventKind, h Handler) (cancel func())

	// Once registers h for the next event of the given kind only.
	Once(kind domain.EventKind, h Handler) (cancel func())
}

// Source is one origin of a test-event stream.
type Source interface {
	Subscriber

	// Total is the number of tests the Source expects to run.
	// It is only reliable once the Source has emitted RunBegin.
	Total() int
}

// Runnable is a Source the current process drives itself (the local run).
type Runnable interface {
	Source

	// Run executes the suite, emitting events synchronously, and returns when
	// RunEnd has been emitted.
	Run(ctx context.Context) error
}

// Listener accepts Sources to be merged.
type Listener interface {
	Listen(src Source, info domain.SourceInfo)

	// Abandon ends a listened Source that stopped before emitting RunEnd.
	Abandon(src Source, err error)
}
