package domain

import (
	"context"
	"time"
)

// SourceEvent describes a lifecycle transition of a child Source.
type SourceEvent struct {
	Timestamp time.Time   `json:"timestamp"`
	Source    SourceInfo  `json:"source"`
	State     SourceState `json:"state"`
	// Elapsed is the time spent since the child started loading.
	Elapsed time.Duration `json:"elapsed"`
	Err     error         `json:"-"`
}

// LifecycleHooks defines callbacks for run observability.
// Any of them may be nil.
type LifecycleHooks struct {
	OnSourceLoading   func(context.Context, *SourceEvent)
	OnSourceConnected func(context.Context, *SourceEvent)
	OnSourceCompleted func(context.Context, *SourceEvent)
	// OnEvent sees every event of the merged stream, in relay order.
	OnEvent func(context.Context, Event)
}

// Merge combines two hook sets, calling h before other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnSourceLoading:   chainSource(h.OnSourceLoading, other.OnSourceLoading),
		OnSourceConnected: chainSource(h.OnSourceConnected, other.OnSourceConnected),
		OnSourceCompleted: chainSource(h.OnSourceCompleted, other.OnSourceCompleted),
		OnEvent:           chainEvent(h.OnEvent, other.OnEvent),
	}
}

func chainSource(a, b func(context.Context, *SourceEvent)) func(context.Context, *SourceEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *SourceEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}

func chainEvent(a, b func(context.Context, Event)) func(context.Context, Event) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e Event) {
		a(ctx, e)
		b(ctx, e)
	}
}
