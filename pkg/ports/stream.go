package ports

import (
	"io"
	"log/slog"

	"github.com/aretw0/suitemux/pkg/domain"
)

// Stream is the merged event stream handed to reporting sinks.
// It offers the same subscribe/publish surface as a single Source so that a sink
// written for one Source can consume it unchanged.
type Stream interface {
	Source

	// Emit publishes ev to every subscriber of ev.Kind.
	Emit(ev domain.Event)

	// Stats returns the counters observed on the stream so far.
	Stats() domain.Stats

	// Root is the merged suite tree. It is complete once RunEnd was emitted.
	Root() *domain.Suite
}

// ReporterOptions configures a reporting sink.
type ReporterOptions struct {
	Output io.Writer
	Color  bool
	Logger *slog.Logger
}

// ReporterFactory attaches a reporting sink to a stream.
type ReporterFactory func(stream Stream, opts ReporterOptions) error
