package ports

import "context"

// Handshake is the explicit link between a child context and the handle that
// created it. It is passed to the loader, and from there down to the child's own
// controller, so the child never has to look its parent up.
type Handshake interface {
	// ID is the unique handle identifier (the handshake parameter).
	ID() string
	// Label is the display name of the child.
	Label() string
	// Location is the canonical absolute location of the child.
	Location() string

	// Connect reports readiness: src is the child's event stream.
	Connect(src Source) error

	// Fail reports that the context could not be loaded.
	Fail(err error)
}

// Instance is a loaded isolated execution context.
type Instance interface {
	// Detach tears the context down. It must be safe to call more than once.
	Detach() error
}

// Loader instantiates isolated execution contexts.
// Load must not block until the child is ready: readiness and late failures are
// reported through the Handshake.
type Loader interface {
	Load(ctx context.Context, hs Handshake) (Instance, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, hs Handshake) (Instance, error)

func (f LoaderFunc) Load(ctx context.Context, hs Handshake) (Instance, error) {
	return f(ctx, hs)
}

// InstanceFunc adapts a function to the Instance interface.
type InstanceFunc func() error

func (f InstanceFunc) Detach() error {
	return f()
}
