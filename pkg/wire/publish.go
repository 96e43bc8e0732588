package wire

import (
	"context"
	"io"
	"sync"

	"github.com/aretw0/suitemux/pkg/domain"
	"github.com/aretw0/suitemux/pkg/ports"
)

// Publication forwards the events of a Source to an Encoder.
type Publication struct {
	mu      sync.Mutex
	err     error
	cancels []func()
	done    chan struct{}
	once    sync.Once
}

// Publish encodes every event of src until its RunEnd. It must be called
// before src starts emitting.
func Publish(src ports.Source, enc *Encoder) *Publication {
	p := &Publication{done: make(chan struct{})}
	for _, kind := range domain.Kinds() {
		kind := kind
		p.cancels = append(p.cancels, src.On(kind, func(ev domain.Event) {
			ev.Kind = kind
			if err := enc.Encode(ev, src.Total()); err != nil {
				p.fail(err)
			}
			if kind == domain.EventRunEnd {
				p.finish()
			}
		}))
	}
	return p
}

func (p *Publication) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err == nil {
		p.err = err
	}
}

func (p *Publication) finish() {
	p.once.Do(func() { close(p.done) })
}

// Err is the first write error, if any.
func (p *Publication) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Done is closed once RunEnd has been written.
func (p *Publication) Done() <-chan struct{} {
	return p.done
}

// Cancel stops forwarding.
func (p *Publication) Cancel() {
	for _, cancel := range p.cancels {
		cancel()
	}
	p.finish()
}

// Parent is the handshake of a child whose parent lives in another process.
// Readiness and the child's events are written to the parent as records.
type Parent struct {
	id       string
	label    string
	location string
	enc      *Encoder

	mu  sync.Mutex
	pub *Publication
}

// NewParent writes the handshake of handle id to w.
func NewParent(id, label, location string, w io.Writer) *Parent {
	return &Parent{id: id, label: label, location: location, enc: NewEncoder(w)}
}

func (p *Parent) ID() string       { return p.id }
func (p *Parent) Label() string    { return p.label }
func (p *Parent) Location() string { return p.location }

// Connect announces readiness and starts forwarding src.
func (p *Parent) Connect(src ports.Source) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pub != nil {
		return domain.ProtocolErrorf("handle %s connected twice", p.id)
	}
	if err := p.enc.Connected(p.id); err != nil {
		return err
	}
	p.pub = Publish(src, p.enc)
	return nil
}

// Fail tells the parent the suite could not be loaded.
func (p *Parent) Fail(err error) {
	_ = p.enc.Failed(p.id, err)
}

// Wait blocks until the connected Source has ended or ctx is done.
func (p *Parent) Wait(ctx context.Context) error {
	p.mu.Lock()
	pub := p.pub
	p.mu.Unlock()
	if pub == nil {
		return nil
	}
	select {
	case <-pub.Done():
		return pub.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ ports.Handshake = (*Parent)(nil)
