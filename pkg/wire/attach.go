package wire

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/suitemux/pkg/domain"
	"github.com/aretw0/suitemux/pkg/ports"
)

// Attach reads a remote child's output from r and connects it through hs.
//
// The first record must be the readiness signal. Once it arrives a Stream is
// connected and fed with the rest of the input. Anything else before it is
// reported through hs.Fail.
func Attach(ctx context.Context, hs ports.Handshake, r io.Reader, opts ...StreamOption) error {
	dec := NewDecoder(r)
	rec, err := dec.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = domain.ErrIncompleteStream
		}
		err = fmt.Errorf("waiting for readiness: %w", err)
		hs.Fail(err)
		return err
	}

	switch rec.Kind {
	case KindConnected:
		if rec.Handle != "" && rec.Handle != hs.ID() {
			err := domain.ProtocolErrorf("readiness for handle %q, expected %q", rec.Handle, hs.ID())
			hs.Fail(err)
			return err
		}
	case KindFailed:
		err := errors.New(rec.Error)
		hs.Fail(err)
		return err
	default:
		err := domain.ProtocolErrorf("expected readiness, got %q", rec.Kind)
		hs.Fail(err)
		return err
	}

	stream := NewStream(opts...)
	if err := hs.Connect(stream); err != nil {
		return err
	}
	return stream.Consume(ctx, dec)
}
