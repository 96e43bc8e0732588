package testutils

import (
	"context"

	"github.com/aretw0/suitemux"
	"github.com/aretw0/suitemux/pkg/adapters/memory"
	"github.com/aretw0/suitemux/pkg/domain"
	"github.com/aretw0/suitemux/pkg/ports"
)

// Pass is a test body that always succeeds.
func Pass(context.Context) error { return nil }

// ChildPage is a remote child running one suite of two passing tests.
func ChildPage(suite string) memory.Page {
	return func(ctx context.Context, hs ports.Handshake) error {
		r := memory.NewRunner()
		r.Describe(suite, func(s *domain.Suite) {
			s.AddTest("test 1", Pass)
			s.AddTest("test 2", Pass)
		})
		_, err := suitemux.New(suitemux.WithParent(hs)).Run(ctx, r)
		return err
	}
}

// LocalRunner is the local suite "Top-Suite" with a single passing test.
func LocalRunner() *memory.Runner {
	r := memory.NewRunner()
	r.Describe("Top-Suite", func(s *domain.Suite) {
		s.AddTest("local test", Pass)
	})
	return r
}

// Failures returns the error of every failed test recorded by rec.
func Failures(rec *memory.Recorder) []error {
	var errs []error
	for _, ev := range rec.Events() {
		if ev.Kind == domain.EventTestFail {
			errs = append(errs, ev.Err)
		}
	}
	return errs
}
