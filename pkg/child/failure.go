package child

import (
	"context"
	"fmt"

	"github.com/aretw0/suitemux/pkg/domain"
	"github.com/aretw0/suitemux/pkg/events"
	"github.com/aretw0/suitemux/pkg/ports"
)

// FailureSource stands in for a child that never connected. It reports a
// single failing test so the failure shows up in the merged report under the
// child's label.
type FailureSource struct {
	*events.Bus
	root *domain.Suite
	test *domain.Test
	err  error
}

// NewFailureSource builds the stand-in for the child at location.
func NewFailureSource(label, location string, cause error) *FailureSource {
	root := domain.NewRootSuite()
	root.Title = label
	root.File = location
	test := root.AddTest(fmt.Sprintf("load %s", location), nil)
	test.State = domain.TestStateFailed
	if cause == nil {
		cause = domain.NewLoadFailure(location, nil)
	}
	return &FailureSource{Bus: events.NewBus(), root: root, test: test, err: cause}
}

// Total is always one: the synthetic failing test.
func (s *FailureSource) Total() int { return 1 }

// Err is the failure reported by the synthetic test.
func (s *FailureSource) Err() error { return s.err }

// Run emits the whole synthetic sequence.
func (s *FailureSource) Run(context.Context) error {
	s.Emit(domain.NewEvent(domain.EventRunBegin))
	s.Emit(domain.SuiteEvent(domain.EventSuiteBegin, s.root))
	s.Emit(domain.TestEvent(domain.EventTestBegin, s.test, nil))
	s.Emit(domain.TestEvent(domain.EventTestFail, s.test, s.err))
	s.Emit(domain.TestEvent(domain.EventTestEnd, s.test, nil))
	s.Emit(domain.SuiteEvent(domain.EventSuiteEnd, s.root))
	s.Emit(domain.NewEvent(domain.EventRunEnd))
	return nil
}

var _ ports.Runnable = (*FailureSource)(nil)
