package ports

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/suitemux/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSourceContract runs a suite of tests to verify that a Runnable emits a
// well-formed event stream. newSource must return a fresh, unstarted Runnable on
// every call.
func RunSourceContract(t *testing.T, newSource func() Runnable) {
	record := func(src Source) func() []domain.Event {
		var mu sync.Mutex
		var got []domain.Event
		for _, kind := range domain.Kinds() {
			src.On(kind, func(ev domain.Event) {
				mu.Lock()
				defer mu.Unlock()
				got = append(got, ev)
			})
		}
		return func() []domain.Event {
			mu.Lock()
			defer mu.Unlock()
			return append([]domain.Event(nil), got...)
		}
	}

	t.Run("RunBegin first and RunEnd last", func(t *testing.T) {
		src := newSource()
		events := record(src)
		require.NoError(t, src.Run(context.Background()))

		got := events()
		require.NotEmpty(t, got)
		assert.Equal(t, domain.EventRunBegin, got[0].Kind)
		assert.Equal(t, domain.EventRunEnd, got[len(got)-1].Kind)
	})

	t.Run("Suites are balanced", func(t *testing.T) {
		src := newSource()
		events := record(src)
		require.NoError(t, src.Run(context.Background()))

		var open []*domain.Suite
		for _, ev := range events() {
			switch ev.Kind {
			case domain.EventSuiteBegin:
				require.NotNil(t, ev.Suite)
				open = append(open, ev.Suite)
			case domain.EventSuiteEnd:
				require.NotEmpty(t, open, "SuiteEnd without SuiteBegin")
				assert.Same(t, open[len(open)-1], ev.Suite)
				open = open[:len(open)-1]
			}
		}
		assert.Empty(t, open, "unclosed suites")
	})

	t.Run("Every test ends once and matches Total", func(t *testing.T) {
		src := newSource()
		events := record(src)
		require.NoError(t, src.Run(context.Background()))

		ended := 0
		outcomes := 0
		for _, ev := range events() {
			switch ev.Kind {
			case domain.EventTestEnd:
				require.NotNil(t, ev.Test)
				ended++
			case domain.EventTestPass, domain.EventTestFail, domain.EventTestPending:
				outcomes++
			}
		}
		assert.Equal(t, src.Total(), ended)
		assert.Equal(t, ended, outcomes)
	})
}
