package events_test

import (
	"sync"
	"testing"

	"github.com/aretw0/suitemux/pkg/domain"
	"github.com/aretw0/suitemux/pkg/events"
	"github.com/stretchr/testify/assert"
)

func TestBus_OnReceivesEveryEvent(t *testing.T) {
	bus := events.NewBus()
	var got []domain.EventKind
	bus.On(domain.EventTestPass, func(ev domain.Event) { got = append(got, ev.Kind) })

	bus.Emit(domain.NewEvent(domain.EventTestPass))
	bus.Emit(domain.NewEvent(domain.EventTestFail))
	bus.Emit(domain.NewEvent(domain.EventTestPass))

	assert.Equal(t, []domain.EventKind{domain.EventTestPass, domain.EventTestPass}, got)
}

func TestBus_OnceFiresOnlyOnce(t *testing.T) {
	bus := events.NewBus()
	calls := 0
	bus.Once(domain.EventRunEnd, func(domain.Event) { calls++ })

	bus.Emit(domain.NewEvent(domain.EventRunEnd))
	bus.Emit(domain.NewEvent(domain.EventRunEnd))

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, bus.Len(domain.EventRunEnd))
}

func TestBus_OnceNotRetriggeredByReentrantEmit(t *testing.T) {
	bus := events.NewBus()
	calls := 0
	bus.Once(domain.EventRunEnd, func(domain.Event) {
		calls++
		bus.Emit(domain.NewEvent(domain.EventRunEnd))
	})

	bus.Emit(domain.NewEvent(domain.EventRunEnd))
	assert.Equal(t, 1, calls)
}

func TestBus_CancelRemovesHandler(t *testing.T) {
	bus := events.NewBus()
	calls := 0
	cancel := bus.On(domain.EventTestEnd, func(domain.Event) { calls++ })

	bus.Emit(domain.NewEvent(domain.EventTestEnd))
	cancel()
	cancel()
	bus.Emit(domain.NewEvent(domain.EventTestEnd))

	assert.Equal(t, 1, calls)
}

func TestBus_HandlersRunInSubscriptionOrder(t *testing.T) {
	bus := events.NewBus()
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		bus.On(domain.EventSuiteBegin, func(domain.Event) { order = append(order, i) })
	}

	bus.Emit(domain.NewEvent(domain.EventSuiteBegin))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestBus_ConcurrentEmit(t *testing.T) {
	bus := events.NewBus()
	var mu sync.Mutex
	count := 0
	bus.On(domain.EventTestPass, func(domain.Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Emit(domain.NewEvent(domain.EventTestPass))
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, count)
}
