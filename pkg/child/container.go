package child

import (
	"errors"
	"sync"

	"github.com/aretw0/suitemux/pkg/ports"
)

// Container holds the instantiated contexts of a run, keyed by handle ID.
// A handle only ever touches its own slot.
type Container struct {
	mu        sync.Mutex
	instances map[string]ports.Instance
	order     []string
}

// NewContainer creates an empty Container.
func NewContainer() *Container {
	return &Container{instances: make(map[string]ports.Instance)}
}

// Attach stores inst under id, detaching whatever previously occupied the slot.
func (c *Container) Attach(id string, inst ports.Instance) error {
	c.mu.Lock()
	prev, exists := c.instances[id]
	c.instances[id] = inst
	if !exists {
		c.order = append(c.order, id)
	}
	c.mu.Unlock()

	if exists && prev != nil {
		return prev.Detach()
	}
	return nil
}

// Detach tears down the instance stored under id. Detaching an empty slot is a no-op.
func (c *Container) Detach(id string) error {
	c.mu.Lock()
	inst, ok := c.instances[id]
	if ok {
		delete(c.instances, id)
		for i, v := range c.order {
			if v == id {
				c.order = append(c.order[:i:i], c.order[i+1:]...)
				break
			}
		}
	}
	c.mu.Unlock()

	if !ok || inst == nil {
		return nil
	}
	return inst.Detach()
}

// DetachAll tears down every instance, in attachment order.
func (c *Container) DetachAll() error {
	c.mu.Lock()
	ids := append([]string(nil), c.order...)
	c.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := c.Detach(id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len is the number of attached instances.
func (c *Container) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.instances)
}

// Has reports whether id currently occupies a slot.
func (c *Container) Has(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.instances[id]
	return ok
}
