package suitemux

import (
	"context"
	"fmt"

	"github.com/aretw0/suitemux/pkg/domain"
	"github.com/aretw0/suitemux/pkg/ports"
)

// Run starts the run and blocks until the merged RunEnd has been emitted,
// the local suite fails to run or ctx is done.
// It returns the counters observed on the merged stream.
func (c *Controller) Run(ctx context.Context, local ports.Runnable) (domain.Stats, error) {
	if _, err := c.Start(ctx, local); err != nil {
		return domain.Stats{}, err
	}

	localErr := c.localErr
	for {
		select {
		case <-c.merger.Done():
			stats := c.merger.Stats()
			c.logger.Info("run finished",
				"tests", stats.Tests,
				"passes", stats.Passes,
				"failures", stats.Failures,
				"duration", stats.Duration,
			)
			return stats, nil
		case err := <-localErr:
			if err != nil {
				return c.merger.Stats(), fmt.Errorf("local suite: %w", err)
			}
			localErr = nil
		case <-ctx.Done():
			// A child page is torn down as soon as its RunEnd went out.
			if c.merger.Ended() {
				<-c.merger.Done()
				return c.merger.Stats(), nil
			}
			return c.merger.Stats(), ctx.Err()
		}
	}
}
