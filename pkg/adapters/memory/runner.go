package memory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/suitemux/internal/logging"
	"github.com/aretw0/suitemux/pkg/domain"
	"github.com/aretw0/suitemux/pkg/events"
	"github.com/aretw0/suitemux/pkg/ports"
)

// Runner runs an in-process suite tree and emits its events.
// Event order follows the usual BDD runners: a test's TestBegin precedes its
// beforeEach hooks and its outcome follows its afterEach hooks.
type Runner struct {
	*events.Bus
	root        *domain.Suite
	logger      *slog.Logger
	testTimeout time.Duration
	retries     int
}

// RunnerOption configures the Runner.
type RunnerOption func(*Runner)

// WithRoot runs an existing suite tree instead of an empty one.
func WithRoot(root *domain.Suite) RunnerOption {
	return func(r *Runner) {
		r.root = root
	}
}

// WithTestTimeout bounds every test body and hook.
func WithTestTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.testTimeout = d
	}
}

// WithRetries reruns a failing test up to n more times.
func WithRetries(n int) RunnerOption {
	return func(r *Runner) {
		r.retries = n
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a Runner with an empty root suite.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		Bus:    events.NewBus(),
		root:   domain.NewRootSuite(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Root is the suite tree the Runner executes.
func (r *Runner) Root() *domain.Suite {
	return r.root
}

// Describe adds a top-level suite and lets build populate it.
func (r *Runner) Describe(title string, build func(s *domain.Suite)) *domain.Suite {
	s := r.root.AddSuite(title)
	if build != nil {
		build(s)
	}
	return s
}

// Total counts every test of the tree, pending ones included.
func (r *Runner) Total() int {
	return r.root.TotalTests()
}

// Run executes the tree. Test failures are reported as events, not returned.
func (r *Runner) Run(ctx context.Context) error {
	start := time.Now()
	r.Emit(domain.NewEvent(domain.EventRunBegin))
	r.runSuite(ctx, r.root, nil, nil)
	r.Emit(domain.NewEvent(domain.EventRunEnd))
	r.logger.Debug("local run finished", "tests", r.Total(), "duration", time.Since(start))
	return nil
}

// runSuite walks s. Hooks are inherited down the recursion rather than read
// through Parent, which the merger rewrites on adopted suites.
func (r *Runner) runSuite(ctx context.Context, s *domain.Suite, before, after []*domain.Hook) {
	before = append(append([]*domain.Hook(nil), before...), s.BeforeEach...)
	after = append(append([]*domain.Hook(nil), s.AfterEach...), after...)

	r.Emit(domain.SuiteEvent(domain.EventSuiteBegin, s))
	for _, t := range s.Tests {
		r.runTest(ctx, t, before, after)
	}
	for _, child := range s.Suites {
		r.runSuite(ctx, child, before, after)
	}
	r.Emit(domain.SuiteEvent(domain.EventSuiteEnd, s))
}

func (r *Runner) runTest(ctx context.Context, t *domain.Test, before, after []*domain.Hook) {
	if t.Fn == nil {
		t.State = domain.TestStatePending
		r.Emit(domain.TestEvent(domain.EventTestPending, t, nil))
		r.Emit(domain.TestEvent(domain.EventTestEnd, t, nil))
		return
	}

	r.Emit(domain.TestEvent(domain.EventTestBegin, t, nil))
	start := time.Now()

	var err error
	for attempt := 0; ; attempt++ {
		err = r.attempt(ctx, t, before, after)
		if err == nil || attempt >= r.retries || ctx.Err() != nil {
			break
		}
		t.Retries = attempt + 1
		r.Emit(domain.TestEvent(domain.EventRetry, t, err))
	}
	t.Duration = time.Since(start)

	if err != nil {
		t.State = domain.TestStateFailed
		r.logger.Debug("test failed", "test", t.FullTitle(), "error", err)
		r.Emit(domain.TestEvent(domain.EventTestFail, t, err))
	} else {
		t.State = domain.TestStatePassed
		r.Emit(domain.TestEvent(domain.EventTestPass, t, nil))
	}
	r.Emit(domain.TestEvent(domain.EventTestEnd, t, nil))
}

func (r *Runner) attempt(ctx context.Context, t *domain.Test, before, after []*domain.Hook) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := r.runHooks(ctx, before)
	if err == nil {
		err = r.call(ctx, t.Fn)
	}
	if afterErr := r.runHooks(ctx, after); err == nil {
		err = afterErr
	}
	return err
}

func (r *Runner) runHooks(ctx context.Context, hooks []*domain.Hook) error {
	for _, h := range hooks {
		r.Emit(domain.HookEvent(domain.EventHookBegin, h))
		err := r.call(ctx, h.Fn)
		r.Emit(domain.HookEvent(domain.EventHookEnd, h))
		if err != nil {
			return fmt.Errorf("%q hook: %w", h.Title, err)
		}
	}
	return nil
}

func (r *Runner) call(ctx context.Context, fn domain.TestFunc) (err error) {
	if fn == nil {
		return nil
	}
	if r.testTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.testTimeout)
		defer cancel()
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return fn(ctx)
}

var _ ports.Runnable = (*Runner)(nil)
