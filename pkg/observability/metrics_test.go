package observability_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/suitemux/pkg/domain"
	"github.com/aretw0/suitemux/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnSourceLoading(ctx, &domain.SourceEvent{})
	hooks.OnSourceLoading(ctx, &domain.SourceEvent{})
	hooks.OnSourceConnected(ctx, &domain.SourceEvent{Elapsed: 50 * time.Millisecond})
	hooks.OnSourceCompleted(ctx, &domain.SourceEvent{State: domain.SourceCompleted})
	hooks.OnSourceCompleted(ctx, &domain.SourceEvent{
		State: domain.SourceFailed,
		Err:   domain.NewLoadTimeout("file:///child.html"),
	})

	start := time.Now()
	hooks.OnEvent(ctx, domain.Event{Kind: domain.EventRunBegin, Timestamp: start})
	hooks.OnEvent(ctx, domain.Event{Kind: domain.EventTestPass})
	hooks.OnEvent(ctx, domain.Event{Kind: domain.EventTestPass, Label: "Child Suite 1"})
	hooks.OnEvent(ctx, domain.Event{Kind: domain.EventTestFail, Label: "Child Suite 1"})
	hooks.OnEvent(ctx, domain.Event{Kind: domain.EventRunEnd, Timestamp: start.Add(2 * time.Second)})

	expected := `
# HELP suitemux_tests_total Tests relayed on the merged stream, by source label and outcome
# TYPE suitemux_tests_total counter
suitemux_tests_total{outcome="failed",source="Child Suite 1"} 1
suitemux_tests_total{outcome="passed",source="Child Suite 1"} 1
suitemux_tests_total{outcome="passed",source="local"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "suitemux_tests_total"))

	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP suitemux_source_load_failures_total Children that never connected, by failure kind
# TYPE suitemux_source_load_failures_total counter
suitemux_source_load_failures_total{kind="timeout"} 1
`), "suitemux_source_load_failures_total"))

	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP suitemux_active_sources Children currently loading or running
# TYPE suitemux_active_sources gauge
suitemux_active_sources 0
`), "suitemux_active_sources"))

	count, err := testutil.GatherAndCount(reg, "suitemux_run_duration_seconds", "suitemux_source_connect_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestNewMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	_, err = observability.NewMetrics(reg)
	var already prometheus.AlreadyRegisteredError
	assert.True(t, errors.As(err, &already))
}

func TestFailureKind(t *testing.T) {
	assert.Equal(t, "timeout", observability.FailureKind(domain.NewLoadTimeout("x")))
	assert.Equal(t, "load_failure", observability.FailureKind(domain.NewLoadFailure("x", errors.New("404"))))
	assert.Equal(t, "", observability.FailureKind(errors.New("other")))
	assert.Equal(t, "", observability.FailureKind(nil))
}
