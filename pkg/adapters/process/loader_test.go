package process_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aretw0/suitemux"
	"github.com/aretw0/suitemux/pkg/adapters/memory"
	"github.com/aretw0/suitemux/pkg/adapters/process"
	"github.com/aretw0/suitemux/pkg/domain"
	"github.com/aretw0/suitemux/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The test binary doubles as the child program: when spawned by a Loader it
// serves a suite instead of running the tests.
func TestMain(m *testing.M) {
	if os.Getenv("SUITEMUX_TEST_LOCAL") == "1" {
		os.Exit(serveLocal())
	}
	if parent, ok := process.ParentFromEnv(os.Stdout); ok {
		os.Exit(serveChild(parent))
	}
	os.Exit(m.Run())
}

func pass(context.Context) error { return nil }

func remoteRunner(suite string) *memory.Runner {
	r := memory.NewRunner()
	r.Describe(suite, func(s *domain.Suite) {
		s.AddTest("test 1", pass)
		s.AddTest("test 2", pass)
	})
	return r
}

func serveChild(parent *wire.Parent) int {
	ctx := context.Background()
	switch process.ArgsFromEnv()["MODE"] {
	case "fail":
		parent.Fail(errors.New("suite did not compile"))
		return 1
	case "crash":
		fmt.Fprintln(os.Stderr, "segmentation fault")
		return 2
	case "truncate":
		enc := wire.NewEncoder(os.Stdout)
		_ = enc.Connected(parent.ID())
		_ = enc.Encode(domain.NewEvent(domain.EventRunBegin), 2)
		return 0
	case "hang":
		time.Sleep(time.Minute)
		return 0
	}

	if _, err := suitemux.New(suitemux.WithParent(parent)).Run(ctx, remoteRunner("suite remote")); err != nil {
		return 1
	}
	if err := parent.Wait(ctx); err != nil {
		return 1
	}
	return 0
}

func serveLocal() int {
	r := remoteRunner("suite local")
	pub := wire.Publish(r, wire.NewEncoder(os.Stdout))
	_ = r.Run(context.Background())
	<-pub.Done()
	return 0
}

func newLoader(t *testing.T) *process.Loader {
	t.Helper()
	exe, err := os.Executable()
	require.NoError(t, err)
	return process.NewLoader(process.WithRegistry(map[string]process.ProcessConfig{
		"child": {Name: "child", Command: exe},
		"local": {Name: "local", Command: exe, Environment: map[string]string{"SUITEMUX_TEST_LOCAL": "1"}},
	}))
}

func localRunner() *memory.Runner {
	r := memory.NewRunner()
	r.Describe("Top-Suite", func(s *domain.Suite) {
		s.AddTest("local test", pass)
	})
	return r
}

type result struct {
	stats domain.Stats
	total int
	rec   *memory.Recorder
}

func run(t *testing.T, loader *process.Loader, timeout time.Duration, children ...[2]string) result {
	t.Helper()
	opts := []suitemux.Option{suitemux.WithLoader(loader)}
	if timeout > 0 {
		opts = append(opts, suitemux.WithLoadTimeout(timeout))
	}
	ctl := suitemux.New(opts...)
	t.Cleanup(func() { _ = ctl.Close() })
	for _, c := range children {
		require.NoError(t, ctl.Declare(c[0], c[1]))
	}
	rec := memory.NewRecorder()
	rec.Record(ctl.Stream())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	stats, err := ctl.Run(ctx, localRunner())
	require.NoError(t, err)
	return result{stats: stats, total: ctl.Stream().Total(), rec: rec}
}

func failures(rec *memory.Recorder) []error {
	var errs []error
	for _, ev := range rec.Events() {
		if ev.Kind == domain.EventTestFail {
			errs = append(errs, ev.Err)
		}
	}
	return errs
}

func TestLoader_ChildRun(t *testing.T) {
	res := run(t, newLoader(t), 0, [2]string{"Remote", "exec:child?mode=ok"})

	assert.Equal(t, 3, res.total)
	assert.Equal(t, 3, res.stats.Passes)
	assert.Equal(t, []string{
		"Top-Suite local test",
		"Remote suite remote test 1",
		"Remote suite remote test 2",
	}, res.rec.TestTitles(domain.EventTestPass))
}

func TestLoader_TwoChildrenSameProgram(t *testing.T) {
	res := run(t, newLoader(t), 0,
		[2]string{"Remote", "exec:child?mode=ok&n=1"},
		[2]string{"Remote", "exec:child?mode=ok&n=2"},
	)
	assert.Equal(t, 5, res.total)
	assert.Equal(t, 5, res.stats.Passes)
}

func TestLoader_ChildReportsFailure(t *testing.T) {
	res := run(t, newLoader(t), 0, [2]string{"Broken", "exec:child?mode=fail"})

	errs := failures(res.rec)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], domain.ErrLoadFailure)
	assert.ErrorContains(t, errs[0], "suite did not compile")
	assert.Equal(t, []string{"Broken load exec:child?mode=fail"}, res.rec.TestTitles(domain.EventTestFail))
	assert.Equal(t, 2, res.total)
}

func TestLoader_ExitBeforeReadiness(t *testing.T) {
	res := run(t, newLoader(t), 0, [2]string{"Crash", "exec:child?mode=crash"})

	errs := failures(res.rec)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], domain.ErrLoadFailure)
	assert.ErrorIs(t, errs[0], domain.ErrIncompleteStream)
}

func TestLoader_TruncatedStream(t *testing.T) {
	res := run(t, newLoader(t), 0, [2]string{"Truncated", "exec:child?mode=truncate"})

	assert.Equal(t, []string{"Truncated event stream interrupted"}, res.rec.TestTitles(domain.EventTestFail))
	errs := failures(res.rec)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], domain.ErrIncompleteStream)
	// 1 local + 2 announced + the synthetic failure.
	assert.Equal(t, 4, res.total)
	assert.Equal(t, 1, res.rec.Count(domain.EventRunEnd))
}

func TestLoader_UnregisteredProcess(t *testing.T) {
	res := run(t, newLoader(t), 0, [2]string{"Nope", "exec:nope"})

	errs := failures(res.rec)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], domain.ErrLoadFailure)
	assert.ErrorIs(t, errs[0], domain.ErrUnknownLocation)
}

func TestLoader_Timeout(t *testing.T) {
	res := run(t, newLoader(t), time.Second,
		[2]string{"Hang", "exec:child?mode=hang"},
		[2]string{"Remote", "exec:child"},
	)

	errs := failures(res.rec)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], domain.ErrLoadTimeout)
	assert.Equal(t, 3, res.stats.Passes)
}

func TestSuite_Local(t *testing.T) {
	loader := newLoader(t)
	local, err := loader.Suite("local", nil)
	require.NoError(t, err)

	ctl := suitemux.New()
	rec := memory.NewRecorder()
	rec.Record(ctl.Stream())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	stats, err := ctl.Run(ctx, local)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Passes)
	assert.Equal(t, 2, ctl.Stream().Total())
	assert.Equal(t, []string{"suite local test 1", "suite local test 2"}, rec.TestTitles(domain.EventTestPass))

	_, err = loader.Suite("missing", nil)
	assert.Error(t, err)
}

func TestParseLocation(t *testing.T) {
	name, args, err := process.ParseLocation("exec:child?mode=ok&n=2")
	require.NoError(t, err)
	assert.Equal(t, "child", name)
	assert.Equal(t, map[string]string{"mode": "ok", "n": "2"}, args)

	name, _, err = process.ParseLocation("exec:///child")
	require.NoError(t, err)
	assert.Equal(t, "child", name)

	_, _, err = process.ParseLocation("https://example.com/child.html")
	assert.ErrorIs(t, err, domain.ErrUnknownLocation)
}

func TestLoader_Names(t *testing.T) {
	loader := newLoader(t)
	loader.Register("extra", "true")
	assert.Equal(t, []string{"child", "extra", "local"}, loader.Names())
}
