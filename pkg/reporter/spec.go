package reporter

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/suitemux/pkg/domain"
	"github.com/aretw0/suitemux/pkg/ports"
	"github.com/muesli/termenv"
)

// slowThreshold marks tests whose duration is printed next to their title.
const slowThreshold = 75 * time.Millisecond

type failure struct {
	title string
	err   error
}

type specReporter struct {
	stream  ports.Stream
	w       io.Writer
	profile termenv.Profile

	mu       sync.Mutex
	failures []failure
}

// Spec prints a hierarchical view of the merged run followed by a summary.
func Spec(stream ports.Stream, opts ports.ReporterOptions) error {
	r := &specReporter{stream: stream, w: opts.Output, profile: termenv.Ascii}
	if r.w == nil {
		r.w = os.Stdout
	}
	if opts.Color {
		r.profile = termenv.ANSI
	}

	stream.On(domain.EventRunBegin, func(domain.Event) { r.println("") })
	stream.On(domain.EventSuiteBegin, r.suiteBegin)
	stream.On(domain.EventTestPass, r.testPass)
	stream.On(domain.EventTestFail, r.testFail)
	stream.On(domain.EventTestPending, r.testPending)
	stream.On(domain.EventRunEnd, r.runEnd)
	return nil
}

func indent(depth int) string {
	return strings.Repeat("  ", depth)
}

func (r *specReporter) println(format string, args ...any) {
	fmt.Fprintf(r.w, format+"\n", args...)
}

func (r *specReporter) color(s, color string) string {
	return r.profile.String(s).Foreground(r.profile.Color(color)).String()
}

func (r *specReporter) suiteBegin(ev domain.Event) {
	if ev.Suite == nil || ev.Suite.Title == "" {
		return
	}
	r.println("%s%s", indent(ev.Suite.Depth()), ev.Suite.Title)
}

func testDepth(t *domain.Test) int {
	if t.Parent == nil {
		return 1
	}
	return t.Parent.Depth() + 1
}

func (r *specReporter) testPass(ev domain.Event) {
	t := ev.Test
	line := fmt.Sprintf("%s%s %s", indent(testDepth(t)), r.color("✓", "2"), t.Title)
	if t.Duration >= slowThreshold {
		line += r.color(fmt.Sprintf(" (%dms)", t.Duration.Milliseconds()), "3")
	}
	r.println("%s", line)
}

func (r *specReporter) testFail(ev domain.Event) {
	t := ev.Test
	r.mu.Lock()
	r.failures = append(r.failures, failure{title: t.FullTitle(), err: ev.Err})
	n := len(r.failures)
	r.mu.Unlock()
	r.println("%s%s", indent(testDepth(t)), r.color(fmt.Sprintf("%d) %s", n, t.Title), "1"))
}

func (r *specReporter) testPending(ev domain.Event) {
	t := ev.Test
	r.println("%s%s", indent(testDepth(t)), r.color("- "+t.Title, "6"))
}

func (r *specReporter) runEnd(domain.Event) {
	stats := r.stream.Stats()
	total := r.stream.Total()

	r.println("")
	r.println("  %s", r.color(fmt.Sprintf("%d passing", stats.Passes), "2")+fmt.Sprintf(" (%s)", formatDuration(stats.Duration)))
	if stats.Pending > 0 {
		r.println("  %s", r.color(fmt.Sprintf("%d pending", stats.Pending), "6"))
	}
	if stats.Failures > 0 {
		r.println("  %s", r.color(fmt.Sprintf("%d failing", stats.Failures), "1"))
	}

	r.mu.Lock()
	failures := append([]failure(nil), r.failures...)
	r.mu.Unlock()
	for i, f := range failures {
		r.println("")
		r.println("  %d) %s:", i+1, f.title)
		if f.err != nil {
			r.println("     %s", r.color("Error: "+f.err.Error(), "1"))
		}
	}

	r.println("")
	status := r.color("SUCCESS", "2")
	if !stats.Success() {
		status = r.color("FAILED", "1")
	}
	r.println("Executed %d of %d %s (%s)", stats.Tests, total, status, formatDuration(stats.Duration))
	if stats.Failures > 0 {
		r.println("TOTAL: %d FAILED, %d SUCCESS", stats.Failures, stats.Passes)
	} else {
		r.println("TOTAL: %d SUCCESS", stats.Passes)
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(10 * time.Millisecond).String()
}
