/*
Package suitemux merges the results of several independently running test
suites into a single run, as seen by one reporting sink.

One suite runs in-process (the local suite). Zero or more run as children in
isolated execution contexts: another goroutine, a subprocess, a remote HTTP
endpoint or a Redis worker. Each child reports its events back through a
handshake; the merger relays one source at a time, local first, and keeps a
single merged suite tree whose totals cover every source.

# Key Entities

  - Controller: one merged run. Declares children, starts them, runs the local suite.
  - Handle (pkg/child): lifecycle of one child, idle -> loading -> running -> completed | failed.
  - Registry (pkg/registry): the children of a run; calls back once all of them connected or failed.
  - Merger (pkg/merge): sequences the per-source streams into one ports.Stream.
  - Loader (pkg/ports): instantiates child contexts (memory, process, http and redis adapters).

# Usage

	loader := memory.NewLoader(map[string]memory.Page{
		"child.html": func(ctx context.Context, hs ports.Handshake) error {
			r := memory.NewRunner()
			r.Describe("suite child", func(s *domain.Suite) {
				s.AddTest("works", func(context.Context) error { return nil })
			})
			_, err := suitemux.New(suitemux.WithParent(hs)).Run(ctx, r)
			return err
		},
	})

	ctl := suitemux.New(
		suitemux.WithLoader(loader),
		suitemux.WithReporter(reporter.Spec, ports.ReporterOptions{Output: os.Stdout}),
	)
	defer ctl.Close()
	_ = ctl.Declare("Child Suite", "child.html")

	local := memory.NewRunner()
	local.Describe("Top-Suite", func(s *domain.Suite) {
		s.AddTest("local test", func(context.Context) error { return nil })
	})
	stats, err := ctl.Run(ctx, local)

A child run is itself a Controller built WithParent: it may declare children of
its own, and its merged stream is what its parent sees.
*/
package suitemux
