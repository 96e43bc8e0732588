package suitemux_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/suitemux"
	"github.com/aretw0/suitemux/pkg/adapters/memory"
	"github.com/aretw0/suitemux/pkg/domain"
	"github.com/aretw0/suitemux/pkg/ports"
)

// ExampleController_Run merges an in-process child into the local run.
func ExampleController_Run() {
	loader := memory.NewLoader(map[string]memory.Page{
		"child.html": func(ctx context.Context, hs ports.Handshake) error {
			r := memory.NewRunner()
			r.Describe("suite child", func(s *domain.Suite) {
				s.AddTest("adds", func(context.Context) error { return nil })
				s.AddTest("subtracts", func(context.Context) error { return nil })
			})
			_, err := suitemux.New(suitemux.WithParent(hs)).Run(ctx, r)
			return err
		},
	})

	ctl := suitemux.New(suitemux.WithLoader(loader))
	defer ctl.Close()
	if err := ctl.Declare("Child Suite", "child.html"); err != nil {
		log.Fatal(err)
	}

	ctl.Stream().On(domain.EventTestPass, func(ev domain.Event) {
		fmt.Println("passed:", ev.Test.FullTitle())
	})

	local := memory.NewRunner()
	local.Describe("Top-Suite", func(s *domain.Suite) {
		s.AddTest("local test", func(context.Context) error { return nil })
	})

	stats, err := ctl.Run(context.Background(), local)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%d of %d passed\n", stats.Passes, ctl.Stream().Total())
	// Output:
	// passed: Top-Suite local test
	// passed: Child Suite suite child adds
	// passed: Child Suite suite child subtracts
	// 3 of 3 passed
}
