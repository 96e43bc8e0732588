package graph_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/suitemux/internal/presentation/graph"
	"github.com/aretw0/suitemux/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestGenerateMermaid(t *testing.T) {
	root := domain.NewRootSuite()
	child := root.AddSuite("Child \"Suite\" 1")
	passed := child.AddTest("adds", nil)
	passed.State = domain.TestStatePassed
	passed.Duration = 120 * time.Millisecond
	failed := child.AddTest("divides", nil)
	failed.State = domain.TestStateFailed
	child.AddTest("later", nil)
	nested := child.AddSuite("nested")
	nested.AddTest("runs", func(context.Context) error { return nil })

	out := graph.GenerateMermaid(root)

	for _, want := range []string{
		"flowchart TD\n",
		"s0((\"root\"))",
		"s1[\"Child 'Suite' 1\"]",
		"s0 --> s1",
		"t0([\"adds <br/> ⏱️ 120ms\"])",
		"t1([\"divides\"])",
		"t2[/\"later\"/]",
		"s2[\"nested\"]",
		"s1 --> s2",
		"t3([\"runs\"])",
		"class t0 passed;",
		"class t1 failed;",
		"class t2 pending;",
	} {
		assert.Contains(t, out, want)
	}
	// A test that has not run is left unstyled.
	assert.NotContains(t, out, "t3 ")
	assert.NotContains(t, out, "t3,")
}

func TestGenerateMermaid_EmptyTree(t *testing.T) {
	out := graph.GenerateMermaid(domain.NewRootSuite())
	assert.Equal(t, "flowchart TD\n    s0((\"root\"))\n", out)
	assert.False(t, strings.Contains(out, "classDef"))
}
