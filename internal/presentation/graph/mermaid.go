package graph

import (
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/suitemux/pkg/domain"
)

// GenerateMermaid produces a Mermaid flowchart of a suite tree.
// It applies semantic styling:
// - Root: ((Circle))
// - Suite: [Rectangle]
// - Test: ([Stadium]), or [/Parallelogram/] when pending
// Tests are classed by their outcome.
func GenerateMermaid(root *domain.Suite) string {
	var sb strings.Builder
	sb.WriteString("flowchart TD\n")

	g := &generator{sb: &sb, classes: map[domain.TestState][]string{}}
	g.suite(root, "")

	if len(g.classes) > 0 {
		sb.WriteString("\n    %% Outcome Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef passed fill:#e8f5e9,stroke:#2e7d32,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffebee,stroke:#c62828,stroke-width:4px,color:#000;\n")
		sb.WriteString("    classDef pending fill:#eceff1,stroke:#78909c,stroke-dasharray:4,color:#000;\n")
		for _, state := range []domain.TestState{domain.TestStatePassed, domain.TestStateFailed, domain.TestStatePending} {
			if ids := g.classes[state]; len(ids) > 0 {
				sb.WriteString(fmt.Sprintf("    class %s %s;\n", strings.Join(ids, ","), state))
			}
		}
	}
	return sb.String()
}

type generator struct {
	sb      *strings.Builder
	suites  int
	tests   int
	classes map[domain.TestState][]string
}

// Titles repeat across a merged tree, so nodes get positional IDs.
func (g *generator) suite(s *domain.Suite, parentID string) {
	id := fmt.Sprintf("s%d", g.suites)
	g.suites++

	opener, closer := "[", "]"
	title := s.Title
	if s.Root && parentID == "" {
		opener, closer = "((", "))"
		if title == "" {
			title = "root"
		}
	}
	g.sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", id, opener, escape(title), closer))
	if parentID != "" {
		g.sb.WriteString(fmt.Sprintf("    %s --> %s\n", parentID, id))
	}

	for _, t := range s.Tests {
		g.test(t, id)
	}
	for _, child := range s.Suites {
		g.suite(child, id)
	}
}

func (g *generator) test(t *domain.Test, parentID string) {
	id := fmt.Sprintf("t%d", g.tests)
	g.tests++

	state := t.State
	if state == domain.TestStateUnknown && t.Fn == nil {
		state = domain.TestStatePending
	}
	opener, closer := "([", "])"
	if state == domain.TestStatePending {
		opener, closer = "[/", "/]"
	}
	label := escape(t.Title)
	if t.Duration > 0 {
		label = fmt.Sprintf("%s <br/> ⏱️ %s", label, t.Duration.Round(time.Millisecond))
	}
	g.sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", id, opener, label, closer))
	g.sb.WriteString(fmt.Sprintf("    %s --> %s\n", parentID, id))
	if state != domain.TestStateUnknown {
		g.classes[state] = append(g.classes[state], id)
	}
}

// escape replaces double quotes, which would end a Mermaid label.
func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
