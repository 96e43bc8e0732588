package domain

import (
	"context"
	"strings"
	"time"
)

// TestState is the outcome recorded on a Test once it has run.
type TestState string

const (
	TestStateUnknown TestState = ""
	TestStatePassed  TestState = "passed"
	TestStateFailed  TestState = "failed"
	TestStatePending TestState = "pending"
)

// TestFunc is the body of a test. A nil TestFunc marks the test as pending.
type TestFunc func(ctx context.Context) error

// Suite is a node of a suite hierarchy.
// A root suite has an empty title and Root set.
type Suite struct {
	Title  string   `json:"title" yaml:"title"`
	Root   bool     `json:"root,omitempty" yaml:"root,omitempty"`
	File   string   `json:"file,omitempty" yaml:"file,omitempty"`
	Suites []*Suite `json:"suites,omitempty" yaml:"suites,omitempty"`
	Tests  []*Test  `json:"tests,omitempty" yaml:"tests,omitempty"`

	// Hooks run around every test of this suite (beforeEach / afterEach).
	BeforeEach []*Hook `json:"-" yaml:"-"`
	AfterEach  []*Hook `json:"-" yaml:"-"`

	Parent *Suite `json:"-" yaml:"-"`
}

// NewRootSuite returns an empty root suite.
func NewRootSuite() *Suite {
	return &Suite{Root: true}
}

// AddSuite appends a child suite and returns it.
func (s *Suite) AddSuite(title string) *Suite {
	child := &Suite{Title: title, Parent: s}
	s.Suites = append(s.Suites, child)
	return child
}

// AddTest appends a test and returns it.
func (s *Suite) AddTest(title string, fn TestFunc) *Test {
	t := &Test{Title: title, Fn: fn, Parent: s}
	s.Tests = append(s.Tests, t)
	return t
}

// AddBeforeEach registers a hook run before every test of s and its descendants.
func (s *Suite) AddBeforeEach(title string, fn TestFunc) *Hook {
	h := &Hook{Title: title, Fn: fn, Parent: s}
	s.BeforeEach = append(s.BeforeEach, h)
	return h
}

// AddAfterEach registers a hook run after every test of s and its descendants.
func (s *Suite) AddAfterEach(title string, fn TestFunc) *Hook {
	h := &Hook{Title: title, Fn: fn, Parent: s}
	s.AfterEach = append(s.AfterEach, h)
	return h
}

// Adopt makes child a direct descendant of s, fixing its parent pointer.
func (s *Suite) Adopt(child *Suite) {
	child.Parent = s
	s.Suites = append(s.Suites, child)
}

// AdoptTest makes t a direct test of s, fixing its parent pointer.
func (s *Suite) AdoptTest(t *Test) {
	t.Parent = s
	s.Tests = append(s.Tests, t)
}

// FullTitle joins the titles from the outermost titled ancestor down to s.
func (s *Suite) FullTitle() string {
	var parts []string
	for cur := s; cur != nil; cur = cur.Parent {
		if cur.Title != "" {
			parts = append(parts, cur.Title)
		}
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " ")
}

// Depth is the number of ancestors between s and the top of its tree.
func (s *Suite) Depth() int {
	d := 0
	for cur := s.Parent; cur != nil; cur = cur.Parent {
		d++
	}
	return d
}

// TotalTests counts every test in s and its descendants.
func (s *Suite) TotalTests() int {
	n := len(s.Tests)
	for _, child := range s.Suites {
		n += child.TotalTests()
	}
	return n
}

// Test is a single test case.
type Test struct {
	Title    string        `json:"title" yaml:"title"`
	State    TestState     `json:"state,omitempty" yaml:"state,omitempty"`
	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
	Retries  int           `json:"retries,omitempty" yaml:"retries,omitempty"`

	Fn     TestFunc `json:"-" yaml:"-"`
	Parent *Suite   `json:"-" yaml:"-"`
}

// Pending reports whether the test has no body.
func (t *Test) Pending() bool {
	return t.Fn == nil && t.State != TestStatePassed && t.State != TestStateFailed
}

// FullTitle is the parent's full title followed by the test title.
func (t *Test) FullTitle() string {
	if t.Parent == nil {
		return t.Title
	}
	if prefix := t.Parent.FullTitle(); prefix != "" {
		return prefix + " " + t.Title
	}
	return t.Title
}

// Hook is a setup/teardown step attached to a suite.
type Hook struct {
	Title  string   `json:"title"`
	Fn     TestFunc `json:"-"`
	Parent *Suite   `json:"-"`
}
