package wire

import (
	"time"
)

// Control record kinds. Every other kind is a domain.EventKind.
const (
	// KindConnected is the readiness signal of a remote child.
	KindConnected = "connected"
	// KindFailed reports that the remote child could not load its suite.
	KindFailed = "failed"
)

// Record is one NDJSON line.
type Record struct {
	Kind   string    `json:"kind"`
	Time   time.Time `json:"time"`
	Handle string    `json:"handle,omitempty"`
	Source string    `json:"source,omitempty"`
	Label  string    `json:"label,omitempty"`
	// Total is the emitter's expected test count, sent with RunBegin and RunEnd.
	Total int          `json:"total,omitempty"`
	Suite *SuiteRecord `json:"suite,omitempty"`
	Test  *TestRecord  `json:"test,omitempty"`
	Hook  *HookRecord  `json:"hook,omitempty"`
	Error string       `json:"error,omitempty"`
}

// SuiteRecord identifies a suite. On the root SuiteBegin it also carries the
// whole tree below the root.
type SuiteRecord struct {
	ID     int            `json:"id"`
	Parent int            `json:"parent,omitempty"`
	Title  string         `json:"title"`
	Root   bool           `json:"root,omitempty"`
	File   string         `json:"file,omitempty"`
	Suites []*SuiteRecord `json:"suites,omitempty"`
	Tests  []*TestRecord  `json:"tests,omitempty"`
}

// TestRecord identifies a test and carries its outcome so far.
type TestRecord struct {
	ID       int    `json:"id"`
	Suite    int    `json:"suite"`
	Title    string `json:"title"`
	State    string `json:"state,omitempty"`
	Duration int64  `json:"duration_ms,omitempty"`
	Retries  int    `json:"retries,omitempty"`
	Pending  bool   `json:"pending,omitempty"`
}

// HookRecord identifies a hook by its suite and title.
type HookRecord struct {
	Suite int    `json:"suite"`
	Title string `json:"title"`
}
