package domain

import "time"

// Stats aggregates the outcome of a (merged) run.
type Stats struct {
	Suites   int           `json:"suites"`
	Tests    int           `json:"tests"`
	Passes   int           `json:"passes"`
	Pending  int           `json:"pending"`
	Failures int           `json:"failures"`
	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end"`
	Duration time.Duration `json:"duration"`
}

// Record updates the counters for one relayed event.
// Root suites are not counted.
func (s *Stats) Record(ev Event) {
	switch ev.Kind {
	case EventRunBegin:
		s.Start = ev.Timestamp
	case EventSuiteBegin:
		if ev.Suite != nil && !ev.Suite.Root {
			s.Suites++
		}
	case EventTestPass:
		s.Passes++
	case EventTestFail:
		s.Failures++
	case EventTestPending:
		s.Pending++
	case EventTestEnd:
		s.Tests++
	case EventRunEnd:
		s.End = ev.Timestamp
		s.Duration = s.End.Sub(s.Start)
	}
}

// Success reports whether the run recorded no failures.
func (s Stats) Success() bool {
	return s.Failures == 0
}
