package wire

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/aretw0/suitemux/pkg/domain"
)

// Encoder writes events as NDJSON records. Suites and tests are numbered the
// first time they are seen so that later records can refer to them.
// Safe for concurrent use.
type Encoder struct {
	mu     sync.Mutex
	w      io.Writer
	enc    *json.Encoder
	nextID int
	suites map[*domain.Suite]int
	tests  map[*domain.Test]int
}

// NewEncoder writes records to w. If w has a Flush method it is called after
// every record.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		w:      w,
		enc:    json.NewEncoder(w),
		suites: make(map[*domain.Suite]int),
		tests:  make(map[*domain.Test]int),
	}
}

// Connected writes the readiness record for handle.
func (e *Encoder) Connected(handle string) error {
	return e.write(Record{Kind: KindConnected, Time: time.Now(), Handle: handle})
}

// Failed writes the record reporting that the suite could not be loaded.
func (e *Encoder) Failed(handle string, err error) error {
	rec := Record{Kind: KindFailed, Time: time.Now(), Handle: handle}
	if err != nil {
		rec.Error = err.Error()
	}
	return e.write(rec)
}

// Encode writes ev. total is the emitter's current expected test count.
func (e *Encoder) Encode(ev domain.Event, total int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.writeLocked(e.recordLocked(ev, total))
}

func (e *Encoder) write(rec Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.writeLocked(rec)
}

func (e *Encoder) writeLocked(rec Record) error {
	if err := e.enc.Encode(rec); err != nil {
		return err
	}
	if f, ok := e.w.(interface{ Flush() }); ok {
		f.Flush()
	}
	return nil
}

func (e *Encoder) recordLocked(ev domain.Event, total int) Record {
	rec := Record{
		Kind:   string(ev.Kind),
		Time:   ev.Timestamp,
		Source: ev.Source,
		Label:  ev.Label,
	}
	if ev.Err != nil {
		rec.Error = ev.Err.Error()
	}

	switch ev.Kind {
	case domain.EventRunBegin, domain.EventRunEnd:
		rec.Total = total
	}

	if ev.Suite != nil {
		rec.Suite = e.suiteLocked(ev.Suite)
		if ev.Kind == domain.EventSuiteBegin && ev.Suite.Root {
			rec.Suite = e.skeletonLocked(ev.Suite)
		}
	}
	if ev.Test != nil {
		rec.Test = e.testLocked(ev.Test)
	}
	if ev.Hook != nil {
		rec.Hook = &HookRecord{Title: ev.Hook.Title}
		if ev.Hook.Parent != nil {
			rec.Hook.Suite = e.suiteIDLocked(ev.Hook.Parent)
		}
	}
	return rec
}

func (e *Encoder) suiteIDLocked(s *domain.Suite) int {
	if id, ok := e.suites[s]; ok {
		return id
	}
	e.nextID++
	e.suites[s] = e.nextID
	return e.nextID
}

func (e *Encoder) suiteLocked(s *domain.Suite) *SuiteRecord {
	rec := &SuiteRecord{
		ID:    e.suiteIDLocked(s),
		Title: s.Title,
		Root:  s.Root,
		File:  s.File,
	}
	if s.Parent != nil {
		rec.Parent = e.suiteIDLocked(s.Parent)
	}
	return rec
}

func (e *Encoder) skeletonLocked(s *domain.Suite) *SuiteRecord {
	rec := e.suiteLocked(s)
	for _, t := range s.Tests {
		rec.Tests = append(rec.Tests, e.testLocked(t))
	}
	for _, child := range s.Suites {
		rec.Suites = append(rec.Suites, e.skeletonLocked(child))
	}
	return rec
}

func (e *Encoder) testLocked(t *domain.Test) *TestRecord {
	id, ok := e.tests[t]
	if !ok {
		e.nextID++
		id = e.nextID
		e.tests[t] = id
	}
	rec := &TestRecord{
		ID:       id,
		Title:    t.Title,
		State:    string(t.State),
		Duration: t.Duration.Milliseconds(),
		Retries:  t.Retries,
		Pending:  t.Fn == nil && t.State == domain.TestStateUnknown,
	}
	if t.Parent != nil {
		rec.Suite = e.suiteIDLocked(t.Parent)
	}
	return rec
}
