package domain

// SourceState is the lifecycle position of a Source.
type SourceState string

const (
	SourceIdle      SourceState = "idle"
	SourceLoading   SourceState = "loading"
	SourceRunning   SourceState = "running"
	SourceCompleted SourceState = "completed"
	SourceFailed    SourceState = "failed"
)

// Terminal reports whether no further transition is expected in this run.
func (s SourceState) Terminal() bool {
	return s == SourceCompleted || s == SourceFailed
}

// SourceInfo describes a Source registered with the merger.
type SourceInfo struct {
	// ID is the canonical location of the Source (or the handle ID when the
	// location is not unique).
	ID string `json:"id"`
	// Label is the display name. It defaults to the location.
	Label    string `json:"label"`
	Location string `json:"location"`
	// Local marks the Source running in the current context.
	Local bool `json:"local,omitempty"`
}

// SourceStatus is a point-in-time view of a declared child.
type SourceStatus struct {
	SourceInfo
	State SourceState `json:"state"`
	Error string      `json:"error,omitempty"`
}
