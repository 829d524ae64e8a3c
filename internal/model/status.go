package model

// RunState represents the stage a mashup run is in
type RunState string

const (
	// RunStateIdle means the run has not started
	RunStateIdle RunState = "Idle"

	// RunStateSearching means candidates are being requested from the source
	RunStateSearching RunState = "Searching"

	// RunStateFetching means audio is being downloaded in parallel
	RunStateFetching RunState = "Fetching"

	// RunStateAssembling means the clips are being trimmed and concatenated
	RunStateAssembling RunState = "Assembling"

	// RunStateNotifying means the mashup is being emailed
	RunStateNotifying RunState = "Notifying"

	// RunStateCleaningUp means run artifacts are being removed
	RunStateCleaningUp RunState = "CleaningUp"

	// RunStateDone means the run finished and its artifacts are gone
	RunStateDone RunState = "Done"

	// RunStateAborted means the run stopped early and its artifacts are gone
	RunStateAborted RunState = "Aborted"
)

// String returns the string representation of RunState
func (rs RunState) String() string {
	return string(rs)
}

// IsActive returns true while the run is doing pipeline work
func (rs RunState) IsActive() bool {
	switch rs {
	case RunStateSearching, RunStateFetching, RunStateAssembling, RunStateNotifying, RunStateCleaningUp:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if no further transition is possible
func (rs RunState) IsTerminal() bool {
	return rs == RunStateDone || rs == RunStateAborted
}
