package model

// EntryState represents the lifecycle state of a WorkEntry.
type EntryState string

const (
	EntryStatePending   EntryState = "PENDING"
	EntryStateRunning   EntryState = "RUNNING"
	EntryStateCompleted EntryState = "COMPLETED"
	EntryStateCanceled  EntryState = "CANCELED"
	EntryStateReset     EntryState = "RESET"
)

// String returns the string representation of the entry state.
func (s EntryState) String() string {
	return string(s)
}

// IsTerminal returns true if the entry is in a final state.
func (s EntryState) IsTerminal() bool {
	switch s {
	case EntryStateCompleted, EntryStateCanceled, EntryStateReset:
		return true
	}
	return false
}

// ValidEntryTransitions defines the allowed state transitions for WorkEntries.
// RUNNING -> CANCELED is further restricted to cancelable entries by the
// scheduler itself.
var ValidEntryTransitions = map[EntryState][]EntryState{
	EntryStatePending: {EntryStateRunning, EntryStateCanceled, EntryStateReset},
	EntryStateRunning: {EntryStateCompleted, EntryStateCanceled, EntryStateReset},
}

// CanTransitionTo returns true if moving from the current state to next is valid.
func (s EntryState) CanTransitionTo(next EntryState) bool {
	for _, allowed := range ValidEntryTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ExecutorType identifies which behavior kind runs an action.
type ExecutorType string

const (
	ExecutorTypeSleep  ExecutorType = "sleep"
	ExecutorTypeScript ExecutorType = "script"
)
