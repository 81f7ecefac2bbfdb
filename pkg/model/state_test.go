package model

import "testing"

func TestEntryState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    EntryState
		terminal bool
	}{
		{EntryStatePending, false},
		{EntryStateRunning, false},
		{EntryStateCompleted, true},
		{EntryStateCanceled, true},
		{EntryStateReset, true},
	}
	for _, tt := range tests {
		if got := tt.state.IsTerminal(); got != tt.terminal {
			t.Errorf("EntryState(%q).IsTerminal() = %v, want %v", tt.state, got, tt.terminal)
		}
	}
}

func TestEntryState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from  EntryState
		to    EntryState
		valid bool
	}{
		// Valid transitions
		{EntryStatePending, EntryStateRunning, true},
		{EntryStatePending, EntryStateCanceled, true},
		{EntryStatePending, EntryStateReset, true},
		{EntryStateRunning, EntryStateCompleted, true},
		{EntryStateRunning, EntryStateCanceled, true},
		{EntryStateRunning, EntryStateReset, true},

		// Invalid transitions
		{EntryStatePending, EntryStateCompleted, false},
		{EntryStateRunning, EntryStatePending, false},
		{EntryStateCompleted, EntryStateRunning, false},
		{EntryStateCanceled, EntryStateRunning, false},
		{EntryStateReset, EntryStateCanceled, false},
		{EntryStateCompleted, EntryStateCanceled, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.valid {
			t.Errorf("EntryState(%q).CanTransitionTo(%q) = %v, want %v", tt.from, tt.to, got, tt.valid)
		}
	}
}

func TestListOptions_Clamp(t *testing.T) {
	tests := []struct {
		in   ListOptions
		want ListOptions
	}{
		{ListOptions{}, ListOptions{Limit: 50}},
		{ListOptions{Limit: 1000, Offset: -3}, ListOptions{Limit: 500}},
		{ListOptions{Limit: 10, Offset: 20, Kind: "denied"}, ListOptions{Limit: 10, Offset: 20, Kind: "denied"}},
	}
	for _, tt := range tests {
		if got := tt.in.Clamp(); got != tt.want {
			t.Errorf("%+v.Clamp() = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}
