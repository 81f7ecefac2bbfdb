package master

import "errors"

var (
	// ErrDisabled is returned once DisableAndClear has run.
	ErrDisabled = errors.New("master controller disabled")

	// ErrAgentRegistered is returned when adding an agent twice.
	ErrAgentRegistered = errors.New("agent already registered")

	// ErrNotCancelable is returned when canceling must-run work.
	ErrNotCancelable = errors.New("work entry is not cancelable")

	// ErrNoEntry is returned when an agent has no active work.
	ErrNoEntry = errors.New("no active work entry")
)
