package master

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/me/workmaster/pkg/model"
)

// WorkEntry binds an accepted WorkRequest to its owner and resources. It is
// owned by the Controller; executors only borrow it while the work runs.
type WorkEntry struct {
	id              string
	owner           Agent
	action          Action
	resources       []Agent
	additional      []string
	cancel          func()
	onAccept        func()
	updateTimestamp bool
	idle            bool

	state  model.EntryState
	handle CancelHandle
	err    error
}

func newEntry(owner Agent, req *WorkRequest) *WorkEntry {
	e := &WorkEntry{
		id:              "we_" + uuid.New().String(),
		owner:           owner,
		action:          req.Action,
		cancel:          req.Cancel,
		onAccept:        req.OnAccept,
		updateTimestamp: req.UpdateTimestamp,
		state:           model.EntryStatePending,
	}
	for _, r := range req.Required {
		if r != nil && !slices.Contains(e.resources, r) {
			e.resources = append(e.resources, r)
		}
	}
	if len(e.resources) == 0 {
		e.resources = []Agent{owner}
	}
	for _, r := range req.Additional {
		if !slices.Contains(e.additional, r) {
			e.additional = append(e.additional, r)
		}
	}
	return e
}

func newIdleEntry(owner Agent, action Action, cancel func()) *WorkEntry {
	return &WorkEntry{
		id:        "we_" + uuid.New().String(),
		owner:     owner,
		action:    action,
		resources: []Agent{owner},
		cancel:    cancel,
		idle:      true,
		state:     model.EntryStatePending,
	}
}

// ID returns the entry identifier.
func (e *WorkEntry) ID() string { return e.id }

// Owner returns the agent whose request created the entry.
func (e *WorkEntry) Owner() Agent { return e.owner }

// Action returns the work being executed.
func (e *WorkEntry) Action() Action { return e.action }

// Resources returns a copy of the agents the entry owns. It is empty once the
// entry has ended.
func (e *WorkEntry) Resources() []Agent { return slices.Clone(e.resources) }

// Additional returns a copy of the entry's additional resources.
func (e *WorkEntry) Additional() []string { return slices.Clone(e.additional) }

// Cancelable reports whether the entry has a cancel callable.
func (e *WorkEntry) Cancelable() bool { return e.cancel != nil }

// MustRun is the inverse of Cancelable.
func (e *WorkEntry) MustRun() bool { return e.cancel == nil }

// Running reports whether execution has been handed to the executor.
func (e *WorkEntry) Running() bool { return e.state == model.EntryStateRunning }

// Idle reports whether the entry wraps idle work.
func (e *WorkEntry) Idle() bool { return e.idle }

// State returns the lifecycle state.
func (e *WorkEntry) State() model.EntryState { return e.state }

// Err returns the error the executor reported on completion, if any.
func (e *WorkEntry) Err() error { return e.err }

// transition moves the entry to next. Canceling running must-run work is
// rejected.
func (e *WorkEntry) transition(next model.EntryState) error {
	if !e.state.CanTransitionTo(next) {
		return &model.InvalidTransitionError{
			Entity: "work entry",
			ID:     e.id,
			From:   e.state.String(),
			To:     next.String(),
		}
	}
	if next == model.EntryStateCanceled && e.state == model.EntryStateRunning && e.MustRun() {
		return fmt.Errorf("entry %s: %w", e.id, ErrNotCancelable)
	}
	e.state = next
	return nil
}

// stop detaches and invokes the execution handle, if any.
func (e *WorkEntry) stop() {
	if h := e.handle; h != nil {
		e.handle = nil
		h()
	}
}

func (e *WorkEntry) snapshot() model.EntrySnapshot {
	return model.EntrySnapshot{
		ID:         e.id,
		Owner:      e.owner.Name(),
		Action:     actionName(e.action),
		State:      e.state,
		Cancelable: e.Cancelable(),
		Idle:       e.idle,
		Resources:  agentNames(e.resources),
		Additional: slices.Clone(e.additional),
	}
}

func actionName(a Action) string {
	if a == nil {
		return ""
	}
	return a.Name()
}

func agentNames(agents []Agent) []string {
	names := make([]string, 0, len(agents))
	for _, a := range agents {
		names = append(names, a.Name())
	}
	return names
}
