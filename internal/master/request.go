package master

// Action is an opaque handle to executable behavior.
type Action interface {
	Name() string
}

// WorkRequest describes work an agent wants to perform. It is produced fresh
// by Agent.NextWork and consumed by a single arbitration pass.
type WorkRequest struct {
	Action Action

	// Required agents are owned exclusively for the whole run. The
	// requesting agent is normally one of them.
	Required []Agent

	// Additional resources may not be shared with another entry, but carry no
	// ownership beyond that.
	Additional []string

	// OnAccept runs once, after acceptance and before execution starts.
	OnAccept func()

	// Cancel is the cancel callable. A nil Cancel makes the work must-run.
	Cancel func()

	// UpdateTimestamp moves the agent to the back of its priority band on
	// acceptance.
	UpdateTimestamp bool
}

// MustRun reports whether the requested work cannot be preempted.
func (r *WorkRequest) MustRun() bool {
	return r.Cancel == nil
}

// HasWork reports whether the request offers anything to run.
func (r *WorkRequest) HasWork() bool {
	return r != nil && r.Action != nil
}
