package master

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/me/workmaster/pkg/model"
)

// Config holds controller configuration.
type Config struct {
	// Strict turns invariant violations into panics. Use it in tests and
	// debug builds; otherwise violations are logged and ignored.
	Strict bool

	// MaxReplays bounds how many follow-up passes one call may run for
	// interest that arrived while a pass was in flight.
	MaxReplays int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{MaxReplays: 16}
}

// Controller is the master controller: the single owner of the active-work
// table, the denied queue and the fairness timestamps.
type Controller struct {
	config   Config
	executor Executor
	recorder Recorder
	logger   *slog.Logger

	enabled         bool
	processing      bool
	resetInProgress bool

	agents     []Agent // registration order
	registered map[Agent]bool
	active     map[Agent]*WorkEntry
	denied     *deniedQueue
	fair       *fairness
	listeners  map[Agent]Subscription

	pending    []Agent // interest that arrived during a pass
	deferred   []Agent // replay interest past MaxReplays
	suppressed []Agent // interest that arrived during a reset window
	passes     uint64
}

// Option configures optional Controller dependencies.
type Option func(*Controller)

// WithRecorder sets the journal hook for scheduler decisions.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) {
		c.recorder = r
	}
}

// New creates an enabled Controller that hands accepted work to exec.
func New(exec Executor, cfg Config, logger *slog.Logger, opts ...Option) *Controller {
	if cfg.MaxReplays <= 0 {
		cfg.MaxReplays = DefaultConfig().MaxReplays
	}
	c := &Controller{
		config:     cfg,
		executor:   exec,
		recorder:   nopRecorder{},
		logger:     logger.With("component", "master"),
		enabled:    true,
		registered: make(map[Agent]bool),
		active:     make(map[Agent]*WorkEntry),
		denied:     newDeniedQueue(),
		fair:       newFairness(),
		listeners:  make(map[Agent]Subscription),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddAgent registers a, stamps a fresh fairness timestamp and runs a pass
// for it.
func (c *Controller) AddAgent(a Agent) error {
	if !c.enabled {
		return c.violation(fmt.Errorf("add %s: %w", a.Name(), ErrDisabled))
	}
	if c.registered[a] {
		return c.violation(fmt.Errorf("add %s: %w", a.Name(), ErrAgentRegistered))
	}

	c.agents = append(c.agents, a)
	c.registered[a] = true
	c.fair.stamp(a)
	c.logger.Debug("agent added", "agent", a.Name(), "timestamp", c.fair.get(a))
	c.record(model.EventAgentAdded, a, nil, "")
	c.syncListener(a)

	c.process(a)
	return nil
}

// RemoveAgent unregisters a and ends any work occupying it. Removing an
// unknown agent is a no-op.
func (c *Controller) RemoveAgent(a Agent) {
	if !c.registered[a] {
		return
	}
	delete(c.registered, a)
	c.agents = slices.DeleteFunc(c.agents, func(x Agent) bool { return x == a })
	c.fair.remove(a)
	c.denied.remove(a)
	c.syncListener(a)
	c.logger.Debug("agent removed", "agent", a.Name())
	c.record(model.EventAgentRemoved, a, nil, "")

	if e := c.active[a]; e != nil {
		next := model.EntryStateCanceled
		if e.MustRun() && e.Running() {
			next = model.EntryStateReset
		}
		c.finish(e, next, "agent removed")
	}
}

// IsRegistered reports whether a has been added and not removed.
func (c *Controller) IsRegistered(a Agent) bool {
	return c.registered[a]
}

// IsAgentFree reports whether a owns no work, or only cancelable work.
func (c *Controller) IsAgentFree(a Agent) bool {
	e := c.active[a]
	return e == nil || e.Cancelable()
}

// Entry returns the active entry occupying a, or nil.
func (c *Controller) Entry(a Agent) *WorkEntry {
	return c.active[a]
}

// CancelEntry cancels the cancelable entry occupying a.
func (c *Controller) CancelEntry(a Agent) error {
	e := c.active[a]
	if e == nil {
		return fmt.Errorf("cancel %s: %w", a.Name(), ErrNoEntry)
	}
	if e.MustRun() {
		return fmt.Errorf("cancel %s: %w", a.Name(), ErrNotCancelable)
	}
	c.finish(e, model.EntryStateCanceled, "canceled by caller")
	return nil
}

// OnResourceReset force-releases whatever work occupies a. It is safe to call
// when a has no work.
func (c *Controller) OnResourceReset(a Agent) {
	e := c.active[a]
	if e == nil {
		return
	}
	c.logger.Info("resource reset", "agent", a.Name(), "entry_id", e.id)
	c.finish(e, model.EntryStateReset, "resource reset")
}

// OnResetBegin suppresses arbitration until OnResetEnd.
func (c *Controller) OnResetBegin() {
	c.resetInProgress = true
}

// OnResetEnd re-arms arbitration and runs one pass for agents plus any
// interest suppressed during the reset.
func (c *Controller) OnResetEnd(agents ...Agent) {
	c.resetInProgress = false
	interest := append(c.suppressed, agents...)
	c.suppressed = nil
	c.process(interest...)
}

// ResetTimestamp moves a to the front of its priority band.
func (c *Controller) ResetTimestamp(a Agent) {
	c.fair.reset(a)
}

// Timestamp returns a's fairness timestamp.
func (c *Controller) Timestamp(a Agent) uint64 {
	return c.fair.get(a)
}

// Agents returns the registered agents in registration order.
func (c *Controller) Agents() []Agent {
	return slices.Clone(c.agents)
}

// Denied returns the denied queue in insertion order.
func (c *Controller) Denied() []Agent {
	return c.denied.agents()
}

// IsDenied reports whether a is waiting in the denied queue.
func (c *Controller) IsDenied(a Agent) bool {
	return c.denied.has(a)
}

// Enabled reports whether the controller still accepts agents.
func (c *Controller) Enabled() bool {
	return c.enabled
}

// Passes returns the number of arbitration passes run so far.
func (c *Controller) Passes() uint64 {
	return c.passes
}

// DisableAndClear tears the controller down: no further agents are accepted
// and every agent is removed. All tables must end empty.
func (c *Controller) DisableAndClear() {
	c.enabled = false
	for _, a := range slices.Clone(c.agents) {
		c.RemoveAgent(a)
	}
	c.pending = nil
	c.suppressed = nil
	c.deferred = nil

	c.invariant(len(c.registered) == 0, "agents left after clear: %d", len(c.registered))
	c.invariant(len(c.active) == 0, "active work left after clear: %d", len(c.active))
	c.invariant(c.denied.len() == 0, "denied agents left after clear: %d", c.denied.len())
	c.invariant(c.fair.len() == 0, "timestamps left after clear: %d", c.fair.len())
	c.invariant(len(c.listeners) == 0, "listeners left after clear: %d", len(c.listeners))
	c.logger.Info("master controller disabled", "passes", c.passes)
}

// Snapshot returns a copy of the scheduler tables.
func (c *Controller) Snapshot() model.ControllerSnapshot {
	snap := model.ControllerSnapshot{
		Passes:  c.passes,
		Enabled: c.enabled,
		Agents:  make([]model.AgentStatus, 0, len(c.agents)),
		Entries: []model.EntrySnapshot{},
		Denied:  agentNames(c.denied.agents()),
	}
	seen := make(map[*WorkEntry]bool)
	for _, a := range c.agents {
		st := model.AgentStatus{
			Name:      a.Name(),
			Priority:  a.Priority(),
			Timestamp: c.fair.get(a),
			Free:      c.IsAgentFree(a),
			Denied:    c.denied.has(a),
		}
		if e := c.active[a]; e != nil {
			st.EntryID = e.id
			if !seen[e] {
				seen[e] = true
				snap.Entries = append(snap.Entries, e.snapshot())
			}
		}
		snap.Agents = append(snap.Agents, st)
	}
	return snap
}

// start hands e to the executor.
func (c *Controller) start(e *WorkEntry) {
	if err := e.transition(model.EntryStateRunning); err != nil {
		c.logger.Debug("entry not started", "entry_id", e.id, "error", err)
		return
	}
	h := c.executor.Start(e, func(err error) { c.complete(e, err) })
	if e.state == model.EntryStateRunning {
		e.handle = h
	}
}

// complete is the executor's completion callback.
func (c *Controller) complete(e *WorkEntry, err error) {
	if e.state.IsTerminal() {
		return
	}
	e.err = err
	detail := ""
	if err != nil {
		detail = err.Error()
		c.logger.Warn("work finished with error", "entry_id", e.id, "agent", e.owner.Name(), "error", err)
	}
	c.finish(e, model.EntryStateCompleted, detail)
}

// finish moves e to a terminal state, releases its resources and schedules a
// pass for the agents it freed.
func (c *Controller) finish(e *WorkEntry, next model.EntryState, detail string) {
	if err := e.transition(next); err != nil {
		c.logger.Debug("entry not finished", "entry_id", e.id, "to", next, "error", err)
		return
	}
	switch next {
	case model.EntryStateCanceled:
		c.record(model.EventCanceled, e.owner, e, detail)
		if e.cancel != nil {
			e.cancel()
		}
		e.stop()
	case model.EntryStateReset:
		c.record(model.EventReset, e.owner, e, detail)
		e.stop()
	default:
		e.handle = nil
		c.record(model.EventCompleted, e.owner, e, detail)
	}

	freed := c.release(e)
	if len(freed) > 0 {
		c.process(freed...)
	}
}

// release clears every active-work slot e occupies and returns the freed
// agents that are still registered.
func (c *Controller) release(e *WorkEntry) []Agent {
	var freed []Agent
	for _, r := range e.resources {
		if c.active[r] != e {
			c.invariant(false, "entry %s does not own %s", e.id, r.Name())
			continue
		}
		delete(c.active, r)
		if c.registered[r] {
			freed = append(freed, r)
		}
	}
	e.resources = nil
	e.additional = nil
	c.syncListener(e.owner)
	for _, r := range freed {
		c.syncListener(r)
	}
	return freed
}

// syncListener keeps a subscribed to its own queue changes exactly while it
// is denied, holds no work, or runs its own idle work.
func (c *Controller) syncListener(a Agent) {
	want := c.registered[a] && (c.denied.has(a) || c.active[a] == nil || c.ownsIdle(a))
	sub, has := c.listeners[a]
	switch {
	case want && !has:
		c.listeners[a] = a.QueueChanged().Subscribe(func() { c.process(a) })
	case !want && has:
		sub.Unsubscribe()
		delete(c.listeners, a)
	}
}

func (c *Controller) unsubscribe(a Agent) {
	if sub, ok := c.listeners[a]; ok {
		sub.Unsubscribe()
		delete(c.listeners, a)
	}
}

func (c *Controller) ownsIdle(a Agent) bool {
	e := c.active[a]
	return e != nil && e.idle && e.owner == a
}

// checkTables verifies that every resource maps to exactly one entry that
// lists it.
func (c *Controller) checkTables() {
	for r, e := range c.active {
		c.invariant(slices.Contains(e.resources, r), "entry %s holds %s without listing it", e.id, r.Name())
		c.invariant(!e.state.IsTerminal(), "ended entry %s still holds %s", e.id, r.Name())
	}
}

func (c *Controller) violation(err error) error {
	if c.config.Strict {
		panic(err)
	}
	c.logger.Error("invariant violated", "error", err)
	return err
}

func (c *Controller) invariant(ok bool, format string, args ...any) {
	if !ok {
		c.violation(fmt.Errorf(format, args...))
	}
}
