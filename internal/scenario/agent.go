package scenario

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/dop251/goja"
	"github.com/me/workmaster/internal/executor"
	"github.com/me/workmaster/internal/master"
)

// ScriptedAgent is a master.Agent driven by a queue of WorkSpecs.
type ScriptedAgent struct {
	name     string
	base     int
	priority int
	expr     *goja.Program
	vm       *goja.Runtime

	queue    []*WorkSpec
	idle     *WorkSpec
	notifier master.Notifier

	registry *executor.Registry
	lookup   func(name string) master.Agent
	logger   *slog.Logger
}

// NewScriptedAgent builds an agent from spec. lookup resolves the names in a
// work item's requires list.
func NewScriptedAgent(spec AgentSpec, reg *executor.Registry, lookup func(string) master.Agent, logger *slog.Logger) (*ScriptedAgent, error) {
	a := &ScriptedAgent{
		name:     spec.Name,
		base:     spec.Priority,
		priority: spec.Priority,
		idle:     spec.Idle,
		registry: reg,
		lookup:   lookup,
		logger:   logger.With("agent", spec.Name),
	}
	if spec.PriorityExpr != "" {
		prog, err := goja.Compile(spec.Name, spec.PriorityExpr, true)
		if err != nil {
			return nil, fmt.Errorf("agent %s: priority_expr: %w", spec.Name, err)
		}
		a.expr = prog
		a.vm = goja.New()
	}
	for i := range spec.Work {
		w := spec.Work[i]
		a.queue = append(a.queue, &w)
	}
	return a, nil
}

func (a *ScriptedAgent) Name() string                   { return a.name }
func (a *ScriptedAgent) Priority() int                  { return a.priority }
func (a *ScriptedAgent) QueueChanged() *master.Notifier { return &a.notifier }

// Queue returns the names of the queued work items, head first.
func (a *ScriptedAgent) Queue() []string {
	names := make([]string, 0, len(a.queue))
	for _, w := range a.queue {
		names = append(names, w.Name)
	}
	return names
}

// Push appends w to the queue and notifies listeners.
func (a *ScriptedAgent) Push(w WorkSpec) {
	a.queue = append(a.queue, &w)
	a.notifier.Notify()
}

// RefreshPriority re-evaluates priority_expr for tick. The expression sees
// tick, base (the configured priority) and queue (queued item count). A
// failing expression keeps the previous priority.
func (a *ScriptedAgent) RefreshPriority(tick executor.Tick) {
	if a.expr == nil {
		return
	}
	for k, v := range map[string]any{
		"tick":  uint64(tick),
		"base":  a.base,
		"queue": len(a.queue),
	} {
		if err := a.vm.Set(k, v); err != nil {
			a.logger.Warn("priority_expr set failed", "var", k, "error", err)
			return
		}
	}
	val, err := a.vm.RunProgram(a.expr)
	if err != nil {
		a.logger.Warn("priority_expr failed", "tick", tick, "error", err)
		return
	}
	a.priority = int(val.ToInteger())
}

// NextWork offers the head of the queue. The agent itself is always among
// the required resources.
func (a *ScriptedAgent) NextWork() (*master.WorkRequest, error) {
	if len(a.queue) == 0 {
		return nil, nil
	}
	w := a.queue[0]
	behavior, err := a.registry.Build(w.behaviorSpec())
	if err != nil {
		return nil, err
	}

	required := []master.Agent{a}
	for _, name := range w.Requires {
		r := a.lookup(name)
		if r == nil {
			return nil, fmt.Errorf("work %s: unknown agent %q", w.Name, name)
		}
		if !slices.Contains(required, r) {
			required = append(required, r)
		}
	}

	req := &master.WorkRequest{
		Action:          behavior,
		Required:        required,
		Additional:      w.Additional,
		OnAccept:        func() { a.take(w) },
		UpdateTimestamp: w.UpdatesTimestamp(),
	}
	if w.Cancelable {
		req.Cancel = func() { a.requeue(w) }
	}
	return req, nil
}

// IdleWork builds a fresh idle behavior. Cancelable idle work is simply
// dropped when preempted.
func (a *ScriptedAgent) IdleWork() (master.Action, func(), error) {
	if a.idle == nil {
		return nil, nil, nil
	}
	behavior, err := a.registry.Build(a.idle.behaviorSpec())
	if err != nil {
		return nil, nil, err
	}
	if a.idle.Cancelable {
		return behavior, func() {}, nil
	}
	return behavior, nil, nil
}

func (a *ScriptedAgent) take(w *WorkSpec) {
	a.queue = slices.DeleteFunc(a.queue, func(x *WorkSpec) bool { return x == w })
}

// requeue puts canceled work back at the head of the queue.
func (a *ScriptedAgent) requeue(w *WorkSpec) {
	a.queue = slices.Insert(a.queue, 0, w)
	a.logger.Debug("work requeued", "work", w.Name)
	a.notifier.Notify()
}
