// Package scenario describes simulated agents and their scripted work, loads
// them from YAML or HCL, and drives them through the master controller.
package scenario

import (
	"fmt"

	"github.com/dop251/goja"
	"github.com/me/workmaster/internal/executor"
	"github.com/me/workmaster/pkg/model"
)

// Scenario is a complete simulation description.
type Scenario struct {
	Name   string      `yaml:"name"`
	Ticks  int         `yaml:"ticks"`
	Agents []AgentSpec `yaml:"agents"`
	Events []EventSpec `yaml:"events"`
}

// AgentSpec describes one agent. Agents are added at tick zero unless
// Detached, in which case an add event brings them in.
type AgentSpec struct {
	Name         string     `yaml:"name"`
	Priority     int        `yaml:"priority"`
	PriorityExpr string     `yaml:"priority_expr,omitempty"`
	Detached     bool       `yaml:"detached,omitempty"`
	Idle         *WorkSpec  `yaml:"idle,omitempty"`
	Work         []WorkSpec `yaml:"work,omitempty"`
}

// WorkSpec describes one unit of work in an agent's queue.
type WorkSpec struct {
	Name            string             `yaml:"name"`
	Kind            model.ExecutorType `yaml:"kind,omitempty"`
	Ticks           int                `yaml:"ticks,omitempty"`
	Script          string             `yaml:"script,omitempty"`
	Requires        []string           `yaml:"requires,omitempty"`
	Additional      []string           `yaml:"additional,omitempty"`
	Cancelable      bool               `yaml:"cancelable,omitempty"`
	UpdateTimestamp *bool              `yaml:"update_timestamp,omitempty"`
}

// UpdatesTimestamp reports whether accepting the work moves its agent to the
// back of its priority band. Defaults to true.
func (w WorkSpec) UpdatesTimestamp() bool {
	return w.UpdateTimestamp == nil || *w.UpdateTimestamp
}

func (w WorkSpec) behaviorSpec() executor.Spec {
	return executor.Spec{
		Name:   w.Name,
		Kind:   w.Kind,
		Ticks:  w.Ticks,
		Script: w.Script,
	}
}

// EventAction names a scripted controller call.
type EventAction string

const (
	ActionAdd            EventAction = "add"
	ActionRemove         EventAction = "remove"
	ActionReset          EventAction = "reset"
	ActionPush           EventAction = "push"
	ActionCancel         EventAction = "cancel"
	ActionResetTimestamp EventAction = "reset_timestamp"
	ActionResetWindow    EventAction = "reset_window"
)

var knownActions = map[EventAction]bool{
	ActionAdd:            true,
	ActionRemove:         true,
	ActionReset:          true,
	ActionPush:           true,
	ActionCancel:         true,
	ActionResetTimestamp: true,
	ActionResetWindow:    true,
}

// EventSpec is applied at the start of tick At.
//
// reset_window opens a reset window, resets every agent in Agents and closes
// the window with those agents as interest.
type EventSpec struct {
	At     int         `yaml:"at"`
	Action EventAction `yaml:"action"`
	Agent  string      `yaml:"agent,omitempty"`
	Agents []string    `yaml:"agents,omitempty"`
	Work   *WorkSpec   `yaml:"work,omitempty"`
}

// applyDefaults fills in omitted work kinds.
func (s *Scenario) applyDefaults() {
	fill := func(w *WorkSpec) {
		if w != nil && w.Kind == "" {
			w.Kind = model.ExecutorTypeSleep
		}
	}
	for i := range s.Agents {
		fill(s.Agents[i].Idle)
		for j := range s.Agents[i].Work {
			fill(&s.Agents[i].Work[j])
		}
	}
	for i := range s.Events {
		fill(s.Events[i].Work)
	}
}

// Validate checks the scenario for structural errors and returns a
// *model.APIError listing every problem found.
func (s *Scenario) Validate() error {
	var errs []model.FieldError
	add := func(field, format string, args ...any) {
		errs = append(errs, model.FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if s.Ticks <= 0 {
		add("ticks", "must be positive, got %d", s.Ticks)
	}
	if len(s.Agents) == 0 {
		add("agents", "at least one agent is required")
	}

	names := make(map[string]bool, len(s.Agents))
	for i, a := range s.Agents {
		field := fmt.Sprintf("agents[%d]", i)
		switch {
		case a.Name == "":
			add(field+".name", "is required")
		case names[a.Name]:
			add(field+".name", "duplicate agent %q", a.Name)
		}
		names[a.Name] = true
		if a.PriorityExpr != "" {
			if _, err := goja.Compile(a.Name, a.PriorityExpr, true); err != nil {
				add(field+".priority_expr", "%v", err)
			}
		}
	}

	checkWork := func(field string, w *WorkSpec) {
		if w.Name == "" {
			add(field+".name", "is required")
		}
		switch w.Kind {
		case model.ExecutorTypeSleep:
			if w.Ticks < 0 {
				add(field+".ticks", "must not be negative, got %d", w.Ticks)
			}
		case model.ExecutorTypeScript:
			if _, err := executor.NewScript(w.Name, w.Script); err != nil {
				add(field+".script", "%v", err)
			}
		default:
			add(field+".kind", "unknown kind %q", w.Kind)
		}
		for j, r := range w.Requires {
			if !names[r] {
				add(fmt.Sprintf("%s.requires[%d]", field, j), "unknown agent %q", r)
			}
		}
		for j, r := range w.Additional {
			if r == "" {
				add(fmt.Sprintf("%s.additional[%d]", field, j), "must not be empty")
			}
		}
	}

	for i, a := range s.Agents {
		if a.Idle != nil {
			checkWork(fmt.Sprintf("agents[%d].idle", i), a.Idle)
		}
		for j := range a.Work {
			checkWork(fmt.Sprintf("agents[%d].work[%d]", i, j), &a.Work[j])
		}
	}

	for i, ev := range s.Events {
		field := fmt.Sprintf("events[%d]", i)
		if ev.At < 0 {
			add(field+".at", "must not be negative, got %d", ev.At)
		}
		if !knownActions[ev.Action] {
			add(field+".action", "unknown action %q", ev.Action)
			continue
		}
		if ev.Action == ActionResetWindow {
			for j, name := range ev.Agents {
				if !names[name] {
					add(fmt.Sprintf("%s.agents[%d]", field, j), "unknown agent %q", name)
				}
			}
			continue
		}
		if !names[ev.Agent] {
			add(field+".agent", "unknown agent %q", ev.Agent)
		}
		if ev.Action == ActionPush {
			if ev.Work == nil {
				add(field+".work", "is required for push")
			} else {
				checkWork(field+".work", ev.Work)
			}
		}
	}

	if len(errs) > 0 {
		return model.NewValidationError(fmt.Sprintf("scenario %q is invalid", s.Name), errs...)
	}
	return nil
}
