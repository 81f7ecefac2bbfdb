package executor

import (
	"github.com/me/workmaster/internal/master"
	"github.com/me/workmaster/pkg/model"
)

// Tick counts Timeline advances.
type Tick uint64

// Behavior is an action the Timeline steps once per tick until it reports
// done or fails.
type Behavior interface {
	master.Action

	// Step advances the behavior to now.
	Step(now Tick) (done bool, err error)
}

// Spec describes a behavior for a Registry to build.
type Spec struct {
	Name   string
	Kind   model.ExecutorType
	Ticks  int    // sleep: duration in ticks
	Script string // script: JavaScript predicate, true when finished
}
