package executor

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/me/workmaster/internal/master"
)

// Timeline is a single-threaded cooperative executor. Started work runs one
// Step per Advance, in start order. It implements master.Executor.
type Timeline struct {
	now    Tick
	nextID uint64
	tasks  []*task
	logger *slog.Logger
}

type task struct {
	id       uint64
	entry    *master.WorkEntry
	behavior Behavior // nil: finishes on the next tick
	done     func(error)
	started  Tick
	ended    bool
}

// NewTimeline creates a Timeline at tick zero.
func NewTimeline(logger *slog.Logger) *Timeline {
	return &Timeline{logger: logger.With("component", "timeline")}
}

// Start schedules the entry's action. It never calls done synchronously.
func (t *Timeline) Start(e *master.WorkEntry, done func(error)) master.CancelHandle {
	t.nextID++
	tk := &task{
		id:      t.nextID,
		entry:   e,
		done:    done,
		started: t.now,
	}
	if b, ok := e.Action().(Behavior); ok {
		tk.behavior = b
	}
	t.tasks = append(t.tasks, tk)
	t.logger.Debug("task started", "task", tk.id, "entry_id", e.ID(), "action", e.Action().Name(), "tick", t.now)

	return func() {
		if tk.ended {
			return
		}
		t.remove(tk)
		t.logger.Debug("task canceled", "task", tk.id, "entry_id", e.ID(), "tick", t.now)
	}
}

// Advance moves the clock one tick and steps every live task. Tasks started
// by completion callbacks during this call first step on the next tick.
func (t *Timeline) Advance() Tick {
	t.now++
	for _, tk := range slices.Clone(t.tasks) {
		if tk.ended {
			continue
		}
		done, err := t.step(tk)
		if !done && err == nil {
			continue
		}
		t.remove(tk)
		if err != nil {
			t.logger.Warn("task failed", "task", tk.id, "entry_id", tk.entry.ID(), "error", err)
		}
		tk.done(err)
	}
	return t.now
}

func (t *Timeline) step(tk *task) (done bool, err error) {
	if tk.behavior == nil {
		return true, nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("behavior %s panicked: %v", tk.behavior.Name(), r)
		}
	}()
	return tk.behavior.Step(t.now)
}

func (t *Timeline) remove(tk *task) {
	tk.ended = true
	t.tasks = slices.DeleteFunc(t.tasks, func(x *task) bool { return x == tk })
}

// Now returns the current tick.
func (t *Timeline) Now() Tick {
	return t.now
}

// Len returns the number of live tasks.
func (t *Timeline) Len() int {
	return len(t.tasks)
}

// Running returns the entry IDs of live tasks in start order.
func (t *Timeline) Running() []string {
	ids := make([]string, 0, len(t.tasks))
	for _, tk := range t.tasks {
		ids = append(ids, tk.entry.ID())
	}
	return ids
}
