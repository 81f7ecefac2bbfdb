package master

import (
	"time"

	"github.com/me/workmaster/pkg/model"
)

// Recorder receives every scheduler decision. Record is called from inside
// the arbitration pass and must not block or call back into the Controller.
type Recorder interface {
	Record(ev model.Event)
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(ev model.Event)

// Record calls f(ev).
func (f RecorderFunc) Record(ev model.Event) { f(ev) }

type nopRecorder struct{}

func (nopRecorder) Record(model.Event) {}

func (c *Controller) record(kind model.EventKind, a Agent, e *WorkEntry, detail string) {
	ev := model.Event{
		Pass:      c.passes,
		Kind:      kind,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
	if a != nil {
		ev.Agent = a.Name()
	}
	if e != nil {
		ev.EntryID = e.id
		ev.Action = actionName(e.action)
		ev.Resources = agentNames(e.resources)
	}
	c.recorder.Record(ev)
}
