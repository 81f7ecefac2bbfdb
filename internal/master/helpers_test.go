package master

import (
	"io"
	"log/slog"
	"testing"

	"github.com/me/workmaster/pkg/model"
)

type testAction string

func (a testAction) Name() string { return string(a) }

// fakeAgent offers the head of its work queue until a request is accepted.
type fakeAgent struct {
	name     string
	priority int
	work     []*WorkRequest
	nextErr  error
	panicMsg string

	idle       Action
	idleCancel func()

	queries  int
	notifier Notifier
}

func newAgent(name string, priority int) *fakeAgent {
	return &fakeAgent{name: name, priority: priority}
}

func (a *fakeAgent) Name() string            { return a.name }
func (a *fakeAgent) Priority() int           { return a.priority }
func (a *fakeAgent) QueueChanged() *Notifier { return &a.notifier }

func (a *fakeAgent) NextWork() (*WorkRequest, error) {
	a.queries++
	if a.panicMsg != "" {
		panic(a.panicMsg)
	}
	if a.nextErr != nil {
		return nil, a.nextErr
	}
	if len(a.work) == 0 {
		return nil, nil
	}
	return a.work[0], nil
}

func (a *fakeAgent) IdleWork() (Action, func(), error) {
	return a.idle, a.idleCancel, nil
}

// push queues a request; accepting it pops it from the queue.
func (a *fakeAgent) push(req *WorkRequest) *WorkRequest {
	inner := req.OnAccept
	req.OnAccept = func() {
		if len(a.work) > 0 && a.work[0] == req {
			a.work = a.work[1:]
		}
		if inner != nil {
			inner()
		}
	}
	a.work = append(a.work, req)
	a.notifier.Notify()
	return req
}

// request builds a request owned by a that also requires others.
func (a *fakeAgent) request(action string, cancel func(), others ...*fakeAgent) *WorkRequest {
	req := &WorkRequest{
		Action:          testAction(action),
		Required:        []Agent{a},
		Cancel:          cancel,
		UpdateTimestamp: true,
	}
	for _, o := range others {
		req.Required = append(req.Required, o)
	}
	return req
}

// fakeExecutor records started entries and lets tests finish them.
type fakeExecutor struct {
	started []*WorkEntry
	stopped []*WorkEntry
	done    map[*WorkEntry]func(error)
	panicOn string
}

func newExecutor() *fakeExecutor {
	return &fakeExecutor{done: make(map[*WorkEntry]func(error))}
}

func (x *fakeExecutor) Start(e *WorkEntry, done func(error)) CancelHandle {
	if x.panicOn != "" && e.Action().Name() == x.panicOn {
		panic("executor refused " + x.panicOn)
	}
	x.started = append(x.started, e)
	x.done[e] = done
	return func() {
		x.stopped = append(x.stopped, e)
		delete(x.done, e)
	}
}

func (x *fakeExecutor) finish(t *testing.T, e *WorkEntry, err error) {
	t.Helper()
	done, ok := x.done[e]
	if !ok {
		t.Fatalf("entry %s is not running", e.ID())
	}
	delete(x.done, e)
	done(err)
}

type eventLog struct {
	events []model.Event
}

func (l *eventLog) Record(ev model.Event) { l.events = append(l.events, ev) }

func (l *eventLog) count(kind model.EventKind, agent string) int {
	n := 0
	for _, ev := range l.events {
		if ev.Kind == kind && (agent == "" || ev.Agent == agent) {
			n++
		}
	}
	return n
}

// testController returns a strict controller backed by a fake executor.
func testController(t *testing.T) (*Controller, *fakeExecutor, *eventLog) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	exec := newExecutor()
	log := &eventLog{}
	cfg := DefaultConfig()
	cfg.Strict = true
	return New(exec, cfg, logger, WithRecorder(log)), exec, log
}

func mustAdd(t *testing.T, c *Controller, agents ...*fakeAgent) {
	t.Helper()
	for _, a := range agents {
		if err := c.AddAgent(a); err != nil {
			t.Fatalf("AddAgent(%s): %v", a.name, err)
		}
	}
}

// assertExclusive checks that no agent appears in two active entries.
func assertExclusive(t *testing.T, c *Controller) {
	t.Helper()
	owner := make(map[string]string)
	for _, e := range c.Snapshot().Entries {
		for _, r := range e.Resources {
			if prev, ok := owner[r]; ok && prev != e.ID {
				t.Fatalf("resource %s held by %s and %s", r, prev, e.ID)
			}
			owner[r] = e.ID
		}
	}
}
