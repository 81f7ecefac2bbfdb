package scenario

import (
	"context"
	"testing"
	"time"

	"github.com/me/workmaster/internal/journal"
	"github.com/me/workmaster/pkg/model"
)

func newSim(t *testing.T, sc *Scenario, opts Options) *Simulation {
	t.Helper()
	opts.Strict = true
	sim, err := New(sc, opts, discardLogger())
	if err != nil {
		t.Fatalf("new simulation: %v", err)
	}
	return sim
}

func TestSimulationPriorityOrder(t *testing.T) {
	sc, err := ParseYAML([]byte(busYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	sim := newSim(t, sc, Options{})
	if err := sim.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	events := sim.Events()
	if n := countEvents(events, model.EventAccepted, "", ""); n != 2 {
		t.Fatalf("accepted = %d, want 2", n)
	}
	first, _ := firstEvent(events, model.EventAccepted)
	if first.Agent != "writer" || first.Tick != 0 {
		t.Errorf("first accepted = %s at %d, want writer at 0", first.Agent, first.Tick)
	}
	if n := countEvents(events, model.EventCompleted, "reader", "read"); n != 1 {
		t.Errorf("read completions = %d, want 1", n)
	}

	snap := sim.Snapshot()
	if snap.Tick != 6 {
		t.Errorf("tick = %d, want 6", snap.Tick)
	}
	if len(snap.Entries) != 0 {
		t.Errorf("entries = %+v, want none", snap.Entries)
	}
	if !sim.Done() {
		t.Error("simulation should be done")
	}
}

func TestSimulationPreemption(t *testing.T) {
	sc, err := ParseHCL([]byte(preemptHCL), "preempt.hcl", map[string]string{"ticks": "5"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	sim := newSim(t, sc, Options{})
	if err := sim.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	events := sim.Events()
	if n := countEvents(events, model.EventPreempted, "worker", "background"); n != 1 {
		t.Errorf("preempted = %d, want 1", n)
	}
	if n := countEvents(events, model.EventAccepted, "worker", "background"); n != 2 {
		t.Errorf("background accepted = %d, want 2", n)
	}
	if n := countEvents(events, model.EventCompleted, "urgent", "fix"); n != 1 {
		t.Errorf("fix completed = %d, want 1", n)
	}

	snap := sim.Snapshot()
	if len(snap.Entries) != 1 || snap.Entries[0].Action != "background" {
		t.Errorf("entries = %+v, want background running", snap.Entries)
	}
}

func TestSimulationPushWakesIdleAgent(t *testing.T) {
	sc, err := ParseYAML([]byte(`
ticks: 4
agents:
  - name: a
    priority: 1
    idle: {name: wait, ticks: 1, cancelable: true}
events:
  - at: 1
    action: push
    agent: a
    work: {name: extra, ticks: 2}
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	sim := newSim(t, sc, Options{})
	if err := sim.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	events := sim.Events()
	if n := countEvents(events, model.EventAccepted, "a", "extra"); n != 1 {
		t.Errorf("extra accepted = %d, want 1", n)
	}
	if n := countEvents(events, model.EventPreempted, "a", "wait"); n != 1 {
		t.Errorf("idle preempted = %d, want 1", n)
	}
	if n := countEvents(events, model.EventIdle, "a", ""); n == 0 {
		t.Error("expected idle work before the push")
	}
}

func TestSimulationResetWindow(t *testing.T) {
	sc, err := ParseYAML([]byte(`
ticks: 4
agents:
  - name: a
    work: [{name: job, ticks: 10}]
events:
  - at: 2
    action: reset_window
    agents: [a]
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	sim := newSim(t, sc, Options{})
	if err := sim.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	events := sim.Events()
	if n := countEvents(events, model.EventReset, "a", "job"); n != 1 {
		t.Errorf("reset = %d, want 1", n)
	}
	if entries := sim.Snapshot().Entries; len(entries) != 0 {
		t.Errorf("entries = %+v, want none", entries)
	}
}

func TestSimulationJournalStore(t *testing.T) {
	st, err := journal.NewSQLiteStore(":memory:", discardLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()
	ctx := context.Background()
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	sc, err := ParseYAML([]byte(busYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	sim := newSim(t, sc, Options{Store: st})
	if err := sim.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := sim.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	accepted, total, err := st.List(ctx, model.ListOptions{Kind: string(model.EventAccepted)})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || accepted[0].Agent != "writer" {
		t.Errorf("accepted = %+v, want writer first of 2", accepted)
	}
	removed, _, err := st.List(ctx, model.ListOptions{Kind: string(model.EventAgentRemoved)})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(removed) != 3 {
		t.Errorf("removed = %d, want 3", len(removed))
	}
	if sim.Snapshot().Enabled {
		t.Error("controller should be disabled after shutdown")
	}
}

func TestSimulationRunCanceled(t *testing.T) {
	sc, err := ParseYAML([]byte(busYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	sim := newSim(t, sc, Options{Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sim.Run(ctx); err != context.Canceled {
		t.Fatalf("run err = %v, want context.Canceled", err)
	}
	if sim.Now() != 0 {
		t.Errorf("tick = %d, want 0", sim.Now())
	}
}

func TestSimulationCancelRemoveAdd(t *testing.T) {
	sc, err := ParseYAML([]byte(`
ticks: 6
agents:
  - name: a
    work: [{name: scan, ticks: 10, cancelable: true}]
events:
  - {at: 1, action: cancel, agent: a}
  - {at: 2, action: remove, agent: a}
  - {at: 3, action: add, agent: a}
  - {at: 4, action: add, agent: a}
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	sim := newSim(t, sc, Options{})
	if err := sim.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	events := sim.Events()
	tests := []struct {
		kind model.EventKind
		want int
	}{
		{model.EventAccepted, 3},
		{model.EventCanceled, 2},
		{model.EventAgentRemoved, 1},
		{model.EventAgentAdded, 2},
	}
	for _, tt := range tests {
		if n := countEvents(events, tt.kind, "a", ""); n != tt.want {
			t.Errorf("%s = %d, want %d", tt.kind, n, tt.want)
		}
	}
	if q := sim.Agent("a").Queue(); len(q) != 0 {
		t.Errorf("queue = %v, want empty", q)
	}
	if entries := sim.Snapshot().Entries; len(entries) != 1 || entries[0].Action != "scan" {
		t.Errorf("entries = %+v, want scan running", entries)
	}
}

func TestSimulationPushAfterQueueDrained(t *testing.T) {
	sc, err := ParseYAML([]byte(`
ticks: 6
agents:
  - name: a
    work: [{name: first, ticks: 1}]
events:
  - at: 3
    action: push
    agent: a
    work: {name: late, ticks: 1, cancelable: true}
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	sim := newSim(t, sc, Options{})
	if err := sim.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	events := sim.Events()
	var late model.Event
	for _, ev := range events {
		if ev.Kind == model.EventAccepted && ev.Action == "late" {
			late = ev
		}
	}
	if late.Tick != 3 || late.Agent != "a" {
		t.Fatalf("late accepted = %+v, want at tick 3", late)
	}
	if n := countEvents(events, model.EventCompleted, "a", "late"); n != 1 {
		t.Errorf("late completions = %d, want 1", n)
	}
	if q := sim.Agent("a").Queue(); len(q) != 0 {
		t.Errorf("queue = %v, want empty", q)
	}
}
