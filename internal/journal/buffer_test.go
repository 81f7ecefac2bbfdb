package journal

import (
	"context"
	"errors"
	"testing"

	"github.com/me/workmaster/internal/master"
	"github.com/me/workmaster/pkg/model"
)

var _ master.Recorder = (*Buffer)(nil)

type failingStore struct {
	Store
	err error
}

func (f failingStore) Append(context.Context, []model.Event) error { return f.err }

func TestBufferStampsTick(t *testing.T) {
	b := NewBuffer()
	b.Record(model.Event{Kind: model.EventAgentAdded, Agent: "a"})
	b.SetTick(7)
	b.Record(model.Event{Kind: model.EventAccepted, Agent: "a"})

	events := b.Drain()
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}
	if events[0].Tick != 0 || events[1].Tick != 7 {
		t.Errorf("ticks = %d, %d, want 0, 7", events[0].Tick, events[1].Tick)
	}
	if events[0].ID == "" || events[0].ID == events[1].ID {
		t.Errorf("ids = %q, %q, want distinct non-empty", events[0].ID, events[1].ID)
	}
	if b.Len() != 0 {
		t.Errorf("Len after drain = %d, want 0", b.Len())
	}
}

func TestBufferFlush(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	b := NewBuffer()

	n, err := b.Flush(ctx, st)
	if err != nil || n != 0 {
		t.Fatalf("empty flush = %d, %v", n, err)
	}

	b.Record(model.Event{Kind: model.EventIdle, Agent: "a"})
	b.Record(model.Event{Kind: model.EventIdle, Agent: "b"})
	n, err = b.Flush(ctx, st)
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if n != 2 {
		t.Errorf("flushed = %d, want 2", n)
	}
	_, total, err := st.List(ctx, model.ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 {
		t.Errorf("stored = %d, want 2", total)
	}
}

func TestBufferFlushFailureKeepsEvents(t *testing.T) {
	b := NewBuffer()
	b.Record(model.Event{Kind: model.EventIdle, Agent: "first"})

	boom := errors.New("disk full")
	if _, err := b.Flush(context.Background(), failingStore{err: boom}); !errors.Is(err, boom) {
		t.Fatalf("flush error = %v, want %v", err, boom)
	}
	b.Record(model.Event{Kind: model.EventIdle, Agent: "second"})

	events := b.Drain()
	if len(events) != 2 || events[0].Agent != "first" || events[1].Agent != "second" {
		t.Errorf("events = %+v, want first then second", events)
	}
}
