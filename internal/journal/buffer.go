package journal

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/me/workmaster/pkg/model"
)

// Buffer collects events from inside arbitration passes without blocking and
// hands them to a Store between ticks. It implements master.Recorder.
type Buffer struct {
	mu     sync.Mutex
	tick   uint64
	events []model.Event
}

// NewBuffer creates an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// SetTick stamps subsequent events with tick.
func (b *Buffer) SetTick(tick uint64) {
	b.mu.Lock()
	b.tick = tick
	b.mu.Unlock()
}

// Record buffers ev, assigning an ID and the current tick.
func (b *Buffer) Record(ev model.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ev.ID == "" {
		ev.ID = "ev_" + uuid.New().String()
	}
	ev.Tick = b.tick
	b.events = append(b.events, ev)
}

// Len returns the number of buffered events.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Drain returns the buffered events and clears the buffer.
func (b *Buffer) Drain() []model.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.events
	b.events = nil
	return out
}

// Flush drains the buffer into st. On failure the events are put back in
// front of anything recorded meanwhile.
func (b *Buffer) Flush(ctx context.Context, st Store) (int, error) {
	events := b.Drain()
	if len(events) == 0 {
		return 0, nil
	}
	if err := st.Append(ctx, events); err != nil {
		b.mu.Lock()
		b.events = append(events, b.events...)
		b.mu.Unlock()
		return 0, err
	}
	return len(events), nil
}
