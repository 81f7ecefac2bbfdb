package journal

import (
	"context"

	"github.com/me/workmaster/pkg/model"
)

// Store persists scheduler decisions.
type Store interface {
	// Append writes events in order. Events without an ID get one.
	Append(ctx context.Context, events []model.Event) error

	// List returns events in chronological order and the total match count.
	List(ctx context.Context, opts model.ListOptions) ([]model.Event, int, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
