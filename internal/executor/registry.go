package executor

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/me/workmaster/pkg/model"
)

// Factory builds a fresh Behavior from a Spec.
type Factory func(spec Spec) (Behavior, error)

// Registry maps behavior kinds to their factories.
// Registration happens at startup before concurrent access, so no mutex is needed.
type Registry struct {
	factories map[model.ExecutorType]Factory
	logger    *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		factories: make(map[model.ExecutorType]Factory),
		logger:    logger.With("component", "behavior-registry"),
	}
}

// NewDefaultRegistry returns a Registry with the sleep and script kinds.
func NewDefaultRegistry(logger *slog.Logger) *Registry {
	r := NewRegistry(logger)
	r.Register(model.ExecutorTypeSleep, func(spec Spec) (Behavior, error) {
		return NewSleep(spec.Name, spec.Ticks)
	})
	r.Register(model.ExecutorTypeScript, func(spec Spec) (Behavior, error) {
		return NewScript(spec.Name, spec.Script)
	})
	return r
}

// Register adds a factory for kind, replacing any previous one.
func (r *Registry) Register(kind model.ExecutorType, f Factory) {
	r.factories[kind] = f
	r.logger.Debug("behavior registered", "kind", kind)
}

// Has reports whether kind is registered.
func (r *Registry) Has(kind model.ExecutorType) bool {
	_, ok := r.factories[kind]
	return ok
}

// Kinds returns the registered kinds, sorted.
func (r *Registry) Kinds() []model.ExecutorType {
	kinds := make([]model.ExecutorType, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// Build returns a new Behavior for spec or an error if its kind is unknown.
func (r *Registry) Build(spec Spec) (Behavior, error) {
	f, ok := r.factories[spec.Kind]
	if !ok {
		return nil, fmt.Errorf("no behavior registered for kind %q", spec.Kind)
	}
	b, err := f(spec)
	if err != nil {
		return nil, fmt.Errorf("build %s behavior %q: %w", spec.Kind, spec.Name, err)
	}
	return b, nil
}
