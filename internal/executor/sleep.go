package executor

import "fmt"

// Sleep finishes after a fixed number of steps.
type Sleep struct {
	name      string
	remaining int
}

// NewSleep creates a Sleep lasting ticks steps. Zero finishes on the first step.
func NewSleep(name string, ticks int) (*Sleep, error) {
	if ticks < 0 {
		return nil, fmt.Errorf("sleep %q: negative duration %d", name, ticks)
	}
	return &Sleep{name: name, remaining: ticks}, nil
}

// Name returns the behavior name.
func (s *Sleep) Name() string { return s.name }

// Step counts down one tick.
func (s *Sleep) Step(Tick) (bool, error) {
	s.remaining--
	return s.remaining <= 0, nil
}
