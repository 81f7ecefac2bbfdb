package executor

import (
	"fmt"

	"github.com/dop251/goja"
)

// Script is a behavior whose completion is decided by a JavaScript
// expression. The expression sees tick (current tick), started (tick of the
// first step) and elapsed (steps taken, including this one) and finishes the
// behavior once it evaluates truthy. A thrown exception fails the behavior.
type Script struct {
	name    string
	program *goja.Program
	vm      *goja.Runtime
	started Tick
	elapsed int
}

// NewScript compiles source. The VM is created lazily on the first step.
func NewScript(name, source string) (*Script, error) {
	if source == "" {
		return nil, fmt.Errorf("script %q: empty source", name)
	}
	prog, err := goja.Compile(name, source, true)
	if err != nil {
		return nil, fmt.Errorf("script %q: compile: %w", name, err)
	}
	return &Script{name: name, program: prog}, nil
}

// Name returns the behavior name.
func (s *Script) Name() string { return s.name }

// Step evaluates the predicate at now.
func (s *Script) Step(now Tick) (bool, error) {
	if s.vm == nil {
		s.vm = goja.New()
		s.started = now
	}
	s.elapsed++

	for k, v := range map[string]any{
		"tick":    uint64(now),
		"started": uint64(s.started),
		"elapsed": s.elapsed,
	} {
		if err := s.vm.Set(k, v); err != nil {
			return false, fmt.Errorf("script %q: set %s: %w", s.name, k, err)
		}
	}

	val, err := s.vm.RunProgram(s.program)
	if err != nil {
		return false, fmt.Errorf("script %q: %w", s.name, err)
	}
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return false, nil
	}
	return val.ToBoolean(), nil
}
