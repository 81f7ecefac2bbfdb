package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/me/workmaster/internal/executor"
	"github.com/me/workmaster/internal/journal"
	"github.com/me/workmaster/internal/master"
	"github.com/me/workmaster/pkg/model"
)

// Options configures a Simulation.
type Options struct {
	// Strict makes the controller panic on invariant violations.
	Strict bool

	// MaxReplays bounds follow-up passes per controller call. Zero keeps the
	// controller default.
	MaxReplays int

	// Interval paces Run. Zero runs ticks back to back.
	Interval time.Duration

	// Store receives journal events after every tick. Optional.
	Store journal.Store

	// Registry builds behaviors. Defaults to the sleep and script kinds.
	Registry *executor.Registry
}

// Simulation runs a Scenario against a master controller on a Timeline. All
// controller access happens on the goroutine calling Step or Run; Snapshot is
// safe from any goroutine.
type Simulation struct {
	scenario *Scenario
	opts     Options
	logger   *slog.Logger

	ctrl     *master.Controller
	timeline *executor.Timeline
	buffer   *journal.Buffer
	agents   map[string]*ScriptedAgent
	order    []*ScriptedAgent

	started bool
	events  int // index of the next scenario event

	mu   sync.RWMutex
	snap model.ControllerSnapshot
}

// New builds a Simulation for a validated scenario.
func New(sc *Scenario, opts Options, logger *slog.Logger) (*Simulation, error) {
	if opts.Registry == nil {
		opts.Registry = executor.NewDefaultRegistry(logger)
	}
	s := &Simulation{
		scenario: sc,
		opts:     opts,
		logger:   logger.With("component", "simulation", "scenario", sc.Name),
		timeline: executor.NewTimeline(logger),
		buffer:   journal.NewBuffer(),
		agents:   make(map[string]*ScriptedAgent, len(sc.Agents)),
	}
	cfg := master.DefaultConfig()
	cfg.Strict = opts.Strict
	if opts.MaxReplays > 0 {
		cfg.MaxReplays = opts.MaxReplays
	}
	s.ctrl = master.New(s.timeline, cfg, logger, master.WithRecorder(s.buffer))

	for _, spec := range sc.Agents {
		a, err := NewScriptedAgent(spec, opts.Registry, s.lookup, logger)
		if err != nil {
			return nil, err
		}
		s.agents[spec.Name] = a
		s.order = append(s.order, a)
	}
	s.publish()
	return s, nil
}

func (s *Simulation) lookup(name string) master.Agent {
	if a, ok := s.agents[name]; ok {
		return a
	}
	return nil
}

// Agent returns the named agent, or nil.
func (s *Simulation) Agent(name string) *ScriptedAgent {
	return s.agents[name]
}

// Controller exposes the underlying controller to callers on the stepping
// goroutine.
func (s *Simulation) Controller() *master.Controller {
	return s.ctrl
}

// Now returns the current tick.
func (s *Simulation) Now() executor.Tick {
	return s.timeline.Now()
}

// Done reports whether the configured tick count has been reached.
func (s *Simulation) Done() bool {
	return int(s.timeline.Now()) >= s.scenario.Ticks
}

// Step runs one tick: refreshes priorities, applies the events scheduled for
// the current tick, advances the timeline and flushes the journal.
func (s *Simulation) Step(ctx context.Context) error {
	now := s.timeline.Now()
	s.buffer.SetTick(uint64(now))

	for _, a := range s.order {
		a.RefreshPriority(now)
	}

	if !s.started {
		s.started = true
		for _, spec := range s.scenario.Agents {
			if spec.Detached {
				continue
			}
			if err := s.ctrl.AddAgent(s.agents[spec.Name]); err != nil {
				return fmt.Errorf("add agent %s: %w", spec.Name, err)
			}
		}
	}

	for s.events < len(s.scenario.Events) && s.scenario.Events[s.events].At <= int(now) {
		ev := s.scenario.Events[s.events]
		s.events++
		if err := s.apply(ev); err != nil {
			s.logger.Warn("event failed", "tick", now, "action", ev.Action, "agent", ev.Agent, "error", err)
		}
	}

	s.buffer.SetTick(uint64(now) + 1)
	s.timeline.Advance()
	s.publish()

	if s.opts.Store != nil {
		if _, err := s.buffer.Flush(ctx, s.opts.Store); err != nil {
			return fmt.Errorf("flush journal: %w", err)
		}
	}
	return nil
}

func (s *Simulation) apply(ev EventSpec) error {
	s.logger.Debug("event", "tick", s.timeline.Now(), "action", ev.Action, "agent", ev.Agent)
	if ev.Action == ActionResetWindow {
		var agents []master.Agent
		for _, name := range ev.Agents {
			if a := s.lookup(name); a != nil {
				agents = append(agents, a)
			}
		}
		s.ctrl.OnResetBegin()
		for _, a := range agents {
			s.ctrl.OnResourceReset(a)
		}
		s.ctrl.OnResetEnd(agents...)
		return nil
	}

	a, ok := s.agents[ev.Agent]
	if !ok {
		return fmt.Errorf("unknown agent %q", ev.Agent)
	}
	switch ev.Action {
	case ActionAdd:
		if s.ctrl.IsRegistered(a) {
			return fmt.Errorf("agent %s: %w", a.Name(), master.ErrAgentRegistered)
		}
		return s.ctrl.AddAgent(a)
	case ActionRemove:
		s.ctrl.RemoveAgent(a)
	case ActionReset:
		s.ctrl.OnResourceReset(a)
	case ActionPush:
		if ev.Work == nil {
			return fmt.Errorf("push without work")
		}
		a.Push(*ev.Work)
	case ActionCancel:
		return s.ctrl.CancelEntry(a)
	case ActionResetTimestamp:
		s.ctrl.ResetTimestamp(a)
	default:
		return fmt.Errorf("unknown action %q", ev.Action)
	}
	return nil
}

// Run steps until the scenario's tick count is reached or ctx is done.
func (s *Simulation) Run(ctx context.Context) error {
	s.logger.Info("simulation started", "ticks", s.scenario.Ticks, "agents", len(s.order))

	var ticker *time.Ticker
	if s.opts.Interval > 0 {
		ticker = time.NewTicker(s.opts.Interval)
		defer ticker.Stop()
	}

	for !s.Done() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Step(ctx); err != nil {
			return err
		}
		if ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	}

	s.logger.Info("simulation finished", "tick", s.timeline.Now(), "passes", s.ctrl.Passes())
	return nil
}

// Shutdown disables the controller, removing every agent, and flushes the
// final journal events.
func (s *Simulation) Shutdown(ctx context.Context) error {
	s.buffer.SetTick(uint64(s.timeline.Now()))
	s.ctrl.DisableAndClear()
	s.publish()
	if s.opts.Store != nil {
		if _, err := s.buffer.Flush(ctx, s.opts.Store); err != nil {
			return fmt.Errorf("flush journal: %w", err)
		}
	}
	return nil
}

// Events drains journal events not handed to a store.
func (s *Simulation) Events() []model.Event {
	return s.buffer.Drain()
}

// Snapshot returns the state published after the last tick.
func (s *Simulation) Snapshot() model.ControllerSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *Simulation) publish() {
	snap := s.ctrl.Snapshot()
	snap.Tick = uint64(s.timeline.Now())
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}
