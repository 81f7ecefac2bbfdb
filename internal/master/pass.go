package master

import (
	"fmt"
	"slices"

	"github.com/me/workmaster/pkg/model"
)

// process runs an arbitration pass for the interested agents. Interest that
// arrives while a pass is running is replayed once it finishes; interest that
// arrives during a reset window waits for OnResetEnd. Interest left over once
// MaxReplays is reached is deferred to the next call.
func (c *Controller) process(interest ...Agent) {
	if !c.enabled {
		return
	}
	if c.resetInProgress {
		c.suppressed = append(c.suppressed, interest...)
		return
	}
	if c.processing {
		c.pending = append(c.pending, interest...)
		return
	}

	c.processing = true
	defer func() { c.processing = false }()

	if len(c.deferred) > 0 {
		interest = append(c.deferred, interest...)
		c.deferred = nil
	}

	for replays := 0; ; replays++ {
		c.runPass(interest)
		if c.config.Strict {
			c.checkTables()
		}
		if len(c.pending) == 0 || !c.enabled {
			break
		}
		if c.resetInProgress {
			c.suppressed = append(c.suppressed, c.pending...)
			c.pending = nil
			break
		}
		if replays >= c.config.MaxReplays {
			c.logger.Warn("deferring replay interest", "agents", len(c.pending), "replays", replays)
			c.deferred = append(c.deferred, c.pending...)
			c.pending = nil
			break
		}
		interest, c.pending = c.pending, nil
	}
}

// pass is the state of one arbitration run.
type pass struct {
	c          *Controller
	requested  map[Agent]bool
	additional map[string]*WorkEntry
	accepted   []*WorkEntry
	touched    []Agent
}

func (c *Controller) runPass(interest []Agent) {
	c.passes++
	p := &pass{
		c:          c,
		requested:  make(map[Agent]bool),
		additional: make(map[string]*WorkEntry),
	}
	defer func() {
		if r := recover(); r != nil {
			c.recoverPass(p, r)
		}
	}()

	p.run(interest)
}

func (p *pass) run(interest []Agent) {
	for _, e := range p.c.active {
		for _, r := range e.additional {
			p.additional[r] = e
		}
	}
	for _, cand := range p.candidates(interest) {
		p.consider(cand.agent)
	}
	p.startAccepted()
	p.idleFallback()
}

// candidates merges the denied queue with the interested agents, drops
// unregistered or already-claimed agents and sorts the rest.
func (p *pass) candidates(interest []Agent) []candidate {
	c := p.c
	seen := make(map[Agent]bool)
	var out []candidate
	add := func(a Agent) {
		if a == nil || seen[a] || !c.registered[a] || p.requested[a] {
			return
		}
		seen[a] = true
		out = append(out, candidate{agent: a, priority: a.Priority(), timestamp: c.fair.get(a)})
	}
	for _, a := range c.denied.agents() {
		add(a)
	}
	for _, a := range interest {
		add(a)
	}
	orderCandidates(out)
	return out
}

// consider queries a for its next work and accepts or denies it.
func (p *pass) consider(a Agent) {
	c := p.c
	if !c.registered[a] || p.requested[a] {
		return
	}
	if e := c.active[a]; e != nil && e.MustRun() {
		return
	}
	p.touch(a)

	// Unsubscribed while querying so the agent's own queue churn cannot
	// re-trigger this pass.
	c.unsubscribe(a)
	defer c.syncListener(a)

	req, err := p.query(a)
	if err != nil {
		c.logger.Warn("work query failed", "agent", a.Name(), "error", err)
		c.record(model.EventQueryFailed, a, nil, err.Error())
		return
	}
	if !req.HasWork() {
		return
	}

	entry := newEntry(a, req)
	cancels, ok := p.check(entry)
	if !ok {
		p.deny(a, entry)
		return
	}
	p.accept(entry, cancels)
}

func (p *pass) query(a Agent) (req *WorkRequest, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("next work: panic: %v", r)
		}
	}()
	return a.NextWork()
}

func (p *pass) queryIdle(a Agent) (action Action, cancel func(), err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("idle work: panic: %v", r)
		}
	}()
	return a.IdleWork()
}

// check verifies entry's resources against the active-work table and this
// pass's claims. It returns the cancelable entries that must be preempted.
func (p *pass) check(entry *WorkEntry) ([]*WorkEntry, bool) {
	c := p.c
	var cancels []*WorkEntry
	for _, r := range entry.resources {
		if !c.registered[r] || p.requested[r] {
			return nil, false
		}
		existing := c.active[r]
		if existing == nil {
			continue
		}
		if existing.MustRun() {
			return nil, false
		}
		if !slices.Contains(cancels, existing) {
			cancels = append(cancels, existing)
		}
	}
	for _, r := range entry.additional {
		if holder := p.additional[r]; holder != nil && !slices.Contains(cancels, holder) {
			return nil, false
		}
	}
	return cancels, true
}

func (p *pass) accept(entry *WorkEntry, cancels []*WorkEntry) {
	c := p.c
	a := entry.owner
	for _, victim := range cancels {
		c.logger.Info("preempting work",
			"entry_id", victim.id,
			"owner", victim.owner.Name(),
			"by", a.Name(),
		)
		c.record(model.EventPreempted, victim.owner, victim, "preempted by "+a.Name())
		for r, holder := range p.additional {
			if holder == victim {
				delete(p.additional, r)
			}
		}
		c.finish(victim, model.EntryStateCanceled, "preempted by "+a.Name())
	}

	for _, r := range entry.resources {
		c.active[r] = entry
		p.requested[r] = true
		c.syncListener(r)
	}
	for _, r := range entry.additional {
		p.additional[r] = entry
	}
	c.denied.remove(a)
	if entry.updateTimestamp {
		c.fair.stamp(a)
	}
	p.accepted = append(p.accepted, entry)

	c.logger.Debug("work accepted",
		"agent", a.Name(),
		"entry_id", entry.id,
		"action", actionName(entry.action),
		"resources", agentNames(entry.resources),
	)
	c.record(model.EventAccepted, a, entry, "")
}

func (p *pass) deny(a Agent, entry *WorkEntry) {
	c := p.c
	if entry.MustRun() {
		// Hold the resources so weaker candidates cannot take them this pass.
		for _, r := range entry.resources {
			p.requested[r] = true
		}
	}
	c.denied.add(a, entry)
	c.logger.Debug("work denied", "agent", a.Name(), "action", actionName(entry.action), "must_run", entry.MustRun())
	c.record(model.EventDenied, a, entry, "")
}

func (p *pass) startAccepted() {
	c := p.c
	for _, e := range p.accepted {
		if e.state != model.EntryStatePending {
			continue
		}
		if e.onAccept != nil {
			e.onAccept()
		}
		if e.state != model.EntryStatePending {
			continue
		}
		c.start(e)
	}
}

// idleFallback offers idle work to every registered agent left without an
// active-work association.
func (p *pass) idleFallback() {
	c := p.c
	for _, a := range slices.Clone(c.agents) {
		if !c.registered[a] || c.active[a] != nil {
			continue
		}
		p.touch(a)
		action, cancel, err := p.queryIdle(a)
		if err != nil {
			c.logger.Warn("idle query failed", "agent", a.Name(), "error", err)
			c.record(model.EventQueryFailed, a, nil, err.Error())
			continue
		}
		if action == nil {
			continue
		}
		e := newIdleEntry(a, action, cancel)
		c.active[a] = e
		c.syncListener(a)
		c.record(model.EventIdle, a, e, "")
		c.start(e)
	}
}

func (p *pass) touch(a Agent) {
	if !slices.Contains(p.touched, a) {
		p.touched = append(p.touched, a)
	}
}

// recoverPass releases every agent the failed pass touched so nothing stays
// locked by a half-applied decision.
func (c *Controller) recoverPass(p *pass, r any) {
	c.logger.Error("arbitration pass failed",
		"pass", c.passes,
		"panic", r,
		"agents", agentNames(p.touched),
	)
	c.record(model.EventPassFailed, nil, nil, fmt.Sprint(r))
	for _, a := range p.touched {
		if e := c.active[a]; e != nil {
			c.finish(e, model.EntryStateReset, "pass failed")
		}
	}
	// An entry whose cancel callable panicked has ended but still holds its
	// slots.
	for r, e := range c.active {
		if e.state.IsTerminal() {
			delete(c.active, r)
			e.resources = nil
			e.additional = nil
			c.syncListener(r)
		}
	}
	c.pending = nil
}
