package master

import "slices"

// Agent is the scheduler's view of an independent unit of simulation.
//
// The scheduler knows an agent only by identity (the interface value), so
// implementations should have pointer receivers. Name is used for logging
// and the journal only.
type Agent interface {
	Name() string

	// NextWork returns the work the agent wants to run next. A nil request,
	// or one with a nil Action, means no work is available. It must not
	// call back into the Controller synchronously.
	NextWork() (*WorkRequest, error)

	// IdleWork is queried only when nothing else is running for the agent.
	// A nil action means no idle work; a nil cancel makes the idle entry
	// must-run.
	IdleWork() (action Action, cancel func(), err error)

	// Priority must be stable for the duration of one pass.
	Priority() int

	// QueueChanged is notified whenever the agent's desired work changes.
	QueueChanged() *Notifier
}

// Notifier is a subscribable notification list. The zero value is ready to use.
type Notifier struct {
	nextID uint64
	subs   []subscriber
}

type subscriber struct {
	id uint64
	fn func()
}

// Subscribe registers fn and returns the handle needed to remove it.
func (n *Notifier) Subscribe(fn func()) Subscription {
	n.nextID++
	n.subs = append(n.subs, subscriber{id: n.nextID, fn: fn})
	return Subscription{n: n, id: n.nextID}
}

// Notify calls every subscriber registered at the time of the call, skipping
// any that are unsubscribed by an earlier callback.
func (n *Notifier) Notify() {
	for _, s := range slices.Clone(n.subs) {
		if n.has(s.id) {
			s.fn()
		}
	}
}

// Len returns the number of live subscriptions.
func (n *Notifier) Len() int {
	return len(n.subs)
}

func (n *Notifier) has(id uint64) bool {
	return slices.ContainsFunc(n.subs, func(s subscriber) bool { return s.id == id })
}

func (n *Notifier) remove(id uint64) {
	n.subs = slices.DeleteFunc(n.subs, func(s subscriber) bool { return s.id == id })
}

// Subscription removes one registration from a Notifier.
type Subscription struct {
	n  *Notifier
	id uint64
}

// Unsubscribe is safe to call more than once.
func (s Subscription) Unsubscribe() {
	if s.n != nil {
		s.n.remove(s.id)
	}
}

// Active reports whether the subscription is still registered.
func (s Subscription) Active() bool {
	return s.n != nil && s.n.has(s.id)
}
