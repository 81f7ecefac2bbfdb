package master

import "slices"

// deniedQueue is an insertion-ordered map of agent -> the entry it last
// failed to get accepted.
type deniedQueue struct {
	order   []Agent
	entries map[Agent]*WorkEntry
}

func newDeniedQueue() *deniedQueue {
	return &deniedQueue{entries: make(map[Agent]*WorkEntry)}
}

// add inserts a at the back, or replaces its entry in place if present.
func (q *deniedQueue) add(a Agent, e *WorkEntry) {
	if _, ok := q.entries[a]; !ok {
		q.order = append(q.order, a)
	}
	q.entries[a] = e
}

func (q *deniedQueue) remove(a Agent) bool {
	if _, ok := q.entries[a]; !ok {
		return false
	}
	delete(q.entries, a)
	q.order = slices.DeleteFunc(q.order, func(x Agent) bool { return x == a })
	return true
}

func (q *deniedQueue) has(a Agent) bool {
	_, ok := q.entries[a]
	return ok
}

func (q *deniedQueue) agents() []Agent {
	return slices.Clone(q.order)
}

func (q *deniedQueue) len() int {
	return len(q.order)
}
