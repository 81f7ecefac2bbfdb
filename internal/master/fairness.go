package master

import "sort"

// fairness hands out monotonically increasing timestamps. Lower values are
// served first among equal priorities; zero means "serve first".
type fairness struct {
	clock  uint64
	stamps map[Agent]uint64
}

func newFairness() *fairness {
	return &fairness{stamps: make(map[Agent]uint64)}
}

// stamp marks a as served now.
func (f *fairness) stamp(a Agent) {
	f.clock++
	f.stamps[a] = f.clock
}

// reset moves a to the front of its priority band.
func (f *fairness) reset(a Agent) {
	if _, ok := f.stamps[a]; ok {
		f.stamps[a] = 0
	}
}

func (f *fairness) get(a Agent) uint64 {
	return f.stamps[a]
}

func (f *fairness) remove(a Agent) {
	delete(f.stamps, a)
}

func (f *fairness) len() int {
	return len(f.stamps)
}

// candidate is an agent considered by one pass, with its ordering keys
// captured once.
type candidate struct {
	agent     Agent
	priority  int
	timestamp uint64
}

// orderCandidates sorts by priority descending, then timestamp ascending.
// Equal keys keep their input order.
func orderCandidates(cands []candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].priority != cands[j].priority {
			return cands[i].priority > cands[j].priority
		}
		return cands[i].timestamp < cands[j].timestamp
	})
}
