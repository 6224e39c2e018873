package explorer

import (
	"spek/internal/engine"
	"spek/internal/engine/bisim"
)

// stateIndex interns machine states by bequals/hash, exactly the
// dictionary spec §4.8's second pass describes ("interns states in a
// dict keyed by bequals/hash").
type stateIndex struct {
	buckets map[uint64][]int
	lts     *bisim.LTS
}

func newStateIndex(lts *bisim.LTS) *stateIndex {
	return &stateIndex{buckets: make(map[uint64][]int), lts: lts}
}

// intern returns the LTS index for s, allocating a new State the first
// time an bequals-distinct machine state is seen.
func (idx *stateIndex) intern(s *engine.MachineState) int {
	h := s.Hash()
	for _, candidate := range idx.buckets[h] {
		if s.BEquals(idx.lts.States[candidate].Content, engine.NewBijection()) {
			return candidate
		}
	}
	i := idx.lts.AddState(s)
	idx.buckets[h] = append(idx.buckets[h], i)
	return i
}

// labelFor reports the LTS transition label for the task that produced
// a step out of state s: Tau for an internal stack-task action, or the
// interaction's symbol for an externally observable one (spec §5
// "Observability": only the commit half of internal instructions and
// the destination choice of interactions are visible).
func labelFor(s *engine.MachineState, taskID int) string {
	t, ok := s.Lookup(taskID)
	if !ok {
		return bisim.Tau
	}
	if is, ok := t.(*engine.InteractionState); ok {
		return string(is.Symbol)
	}
	return bisim.Tau
}

// BuildLTS runs Explore from s0 under scheduler and assembles the
// resulting step relation into a sealed bisim.LTS (spec §4.8's second
// pass).
func BuildLTS(u *engine.Universe, s0 *engine.MachineState, scheduler engine.Scheduler) (*bisim.LTS, error) {
	lts := bisim.New()
	idx := newStateIndex(lts)
	seeded := false

	err := Explore(u, s0, scheduler, func(state *engine.MachineState, successors []Step) error {
		from := idx.intern(state)
		if !seeded {
			lts.Initial = from
			seeded = true
		}
		for _, step := range successors {
			to := idx.intern(step.Successor)
			lts.AddTransition(from, labelFor(state, step.TaskID), to)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	lts.Seal()
	return lts, nil
}
