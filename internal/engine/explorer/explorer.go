// Package explorer implements the machine-state space search described
// in spec §4.8: starting from an initial configuration, it repeatedly
// asks a scheduler which tasks may run, clones the state once per
// candidate, runs that one task to its next yield point, and records
// the resulting step. The second pass (LTS) turns the raw step relation
// into the sealed State/Transition graph the bisim package reduces.
package explorer

import (
	"spek/internal/engine"
)

// Step is one scheduled transition out of a state: the id of the task
// that ran and the machine state that resulted.
type Step struct {
	TaskID    int
	Successor *engine.MachineState
}

// Visitor receives each distinct reachable state exactly once, along
// with every step the scheduler offered out of it (spec §4.8 step 3,
// "yield (s, successors) then mark s ∈ visited").
type Visitor func(state *engine.MachineState, successors []Step) error

// visitedSet interns machine states up to bequals, bucketed by hash
// (spec §4.8 "Visited = empty hash set").
type visitedSet struct {
	buckets map[uint64][]*engine.MachineState
}

func newVisitedSet() *visitedSet {
	return &visitedSet{buckets: make(map[uint64][]*engine.MachineState)}
}

func (v *visitedSet) Contains(s *engine.MachineState) bool {
	for _, candidate := range v.buckets[s.Hash()] {
		if s.BEquals(candidate, engine.NewBijection()) {
			return true
		}
	}
	return false
}

func (v *visitedSet) Add(s *engine.MachineState) {
	h := s.Hash()
	v.buckets[h] = append(v.buckets[h], s)
}

// Explore runs the BFS agenda of spec §4.8 starting from s0, invoking
// visit once per distinct state reached. It does not mutate s0.
func Explore(u *engine.Universe, s0 *engine.MachineState, scheduler engine.Scheduler, visit Visitor) error {
	seed := s0
	if !seed.Sealed() {
		clones := engine.CloneMap{}
		cloned, ok := seed.CloneUnsealed(clones).(*engine.MachineState)
		if !ok {
			return engine.RuntimeErrorf("explorer: clone of machine state produced wrong type")
		}
		cloned.Seal()
		seed = cloned
	}

	visited := newVisitedSet()
	agenda := []*engine.MachineState{seed}

	for len(agenda) > 0 {
		s := agenda[0]
		agenda = agenda[1:]
		if visited.Contains(s) {
			continue
		}

		candidates, err := scheduler(s)
		if err != nil {
			return err
		}

		successors := make([]Step, 0, len(candidates))
		for _, candidate := range candidates {
			clones := engine.CloneMap{}
			clonedState, ok := s.CloneUnsealed(clones).(*engine.MachineState)
			if !ok {
				return engine.RuntimeErrorf("explorer: clone of machine state produced wrong type")
			}
			clonedTaskValue, ok := clones[candidate]
			if !ok {
				return engine.RuntimeErrorf("explorer: scheduled task not present in cloned state")
			}
			clonedTask, ok := clonedTaskValue.(engine.Task)
			if !ok {
				return engine.RuntimeErrorf("explorer: cloned task has wrong type")
			}
			if err := clonedTask.Run(u, clonedState); err != nil {
				return err
			}
			clonedState.Seal()
			successors = append(successors, Step{TaskID: candidate.TaskID(), Successor: clonedState})
			agenda = append(agenda, clonedState)
		}

		if err := visit(s, successors); err != nil {
			return err
		}
		visited.Add(s)
	}
	return nil
}
