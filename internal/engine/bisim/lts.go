// Package bisim implements the LTS reduction kernel of spec §4.9: a
// sealed labelled transition system, the three reachability predicates
// that parametrise strong bisimulation, weak bisimulation and
// observational congruence, partition refinement, reduction, and an
// isomorphism check between reduced LTSs.
package bisim

import (
	"github.com/google/uuid"

	"spek/internal/engine"
)

// Tau is the label spec §4.9 calls "None": an internal, unobservable
// transition. Every other label names an interaction symbol.
const Tau = ""

// Transition is one edge out of a State (spec §4.9 "Transition(label,
// target)"). Target is an index into the owning LTS's States slice.
type Transition struct {
	Label  string
	Target int
}

// State is one LTS node (spec §4.9 "State(content, transitions)").
// Content is the machine state the explorer reached; it is kept for
// inspection and for the initial content-equality partition, not for
// further mutation once the LTS is sealed.
type State struct {
	Content     *engine.MachineState
	Transitions []Transition
}

// LTS is a sealed graph of states reachable from one initial
// configuration (spec §4.9 "An LTS is a sealed graph ...").
type LTS struct {
	States  []*State
	sealed  bool
	Initial int

	// RunID identifies one exploration run for diagnostic printing
	// (spek-cli sets it and prints it on every run). It is never consulted by Hash, BEquals, or
	// any reachability/refinement predicate — run identity must stay
	// outside the structural equalities spec invariants I2/I6 govern.
	RunID string
}

// New returns an empty, unsealed LTS stamped with a fresh run id.
func New() *LTS {
	return &LTS{RunID: uuid.New().String()}
}

// AddState appends a fresh state with the given content and returns its
// index. Invalid once the LTS is sealed.
func (l *LTS) AddState(content *engine.MachineState) int {
	if l.sealed {
		panic("bisim: AddState on a sealed LTS")
	}
	l.States = append(l.States, &State{Content: content})
	return len(l.States) - 1
}

// AddTransition records one edge from the state at index `from`.
func (l *LTS) AddTransition(from int, label string, target int) {
	if l.sealed {
		panic("bisim: AddTransition on a sealed LTS")
	}
	l.States[from].Transitions = append(l.States[from].Transitions, Transition{Label: label, Target: target})
}

// Seal finalises the graph; no further states or transitions may be added.
func (l *LTS) Seal() { l.sealed = true }

func (l *LTS) Sealed() bool { return l.sealed }

// LabelsUsed returns the distinct transition labels present anywhere in
// the LTS, in first-seen order, used to drive refinement's splitter
// search (spec §4.9 "pick a block and a splitter label").
func (l *LTS) LabelsUsed() []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range l.States {
		for _, t := range s.Transitions {
			if !seen[t.Label] {
				seen[t.Label] = true
				out = append(out, t.Label)
			}
		}
	}
	return out
}
