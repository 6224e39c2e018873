package engine

import (
	"fmt"
	"io"
	"sort"
)

// MachineState is one global configuration of the running program: a
// collection of tasks keyed by a stable id and ordered by that id, so
// references can name a task without depending on slice position (spec §3.1 "Machine
// state", §4.5, §4.9 glossary "Configuration"). It is itself a Value:
// the explorer interns and diffs whole MachineStates by Hash/BEquals.
type MachineState struct {
	sealable
	tasks  map[int]Task
	nextID int
}

func NewMachineState() *MachineState {
	return &MachineState{tasks: make(map[int]Task)}
}

// AddTask inserts t under a freshly allocated id and returns it (spec
// §4.3 "Launch ... adds a new task to the machine").
func (m *MachineState) AddTask(construct func(id int) Task) (Task, error) {
	if err := requireUnsealed(&m.sealable, "machine"); err != nil {
		return nil, err
	}
	id := m.nextID
	m.nextID++
	t := construct(id)
	m.tasks[id] = t
	return t, nil
}

func (m *MachineState) removeTask(id int) {
	delete(m.tasks, id)
}

func (m *MachineState) replaceTask(id int, t Task) {
	m.tasks[id] = t
}

// Lookup returns the task with the given id, or false if it has
// completed and been removed (spec §4.2 "task references dangle once
// their target task is gone").
func (m *MachineState) Lookup(id int) (Task, bool) {
	t, ok := m.tasks[id]
	return t, ok
}

// Tasks returns every task in a stable, id-ascending order so callers
// (the scheduler, the explorer, Print) see a deterministic enumeration
// regardless of Go map iteration order.
func (m *MachineState) Tasks() []Task {
	ids := make([]int, 0, len(m.tasks))
	for id := range m.tasks {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]Task, len(ids))
	for i, id := range ids {
		out[i] = m.tasks[id]
	}
	return out
}

// EnabledTasks returns every task whose Enabled(m) holds, in id order.
func (m *MachineState) EnabledTasks() ([]Task, error) {
	var out []Task
	for _, t := range m.Tasks() {
		ok, err := t.Enabled(m)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MachineState) TypeOf(u *Universe) *Type { return u.ObjectType }

func (m *MachineState) Seal() {
	if m.sealed {
		return
	}
	m.markSealed()
	for _, t := range m.tasks {
		t.Seal()
	}
}

func (m *MachineState) CloneUnsealed(clones CloneMap) Value {
	if existing, ok := clones[m]; ok {
		return existing
	}
	clone := &MachineState{tasks: make(map[int]Task, len(m.tasks)), nextID: m.nextID}
	clones[m] = clone
	for id, t := range m.tasks {
		clone.tasks[id] = t.CloneUnsealed(clones).(Task)
	}
	return clone
}

// Hash xors every task's hash, so the result does not depend on the
// task map's iteration order. BEquals is stricter (it compares tasks
// pairwise in id order), and states it accepts as equal still hash
// equal.
func (m *MachineState) Hash() uint64 {
	var acc uint64 = hashString("machine")
	for _, t := range m.tasks {
		acc ^= t.Hash() // xor: order-independent
	}
	return acc
}

func (m *MachineState) Equals(other Value) bool { return other == Value(m) }

// BEquals compares tasks pairwise in id order (spec §4.6 "an ordered
// tuple of task states... bequals iterates pairwise"; ground truth
// `original_source/engine/core/machine.py` zips the two task-state
// lists positionally rather than searching for any matching
// permutation). Positional comparison is also what
// AbsoluteFrameReference's task-id addressing assumes: a task at a
// given position in one state corresponds to the task at the same
// position in a bequals successor, not to whichever task happens to
// look alike.
func (m *MachineState) BEquals(other Value, bij *Bijection) bool {
	o, ok := other.(*MachineState)
	if !ok || len(o.tasks) != len(m.tasks) {
		return false
	}
	if !bij.Extend(m, o) {
		return false
	}
	mine := m.Tasks()
	theirs := o.Tasks()
	for i, mt := range mine {
		if !mt.BEquals(theirs[i], bij) {
			return false
		}
	}
	return true
}

func (m *MachineState) CEquals(other Value) bool { return m.Equals(other) }
func (m *MachineState) CHash() (uint64, error) {
	return 0, RuntimeErrorf("unhashable type: machine state")
}

func (m *MachineState) Print(out io.Writer) {
	fmt.Fprintf(out, "<machine %d tasks>", len(m.tasks))
}
