package engine

import (
	"fmt"
	"io"
)

// Instruction is the only kind of value that may change machine state
// (spec §4.4). Concrete kinds are *UpdateInstruction, *GuardInstruction,
// *PushInstruction, *PopInstruction and *LaunchInstruction (instruction.go).
type Instruction interface {
	// Enabled reports whether this instruction may run given task's and
	// m's current contents. Guard is the only kind whose enabledness
	// depends on more than "the task has a current instruction" (spec
	// §4.4 "Guard ... Enabledness").
	Enabled(task *StackState, m *MachineState) (bool, error)

	// Execute runs the instruction's effect. It returns an error only
	// for a host-level (non-Spek) failure; Spek-level failures are
	// reported by setting the task's exception slot and are not Go
	// errors, so run() can route them to on_error without tearing down
	// the whole step.
	Execute(task *StackState, m *MachineState) error

	// ErrorTarget is the on_error instruction index; -1 means "no
	// handler, fail the task" (spec §6 "Index -1 means...").
	ErrorTarget() int
}

// StackProgram is the immutable array of instructions a compiled module
// or procedure body runs (spec §4.4, §6 "Stack program format").
type StackProgram struct {
	Instructions []Instruction
}

func NewStackProgram(instructions ...Instruction) *StackProgram {
	return &StackProgram{Instructions: instructions}
}

// ProgramLocation is a (program, index) pair, itself a Value (spec §4.4
// "A ProgramLocation is ... itself a Value"). Programs are part of the
// compiled, static structure of a run — never cloned, never mutated —
// so ProgramLocation's equality and cloning both treat the Program
// pointer as an opaque, shared constant.
type ProgramLocation struct {
	sealable
	Program *StackProgram
	Index   int
}

func NewProgramLocation(program *StackProgram, index int) *ProgramLocation {
	loc := &ProgramLocation{Program: program, Index: index}
	loc.markSealed()
	return loc
}

// Current returns the instruction this location points at, or false if
// the index has run past the end of the program (a well-formed compiled
// program never does this other than via Pop emptying the stack first).
func (p *ProgramLocation) Current() (Instruction, bool) {
	if p.Index < 0 || p.Index >= len(p.Program.Instructions) {
		return nil, false
	}
	return p.Program.Instructions[p.Index], true
}

// At returns a new location within the same program at a different
// index, used by instructions to compute their successor location.
func (p *ProgramLocation) At(index int) *ProgramLocation {
	return NewProgramLocation(p.Program, index)
}

func (p *ProgramLocation) TypeOf(u *Universe) *Type { return u.ObjectType }
func (p *ProgramLocation) Seal()                     { p.markSealed() }
func (p *ProgramLocation) CloneUnsealed(clones CloneMap) Value {
	return p // program/index pair over a shared, immutable program: safe to share
}
func (p *ProgramLocation) Hash() uint64 {
	return hashCombine(hashString("loc"), hashString(fmt.Sprintf("%p", p.Program)), uint64(p.Index))
}
func (p *ProgramLocation) Equals(other Value) bool {
	o, ok := other.(*ProgramLocation)
	return ok && o.Program == p.Program && o.Index == p.Index
}
func (p *ProgramLocation) BEquals(other Value, bij *Bijection) bool { return p.Equals(other) }
func (p *ProgramLocation) CEquals(other Value) bool                  { return p.Equals(other) }
func (p *ProgramLocation) CHash() (uint64, error)                     { return p.Hash(), nil }
func (p *ProgramLocation) Print(out io.Writer) {
	fmt.Fprintf(out, "<location %d>", p.Index)
}
