package engine

import (
	"fmt"
	"io"
)

// Procedure is anything Push/Launch can call (spec §4.10). Initiate
// performs the call's effect: for a stack procedure that means pushing a
// new frame onto task; for an intrinsic procedure it means running a
// host function to completion and placing its result in the task's
// return-value slot. A *VMError returned from Initiate is always a
// catchable Spek-level failure — the calling instruction wraps it into
// the task's exception slot and routes to its on_error continuation,
// mirroring how Term evaluation errors are handled (spec §4.4).
type Procedure interface {
	Value
	Initiate(u *Universe, task *StackState, m *MachineState, args []Value) error
	Arity() int
}

// StackProcedure runs compiled Spek code: a fixed arity plus a vector of
// free values captured at closure-creation time (spec §4.3
// "NewProcedure", §4.10 "StackProcedure").
type StackProcedure struct {
	sealable
	NumArgs int
	Free    []Value
	Entry   *ProgramLocation
}

func NewStackProcedure(numArgs int, free []Value, entry *ProgramLocation) *StackProcedure {
	return &StackProcedure{NumArgs: numArgs, Free: free, Entry: entry}
}

func (p *StackProcedure) Arity() int { return p.NumArgs }

func (p *StackProcedure) Initiate(u *Universe, task *StackState, m *MachineState, args []Value) error {
	if len(args) != p.NumArgs {
		return InstructionErrorf("procedure expects %d arguments, got %d", p.NumArgs, len(args))
	}
	locals := make([]Value, 0, len(args)+len(p.Free))
	locals = append(locals, args...)
	locals = append(locals, p.Free...)
	return task.PushFrame(NewFrame(p.Entry, locals))
}

func (p *StackProcedure) TypeOf(u *Universe) *Type { return u.ProcedureType }
func (p *StackProcedure) Seal() {
	if p.sealed {
		return
	}
	p.markSealed()
	for _, f := range p.Free {
		f.Seal()
	}
}
func (p *StackProcedure) CloneUnsealed(clones CloneMap) Value {
	if existing, ok := clones[p]; ok {
		return existing
	}
	clone := &StackProcedure{NumArgs: p.NumArgs, Entry: p.Entry, Free: make([]Value, len(p.Free))}
	clones[p] = clone
	for i, f := range p.Free {
		clone.Free[i] = f.CloneUnsealed(clones)
	}
	return clone
}
func (p *StackProcedure) Hash() uint64 {
	parts := []uint64{hashString("stackproc"), p.Entry.Hash(), uint64(p.NumArgs)}
	for _, f := range p.Free {
		parts = append(parts, f.Hash())
	}
	return hashCombine(parts...)
}
func (p *StackProcedure) Equals(other Value) bool { return other == Value(p) }
func (p *StackProcedure) BEquals(other Value, bij *Bijection) bool {
	o, ok := other.(*StackProcedure)
	if !ok || o.NumArgs != p.NumArgs || !o.Entry.Equals(p.Entry) || len(o.Free) != len(p.Free) {
		return false
	}
	if !bij.Extend(p, o) {
		return false
	}
	for i := range p.Free {
		if !p.Free[i].BEquals(o.Free[i], bij) {
			return false
		}
	}
	return true
}
func (p *StackProcedure) CEquals(other Value) bool { return p.Equals(other) }
func (p *StackProcedure) CHash() (uint64, error)   { return 0, RuntimeErrorf("unhashable type: procedure") }
func (p *StackProcedure) Print(out io.Writer)      { fmt.Fprintf(out, "<procedure/%d>", p.NumArgs) }

// IntrinsicProcedure wraps a host-language (Go) function as a Spek
// callable, used to expose builtins (isinstance, interaction symbols,
// stdlib functions) without compiling a stack program for them (spec
// §4.10 "IntrinsicProcedure").
type IntrinsicProcedure struct {
	sealable
	Name  string
	arity int
	fn    func(u *Universe, args []Value) (Value, error)
}

// NewIntrinsicProcedure builds an IntrinsicProcedure. arity is
// informational only (reported by Arity; Initiate does not check it); fn is
// run to completion atomically on Initiate.
func NewIntrinsicProcedure(name string, arity int, fn func(u *Universe, args []Value) (Value, error)) *IntrinsicProcedure {
	p := &IntrinsicProcedure{Name: name, arity: arity, fn: fn}
	p.markSealed() // intrinsics are part of the static builtin surface
	return p
}

func (p *IntrinsicProcedure) Arity() int { return p.arity }

func (p *IntrinsicProcedure) Initiate(u *Universe, task *StackState, m *MachineState, args []Value) error {
	result, err := p.fn(u, args)
	if err != nil {
		return err
	}
	return task.writeReturn(result)
}

func (p *IntrinsicProcedure) TypeOf(u *Universe) *Type { return u.ProcedureType }
func (p *IntrinsicProcedure) Seal()                    { p.markSealed() }
func (p *IntrinsicProcedure) CloneUnsealed(clones CloneMap) Value { return p } // shared builtin, never cloned
func (p *IntrinsicProcedure) Hash() uint64 { return hashCombine(hashString("intrinsicproc"), hashString(p.Name)) }
func (p *IntrinsicProcedure) Equals(other Value) bool {
	o, ok := other.(*IntrinsicProcedure)
	return ok && o == p
}
func (p *IntrinsicProcedure) BEquals(other Value, bij *Bijection) bool { return p.Equals(other) }
func (p *IntrinsicProcedure) CEquals(other Value) bool                 { return p.Equals(other) }
func (p *IntrinsicProcedure) CHash() (uint64, error)                   { return p.Hash(), nil }
func (p *IntrinsicProcedure) Print(out io.Writer)                      { fmt.Fprintf(out, "<intrinsic %s>", p.Name) }

// BoundProcedure prepends Fixed to every call's arguments; a none-hole
// in Fixed is filled positionally by the next caller-supplied argument
// instead of being passed through, giving partial application (spec
// §4.10 "BoundProcedure"). Binding `self` into a method (LoadAttrCase)
// is the degenerate case with no holes.
type BoundProcedure struct {
	sealable
	Inner Procedure
	Fixed []Value
}

func NewBoundProcedure(inner Procedure, fixed ...Value) *BoundProcedure {
	return &BoundProcedure{Inner: inner, Fixed: fixed}
}

func (p *BoundProcedure) Arity() int { return p.Inner.Arity() - len(p.Fixed) + holeCount(p.Fixed) }

func holeCount(fixed []Value) int {
	n := 0
	for _, f := range fixed {
		if _, ok := f.(*VNone); ok {
			n++
		}
	}
	return n
}

func (p *BoundProcedure) Initiate(u *Universe, task *StackState, m *MachineState, callerArgs []Value) error {
	combined := make([]Value, len(p.Fixed))
	ci := 0
	for i, f := range p.Fixed {
		if _, isHole := f.(*VNone); isHole {
			if ci >= len(callerArgs) {
				return InstructionErrorf("not enough arguments to fill bound procedure holes")
			}
			combined[i] = callerArgs[ci]
			ci++
		} else {
			combined[i] = f
		}
	}
	combined = append(combined, callerArgs[ci:]...)
	return p.Inner.Initiate(u, task, m, combined)
}

func (p *BoundProcedure) TypeOf(u *Universe) *Type { return u.ProcedureType }
func (p *BoundProcedure) Seal() {
	if p.sealed {
		return
	}
	p.markSealed()
	p.Inner.Seal()
	for _, f := range p.Fixed {
		f.Seal()
	}
}
func (p *BoundProcedure) CloneUnsealed(clones CloneMap) Value {
	if existing, ok := clones[p]; ok {
		return existing
	}
	clone := &BoundProcedure{Fixed: make([]Value, len(p.Fixed))}
	clones[p] = clone
	clone.Inner = p.Inner.CloneUnsealed(clones).(Procedure)
	for i, f := range p.Fixed {
		clone.Fixed[i] = f.CloneUnsealed(clones)
	}
	return clone
}
func (p *BoundProcedure) Hash() uint64 {
	parts := []uint64{hashString("boundproc"), p.Inner.Hash()}
	for _, f := range p.Fixed {
		parts = append(parts, f.Hash())
	}
	return hashCombine(parts...)
}
func (p *BoundProcedure) Equals(other Value) bool { return other == Value(p) }
func (p *BoundProcedure) BEquals(other Value, bij *Bijection) bool {
	o, ok := other.(*BoundProcedure)
	if !ok || len(o.Fixed) != len(p.Fixed) {
		return false
	}
	if !bij.Extend(p, o) {
		return false
	}
	if !p.Inner.BEquals(o.Inner, bij) {
		return false
	}
	for i := range p.Fixed {
		if !p.Fixed[i].BEquals(o.Fixed[i], bij) {
			return false
		}
	}
	return true
}
func (p *BoundProcedure) CEquals(other Value) bool { return p.Equals(other) }
func (p *BoundProcedure) CHash() (uint64, error)   { return 0, RuntimeErrorf("unhashable type: procedure") }
func (p *BoundProcedure) Print(out io.Writer)      { fmt.Fprint(out, "<bound procedure>") }

// ConstructorProcedure is the shim Callable(type) synthesises (spec
// §4.3 "Callable ... for a type, synthesises a shim procedure that
// allocates and calls __init__"). Allocation is pure (NewCompound);
// invoking __init__, if the class defines one, is not, so it is issued
// as an ordinary nested call through BoundProcedure rather than run
// inline here.
type ConstructorProcedure struct {
	sealable
	Class *Type
}

func NewConstructorProcedure(t *Type) *ConstructorProcedure {
	p := &ConstructorProcedure{Class: t}
	p.markSealed()
	return p
}

func (p *ConstructorProcedure) Arity() int {
	if init, ok := p.Class.Lookup("__init__"); ok {
		if proc, ok := init.(Procedure); ok {
			return proc.Arity() - 1 // self is supplied by the shim, not the caller
		}
	}
	return 0
}

func (p *ConstructorProcedure) Initiate(u *Universe, task *StackState, m *MachineState, args []Value) error {
	instance := NewCompound(u, p.Class)
	init, ok := p.Class.Lookup("__init__")
	if !ok {
		return task.writeReturn(instance)
	}
	proc, ok := init.(Procedure)
	if !ok {
		return task.writeReturn(instance)
	}
	// instance is written to the task's return-value slot before
	// __init__'s frame is pushed, so once __init__ returns the slot holds
	// instance unless __init__ itself writes to it.
	if err := task.writeReturn(instance); err != nil {
		return err
	}
	return NewBoundProcedure(proc, instance).Initiate(u, task, m, args)
}

func (p *ConstructorProcedure) TypeOf(u *Universe) *Type { return u.ProcedureType }
func (p *ConstructorProcedure) Seal()                    { p.markSealed() }
func (p *ConstructorProcedure) CloneUnsealed(clones CloneMap) Value { return p }
func (p *ConstructorProcedure) Hash() uint64 {
	return hashCombine(hashString("ctorproc"), hashString(p.Class.Name))
}
func (p *ConstructorProcedure) Equals(other Value) bool {
	o, ok := other.(*ConstructorProcedure)
	return ok && o.Class == p.Class
}
func (p *ConstructorProcedure) BEquals(other Value, bij *Bijection) bool { return p.Equals(other) }
func (p *ConstructorProcedure) CEquals(other Value) bool                 { return p.Equals(other) }
func (p *ConstructorProcedure) CHash() (uint64, error)                    { return p.Hash(), nil }
func (p *ConstructorProcedure) Print(out io.Writer) {
	fmt.Fprintf(out, "<constructor %s>", p.Class.Name)
}

// Property is a getter (and optional setter) pair installed as a class
// member (spec §3.1 "Property", §4.3 "NewProperty").
type Property struct {
	sealable
	Getter Procedure
	Setter Procedure // nil if read-only
}

func NewProperty(getter, setter Procedure) *Property {
	return &Property{Getter: getter, Setter: setter}
}

func (p *Property) TypeOf(u *Universe) *Type { return u.PropertyType }
func (p *Property) Seal() {
	if p.sealed {
		return
	}
	p.markSealed()
	p.Getter.Seal()
	if p.Setter != nil {
		p.Setter.Seal()
	}
}
func (p *Property) CloneUnsealed(clones CloneMap) Value {
	if existing, ok := clones[p]; ok {
		return existing
	}
	clone := &Property{}
	clones[p] = clone
	clone.Getter = p.Getter.CloneUnsealed(clones).(Procedure)
	if p.Setter != nil {
		clone.Setter = p.Setter.CloneUnsealed(clones).(Procedure)
	}
	return clone
}
func (p *Property) Hash() uint64 {
	h := hashCombine(hashString("property"), p.Getter.Hash())
	if p.Setter != nil {
		h = hashCombine(h, p.Setter.Hash())
	}
	return h
}
func (p *Property) Equals(other Value) bool { return other == Value(p) }
func (p *Property) BEquals(other Value, bij *Bijection) bool {
	o, ok := other.(*Property)
	if !ok {
		return false
	}
	if !bij.Extend(p, o) {
		return false
	}
	if !p.Getter.BEquals(o.Getter, bij) {
		return false
	}
	if (p.Setter == nil) != (o.Setter == nil) {
		return false
	}
	if p.Setter != nil && !p.Setter.BEquals(o.Setter, bij) {
		return false
	}
	return true
}
func (p *Property) CEquals(other Value) bool { return p.Equals(other) }
func (p *Property) CHash() (uint64, error)   { return 0, RuntimeErrorf("unhashable type: property") }
func (p *Property) Print(out io.Writer)      { fmt.Fprint(out, "<property>") }
