package engine

import (
	"fmt"
	"io"
)

// Reference is a Value that designates a location within a machine
// state (spec §4.2). task is the current task in whose context a
// relative reference (FrameReference, ReturnValueReference,
// ExceptionReference) resolves; absolute variants ignore it.
type Reference interface {
	Value
	Read(task *StackState, m *MachineState) (Value, error)
	Write(task *StackState, m *MachineState, v Value) error
}

func readOnlyWrite(kind string) error {
	return ReferenceErrorf("%s is read-only", kind)
}

// FrameReference addresses slot Index in the current task's top frame
// (spec §4.2). Write grows the frame by one slot when Index equals the
// current number of locals; writing further past the end fails with an
// InstructionException instead of filling the gap.
type FrameReference struct {
	sealable
	Index int
}

func NewFrameReference(index int) *FrameReference { return &FrameReference{Index: index} }

func (r *FrameReference) Read(task *StackState, m *MachineState) (Value, error) {
	f := task.TopFrame()
	if f == nil || r.Index >= len(f.Locals) {
		return nil, ReferenceErrorf("frame slot %d not set", r.Index)
	}
	return f.Locals[r.Index], nil
}

func (r *FrameReference) Write(task *StackState, m *MachineState, v Value) error {
	f := task.TopFrame()
	if f == nil {
		return ReferenceErrorf("no current frame")
	}
	if err := requireUnsealed(&task.sealable, "task"); err != nil {
		return err
	}
	if r.Index == len(f.Locals) {
		f.Locals = append(f.Locals, v)
		return nil
	}
	if r.Index > len(f.Locals) {
		return InstructionErrorf("frame slot %d written before slot %d", r.Index, len(f.Locals))
	}
	f.Locals[r.Index] = v
	return nil
}

func (r *FrameReference) TypeOf(u *Universe) *Type { return u.ObjectType }
func (r *FrameReference) Seal()                    { r.markSealed() }
func (r *FrameReference) CloneUnsealed(clones CloneMap) Value { return r }
func (r *FrameReference) Hash() uint64 { return hashCombine(hashString("frameref"), uint64(r.Index)) }
func (r *FrameReference) Equals(other Value) bool {
	o, ok := other.(*FrameReference)
	return ok && o.Index == r.Index
}
func (r *FrameReference) BEquals(other Value, bij *Bijection) bool { return r.Equals(other) }
func (r *FrameReference) CEquals(other Value) bool                 { return r.Equals(other) }
func (r *FrameReference) CHash() (uint64, error)                    { return r.Hash(), nil }
func (r *FrameReference) Print(out io.Writer)                       { fmt.Fprintf(out, "<frame[%d]>", r.Index) }

// absFrameKey identifies one AbsoluteFrameReference for interning (spec
// invariant 4).
type absFrameKey struct {
	taskID      int
	frameOffset int
	slotIndex   int
}

// AbsoluteFrameReference addresses a specific frame of a specific task
// absolutely, counting frames from the bottom of that task's stack; used
// by the module import preamble to write into a frame it set up before
// handing control to compiled code (spec §4.2, §6 "Module interface").
type AbsoluteFrameReference struct {
	sealable
	key absFrameKey
}

// NewAbsoluteFrameReference returns the canonical, interned reference
// for (taskID, frameOffset, slotIndex).
func NewAbsoluteFrameReference(u *Universe, taskID, frameOffset, slotIndex int) *AbsoluteFrameReference {
	u.mu.Lock()
	defer u.mu.Unlock()
	k := absFrameKey{taskID: taskID, frameOffset: frameOffset, slotIndex: slotIndex}
	if r, ok := u.absFrameInter[k]; ok {
		return r
	}
	r := &AbsoluteFrameReference{key: k}
	r.markSealed()
	u.absFrameInter[k] = r
	return r
}

func (r *AbsoluteFrameReference) targetFrame(m *MachineState) (*Frame, error) {
	t, ok := m.Lookup(r.key.taskID)
	if !ok {
		return nil, ReferenceErrorf("task %d no longer exists", r.key.taskID)
	}
	ss, ok := t.(*StackState)
	if !ok {
		return nil, ReferenceErrorf("task %d is not a stack task", r.key.taskID)
	}
	if r.key.frameOffset < 0 || r.key.frameOffset >= len(ss.Stack) {
		return nil, ReferenceErrorf("frame offset %d out of range", r.key.frameOffset)
	}
	return ss.Stack[r.key.frameOffset], nil
}

func (r *AbsoluteFrameReference) Read(task *StackState, m *MachineState) (Value, error) {
	f, err := r.targetFrame(m)
	if err != nil {
		return nil, err
	}
	if r.key.slotIndex >= len(f.Locals) {
		return nil, ReferenceErrorf("frame slot %d not set", r.key.slotIndex)
	}
	return f.Locals[r.key.slotIndex], nil
}

func (r *AbsoluteFrameReference) Write(task *StackState, m *MachineState, v Value) error {
	f, err := r.targetFrame(m)
	if err != nil {
		return err
	}
	for len(f.Locals) <= r.key.slotIndex {
		f.Locals = append(f.Locals, nil)
	}
	f.Locals[r.key.slotIndex] = v
	return nil
}

func (r *AbsoluteFrameReference) TypeOf(u *Universe) *Type { return u.ObjectType }
func (r *AbsoluteFrameReference) Seal()                    { r.markSealed() }
func (r *AbsoluteFrameReference) CloneUnsealed(clones CloneMap) Value { return r } // interned, invariant 4
func (r *AbsoluteFrameReference) Hash() uint64 {
	return hashCombine(hashString("absframeref"), uint64(r.key.taskID), uint64(r.key.frameOffset), uint64(r.key.slotIndex))
}
func (r *AbsoluteFrameReference) Equals(other Value) bool {
	o, ok := other.(*AbsoluteFrameReference)
	return ok && o.key == r.key
}
func (r *AbsoluteFrameReference) BEquals(other Value, bij *Bijection) bool { return r.Equals(other) }
func (r *AbsoluteFrameReference) CEquals(other Value) bool                 { return r.Equals(other) }
func (r *AbsoluteFrameReference) CHash() (uint64, error)                   { return r.Hash(), nil }
func (r *AbsoluteFrameReference) Print(out io.Writer) {
	fmt.Fprintf(out, "<absframe task=%d frame=%d slot=%d>", r.key.taskID, r.key.frameOffset, r.key.slotIndex)
}

// ReturnValueReference is the singleton reference to the current task's
// return-value slot (spec §4.2).
type ReturnValueReference struct{ sealable }

var theReturnValueReference = &ReturnValueReference{}

func init() { theReturnValueReference.markSealed() }

func ReturnValueRef() *ReturnValueReference { return theReturnValueReference }

func (r *ReturnValueReference) Read(task *StackState, m *MachineState) (Value, error) {
	if task.Returned == nil {
		return nil, ReferenceErrorf("task has no return value yet")
	}
	return task.Returned, nil
}
func (r *ReturnValueReference) Write(task *StackState, m *MachineState, v Value) error {
	if err := requireUnsealed(&task.sealable, "task"); err != nil {
		return err
	}
	task.Returned = v
	return nil
}
func (r *ReturnValueReference) TypeOf(u *Universe) *Type             { return u.ObjectType }
func (r *ReturnValueReference) Seal()                                { r.markSealed() }
func (r *ReturnValueReference) CloneUnsealed(clones CloneMap) Value  { return r }
func (r *ReturnValueReference) Hash() uint64                         { return hashString("returnref") }
func (r *ReturnValueReference) Equals(other Value) bool              { _, ok := other.(*ReturnValueReference); return ok }
func (r *ReturnValueReference) BEquals(other Value, bij *Bijection) bool { return r.Equals(other) }
func (r *ReturnValueReference) CEquals(other Value) bool             { return r.Equals(other) }
func (r *ReturnValueReference) CHash() (uint64, error)                { return r.Hash(), nil }
func (r *ReturnValueReference) Print(out io.Writer)                   { fmt.Fprint(out, "<return-value-ref>") }

// ExceptionReference is the singleton reference to the current task's
// exception slot (spec §4.2).
type ExceptionReference struct{ sealable }

var theExceptionReference = &ExceptionReference{}

func init() { theExceptionReference.markSealed() }

func ExceptionRef() *ExceptionReference { return theExceptionReference }

func (r *ExceptionReference) Read(task *StackState, m *MachineState) (Value, error) {
	if task.Exception == nil {
		return nil, ReferenceErrorf("task has no exception set")
	}
	return task.Exception, nil
}
func (r *ExceptionReference) Write(task *StackState, m *MachineState, v Value) error {
	if err := requireUnsealed(&task.sealable, "task"); err != nil {
		return err
	}
	task.Exception = v
	return nil
}
func (r *ExceptionReference) TypeOf(u *Universe) *Type             { return u.ObjectType }
func (r *ExceptionReference) Seal()                                { r.markSealed() }
func (r *ExceptionReference) CloneUnsealed(clones CloneMap) Value  { return r }
func (r *ExceptionReference) Hash() uint64                         { return hashString("exceptionref") }
func (r *ExceptionReference) Equals(other Value) bool              { _, ok := other.(*ExceptionReference); return ok }
func (r *ExceptionReference) BEquals(other Value, bij *Bijection) bool { return r.Equals(other) }
func (r *ExceptionReference) CEquals(other Value) bool             { return r.Equals(other) }
func (r *ExceptionReference) CHash() (uint64, error)                { return r.Hash(), nil }
func (r *ExceptionReference) Print(out io.Writer)                   { fmt.Fprint(out, "<exception-ref>") }

// FieldReference addresses one field of a compound value by absolute
// offset (spec §4.2).
type FieldReference struct {
	sealable
	Compound *Compound
	Index    int
}

func NewFieldReference(c *Compound, index int) *FieldReference {
	return &FieldReference{Compound: c, Index: index}
}

func (r *FieldReference) Read(task *StackState, m *MachineState) (Value, error) {
	return r.Compound.GetField(r.Index)
}
func (r *FieldReference) Write(task *StackState, m *MachineState, v Value) error {
	return r.Compound.SetField(r.Index, v)
}
func (r *FieldReference) TypeOf(u *Universe) *Type { return u.ObjectType }
func (r *FieldReference) Seal()                    { r.markSealed() }
func (r *FieldReference) CloneUnsealed(clones CloneMap) Value {
	if existing, ok := clones[r]; ok {
		return existing
	}
	clone := &FieldReference{Index: r.Index}
	clones[r] = clone
	clone.Compound = r.Compound.CloneUnsealed(clones).(*Compound)
	return clone
}
func (r *FieldReference) Hash() uint64 {
	return hashCombine(hashString("fieldref"), r.Compound.Hash(), uint64(r.Index))
}
func (r *FieldReference) Equals(other Value) bool {
	o, ok := other.(*FieldReference)
	return ok && o.Compound == r.Compound && o.Index == r.Index
}
func (r *FieldReference) BEquals(other Value, bij *Bijection) bool {
	o, ok := other.(*FieldReference)
	return ok && o.Index == r.Index && r.Compound.BEquals(o.Compound, bij)
}
func (r *FieldReference) CEquals(other Value) bool { return r.Equals(other) }
func (r *FieldReference) CHash() (uint64, error)   { return r.Hash(), nil }
func (r *FieldReference) Print(out io.Writer)      { fmt.Fprintf(out, "<field[%d]>", r.Index) }

// itemContainer is satisfied by every container ItemReference may
// project into.
type itemContainer interface {
	Value
	itemGet(index Value) (Value, error)
	itemSet(index Value, v Value) error
}

func (l *List) itemGet(index Value) (Value, error) {
	i, ok := index.(*VInt)
	if !ok {
		return nil, TypeErrorf("list indices must be integers")
	}
	return l.Get(int(i.Value()))
}
func (l *List) itemSet(index Value, v Value) error {
	i, ok := index.(*VInt)
	if !ok {
		return TypeErrorf("list indices must be integers")
	}
	return l.Set(int(i.Value()), v)
}

func (t *Tuple) itemGet(index Value) (Value, error) {
	i, ok := index.(*VInt)
	if !ok {
		return nil, TypeErrorf("tuple indices must be integers")
	}
	n := int(i.Value())
	if n < 0 || n >= len(t.Elements) {
		return nil, IndexErrorf("tuple index %d out of range", n)
	}
	return t.Elements[n], nil
}
func (t *Tuple) itemSet(index Value, v Value) error { return readOnlyWrite("tuple") }

func (d *Dict) itemGet(index Value) (Value, error) {
	v, found, err := d.Get(index)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, KeyErrorf("key not found")
	}
	return v, nil
}
func (d *Dict) itemSet(index Value, v Value) error { return d.Set(index, v) }

// ItemReference addresses one element of an indexable container by
// position (list/tuple) or key (dict); unsupported containers raise
// TypeError (spec §4.2).
type ItemReference struct {
	sealable
	Container Value
	Index     Value
}

func NewItemReference(container, index Value) *ItemReference {
	return &ItemReference{Container: container, Index: index}
}

func (r *ItemReference) Read(task *StackState, m *MachineState) (Value, error) {
	c, ok := r.Container.(itemContainer)
	if !ok {
		return nil, TypeErrorf("%T does not support item access", r.Container)
	}
	return c.itemGet(r.Index)
}
func (r *ItemReference) Write(task *StackState, m *MachineState, v Value) error {
	c, ok := r.Container.(itemContainer)
	if !ok {
		return TypeErrorf("%T does not support item access", r.Container)
	}
	return c.itemSet(r.Index, v)
}
func (r *ItemReference) TypeOf(u *Universe) *Type { return u.ObjectType }
func (r *ItemReference) Seal()                    { r.markSealed() }
func (r *ItemReference) CloneUnsealed(clones CloneMap) Value {
	if existing, ok := clones[r]; ok {
		return existing
	}
	clone := &ItemReference{}
	clones[r] = clone
	clone.Container = r.Container.CloneUnsealed(clones)
	clone.Index = r.Index.CloneUnsealed(clones)
	return clone
}
func (r *ItemReference) Hash() uint64 {
	return hashCombine(hashString("itemref"), r.Container.Hash(), r.Index.Hash())
}
func (r *ItemReference) Equals(other Value) bool {
	o, ok := other.(*ItemReference)
	return ok && o.Container == r.Container && r.Index.Equals(o.Index)
}
func (r *ItemReference) BEquals(other Value, bij *Bijection) bool {
	o, ok := other.(*ItemReference)
	return ok && r.Container.BEquals(o.Container, bij) && r.Index.BEquals(o.Index, bij)
}
func (r *ItemReference) CEquals(other Value) bool { return r.Equals(other) }
func (r *ItemReference) CHash() (uint64, error)    { return r.Hash(), nil }
func (r *ItemReference) Print(out io.Writer)       { fmt.Fprint(out, "<item-ref>") }

// NameReference indirects through a namespace Dict reached via
// NamespaceRef, looking up Name (spec §4.2, §4.3 "Lookup").
type NameReference struct {
	sealable
	NamespaceRef Reference
	Name         string
}

func NewNameReference(ns Reference, name string) *NameReference {
	return &NameReference{NamespaceRef: ns, Name: name}
}

func (r *NameReference) namespace(task *StackState, m *MachineState) (*Dict, error) {
	v, err := r.NamespaceRef.Read(task, m)
	if err != nil {
		return nil, err
	}
	d, ok := v.(*Dict)
	if !ok {
		return nil, TypeErrorf("namespace reference does not target a dict")
	}
	return d, nil
}

func (r *NameReference) Read(task *StackState, m *MachineState) (Value, error) {
	d, err := r.namespace(task, m)
	if err != nil {
		return nil, err
	}
	v, found, err := d.Get(NewString(r.Name))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, AttributeErrorf("name %q is not defined", r.Name)
	}
	return v, nil
}
func (r *NameReference) Write(task *StackState, m *MachineState, v Value) error {
	d, err := r.namespace(task, m)
	if err != nil {
		return err
	}
	return d.Set(NewString(r.Name), v)
}
func (r *NameReference) TypeOf(u *Universe) *Type { return u.ObjectType }
func (r *NameReference) Seal()                    { r.markSealed() }
func (r *NameReference) CloneUnsealed(clones CloneMap) Value {
	if existing, ok := clones[r]; ok {
		return existing
	}
	clone := &NameReference{Name: r.Name}
	clones[r] = clone
	clone.NamespaceRef = r.NamespaceRef.CloneUnsealed(clones).(Reference)
	return clone
}
func (r *NameReference) Hash() uint64 {
	return hashCombine(hashString("nameref"), r.NamespaceRef.Hash(), hashString(r.Name))
}
func (r *NameReference) Equals(other Value) bool {
	o, ok := other.(*NameReference)
	return ok && o.Name == r.Name && r.NamespaceRef.Equals(o.NamespaceRef)
}
func (r *NameReference) BEquals(other Value, bij *Bijection) bool {
	o, ok := other.(*NameReference)
	return ok && o.Name == r.Name && r.NamespaceRef.BEquals(o.NamespaceRef, bij)
}
func (r *NameReference) CEquals(other Value) bool { return r.Equals(other) }
func (r *NameReference) CHash() (uint64, error)   { return r.Hash(), nil }
func (r *NameReference) Print(out io.Writer)      { fmt.Fprintf(out, "<name %q>", r.Name) }

// CellReference wraps a Reference pointing at a heap Cell; read/write go
// through to the cell's content, letting two procedures that capture the
// same free variable observe each other's writes (spec §4.2).
type CellReference struct {
	sealable
	Inner Reference
}

func NewCellReference(inner Reference) *CellReference { return &CellReference{Inner: inner} }

func (r *CellReference) cell(task *StackState, m *MachineState) (*Cell, error) {
	v, err := r.Inner.Read(task, m)
	if err != nil {
		return nil, err
	}
	c, ok := v.(*Cell)
	if !ok {
		return nil, TypeErrorf("cell reference does not target a cell")
	}
	return c, nil
}

func (r *CellReference) Read(task *StackState, m *MachineState) (Value, error) {
	c, err := r.cell(task, m)
	if err != nil {
		return nil, err
	}
	return c.Get(), nil
}
func (r *CellReference) Write(task *StackState, m *MachineState, v Value) error {
	c, err := r.cell(task, m)
	if err != nil {
		return err
	}
	return c.Set(v)
}
func (r *CellReference) TypeOf(u *Universe) *Type { return u.ObjectType }
func (r *CellReference) Seal()                    { r.markSealed() }
func (r *CellReference) CloneUnsealed(clones CloneMap) Value {
	if existing, ok := clones[r]; ok {
		return existing
	}
	clone := &CellReference{}
	clones[r] = clone
	clone.Inner = r.Inner.CloneUnsealed(clones).(Reference)
	return clone
}
func (r *CellReference) Hash() uint64 { return hashCombine(hashString("cellref"), r.Inner.Hash()) }
func (r *CellReference) Equals(other Value) bool {
	o, ok := other.(*CellReference)
	return ok && r.Inner.Equals(o.Inner)
}
func (r *CellReference) BEquals(other Value, bij *Bijection) bool {
	o, ok := other.(*CellReference)
	return ok && r.Inner.BEquals(o.Inner, bij)
}
func (r *CellReference) CEquals(other Value) bool { return r.Equals(other) }
func (r *CellReference) CHash() (uint64, error)   { return r.Hash(), nil }
func (r *CellReference) Print(out io.Writer)      { fmt.Fprint(out, "<cell-ref>") }

// VRef is a read-only reference whose target is a fixed value; used to
// wrap a constant into the reference interface terms expect, e.g. for
// TRef constants (spec §4.2, §4.3 "TRef").
type VRef struct {
	sealable
	Target Value
}

func NewVRef(v Value) *VRef { return &VRef{Target: v} }

func (r *VRef) Read(task *StackState, m *MachineState) (Value, error) { return r.Target, nil }
func (r *VRef) Write(task *StackState, m *MachineState, v Value) error {
	return readOnlyWrite("VRef")
}
func (r *VRef) TypeOf(u *Universe) *Type { return u.ObjectType }
func (r *VRef) Seal() {
	if r.sealed {
		return
	}
	r.markSealed()
	r.Target.Seal()
}
func (r *VRef) CloneUnsealed(clones CloneMap) Value {
	if existing, ok := clones[r]; ok {
		return existing
	}
	clone := &VRef{}
	clones[r] = clone
	clone.Target = r.Target.CloneUnsealed(clones)
	return clone
}
func (r *VRef) Hash() uint64 { return hashCombine(hashString("vref"), r.Target.Hash()) }
func (r *VRef) Equals(other Value) bool {
	o, ok := other.(*VRef)
	return ok && r.Target.Equals(o.Target)
}
func (r *VRef) BEquals(other Value, bij *Bijection) bool {
	o, ok := other.(*VRef)
	return ok && r.Target.BEquals(o.Target, bij)
}
func (r *VRef) CEquals(other Value) bool { return r.Equals(other) }
func (r *VRef) CHash() (uint64, error)   { return r.Hash(), nil }
func (r *VRef) Print(out io.Writer)      { fmt.Fprint(out, "<vref>") }
