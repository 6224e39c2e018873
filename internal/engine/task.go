package engine

import (
	"fmt"
	"io"
)

// Frame is one activation record: a program location plus a local
// variable vector (spec §3.1 "Frames", glossary "Frame"). Per spec
// invariant 6, Locals may be resized only by the frame's owning task and
// only while that task is unsealed; FrameReference.Write enforces this
// by checking that the task is unsealed before it changes Locals.
type Frame struct {
	Location *ProgramLocation
	Locals   []Value
}

func NewFrame(loc *ProgramLocation, locals []Value) *Frame {
	return &Frame{Location: loc, Locals: locals}
}

func (f *Frame) cloneUnsealed(clones CloneMap) *Frame {
	locals := make([]Value, len(f.Locals))
	for i, v := range f.Locals {
		locals[i] = v.CloneUnsealed(clones)
	}
	return &Frame{Location: f.Location, Locals: locals}
}

func (f *Frame) hash() uint64 {
	parts := []uint64{f.Location.Hash()}
	for _, v := range f.Locals {
		parts = append(parts, v.Hash())
	}
	return hashCombine(parts...)
}

func (f *Frame) bequals(o *Frame, bij *Bijection) bool {
	if !f.Location.Equals(o.Location) || len(f.Locals) != len(o.Locals) {
		return false
	}
	for i := range f.Locals {
		if !f.Locals[i].BEquals(o.Locals[i], bij) {
			return false
		}
	}
	return true
}

// Task is the common contract StackState and InteractionState satisfy,
// letting the scheduler, explorer and machine state treat both
// uniformly (spec §3.1 "Task states", §4.5, §4.9 Glossary "Task").
type Task interface {
	Value
	TaskID() int
	GetStatus() Status
	// Rank orders tasks for schedule_nonzeno (spec §4.7): internal
	// actions outrank interactions so internal nondeterminism is
	// resolved before externally observable choices are offered.
	Rank() int
	// Enabled reports whether this task may be scheduled in m, without
	// mutating either the task or m.
	Enabled(m *MachineState) (bool, error)
	// Run executes one scheduler tick's worth of this task's burst
	// (spec §4.5 "run"), mutating the task (and, via Launch, m) in
	// place until the task yields.
	Run(u *Universe, m *MachineState) error
	// Cancel marks the task cancelled (spec §5 "Cancellation").
	Cancel(u *Universe) error
}

// StackState is a stack-executing task (spec §3.1, §4.5).
type StackState struct {
	sealable
	id        int
	status    Status
	Stack     []*Frame
	Exception Value
	Returned  Value
}

func NewStackState(id int, entry *ProgramLocation, args []Value) *StackState {
	return &StackState{
		id:        id,
		status:    StatusWaiting,
		Stack:     []*Frame{NewFrame(entry, args)},
		Exception: nil,
		Returned:  nil,
	}
}

func (s *StackState) TaskID() int        { return s.id }
func (s *StackState) GetStatus() Status  { return s.status }
func (s *StackState) Rank() int          { return 1 }

// TopFrame returns the currently executing frame, or nil if the stack is
// empty (the task has completed).
func (s *StackState) TopFrame() *Frame {
	if len(s.Stack) == 0 {
		return nil
	}
	return s.Stack[len(s.Stack)-1]
}

func (s *StackState) PushFrame(f *Frame) error {
	if err := requireUnsealed(&s.sealable, "task"); err != nil {
		return err
	}
	s.Stack = append(s.Stack, f)
	return nil
}

// PopFrame removes and returns the top frame.
func (s *StackState) PopFrame() (*Frame, error) {
	if err := requireUnsealed(&s.sealable, "task"); err != nil {
		return nil, err
	}
	if len(s.Stack) == 0 {
		return nil, InstructionErrorf("pop on an empty task stack")
	}
	top := s.Stack[len(s.Stack)-1]
	s.Stack = s.Stack[:len(s.Stack)-1]
	return top, nil
}

// EnsureLocal grows the top frame's local vector so slot index is valid,
// filling new slots with none (spec §4.2 "FrameReference ... grows the
// frame if needed", invariant 6).
func (s *StackState) EnsureLocal(u *Universe, index int) error {
	if err := requireUnsealed(&s.sealable, "task"); err != nil {
		return err
	}
	f := s.TopFrame()
	if f == nil {
		return ReferenceErrorf("no current frame")
	}
	for len(f.Locals) <= index {
		f.Locals = append(f.Locals, u.None)
	}
	return nil
}

// writeReturn sets the task's return-value slot, used by intrinsic and
// constructor procedures that complete synchronously rather than by
// pushing a frame.
func (s *StackState) writeReturn(v Value) error {
	if err := requireUnsealed(&s.sealable, "task"); err != nil {
		return err
	}
	s.Returned = v
	return nil
}

func (s *StackState) Enabled(m *MachineState) (bool, error) {
	f := s.TopFrame()
	if f == nil {
		return false, nil
	}
	if exc, ok := s.Exception.(*Exception); ok && exc.Initial() {
		return true, nil // cancellation preempts any instruction, spec §4.4
	}
	instr, ok := f.Location.Current()
	if !ok {
		return false, InstructionErrorf("program counter out of range")
	}
	return instr.Enabled(s, m)
}

// Run executes this task's burst: repeatedly step its current
// instruction while it remains enabled, then mark it WAITING,
// COMPLETED, FAILED or leave it CANCELLED (spec §4.5 "run").
func (s *StackState) Run(u *Universe, m *MachineState) error {
	s.status = StatusRunning
	for {
		f := s.TopFrame()
		if f == nil {
			s.finish()
			m.removeTask(s.id)
			return nil
		}
		instr, ok := f.Location.Current()
		if !ok {
			return InstructionErrorf("program counter out of range")
		}
		if exc, ok := s.Exception.(*Exception); ok && exc.Initial() {
			s.Exception = exc.Downgrade()
			target := instr.ErrorTarget()
			if target < 0 {
				s.status = StatusFailed
				m.removeTask(s.id)
				return nil
			}
			f.Location = f.Location.At(target)
			continue
		}
		enabled, err := instr.Enabled(s, m)
		if err != nil {
			return err
		}
		if !enabled {
			s.status = StatusWaiting
			return nil
		}
		if err := instr.Execute(s, m); err != nil {
			return err
		}
	}
}

func (s *StackState) finish() {
	if s.status == StatusCancelled {
		return // cancellation is sticky: it is the outcome observers should see, spec I5
	}
	if _, failed := s.Exception.(*Exception); failed {
		s.status = StatusFailed
		return
	}
	s.status = StatusCompleted
}

// Cancel marks the task cancelled and plants an initial CancellationError
// (spec §5). The task keeps running afterwards — every instruction it
// subsequently executes observes the marker and routes to its on_error
// continuation (spec I5) — but its final Status stays CANCELLED rather
// than being overwritten by the ordinary COMPLETED/FAILED outcome; this
// is the Open Question decision recorded in DESIGN.md.
func (s *StackState) Cancel(u *Universe) error {
	switch s.status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return nil
	}
	s.status = StatusCancelled
	s.Exception = u.WrapException(CancellationErrorValue(true))
	return nil
}

func (s *StackState) TypeOf(u *Universe) *Type { return u.TaskType }
func (s *StackState) Seal() {
	if s.sealed {
		return
	}
	s.markSealed()
	for _, f := range s.Stack {
		for _, v := range f.Locals {
			v.Seal()
		}
	}
	if s.Exception != nil {
		s.Exception.Seal()
	}
	if s.Returned != nil {
		s.Returned.Seal()
	}
}
func (s *StackState) CloneUnsealed(clones CloneMap) Value {
	if existing, ok := clones[s]; ok {
		return existing
	}
	clone := &StackState{id: s.id, status: s.status}
	clones[s] = clone
	clone.Stack = make([]*Frame, len(s.Stack))
	for i, f := range s.Stack {
		clone.Stack[i] = f.cloneUnsealed(clones)
	}
	if s.Exception != nil {
		clone.Exception = s.Exception.CloneUnsealed(clones)
	}
	if s.Returned != nil {
		clone.Returned = s.Returned.CloneUnsealed(clones)
	}
	return clone
}
func (s *StackState) Hash() uint64 {
	parts := []uint64{hashString("stacktask"), uint64(s.status)}
	for _, f := range s.Stack {
		parts = append(parts, f.hash())
	}
	return hashCombine(parts...)
}
func (s *StackState) Equals(other Value) bool { return other == Value(s) }
func (s *StackState) BEquals(other Value, bij *Bijection) bool {
	o, ok := other.(*StackState)
	if !ok || o.status != s.status || len(o.Stack) != len(s.Stack) {
		return false
	}
	if !bij.Extend(s, o) {
		return false
	}
	for i := range s.Stack {
		if !s.Stack[i].bequals(o.Stack[i], bij) {
			return false
		}
	}
	if (s.Exception == nil) != (o.Exception == nil) {
		return false
	}
	if s.Exception != nil && !s.Exception.BEquals(o.Exception, bij) {
		return false
	}
	return true
}
func (s *StackState) CEquals(other Value) bool { return s.Equals(other) }
func (s *StackState) CHash() (uint64, error)    { return 0, RuntimeErrorf("unhashable type: task") }
func (s *StackState) Print(out io.Writer)       { fmt.Fprintf(out, "<task %d %s>", s.id, s.status) }

// InteractionState models an externally-triggered event (spec §4.5
// "InteractionState", §6 "Interaction symbol set"). It is initially
// WAITING; once scheduled it completes itself and is immediately
// replaced in the machine by a fresh WAITING copy with the same symbol,
// so the environment can issue the same interaction repeatedly.
// Cancellation is not permitted.
type InteractionState struct {
	sealable
	id     int
	Symbol InteractionSymbol
	status Status
}

func NewInteractionState(id int, symbol InteractionSymbol) *InteractionState {
	return &InteractionState{id: id, Symbol: symbol, status: StatusWaiting}
}

func (s *InteractionState) TaskID() int       { return s.id }
func (s *InteractionState) GetStatus() Status { return s.status }
func (s *InteractionState) Rank() int         { return 0 }

func (s *InteractionState) Enabled(m *MachineState) (bool, error) {
	return s.Symbol != SymbolNever, nil
}

// Run completes this interaction and replaces it in m with a fresh
// WAITING copy sharing the same symbol (spec §4.5).
func (s *InteractionState) Run(u *Universe, m *MachineState) error {
	s.status = StatusCompleted
	fresh := NewInteractionState(s.id, s.Symbol)
	m.replaceTask(s.id, fresh)
	return nil
}

func (s *InteractionState) Cancel(u *Universe) error {
	return InstructionErrorf("interaction tasks cannot be cancelled")
}

func (s *InteractionState) TypeOf(u *Universe) *Type { return u.TaskType }
func (s *InteractionState) Seal() {
	if s.sealed {
		return
	}
	s.markSealed()
}
func (s *InteractionState) CloneUnsealed(clones CloneMap) Value {
	if existing, ok := clones[s]; ok {
		return existing
	}
	clone := &InteractionState{id: s.id, Symbol: s.Symbol, status: s.status}
	clones[s] = clone
	return clone
}
func (s *InteractionState) Hash() uint64 {
	return hashCombine(hashString("interaction"), hashString(string(s.Symbol)), uint64(s.status))
}
func (s *InteractionState) Equals(other Value) bool { return other == Value(s) }
func (s *InteractionState) BEquals(other Value, bij *Bijection) bool {
	o, ok := other.(*InteractionState)
	if !ok || o.Symbol != s.Symbol || o.status != s.status {
		return false
	}
	return bij.Extend(s, o)
}
func (s *InteractionState) CEquals(other Value) bool { return s.Equals(other) }
func (s *InteractionState) CHash() (uint64, error) {
	return 0, RuntimeErrorf("unhashable type: task")
}
func (s *InteractionState) Print(out io.Writer) {
	fmt.Fprintf(out, "<interaction %s %s>", s.Symbol, s.status)
}
