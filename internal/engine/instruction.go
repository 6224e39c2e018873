package engine

// raiseAndRoute wraps err as an Exception into task's exception slot and
// returns the instruction index to jump to — the shared on_error
// handling every instruction kind performs (spec §4.4 "Any evaluation or
// write failure routes to on_error with the exception wrapped in a
// VException").
func raiseAndRoute(u *Universe, task *StackState, err error, onError int) error {
	ve := AsVMError(err)
	if writeErr := task.setException(u.WrapException(ve)); writeErr != nil {
		return writeErr
	}
	return task.jumpTo(onError)
}

// setException writes v into the task's exception slot.
func (s *StackState) setException(v Value) error {
	if err := requireUnsealed(&s.sealable, "task"); err != nil {
		return err
	}
	s.Exception = v
	return nil
}

// jumpTo moves the current (top) frame's program location to index, or
// fails the task outright if index is -1 ("no handler") by emptying its
// stack, so Run's next iteration finishes it with its exception set.
func (s *StackState) jumpTo(index int) error {
	f := s.TopFrame()
	if f == nil {
		return nil // stack already empty (e.g. Pop just ran); Run's next iteration finishes the task
	}
	if index < 0 {
		s.Stack = nil
		return nil
	}
	f.Location = f.Location.At(index)
	return nil
}

// UpdateInstruction evaluates RefTerm and ValueTerm, writes the value
// through the reference, and advances to Next (spec §4.4 "Update").
type UpdateInstruction struct {
	RefTerm, ValueTerm Term
	Next, OnError      int
	U                  *Universe
}

func (i *UpdateInstruction) Enabled(task *StackState, m *MachineState) (bool, error) { return true, nil }

func (i *UpdateInstruction) Execute(task *StackState, m *MachineState) error {
	rv, err := i.RefTerm.Evaluate(i.U, task, m)
	if err != nil {
		return raiseAndRoute(i.U, task, err, i.OnError)
	}
	ref, ok := rv.(Reference)
	if !ok {
		return raiseAndRoute(i.U, task, TypeErrorf("Update target is not a reference"), i.OnError)
	}
	vv, err := i.ValueTerm.Evaluate(i.U, task, m)
	if err != nil {
		return raiseAndRoute(i.U, task, err, i.OnError)
	}
	if err := ref.Write(task, m, vv); err != nil {
		return raiseAndRoute(i.U, task, err, i.OnError)
	}
	return task.jumpTo(i.Next)
}

func (i *UpdateInstruction) ErrorTarget() int { return i.OnError }

// GuardBranch pairs one condition term with the instruction index to
// jump to when it is the (unique) true condition.
type GuardBranch struct {
	Cond Term
	Next int
}

// GuardInstruction evaluates its conditions in order and jumps to the
// branch whose condition is true (spec §4.4 "Guard"). It is enabled when
// at least one condition is true, or when evaluating a condition fails;
// executing it with more than one true condition, or with a failing
// condition, raises and routes to OnError.
type GuardInstruction struct {
	Branches []GuardBranch
	OnError  int
	U        *Universe
}

// evalConditions evaluates every branch condition, returning the
// truthy indices and the first evaluation error encountered (if any).
func (i *GuardInstruction) evalConditions(task *StackState, m *MachineState) ([]int, error) {
	var trueIdx []int
	for idx, b := range i.Branches {
		v, err := b.Cond.Evaluate(i.U, task, m)
		if err != nil {
			return nil, err
		}
		ok, err := truthy(v)
		if err != nil {
			return nil, err
		}
		if ok {
			trueIdx = append(trueIdx, idx)
		}
	}
	return trueIdx, nil
}

func (i *GuardInstruction) Enabled(task *StackState, m *MachineState) (bool, error) {
	trueIdx, err := i.evalConditions(task, m)
	if err != nil {
		return true, nil // the error surfaces when the task is next scheduled, spec §4.4
	}
	return len(trueIdx) >= 1, nil
}

func (i *GuardInstruction) Execute(task *StackState, m *MachineState) error {
	trueIdx, err := i.evalConditions(task, m)
	if err != nil {
		return raiseAndRoute(i.U, task, err, i.OnError)
	}
	if len(trueIdx) > 1 {
		return raiseAndRoute(i.U, task, InstructionErrorf("More than one guard true"), i.OnError)
	}
	if len(trueIdx) == 0 {
		return InstructionErrorf("Guard executed while disabled")
	}
	return task.jumpTo(i.Branches[trueIdx[0]].Next)
}

func (i *GuardInstruction) ErrorTarget() int { return i.OnError }

// PushInstruction evaluates Callee as a Procedure, evaluates Args, and
// calls procedure.Initiate — pushing a new frame for a stack procedure
// or running a host function atomically for an intrinsic one (spec §4.4
// "Push").
type PushInstruction struct {
	Callee        Term
	Args          []Term
	Next, OnError int
	U             *Universe
}

func (i *PushInstruction) Enabled(task *StackState, m *MachineState) (bool, error) { return true, nil }

func (i *PushInstruction) Execute(task *StackState, m *MachineState) error {
	cv, err := i.Callee.Evaluate(i.U, task, m)
	if err != nil {
		return raiseAndRoute(i.U, task, err, i.OnError)
	}
	proc, ok := cv.(Procedure)
	if !ok {
		return raiseAndRoute(i.U, task, TypeErrorf("Push target is not callable"), i.OnError)
	}
	args, err := evalAll(i.U, task, m, i.Args)
	if err != nil {
		return raiseAndRoute(i.U, task, err, i.OnError)
	}
	callerFrame := task.TopFrame()
	if err := proc.Initiate(i.U, task, m, args); err != nil {
		return raiseAndRoute(i.U, task, err, i.OnError)
	}
	if callerFrame != nil {
		callerFrame.Location = callerFrame.Location.At(i.Next)
	}
	return nil
}

func (i *PushInstruction) ErrorTarget() int { return i.OnError }

// PopInstruction pops the current task's top frame (spec §4.4 "Pop").
type PopInstruction struct {
	OnError int
	U       *Universe
}

func (i *PopInstruction) Enabled(task *StackState, m *MachineState) (bool, error) { return true, nil }

func (i *PopInstruction) Execute(task *StackState, m *MachineState) error {
	if _, err := task.PopFrame(); err != nil {
		return raiseAndRoute(i.U, task, err, i.OnError)
	}
	return nil
}

func (i *PopInstruction) ErrorTarget() int { return i.OnError }

// LaunchInstruction is like Push but starts a new task rather than a new
// frame of the current one; the caller's return-value slot receives the
// new task state so it can be awaited (spec §4.4 "Launch").
type LaunchInstruction struct {
	Callee        Term
	Args          []Term
	Next, OnError int
	U             *Universe
}

func (i *LaunchInstruction) Enabled(task *StackState, m *MachineState) (bool, error) {
	return true, nil
}

func (i *LaunchInstruction) Execute(task *StackState, m *MachineState) error {
	cv, err := i.Callee.Evaluate(i.U, task, m)
	if err != nil {
		return raiseAndRoute(i.U, task, err, i.OnError)
	}
	proc, ok := cv.(Procedure)
	if !ok {
		return raiseAndRoute(i.U, task, TypeErrorf("Launch target is not callable"), i.OnError)
	}
	sp, ok := proc.(*StackProcedure)
	if !ok {
		return raiseAndRoute(i.U, task, TypeErrorf("Launch requires a stack procedure"), i.OnError)
	}
	args, err := evalAll(i.U, task, m, i.Args)
	if err != nil {
		return raiseAndRoute(i.U, task, err, i.OnError)
	}
	if len(args) != sp.NumArgs {
		return raiseAndRoute(i.U, task, InstructionErrorf("procedure expects %d arguments, got %d", sp.NumArgs, len(args)), i.OnError)
	}
	locals := make([]Value, 0, len(args)+len(sp.Free))
	locals = append(locals, args...)
	locals = append(locals, sp.Free...)
	newTask, err := m.AddTask(func(id int) Task {
		return NewStackState(id, sp.Entry, locals)
	})
	if err != nil {
		return raiseAndRoute(i.U, task, err, i.OnError)
	}
	if err := task.writeReturn(newTask.(*StackState)); err != nil {
		return raiseAndRoute(i.U, task, err, i.OnError)
	}
	return task.jumpTo(i.Next)
}

func (i *LaunchInstruction) ErrorTarget() int { return i.OnError }
