package engine

import "math"

// Term is a pure, side-effect-free expression (spec §4.3). Evaluating a
// term never mutates task or m and never suspends; failure is always
// returned as a Go error wrapping a *VMError, for the enclosing
// instruction to route to its on_error continuation.
type Term interface {
	Evaluate(u *Universe, task *StackState, m *MachineState) (Value, error)
}

// --- constants -------------------------------------------------------

// ConstTerm wraps a fixed Value produced at compile time (CInt, CFloat,
// CBool, CNone, CString, CType all collapse to this one Go shape — the
// distinction is purely which Value each packs).
type ConstTerm struct{ V Value }

func CInt(v int64) ConstTerm    { return ConstTerm{NewInt(v)} }
func CFloat(v float64) ConstTerm { return ConstTerm{NewFloat(v)} }
func CBool(u *Universe, v bool) ConstTerm { return ConstTerm{BoolOf(u, v)} }
func CNone(u *Universe) ConstTerm { return ConstTerm{u.None} }
func CString(v string) ConstTerm { return ConstTerm{NewString(v)} }
func CType(t *Type) ConstTerm    { return ConstTerm{t} }

// TRef is the constant-reference term: a fixed Reference value baked
// into the program at compile time (spec §4.3).
func TRef(ref Reference) ConstTerm { return ConstTerm{ref} }

func (t ConstTerm) Evaluate(u *Universe, task *StackState, m *MachineState) (Value, error) {
	return t.V, nil
}

// --- reference-shaped terms -------------------------------------------

// ReadTerm dereferences RefTerm, which must evaluate to a Reference
// (spec §4.3 "Read").
type ReadTerm struct{ RefTerm Term }

func (t *ReadTerm) Evaluate(u *Universe, task *StackState, m *MachineState) (Value, error) {
	v, err := t.RefTerm.Evaluate(u, task, m)
	if err != nil {
		return nil, err
	}
	ref, ok := v.(Reference)
	if !ok {
		return nil, TypeErrorf("Read requires a reference")
	}
	return ref.Read(task, m)
}

// ProjectTerm is typed tuple projection (spec §4.3 "Project").
type ProjectTerm struct{ TupleTerm, IndexTerm Term }

func (t *ProjectTerm) Evaluate(u *Universe, task *StackState, m *MachineState) (Value, error) {
	tv, err := t.TupleTerm.Evaluate(u, task, m)
	if err != nil {
		return nil, err
	}
	tup, ok := tv.(*Tuple)
	if !ok {
		return nil, TypeErrorf("Project requires a tuple")
	}
	iv, err := t.IndexTerm.Evaluate(u, task, m)
	if err != nil {
		return nil, err
	}
	idx, ok := iv.(*VInt)
	if !ok {
		return nil, TypeErrorf("Project index must be an int")
	}
	n := int(idx.Value())
	if n < 0 || n >= len(tup.Elements) {
		return nil, IndexErrorf("tuple index %d out of range", n)
	}
	return tup.Elements[n], nil
}

// LookupTerm constructs a NameReference into the namespace NsRefTerm
// evaluates to, for name NameTerm evaluates to (spec §4.3 "Lookup").
type LookupTerm struct{ NsRefTerm, NameTerm Term }

func (t *LookupTerm) Evaluate(u *Universe, task *StackState, m *MachineState) (Value, error) {
	nsv, err := t.NsRefTerm.Evaluate(u, task, m)
	if err != nil {
		return nil, err
	}
	nsRef, ok := nsv.(Reference)
	if !ok {
		return nil, TypeErrorf("Lookup requires a namespace reference")
	}
	namev, err := t.NameTerm.Evaluate(u, task, m)
	if err != nil {
		return nil, err
	}
	name, ok := namev.(*VStr)
	if !ok {
		return nil, TypeErrorf("Lookup name must be a string")
	}
	return NewNameReference(nsRef, name.Value()), nil
}

// LoadAttrCase is the attribute-lookup operator (spec §4.3
// "LoadAttrCase"). It evaluates to a Tuple(isPropertyGetter bool, value);
// for a property it binds self into the getter by returning a
// BoundProcedure over the getter with self as its fixed first argument.
type LoadAttrCase struct {
	ValueTerm Term
	Name      string
}

func (t *LoadAttrCase) Evaluate(u *Universe, task *StackState, m *MachineState) (Value, error) {
	v, err := t.ValueTerm.Evaluate(u, task, m)
	if err != nil {
		return nil, err
	}
	typ := v.TypeOf(u)
	member, ok := typ.Lookup(t.Name)
	if !ok {
		return nil, AttributeErrorf("%s has no attribute %q", typ.Name, t.Name)
	}
	switch mv := member.(type) {
	case int:
		c, ok := v.(*Compound)
		if !ok {
			if exc, ok := v.(*Exception); ok {
				c = exc.Compound
			} else {
				return nil, TypeErrorf("%s has no field storage", typ.Name)
			}
		}
		fv, err := c.GetField(mv)
		if err != nil {
			return nil, err
		}
		return NewTuple(u.False, fv), nil
	case *Property:
		bound := NewBoundProcedure(mv.Getter, v)
		return NewTuple(u.True, Value(bound)), nil
	case Procedure:
		bound := NewBoundProcedure(mv, v)
		return NewTuple(u.False, Value(bound)), nil
	default:
		return nil, AttributeErrorf("%s member %q has an unsupported shape", typ.Name, t.Name)
	}
}

// StoreAttrCase is the dual of LoadAttrCase (spec §4.3 "StoreAttrCase"):
// it evaluates to either a writable Reference, a setter Procedure
// (expected to be called with the new value), or a pre-constructed
// Exception describing why storing is impossible.
type StoreAttrCase struct {
	ValueTerm Term
	Name      string
}

func (t *StoreAttrCase) Evaluate(u *Universe, task *StackState, m *MachineState) (Value, error) {
	v, err := t.ValueTerm.Evaluate(u, task, m)
	if err != nil {
		return nil, err
	}
	typ := v.TypeOf(u)
	member, ok := typ.Lookup(t.Name)
	if !ok {
		return u.WrapException(AttributeErrorf("%s has no attribute %q", typ.Name, t.Name)), nil
	}
	switch mv := member.(type) {
	case int:
		c, ok := v.(*Compound)
		if !ok {
			if exc, ok := v.(*Exception); ok {
				c = exc.Compound
			} else {
				return u.WrapException(TypeErrorf("%s has no field storage", typ.Name)), nil
			}
		}
		return NewFieldReference(c, mv), nil
	case *Property:
		if mv.Setter == nil {
			return u.WrapException(AttributeErrorf("%s attribute %q has no setter", typ.Name, t.Name)), nil
		}
		return NewBoundProcedure(mv.Setter, v), nil
	default:
		return u.WrapException(AttributeErrorf("%s attribute %q is not writable", typ.Name, t.Name)), nil
	}
}

// --- operators ---------------------------------------------------------

type UnaryOp string

const (
	OpNot    UnaryOp = "NOT"
	OpInvert UnaryOp = "INVERT"
	OpNeg    UnaryOp = "MINUS"
)

type UnaryOperation struct {
	Op      UnaryOp
	Operand Term
}

func (t *UnaryOperation) Evaluate(u *Universe, task *StackState, m *MachineState) (Value, error) {
	v, err := t.Operand.Evaluate(u, task, m)
	if err != nil {
		return nil, err
	}
	switch t.Op {
	case OpNot:
		b, err := truthy(v)
		if err != nil {
			return nil, err
		}
		return BoolOf(u, !b), nil
	case OpInvert:
		i, ok := v.(*VInt)
		if !ok {
			return nil, TypeErrorf("INVERT requires an int")
		}
		return NewInt(^i.Value()), nil
	case OpNeg:
		switch n := v.(type) {
		case *VInt:
			return NewInt(-n.Value()), nil
		case *VFloat:
			return NewFloat(-n.Value()), nil
		}
		return nil, TypeErrorf("MINUS requires a number")
	}
	return nil, InstructionErrorf("unknown unary operator %q", t.Op)
}

func truthy(v Value) (bool, error) {
	switch b := v.(type) {
	case *VBool:
		return b.Value(), nil
	case *VNone:
		return false, nil
	case *VInt:
		return b.Value() != 0, nil
	case *VFloat:
		return b.Value() != 0, nil
	case *VStr:
		return b.Value() != "", nil
	}
	return true, nil
}

type ArithOp string

const (
	OpAdd      ArithOp = "+"
	OpSub      ArithOp = "-"
	OpMul      ArithOp = "*"
	OpDiv      ArithOp = "/"
	OpFloorDiv ArithOp = "//"
	OpMod      ArithOp = "%"
	OpPow      ArithOp = "**"
)

type ArithmeticBinaryOperation struct {
	Op          ArithOp
	Left, Right Term
}

func (t *ArithmeticBinaryOperation) Evaluate(u *Universe, task *StackState, m *MachineState) (Value, error) {
	lv, err := t.Left.Evaluate(u, task, m)
	if err != nil {
		return nil, err
	}
	rv, err := t.Right.Evaluate(u, task, m)
	if err != nil {
		return nil, err
	}
	li, lIsInt := lv.(*VInt)
	ri, rIsInt := rv.(*VInt)
	if lIsInt && rIsInt && t.Op != OpDiv {
		return intArith(t.Op, li.Value(), ri.Value())
	}
	lf, lok := asFloat(lv)
	rf, rok := asFloat(rv)
	if !lok || !rok {
		return nil, TypeErrorf("unsupported operand types for %s", t.Op)
	}
	return floatArith(t.Op, lf, rf)
}

func asFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case *VInt:
		return float64(n.Value()), true
	case *VFloat:
		return n.Value(), true
	case *VBool:
		return float64(boolAsInt(n.Value())), true
	}
	return 0, false
}

func intArith(op ArithOp, l, r int64) (Value, error) {
	switch op {
	case OpAdd:
		return NewInt(l + r), nil
	case OpSub:
		return NewInt(l - r), nil
	case OpMul:
		return NewInt(l * r), nil
	case OpFloorDiv:
		if r == 0 {
			return nil, RuntimeErrorf("integer division by zero")
		}
		return NewInt(floorDiv(l, r)), nil
	case OpMod:
		if r == 0 {
			return nil, RuntimeErrorf("integer modulo by zero")
		}
		return NewInt(l - floorDiv(l, r)*r), nil
	case OpPow:
		return NewInt(int64(math.Pow(float64(l), float64(r)))), nil
	}
	return nil, InstructionErrorf("unknown arithmetic operator %q", op)
}

func floorDiv(l, r int64) int64 {
	q := l / r
	if (l%r != 0) && ((l < 0) != (r < 0)) {
		q--
	}
	return q
}

func floatArith(op ArithOp, l, r float64) (Value, error) {
	switch op {
	case OpAdd:
		return NewFloat(l + r), nil
	case OpSub:
		return NewFloat(l - r), nil
	case OpMul:
		return NewFloat(l * r), nil
	case OpDiv:
		if r == 0 {
			return nil, RuntimeErrorf("float division by zero")
		}
		return NewFloat(l / r), nil
	case OpFloorDiv:
		if r == 0 {
			return nil, RuntimeErrorf("float division by zero")
		}
		return NewFloat(math.Floor(l / r)), nil
	case OpMod:
		if r == 0 {
			return nil, RuntimeErrorf("float modulo by zero")
		}
		return NewFloat(math.Mod(l, r)), nil
	case OpPow:
		return NewFloat(math.Pow(l, r)), nil
	}
	return nil, InstructionErrorf("unknown arithmetic operator %q", op)
}

type BoolOp string

const (
	OpAnd BoolOp = "AND"
	OpOr  BoolOp = "OR"
)

// BooleanBinaryOperation short-circuits: Right is evaluated only if Left
// does not already determine the result (spec §4.3).
type BooleanBinaryOperation struct {
	Op          BoolOp
	Left, Right Term
}

func (t *BooleanBinaryOperation) Evaluate(u *Universe, task *StackState, m *MachineState) (Value, error) {
	lv, err := t.Left.Evaluate(u, task, m)
	if err != nil {
		return nil, err
	}
	lb, err := truthy(lv)
	if err != nil {
		return nil, err
	}
	if t.Op == OpAnd && !lb {
		return lv, nil
	}
	if t.Op == OpOr && lb {
		return lv, nil
	}
	return t.Right.Evaluate(u, task, m)
}

type CompareOp string

const (
	OpEq       CompareOp = "=="
	OpNe       CompareOp = "!="
	OpLt       CompareOp = "<"
	OpLe       CompareOp = "<="
	OpGt       CompareOp = ">"
	OpGe       CompareOp = ">="
	OpIn       CompareOp = "in"
	OpNotIn    CompareOp = "not in"
	OpIs       CompareOp = "is"
	OpIsNot    CompareOp = "is not"
)

type Comparison struct {
	Op          CompareOp
	Left, Right Term
}

func (t *Comparison) Evaluate(u *Universe, task *StackState, m *MachineState) (Value, error) {
	lv, err := t.Left.Evaluate(u, task, m)
	if err != nil {
		return nil, err
	}
	rv, err := t.Right.Evaluate(u, task, m)
	if err != nil {
		return nil, err
	}
	switch t.Op {
	case OpEq:
		return BoolOf(u, lv.CEquals(rv)), nil
	case OpNe:
		return BoolOf(u, !lv.CEquals(rv)), nil
	case OpIs:
		return BoolOf(u, lv == rv), nil
	case OpIsNot:
		return BoolOf(u, lv != rv), nil
	case OpIn, OpNotIn:
		found, err := containsValue(rv, lv)
		if err != nil {
			return nil, err
		}
		if t.Op == OpNotIn {
			found = !found
		}
		return BoolOf(u, found), nil
	}
	lf, lok := asFloat(lv)
	rf, rok := asFloat(rv)
	if !lok || !rok {
		return nil, TypeErrorf("unsupported operand types for %s", t.Op)
	}
	switch t.Op {
	case OpLt:
		return BoolOf(u, lf < rf), nil
	case OpLe:
		return BoolOf(u, lf <= rf), nil
	case OpGt:
		return BoolOf(u, lf > rf), nil
	case OpGe:
		return BoolOf(u, lf >= rf), nil
	}
	return nil, InstructionErrorf("unknown comparison operator %q", t.Op)
}

func containsValue(container, target Value) (bool, error) {
	switch c := container.(type) {
	case *Tuple:
		for _, e := range c.Elements {
			if e.CEquals(target) {
				return true, nil
			}
		}
		return false, nil
	case *List:
		for _, e := range c.Elements {
			if e.CEquals(target) {
				return true, nil
			}
		}
		return false, nil
	case *Dict:
		_, found, err := c.Get(target)
		return found, err
	case *VStr:
		s, ok := target.(*VStr)
		if !ok {
			return false, TypeErrorf("'in' on a string requires a string operand")
		}
		return containsSubstring(c.Value(), s.Value()), nil
	}
	return false, TypeErrorf("argument does not support 'in'")
}

func containsSubstring(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

// --- predicates ----------------------------------------------------------

type PredicateOp string

const (
	PredIsCallable   PredicateOp = "IsCallable"
	PredIsException  PredicateOp = "IsException"
	PredIsTerminated PredicateOp = "IsTerminated"
)

// UnaryPredicateTerm inspects a value (or, for IsTerminated, a
// task/future's status) and yields a bool (spec §4.3).
type UnaryPredicateTerm struct {
	Op      PredicateOp
	Operand Term
}

func (t *UnaryPredicateTerm) Evaluate(u *Universe, task *StackState, m *MachineState) (Value, error) {
	v, err := t.Operand.Evaluate(u, task, m)
	if err != nil {
		return nil, err
	}
	switch t.Op {
	case PredIsCallable:
		switch v.(type) {
		case Procedure, *Type:
			return u.True, nil
		}
		return u.False, nil
	case PredIsException:
		_, ok := v.(*Exception)
		return BoolOf(u, ok), nil
	case PredIsTerminated:
		switch x := v.(type) {
		case *StackState:
			s := x.GetStatus()
			return BoolOf(u, s == StatusCompleted || s == StatusFailed || s == StatusCancelled), nil
		case *Future:
			return BoolOf(u, x.Done()), nil
		}
		return nil, TypeErrorf("IsTerminated requires a task or future")
	}
	return nil, InstructionErrorf("unknown predicate %q", t.Op)
}

// --- allocation and construction ----------------------------------------

// NewValueTerm allocates via a type's constructor (spec §4.3 "New").
// For a builtin atomic/collection type it builds the concrete value
// directly from ArgTerms; for a user-defined class it allocates an
// empty Compound shell whose fields the compiler fills with subsequent
// Update instructions — invoking a user __init__ body (which may itself
// suspend or branch) is not pure, so that call is issued separately by a
// Push instruction against the Callable-synthesised constructor
// procedure, never by this term.
type NewValueTerm struct {
	TypeTerm Term
	ArgTerms []Term
}

func (t *NewValueTerm) Evaluate(u *Universe, task *StackState, m *MachineState) (Value, error) {
	tv, err := t.TypeTerm.Evaluate(u, task, m)
	if err != nil {
		return nil, err
	}
	typ, ok := tv.(*Type)
	if !ok {
		return nil, TypeErrorf("New requires a type")
	}
	args := make([]Value, len(t.ArgTerms))
	for i, a := range t.ArgTerms {
		v, err := a.Evaluate(u, task, m)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	switch typ {
	case u.IntType:
		if len(args) == 1 {
			if v, ok := asFloat(args[0]); ok {
				return NewInt(int64(v)), nil
			}
		}
		return NewInt(0), nil
	case u.FloatType:
		if len(args) == 1 {
			if v, ok := asFloat(args[0]); ok {
				return NewFloat(v), nil
			}
		}
		return NewFloat(0), nil
	case u.StrType:
		if len(args) == 1 {
			if s, ok := args[0].(*VStr); ok {
				return s, nil
			}
		}
		return NewString(""), nil
	case u.BoolType:
		if len(args) == 1 {
			b, err := truthy(args[0])
			if err != nil {
				return nil, err
			}
			return BoolOf(u, b), nil
		}
		return u.False, nil
	case u.TupleType:
		return NewTuple(args...), nil
	case u.ListType:
		return NewList(args...), nil
	case u.DictType:
		return NewDict(u), nil
	case u.NoneType:
		return u.None, nil
	}
	return NewCompound(u, typ), nil
}

// CallableTerm coerces a value into a Procedure (spec §4.3 "Callable").
type CallableTerm struct{ Inner Term }

func (t *CallableTerm) Evaluate(u *Universe, task *StackState, m *MachineState) (Value, error) {
	v, err := t.Inner.Evaluate(u, task, m)
	if err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case Procedure:
		return x, nil
	case *Type:
		return NewConstructorProcedure(x), nil
	}
	return nil, TypeErrorf("value is not callable")
}

// ITaskTerm locates the unique interaction task for Symbol in m (spec
// §4.3 "ITask").
type ITaskTerm struct{ Symbol InteractionSymbol }

func (t *ITaskTerm) Evaluate(u *Universe, task *StackState, m *MachineState) (Value, error) {
	for _, tk := range m.Tasks() {
		if is, ok := tk.(*InteractionState); ok && is.Symbol == t.Symbol {
			return is, nil
		}
	}
	return nil, RuntimeErrorf("no interaction task for symbol %q", t.Symbol)
}

// IsInstanceTerm mirrors the isinstance() builtin (spec §4.3).
type IsInstanceTerm struct{ ValueTerm, TypeTerm Term }

func (t *IsInstanceTerm) Evaluate(u *Universe, task *StackState, m *MachineState) (Value, error) {
	v, err := t.ValueTerm.Evaluate(u, task, m)
	if err != nil {
		return nil, err
	}
	tv, err := t.TypeTerm.Evaluate(u, task, m)
	if err != nil {
		return nil, err
	}
	vt := v.TypeOf(u)
	switch x := tv.(type) {
	case *Type:
		return BoolOf(u, vt.IsSubtype(x)), nil
	case *Tuple:
		for _, e := range x.Elements {
			et, ok := e.(*Type)
			if ok && vt.IsSubtype(et) {
				return u.True, nil
			}
		}
		return u.False, nil
	}
	return nil, TypeErrorf("isinstance() arg 2 must be a type or tuple of types")
}

// NewTupleTerm, NewListTerm, NewDictTerm build fresh collections from
// evaluated element/pair terms (spec §4.3).
type NewTupleTerm struct{ Elements []Term }

func (t *NewTupleTerm) Evaluate(u *Universe, task *StackState, m *MachineState) (Value, error) {
	vs, err := evalAll(u, task, m, t.Elements)
	if err != nil {
		return nil, err
	}
	return NewTuple(vs...), nil
}

type NewListTerm struct{ Elements []Term }

func (t *NewListTerm) Evaluate(u *Universe, task *StackState, m *MachineState) (Value, error) {
	vs, err := evalAll(u, task, m, t.Elements)
	if err != nil {
		return nil, err
	}
	return NewList(vs...), nil
}

type DictPairTerm struct{ KeyTerm, ValueTerm Term }

type NewDictTerm struct{ Pairs []DictPairTerm }

func (t *NewDictTerm) Evaluate(u *Universe, task *StackState, m *MachineState) (Value, error) {
	d := NewDict(u)
	for _, p := range t.Pairs {
		k, err := p.KeyTerm.Evaluate(u, task, m)
		if err != nil {
			return nil, err
		}
		v, err := p.ValueTerm.Evaluate(u, task, m)
		if err != nil {
			return nil, err
		}
		if err := d.Set(k, v); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func evalAll(u *Universe, task *StackState, m *MachineState, terms []Term) ([]Value, error) {
	out := make([]Value, len(terms))
	for i, t := range terms {
		v, err := t.Evaluate(u, task, m)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// NewNamespaceTerm builds a fresh, empty Dict used as a module or class
// namespace (spec §4.3 "NewNamespace").
type NewNamespaceTerm struct{}

func (t NewNamespaceTerm) Evaluate(u *Universe, task *StackState, m *MachineState) (Value, error) {
	return NewDict(u), nil
}

// NewCellTerm allocates a fresh heap Cell holding Initial's value (spec
// §4.3 "NewCell").
type NewCellTerm struct{ Initial Term }

func (t *NewCellTerm) Evaluate(u *Universe, task *StackState, m *MachineState) (Value, error) {
	v, err := t.Initial.Evaluate(u, task, m)
	if err != nil {
		return nil, err
	}
	return NewCell(v), nil
}

// NewPropertyTerm builds a Property from a getter (and optional setter)
// procedure term (spec §4.3 "NewProperty").
type NewPropertyTerm struct {
	Getter Term
	Setter Term // nil if no setter
}

func (t *NewPropertyTerm) Evaluate(u *Universe, task *StackState, m *MachineState) (Value, error) {
	gv, err := t.Getter.Evaluate(u, task, m)
	if err != nil {
		return nil, err
	}
	getter, ok := gv.(Procedure)
	if !ok {
		return nil, TypeErrorf("property getter must be a procedure")
	}
	var setter Procedure
	if t.Setter != nil {
		sv, err := t.Setter.Evaluate(u, task, m)
		if err != nil {
			return nil, err
		}
		setter, ok = sv.(Procedure)
		if !ok {
			return nil, TypeErrorf("property setter must be a procedure")
		}
	}
	return NewProperty(getter, setter), nil
}

// NewProcedureTerm builds a StackProcedure, evaluating FreeTerms now so
// their values (typically CellReferences) are captured at closure
// creation time and become the procedure's leading non-argument locals
// at call time (spec §4.3 "NewProcedure", §4.2 "Cells enable closures").
type NewProcedureTerm struct {
	NumArgs   int
	FreeTerms []Term
	Entry     *ProgramLocation
}

func (t *NewProcedureTerm) Evaluate(u *Universe, task *StackState, m *MachineState) (Value, error) {
	free, err := evalAll(u, task, m, t.FreeTerms)
	if err != nil {
		return nil, err
	}
	return NewStackProcedure(t.NumArgs, free, t.Entry), nil
}

// NewClassTerm builds a Type at runtime from a name, a tuple of base
// types and a namespace Dict (spec §4.3 "NewClass"). Namespace entries
// that are procedures or properties become methods/accessors; every
// other entry is treated as a declared instance field and assigned a
// slot in a fixed, deterministic (sorted-by-name) order, since Compound
// storage needs a stable offset per field.
type NewClassTerm struct {
	NameTerm      Term
	SupersTerm    Term
	NamespaceTerm Term
}

func (t *NewClassTerm) Evaluate(u *Universe, task *StackState, m *MachineState) (Value, error) {
	nv, err := t.NameTerm.Evaluate(u, task, m)
	if err != nil {
		return nil, err
	}
	name, ok := nv.(*VStr)
	if !ok {
		return nil, TypeErrorf("NewClass name must be a string")
	}
	sv, err := t.SupersTerm.Evaluate(u, task, m)
	if err != nil {
		return nil, err
	}
	supersTuple, ok := sv.(*Tuple)
	if !ok {
		return nil, TypeErrorf("NewClass supers must be a tuple")
	}
	bases := make([]*Type, len(supersTuple.Elements))
	for i, e := range supersTuple.Elements {
		bt, ok := e.(*Type)
		if !ok {
			return nil, TypeErrorf("NewClass supers must all be types")
		}
		bases[i] = bt
	}
	nsv, err := t.NamespaceTerm.Evaluate(u, task, m)
	if err != nil {
		return nil, err
	}
	ns, ok := nsv.(*Dict)
	if !ok {
		return nil, TypeErrorf("NewClass namespace must be a dict")
	}

	members := make(map[string]Member)
	var fieldNames []string
	for _, e := range ns.Entries() {
		key, ok := e.key.(*VStr)
		if !ok {
			continue
		}
		switch val := e.value.(type) {
		case Procedure:
			members[key.Value()] = val
		case *Property:
			members[key.Value()] = val
		default:
			fieldNames = append(fieldNames, key.Value())
		}
	}
	sortStrings(fieldNames)
	baseOffset, err := BaseFieldOffset(name.Value(), bases)
	if err != nil {
		return nil, err
	}
	for i, fn := range fieldNames {
		members[fn] = baseOffset + i
	}
	typ, err := NewType(name.Value(), bases, len(fieldNames), members)
	if err != nil {
		return nil, err
	}
	typ.Seal()
	return typ, nil
}

func sortStrings(xs []string) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}

// NewJumpErrorTerm constructs a JumpError marker exception for Kind
// (e.g. "break", "continue", "return") — retained from the source
// language's non-local control-flow mechanism but never emitted by the
// current compiler (spec §9 supplemented feature, kept for a future
// lowering pass that needs non-local jumps out of nested loops).
type NewJumpErrorTerm struct{ Kind string }

func (t *NewJumpErrorTerm) Evaluate(u *Universe, task *StackState, m *MachineState) (Value, error) {
	exc := NewException(u.JumpErrorType, NewString(t.Kind))
	exc.Seal()
	return exc, nil
}

// AwaitedResultTerm implements await's value-producing half (spec §4.3
// "AwaitedResult", §5 "Futures"): it is only evaluated once the
// awaitable is known terminated (the compiler guards it with
// IsTerminated first).
type AwaitedResultTerm struct{ Awaitable Term }

func (t *AwaitedResultTerm) Evaluate(u *Universe, task *StackState, m *MachineState) (Value, error) {
	v, err := t.Awaitable.Evaluate(u, task, m)
	if err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case *Future:
		return x.AwaitedResult()
	case *StackState:
		switch x.GetStatus() {
		case StatusCompleted:
			return x.Returned, nil
		case StatusFailed:
			if exc, ok := x.Exception.(*Exception); ok {
				return nil, &VMError{Kind: Kind(exc.Class.Name), Message: exc.Message().Value(), Initial: exc.Initial()}
			}
			return nil, RuntimeErrorf("task failed")
		case StatusCancelled:
			return nil, CancellationErrorValue(false)
		default:
			return nil, RuntimeErrorf("task has not terminated")
		}
	}
	return nil, TypeErrorf("AwaitedResult requires a future or task")
}
