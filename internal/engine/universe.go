package engine

import "sync"

// Universe carries the canonical atoms and type descriptors every value
// construction consults, replacing the source's global singletons
// (VNone.instance, per-type intrinsic_type slots — spec §9 "Global
// singletons") with an explicit value threaded through every
// construction site instead. A program runs against exactly one
// Universe, built once at engine initialization from the builtin name
// set of spec §6.
type Universe struct {
	ObjectType     *Type
	TypeType       *Type
	NoneType       *Type
	BoolType       *Type
	IntType        *Type
	FloatType      *Type
	StrType        *Type
	RangeType      *Type
	TupleType      *Type
	ListType       *Type
	DictType       *Type
	DictViewType   *Type
	ProcedureType  *Type
	PropertyType   *Type
	FutureType     *Type
	TaskType       *Type
	CellType       *Type
	IteratorType   *Type

	ExceptionType          *Type
	CancellationErrorType  *Type
	RuntimeErrorType       *Type
	ReferenceErrorType     *Type
	TypeErrorType          *Type
	InstructionExceptionType *Type
	AttributeErrorType     *Type
	IndexErrorType         *Type
	KeyErrorType           *Type
	StopIterationType      *Type
	FutureErrorType        *Type
	JumpErrorType          *Type

	None  *VNone
	True  *VBool
	False *VBool

	// Names is the initial module-level environment, §6 "Built-in name
	// set": every name below always resolves, plus the `interaction`
	// submodule's 0-ary procedures for each interaction symbol.
	Names map[string]Value

	mu            sync.Mutex
	absFrameInter map[absFrameKey]*AbsoluteFrameReference
	finiteInter   map[finiteKey]*Finite
}

// NewUniverse builds the builtin type lattice and name set described in
// spec §6. Every program in a given exploration run shares one Universe.
func NewUniverse() *Universe {
	u := &Universe{
		Names:         make(map[string]Value),
		absFrameInter: make(map[absFrameKey]*AbsoluteFrameReference),
		finiteInter:   make(map[finiteKey]*Finite),
	}

	mustType := func(name string, bases []*Type, fields int) *Type {
		t, err := NewType(name, bases, fields, nil)
		if err != nil {
			panic(err) // builtin lattice is fixed; a failure here is a programming error
		}
		t.Seal()
		return t
	}

	u.ObjectType = mustType("object", nil, 0)
	u.TypeType = mustType("type", []*Type{u.ObjectType}, 0)
	u.NoneType = mustType("none", []*Type{u.ObjectType}, 0)
	u.BoolType = mustType("bool", []*Type{u.ObjectType}, 0)
	u.IntType = mustType("int", []*Type{u.ObjectType}, 0)
	u.FloatType = mustType("float", []*Type{u.ObjectType}, 0)
	u.StrType = mustType("str", []*Type{u.ObjectType}, 0)
	u.RangeType = mustType("range", []*Type{u.ObjectType}, 0)
	u.TupleType = mustType("tuple", []*Type{u.ObjectType}, 0)
	u.ListType = mustType("list", []*Type{u.ObjectType}, 0)
	u.DictType = mustType("dict", []*Type{u.ObjectType}, 0)
	u.DictViewType = mustType("dict_view", []*Type{u.ObjectType}, 0)
	u.ProcedureType = mustType("procedure", []*Type{u.ObjectType}, 0)
	u.PropertyType = mustType("property", []*Type{u.ObjectType}, 0)
	u.FutureType = mustType("future", []*Type{u.ObjectType}, 0)
	u.TaskType = mustType("task", []*Type{u.ObjectType}, 0)
	u.CellType = mustType("cell", []*Type{u.ObjectType}, 0)
	u.IteratorType = mustType("iterator", []*Type{u.ObjectType}, 0)

	excType, err := NewType("Exception", []*Type{u.ObjectType}, 1, map[string]Member{"message": 0})
	if err != nil {
		panic(err) // builtin lattice is fixed; a failure here is a programming error
	}
	excType.Seal() // field 0: message, named so user code can read `exc.message`
	u.ExceptionType = excType
	u.CancellationErrorType = mustType("CancellationError", []*Type{u.ExceptionType}, 0)
	u.RuntimeErrorType = mustType("RuntimeError", []*Type{u.ExceptionType}, 0)
	u.ReferenceErrorType = mustType("ReferenceError", []*Type{u.ExceptionType}, 0)
	u.TypeErrorType = mustType("TypeError", []*Type{u.ExceptionType}, 0)
	u.InstructionExceptionType = mustType("InstructionException", []*Type{u.ExceptionType}, 0)
	u.AttributeErrorType = mustType("AttributeError", []*Type{u.ExceptionType}, 0)
	u.IndexErrorType = mustType("IndexError", []*Type{u.ExceptionType}, 0)
	u.KeyErrorType = mustType("KeyError", []*Type{u.ExceptionType}, 0)
	u.StopIterationType = mustType("StopIteration", []*Type{u.ExceptionType}, 0)
	u.FutureErrorType = mustType("FutureError", []*Type{u.ExceptionType}, 0)
	u.JumpErrorType = mustType("JumpError", []*Type{u.ExceptionType}, 0)

	u.None = &VNone{}
	u.None.markSealed()
	u.True = &VBool{val: true}
	u.True.markSealed()
	u.False = &VBool{val: false}
	u.False.markSealed()

	u.Names["object"] = u.ObjectType
	u.Names["type"] = u.TypeType
	u.Names["procedure"] = u.ProcedureType
	u.Names["none"] = u.NoneType
	u.Names["bool"] = u.BoolType
	u.Names["int"] = u.IntType
	u.Names["float"] = u.FloatType
	u.Names["str"] = u.StrType
	u.Names["tuple"] = u.TupleType
	u.Names["list"] = u.ListType
	u.Names["dict"] = u.DictType
	u.Names["range"] = u.RangeType
	u.Names["future"] = u.FutureType
	u.Names["task"] = u.TaskType
	u.Names["Exception"] = u.ExceptionType
	u.Names["CancellationError"] = u.CancellationErrorType
	u.Names["RuntimeError"] = u.RuntimeErrorType
	u.Names["ReferenceError"] = u.ReferenceErrorType
	u.Names["TypeError"] = u.TypeErrorType
	u.Names["InstructionException"] = u.InstructionExceptionType
	u.Names["AttributeError"] = u.AttributeErrorType
	u.Names["IndexError"] = u.IndexErrorType
	u.Names["KeyError"] = u.KeyErrorType
	u.Names["StopIteration"] = u.StopIterationType
	u.Names["FutureError"] = u.FutureErrorType
	u.Names["JumpError"] = u.JumpErrorType
	u.Names["isinstance"] = NewIntrinsicProcedure("isinstance", 2, builtinIsInstance)

	interaction := NewDict(u)
	for _, sym := range AllInteractionSymbols {
		s := sym
		name := NewString(string(s))
		proc := NewIntrinsicProcedure(string(s), 0, func(u *Universe, args []Value) (Value, error) {
			return name, nil
		})
		_ = interaction.Set(name, proc)
	}
	interaction.Seal()
	u.Names["interaction"] = interaction

	return u
}

// WrapException converts a Go-level *VMError into the Spek Exception
// value a task's exception slot holds (spec §7 "Propagation").
func (u *Universe) WrapException(err *VMError) *Exception {
	t := u.exceptionTypeFor(err.Kind)
	exc := NewException(t, NewString(err.Message))
	exc.initial = err.Initial
	exc.Seal()
	return exc
}

func (u *Universe) exceptionTypeFor(k Kind) *Type {
	switch k {
	case KindCancellation:
		return u.CancellationErrorType
	case KindRuntime, KindSealed:
		return u.RuntimeErrorType
	case KindReference:
		return u.ReferenceErrorType
	case KindType:
		return u.TypeErrorType
	case KindInstruction:
		return u.InstructionExceptionType
	case KindAttribute:
		return u.AttributeErrorType
	case KindIndex:
		return u.IndexErrorType
	case KindKey:
		return u.KeyErrorType
	case KindStopIteration:
		return u.StopIterationType
	case KindFuture:
		return u.FutureErrorType
	case KindJump:
		return u.JumpErrorType
	default:
		return u.ExceptionType
	}
}

func builtinIsInstance(u *Universe, args []Value) (Value, error) {
	if len(args) != 2 {
		return nil, InstructionErrorf("isinstance expects 2 arguments, got %d", len(args))
	}
	t, ok := args[1].(*Type)
	if !ok {
		return nil, TypeErrorf("isinstance() arg 2 must be a type")
	}
	return BoolOf(u, args[0].TypeOf(u).IsSubtype(t)), nil
}

// BoolOf returns the canonical True/False value for b (spec invariant 3).
func BoolOf(u *Universe, b bool) *VBool {
	if b {
		return u.True
	}
	return u.False
}
