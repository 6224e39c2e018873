// Package module implements the module resolution surface of spec §6:
// a specification resolves to a stack program whose execution
// populates a namespace dict and leaves it in the task's return-value
// slot, and the core caches the resulting program by module key.
package module

import (
	"spek/internal/engine"
)

// Spec is one of the two specification variants spec §6 names: a
// builtin spec maps names directly to pre-constructed values, an AST
// spec delegates to an external compiler.
type Spec interface {
	// Key identifies the module for resolution caching.
	Key() string
	// Resolve produces the entry point of a stack program whose
	// execution, when pushed as a task frame, populates a namespace
	// dict and writes it to the task's return-value slot.
	Resolve(u *engine.Universe) (*engine.ProgramLocation, error)
}

// BuiltinSpec resolves a fixed name -> value mapping into a namespace
// dict with no compilation step (spec §6 "a builtin specification maps
// names to pre-constructed values").
type BuiltinSpec struct {
	ModuleKey string
	Names     map[string]engine.Value
}

func NewBuiltinSpec(key string, names map[string]engine.Value) *BuiltinSpec {
	return &BuiltinSpec{ModuleKey: key, Names: names}
}

func (b *BuiltinSpec) Key() string { return b.ModuleKey }

func (b *BuiltinSpec) Resolve(u *engine.Universe) (*engine.ProgramLocation, error) {
	ns := engine.NewDict(u)
	for name, v := range b.Names {
		if err := ns.Set(engine.NewString(name), v); err != nil {
			return nil, err
		}
	}
	ns.Seal()

	program := &engine.StackProgram{
		Instructions: []engine.Instruction{
			&engine.UpdateInstruction{
				RefTerm:   engine.TRef(engine.ReturnValueRef()),
				ValueTerm: engine.ConstTerm{V: ns},
				Next:      1,
				OnError:   -1,
				U:         u,
			},
			&engine.PopInstruction{OnError: -1, U: u},
		},
	}
	return engine.NewProgramLocation(program, 0), nil
}

// Compiler lowers module source into a stack program entry point; it is
// the "external compiler" spec §6's AST specification delegates to. The
// frontend package supplies the concrete implementation.
type Compiler func(u *engine.Universe, source string) (*engine.ProgramLocation, error)

// ASTSpec resolves module source text through an external compiler
// (spec §6 "an AST specification delegates to an external compiler").
type ASTSpec struct {
	ModuleKey string
	Source    string
	Compile   Compiler
}

func NewASTSpec(key, source string, compile Compiler) *ASTSpec {
	return &ASTSpec{ModuleKey: key, Source: source, Compile: compile}
}

func (a *ASTSpec) Key() string { return a.ModuleKey }

func (a *ASTSpec) Resolve(u *engine.Universe) (*engine.ProgramLocation, error) {
	return a.Compile(u, a.Source)
}
