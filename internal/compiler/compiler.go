// Package compiler lowers a parsed, name-resolved Spek program into a
// StackProgram the engine's StackState can run: one UpdateInstruction
// per VarDecl, and `await never()` compiled to the permanently
// disabled guard that is this engine's idiom for "never resumes"
// (see internal/engine/explorer's scenario 2 test, which compiles the
// same construct by hand to exercise the core without the front end).
package compiler

import (
	"fmt"

	"spek/internal/ast"
	"spek/internal/errors"
	"spek/internal/semantic"

	"spek/internal/engine"
)

// CompileModule adapts Compile to the module.Compiler shape so an
// ASTSpec can delegate straight to this package.
func CompileModule(u *engine.Universe, source string) (*engine.ProgramLocation, error) {
	return Compile(u, "<module>", source)
}

// Compile parses, resolves, and lowers source in one pass.
func Compile(u *engine.Universe, filename, source string) (*engine.ProgramLocation, error) {
	prog, err := parseFn(filename, source)
	if err != nil {
		return nil, err
	}
	table, errs := semantic.Resolve(prog)
	if len(errs) > 0 {
		return nil, &MultiError{Errors: errs}
	}
	return lower(u, prog, table)
}

// parseFn is a package variable rather than a direct import of
// internal/parser so compiler_test.go can substitute a stub parser
// without needing a real source file; it is initialised to defaultParse
// (parse.go), which calls parser.ParseSource.
var parseFn = defaultParse

// MultiError bundles every name-resolution failure found in one pass.
type MultiError struct {
	Errors []*errors.CompilerError
}

func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	msg := m.Errors[0].Error()
	if len(m.Errors) > 1 {
		msg = fmt.Sprintf("%s (and %d more)", msg, len(m.Errors)-1)
	}
	return msg
}

func lower(u *engine.Universe, prog *ast.Program, table *semantic.SlotTable) (*engine.ProgramLocation, error) {
	var instrs []engine.Instruction
	endsOnNever := false
	emit := func(instr engine.Instruction) {
		instrs = append(instrs, instr)
	}
	next := func() int { return len(instrs) + 1 }

	for _, stmt := range prog.Statements {
		endsOnNever = false
		switch s := stmt.(type) {
		case *ast.VarDecl:
			ref := engine.NewFrameReference(table.Slots[s.Name])
			emit(&engine.UpdateInstruction{
				RefTerm:   engine.TRef(ref),
				ValueTerm: lowerExpr(u, s.Value, table),
				Next:      next(),
				OnError:   -1,
				U:         u,
			})
		case *ast.AwaitStmt:
			if call, ok := s.Value.(*ast.CallExpr); ok && call.Name == "never" && len(call.Args) == 0 {
				here := len(instrs)
				emit(&engine.GuardInstruction{
					Branches: []engine.GuardBranch{{Cond: engine.CBool(u, false), Next: here}},
					OnError:  -1,
					U:        u,
				})
				endsOnNever = true
				continue
			}
			return nil, fmt.Errorf("compiler: %s: await only supports never()", errors.ErrorUnsupportedCall)
		case *ast.ExprStmt:
			// Evaluated for effect only; Spek terms are pure, so a bare
			// expression statement has no observable effect beyond
			// validating the expression compiles — still lowered so a
			// malformed one is still caught at compile time.
			emit(&engine.UpdateInstruction{
				RefTerm:   engine.TRef(engine.ReturnValueRef()),
				ValueTerm: lowerExpr(u, s.Value, table),
				Next:      next(),
				OnError:   -1,
				U:         u,
			})
		}
	}
	if !endsOnNever {
		emit(&engine.PopInstruction{OnError: -1, U: u})
	}

	program := engine.NewStackProgram(instrs...)
	return engine.NewProgramLocation(program, 0), nil
}

func lowerExpr(u *engine.Universe, e ast.Expr, table *semantic.SlotTable) engine.Term {
	switch n := e.(type) {
	case *ast.IntLit:
		return engine.CInt(n.Value)
	case *ast.Ident:
		ref := engine.NewFrameReference(table.Slots[n.Name])
		return &engine.ReadTerm{RefTerm: engine.TRef(ref)}
	case *ast.UnaryExpr:
		return &engine.UnaryOperation{Op: engine.OpNeg, Operand: lowerExpr(u, n.Operand, table)}
	case *ast.BinaryExpr:
		if cmp, ok := compareOp(n.Op); ok {
			return &engine.Comparison{Op: cmp, Left: lowerExpr(u, n.Left, table), Right: lowerExpr(u, n.Right, table)}
		}
		return &engine.ArithmeticBinaryOperation{
			Op:    arithOp(n.Op),
			Left:  lowerExpr(u, n.Left, table),
			Right: lowerExpr(u, n.Right, table),
		}
	case *ast.CallExpr:
		// Only `never()` is recognized, and only inside an AwaitStmt
		// (handled in lower); reaching here means a call surfaced
		// somewhere else, which nothing in the surface language
		// currently produces meaningfully.
		return engine.CNone(u)
	default:
		return engine.CNone(u)
	}
}

func compareOp(op string) (engine.CompareOp, bool) {
	switch op {
	case "==":
		return engine.OpEq, true
	case "!=":
		return engine.OpNe, true
	case "<":
		return engine.OpLt, true
	case "<=":
		return engine.OpLe, true
	case ">":
		return engine.OpGt, true
	case ">=":
		return engine.OpGe, true
	default:
		return "", false
	}
}

func arithOp(op string) engine.ArithOp {
	switch op {
	case "+":
		return engine.OpAdd
	case "-":
		return engine.OpSub
	case "*":
		return engine.OpMul
	case "/":
		return engine.OpDiv
	case "%":
		return engine.OpMod
	default:
		return engine.OpAdd
	}
}
