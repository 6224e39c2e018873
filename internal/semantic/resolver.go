// Package semantic assigns each declared variable a frame-slot index
// the compiler can close over directly as an engine.FrameReference,
// and catches the two mistakes that are actually possible in a
// language this small: using a name before it is declared, and
// declaring the same name twice.
package semantic

import (
	"fmt"

	"spek/internal/ast"
	"spek/internal/errors"
)

// SlotTable maps each declared variable name to the frame slot it
// occupies, in declaration order; SlotCount is the number of locals the
// compiled program's frame must allocate.
type SlotTable struct {
	Slots     map[string]int
	SlotCount int
}

// Resolve walks prog, assigning slots to VarDecls in declaration order
// and checking every Ident reference resolves to an already-declared
// name. It returns every error found rather than stopping at the
// first, matching the teacher's accumulate-then-report analyzer style.
func Resolve(prog *ast.Program) (*SlotTable, []*errors.CompilerError) {
	table := &SlotTable{Slots: make(map[string]int)}
	var errs []*errors.CompilerError

	declared := func(name string) bool {
		_, ok := table.Slots[name]
		return ok
	}
	declare := func(name string, pos ast.Position) {
		if declared(name) {
			errs = append(errs, &errors.CompilerError{
				Code:    errors.ErrorRedeclaredVariable,
				Message: fmt.Sprintf("%q is already declared", name),
				Pos:     pos,
			})
			return
		}
		table.Slots[name] = table.SlotCount
		table.SlotCount++
	}

	var checkExpr func(e ast.Expr)
	checkExpr = func(e ast.Expr) {
		switch n := e.(type) {
		case *ast.Ident:
			if !declared(n.Name) {
				errs = append(errs, &errors.CompilerError{
					Code:    errors.ErrorUndefinedVariable,
					Message: fmt.Sprintf("undefined variable %q", n.Name),
					Pos:     n.Pos,
				})
			}
		case *ast.BinaryExpr:
			checkExpr(n.Left)
			checkExpr(n.Right)
		case *ast.UnaryExpr:
			checkExpr(n.Operand)
		case *ast.CallExpr:
			for _, a := range n.Args {
				checkExpr(a)
			}
		}
	}

	for _, stmt := range prog.Statements {
		switch s := stmt.(type) {
		case *ast.VarDecl:
			checkExpr(s.Value)
			declare(s.Name, s.Pos)
		case *ast.AwaitStmt:
			checkExpr(s.Value)
		case *ast.ExprStmt:
			checkExpr(s.Value)
		}
	}
	return table, errs
}
