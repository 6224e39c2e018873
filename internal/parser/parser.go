// Package parser turns Spek source into an internal/ast tree, folding
// grammar.Program's precedence-climbing struct ladder (Expr ->
// Additive -> Multiplicative -> Unary -> Primary) into ast's flat
// Expr interface.
package parser

import (
	"spek/grammar"
	"spek/internal/ast"
)

// ParseSource parses and lowers source into a Program, reporting
// participle's own syntax errors unchanged (cmd/spek-cli and
// internal/lsp format those for humans/editors respectively).
func ParseSource(filename, source string) (*ast.Program, error) {
	tree, err := grammar.ParseString(filename, source)
	if err != nil {
		return nil, err
	}
	prog := &ast.Program{}
	for _, stmt := range tree.Statements {
		prog.Statements = append(prog.Statements, lowerStatement(filename, stmt))
	}
	return prog, nil
}

func lowerStatement(file string, s *grammar.Statement) ast.Statement {
	switch {
	case s.Var != nil:
		return &ast.VarDecl{
			Name:  s.Var.Name,
			Value: lowerExpr(file, s.Var.Value),
		}
	case s.Await != nil:
		return &ast.AwaitStmt{Value: lowerExpr(file, s.Await.Value)}
	default:
		return &ast.ExprStmt{Value: lowerExpr(file, s.Expr.Value)}
	}
}

func lowerExpr(file string, e *grammar.Expr) ast.Expr {
	left := lowerAdditive(file, e.Left)
	if e.Op == "" {
		return left
	}
	return &ast.BinaryExpr{Op: e.Op, Left: left, Right: lowerAdditive(file, e.Right)}
}

func lowerAdditive(file string, a *grammar.Additive) ast.Expr {
	expr := lowerMultiplicative(file, a.Left)
	for _, op := range a.Ops {
		expr = &ast.BinaryExpr{Op: op.Op, Left: expr, Right: lowerMultiplicative(file, op.Right)}
	}
	return expr
}

func lowerMultiplicative(file string, m *grammar.Multiplicative) ast.Expr {
	expr := lowerUnary(file, m.Left)
	for _, op := range m.Ops {
		expr = &ast.BinaryExpr{Op: op.Op, Left: expr, Right: lowerUnary(file, op.Right)}
	}
	return expr
}

func lowerUnary(file string, u *grammar.Unary) ast.Expr {
	if u.Neg != "" {
		return &ast.UnaryExpr{Op: "-", Operand: lowerUnary(file, u.Operand)}
	}
	return lowerPrimary(file, u.Prim)
}

func lowerPrimary(file string, p *grammar.Primary) ast.Expr {
	switch {
	case p.Int != nil:
		return &ast.IntLit{Value: *p.Int}
	case p.Call != nil:
		call := &ast.CallExpr{Name: p.Call.Name}
		for _, a := range p.Call.Args {
			call.Args = append(call.Args, lowerExpr(file, a))
		}
		return call
	case p.Ident != nil:
		return &ast.Ident{Name: *p.Ident}
	default:
		return lowerExpr(file, p.Sub)
	}
}
