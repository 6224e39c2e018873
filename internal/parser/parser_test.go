package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"spek/internal/ast"
)

func TestParseSourceLowersVarDeclsAndAwait(t *testing.T) {
	prog, err := ParseSource("t.spek", "var x = 42; var y = x + 1; await never();")
	require.NoError(t, err)
	require.Len(t, prog.Statements, 3)

	x, ok := prog.Statements[0].(*ast.VarDecl)
	require.True(t, ok)
	require.Equal(t, "x", x.Name)
	lit, ok := x.Value.(*ast.IntLit)
	require.True(t, ok)
	require.Equal(t, int64(42), lit.Value)

	y, ok := prog.Statements[1].(*ast.VarDecl)
	require.True(t, ok)
	bin, ok := y.Value.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, "+", bin.Op)

	await, ok := prog.Statements[2].(*ast.AwaitStmt)
	require.True(t, ok)
	call, ok := await.Value.(*ast.CallExpr)
	require.True(t, ok)
	require.Equal(t, "never", call.Name)
	require.Empty(t, call.Args)
}

func TestParseSourceRespectsOperatorPrecedence(t *testing.T) {
	prog, err := ParseSource("t.spek", "var a = 2 + 3 * 4;")
	require.NoError(t, err)
	decl := prog.Statements[0].(*ast.VarDecl)
	top, ok := decl.Value.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, "+", top.Op)

	require.IsType(t, &ast.IntLit{}, top.Left)
	mul, ok := top.Right.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, "*", mul.Op)
}

func TestParseSourceHandlesParenthesizedExpr(t *testing.T) {
	prog, err := ParseSource("t.spek", "var a = (2 + 3) * 4;")
	require.NoError(t, err)
	decl := prog.Statements[0].(*ast.VarDecl)
	top, ok := decl.Value.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, "*", top.Op)
	require.IsType(t, &ast.BinaryExpr{}, top.Left)
}
