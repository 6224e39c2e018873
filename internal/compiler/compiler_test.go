package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"spek/internal/engine"
)

func TestCompileVarAssignAwaitNever(t *testing.T) {
	u := engine.NewUniverse()
	entry, err := Compile(u, "t.spek", "var x = 42; var y = x + 1; await never();")
	require.NoError(t, err)

	m := engine.NewMachineState()
	task, err := m.AddTask(func(id int) engine.Task {
		return engine.NewStackState(id, entry, nil)
	})
	require.NoError(t, err)

	st := task.(*engine.StackState)
	require.NoError(t, st.Run(u, m))
	require.Equal(t, engine.StatusWaiting, st.GetStatus())

	yVal, err := engine.NewFrameReference(1).Read(st, m)
	require.NoError(t, err)
	yInt, ok := yVal.(*engine.VInt)
	require.True(t, ok)
	require.Equal(t, int64(43), yInt.Value())
}

func TestCompileUndefinedVariableReportsError(t *testing.T) {
	u := engine.NewUniverse()
	_, err := Compile(u, "t.spek", "var x = y + 1;")
	require.Error(t, err)

	multi, ok := err.(*MultiError)
	require.True(t, ok)
	require.Len(t, multi.Errors, 1)
	require.Equal(t, "E0001", multi.Errors[0].Code)
}

func TestCompileRedeclaredVariableReportsError(t *testing.T) {
	u := engine.NewUniverse()
	_, err := Compile(u, "t.spek", "var x = 1; var x = 2;")
	require.Error(t, err)

	multi, ok := err.(*MultiError)
	require.True(t, ok)
	require.Len(t, multi.Errors, 1)
	require.Equal(t, "E0002", multi.Errors[0].Code)
}

func TestCompileArithmeticAndComparison(t *testing.T) {
	u := engine.NewUniverse()
	entry, err := Compile(u, "t.spek", "var a = 2 * 3 + 1; var b = a == 7; await never();")
	require.NoError(t, err)

	m := engine.NewMachineState()
	task, err := m.AddTask(func(id int) engine.Task {
		return engine.NewStackState(id, entry, nil)
	})
	require.NoError(t, err)

	st := task.(*engine.StackState)
	require.NoError(t, st.Run(u, m))

	bVal, err := engine.NewFrameReference(1).Read(st, m)
	require.NoError(t, err)
	bBool, ok := bVal.(*engine.VBool)
	require.True(t, ok)
	require.True(t, bBool.Value())
}
