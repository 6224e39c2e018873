package explorer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"spek/internal/compiler"
	"spek/internal/engine"
	"spek/internal/engine/explorer"
)

// TestScenarioVarAssignAwaitNeverThroughRealCompiler exercises the full
// pipeline once end-to-end: the literal source text compiles through
// internal/compiler instead of the hand-built StackProgram
// varAssignAwaitNever builds directly, landing on the same two-state,
// one-internal-transition shape with `y` bound to 43.
func TestScenarioVarAssignAwaitNeverThroughRealCompiler(t *testing.T) {
	u := engine.NewUniverse()
	m := engine.NewMachineState()

	entry, err := compiler.Compile(u, "scenario2.spek", "var x = 42; var y = x + 1; await never();")
	require.NoError(t, err)

	_, err = m.AddTask(func(id int) engine.Task {
		return engine.NewStackState(id, entry, nil)
	})
	require.NoError(t, err)
	for _, sym := range []engine.InteractionSymbol{engine.SymbolNext, engine.SymbolPrev, engine.SymbolTick, engine.SymbolNever} {
		sym := sym
		_, err := m.AddTask(func(id int) engine.Task {
			return engine.NewInteractionState(id, sym)
		})
		require.NoError(t, err)
	}

	lts, err := explorer.BuildLTS(u, m, engine.ScheduleNonZeno)
	require.NoError(t, err)
	require.Len(t, lts.States, 2)

	var internalCount int
	var terminal *engine.MachineState
	for _, s := range lts.States {
		for _, tr := range s.Transitions {
			if tr.Label == "" {
				internalCount++
				terminal = lts.States[tr.Target].Content
			}
		}
	}
	require.Equal(t, 1, internalCount)
	require.NotNil(t, terminal)

	var stackTask *engine.StackState
	for _, task := range terminal.Tasks() {
		if st, ok := task.(*engine.StackState); ok {
			stackTask = st
		}
	}
	require.NotNil(t, stackTask)
	yRef := engine.NewFrameReference(1)
	yVal, err := yRef.Read(stackTask, terminal)
	require.NoError(t, err)
	yInt, ok := yVal.(*engine.VInt)
	require.True(t, ok)
	require.Equal(t, int64(43), yInt.Value())
}
