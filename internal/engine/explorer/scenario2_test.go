package explorer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"spek/internal/engine"
	"spek/internal/engine/explorer"
)

// varAssignAwaitNever compiles `var x = 42; var y = x + 1; await
// never()`: two frame-slot assignments followed by a guard with no true
// branch, which blocks the task forever exactly as `await never()`
// does (spec §8 scenario 2).
func varAssignAwaitNever(u *engine.Universe) *engine.ProgramLocation {
	x := engine.NewFrameReference(0)
	y := engine.NewFrameReference(1)

	program := engine.NewStackProgram(
		&engine.UpdateInstruction{
			RefTerm:   engine.TRef(x),
			ValueTerm: engine.CInt(42),
			Next:      1,
			OnError:   -1,
			U:         u,
		},
		&engine.UpdateInstruction{
			RefTerm: engine.TRef(y),
			ValueTerm: &engine.ArithmeticBinaryOperation{
				Op:    engine.OpAdd,
				Left:  &engine.ReadTerm{RefTerm: engine.TRef(x)},
				Right: engine.CInt(1),
			},
			Next:    2,
			OnError: -1,
			U:       u,
		},
		&engine.GuardInstruction{
			Branches: []engine.GuardBranch{
				{Cond: engine.CBool(u, false), Next: 0},
			},
			OnError: -1,
			U:       u,
		},
	)
	return engine.NewProgramLocation(program, 0)
}

// TestScenarioVarAssignAwaitNever reproduces spec §8 scenario 2: the
// task runs both assignments in one internal burst then blocks forever
// on the always-false guard, leaving exactly 2 reachable states and 1
// internal transition; `y` must end bound to 43.
func TestScenarioVarAssignAwaitNever(t *testing.T) {
	u := engine.NewUniverse()
	m := engine.NewMachineState()

	_, err := m.AddTask(func(id int) engine.Task {
		return engine.NewStackState(id, varAssignAwaitNever(u), nil)
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

	var internalCount, interactionCount int
	var terminal *engine.MachineState
	for _, s := range lts.States {
		for _, tr := range s.Transitions {
			if tr.Label == "" {
				internalCount++
				terminal = lts.States[tr.Target].Content
			} else {
				interactionCount++
			}
		}
	}
	require.Equal(t, 1, internalCount)
	require.Equal(t, 3, interactionCount)
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
