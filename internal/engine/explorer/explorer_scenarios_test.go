package explorer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"spek/internal/engine"
	"spek/internal/engine/explorer"
)

// emptyProgram is the minimal well-formed stack program: pop the only
// frame and finish, exercising "program task transitions from RUNNING
// to COMPLETED" with nothing else in between (spec §8 scenario 1).
func emptyProgram(u *engine.Universe) *engine.ProgramLocation {
	program := engine.NewStackProgram(&engine.PopInstruction{OnError: -1, U: u})
	return engine.NewProgramLocation(program, 0)
}

// TestScenarioEmptyProgramWithInteractions reproduces spec §8 scenario
// 1: a single module-level task running the empty program plus four
// interaction tasks (NEXT, PREV, TICK, NEVER). The reachable LTS has 2
// states and 1 internal transition (the module task completing); the
// non-NEVER interactions then self-loop on the terminal state, and NEVER
// never appears as a transition label.
func TestScenarioEmptyProgramWithInteractions(t *testing.T) {
	u := engine.NewUniverse()
	m := engine.NewMachineState()

	_, err := m.AddTask(func(id int) engine.Task {
		return engine.NewStackState(id, emptyProgram(u), nil)
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
	labels := make(map[string]bool)
	for _, s := range lts.States {
		for _, tr := range s.Transitions {
			if tr.Label == "" {
				internalCount++
			} else {
				interactionCount++
				labels[tr.Label] = true
			}
		}
	}
	require.Equal(t, 1, internalCount)
	require.Equal(t, 3, interactionCount)
	require.True(t, labels[string(engine.SymbolNext)])
	require.True(t, labels[string(engine.SymbolPrev)])
	require.True(t, labels[string(engine.SymbolTick)])
	require.False(t, labels[string(engine.SymbolNever)])
}
