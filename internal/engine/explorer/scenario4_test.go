package explorer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"spek/internal/engine"
	"spek/internal/engine/explorer"
)

// tickProcedure is a trivial stack procedure that completes the instant
// it is scheduled: Launch plus a guard on IsTerminated is the compiled
// shape of `await` (spec §9 "Coroutine-style await"), and using it here
// forces each philosopher's left- and right-fork acquisitions into two
// separate scheduler-visible steps instead of one atomic burst, which is
// what actually lets the deadlock interleaving arise.
func tickProcedure(u *engine.Universe) *engine.StackProcedure {
	program := engine.NewStackProgram(&engine.PopInstruction{OnError: -1, U: u})
	p := engine.NewStackProcedure(0, nil, engine.NewProgramLocation(program, 0))
	p.Seal()
	return p
}

// philosopherProgram acquires its left fork, waits one scheduling round
// (the tick), then tries for its right fork — the location of that
// second guard is "awaiting_right" (spec §8 scenario 4). Slot 0 holds
// the left fork *Cell, slot 1 the right fork *Cell; slot 2 is scratch
// for the awaited tick task.
func philosopherProgram(u *engine.Universe) *engine.ProgramLocation {
	left := engine.NewCellReference(engine.NewFrameReference(0))
	right := engine.NewCellReference(engine.NewFrameReference(1))
	awaited := engine.NewFrameReference(2)

	leftFree := &engine.Comparison{
		Op: engine.OpEq, Left: &engine.ReadTerm{RefTerm: engine.TRef(left)}, Right: engine.CBool(u, false),
	}
	rightFree := &engine.Comparison{
		Op: engine.OpEq, Left: &engine.ReadTerm{RefTerm: engine.TRef(right)}, Right: engine.CBool(u, false),
	}
	tickDone := &engine.UnaryPredicateTerm{
		Op: engine.PredIsTerminated, Operand: &engine.ReadTerm{RefTerm: engine.TRef(awaited)},
	}

	program := engine.NewStackProgram(
		&engine.GuardInstruction{ // 0: acquire left
			Branches: []engine.GuardBranch{{Cond: leftFree, Next: 1}}, OnError: -1, U: u,
		},
		&engine.UpdateInstruction{ // 1
			RefTerm: engine.TRef(left), ValueTerm: engine.CBool(u, true), Next: 2, OnError: -1, U: u,
		},
		&engine.LaunchInstruction{ // 2: launch the tick
			Callee: engine.ConstTerm{V: tickProcedure(u)}, Next: 3, OnError: -1, U: u,
		},
		&engine.UpdateInstruction{ // 3: stash the launched task so it survives past the return slot
			RefTerm: engine.TRef(awaited), ValueTerm: &engine.ReadTerm{RefTerm: engine.TRef(engine.ReturnValueRef())},
			Next: 4, OnError: -1, U: u,
		},
		&engine.GuardInstruction{ // 4: await the tick; the burst yields here until it terminates
			Branches: []engine.GuardBranch{{Cond: tickDone, Next: 5}}, OnError: -1, U: u,
		},
		&engine.GuardInstruction{ // 5: awaiting_right
			Branches: []engine.GuardBranch{{Cond: rightFree, Next: 6}}, OnError: -1, U: u,
		},
		&engine.UpdateInstruction{ // 6
			RefTerm: engine.TRef(right), ValueTerm: engine.CBool(u, true), Next: 7, OnError: -1, U: u,
		},
		&engine.PopInstruction{OnError: -1, U: u}, // 7
	)
	return engine.NewProgramLocation(program, 0)
}

const awaitingRightIndex = 5

// TestScenarioDiningPhilosophersReachesDeadlock reproduces spec §8
// scenario 4: three philosophers seated around three forks, each
// philosopher's right fork being the next philosopher's left, so a
// reachable interleaving has every philosopher holding its left fork and
// blocked on the guard that awaits its right — a full deadlock the
// kernel must be able to find by brute-force exploration.
func TestScenarioDiningPhilosophersReachesDeadlock(t *testing.T) {
	u := engine.NewUniverse()
	m := engine.NewMachineState()

	forks := []*engine.Cell{
		engine.NewCell(u.False),
		engine.NewCell(u.False),
		engine.NewCell(u.False),
	}

	for p := 0; p < 3; p++ {
		left := forks[p]
		right := forks[(p+1)%3]
		_, err := m.AddTask(func(id int) engine.Task {
			return engine.NewStackState(id, philosopherProgram(u), []engine.Value{left, right})
		})
		require.NoError(t, err)
	}

	var deadlocks int
	err := explorer.Explore(u, m, engine.ScheduleAll, func(state *engine.MachineState, successors []explorer.Step) error {
		if len(successors) != 0 {
			return nil
		}
		allAwaitingRight := true
		philosopherCount := 0
		for _, task := range state.Tasks() {
			st, ok := task.(*engine.StackState)
			if !ok {
				continue
			}
			philosopherCount++
			f := st.TopFrame()
			if f == nil || f.Location.Index != awaitingRightIndex {
				allAwaitingRight = false
			}
		}
		if philosopherCount == 3 && allAwaitingRight {
			deadlocks++
		}
		return nil
	})
	require.NoError(t, err)
	require.True(t, deadlocks > 0, "expected the explorer to reach a state with all three philosophers awaiting their right fork")
}
