package stdlib

import (
	"testing"

	"github.com/stretchr/testify/require"

	"spek/internal/engine"
	"spek/internal/engine/module"
)

func TestCoreResolvesCanonicalSingletons(t *testing.T) {
	u := engine.NewUniverse()
	r := module.NewResolver()

	entry, err := r.Resolve(u, Core(u))
	require.NoError(t, err)

	m := engine.NewMachineState()
	task, err := m.AddTask(func(id int) engine.Task {
		return engine.NewStackState(id, entry, nil)
	})
	require.NoError(t, err)
	st := task.(*engine.StackState)
	require.NoError(t, st.Run(u, m))

	v, err := engine.ReturnValueRef().Read(st, m)
	require.NoError(t, err)
	ns, ok := v.(*engine.Dict)
	require.True(t, ok)

	none, found, err := ns.Get(engine.NewString("none"))
	require.NoError(t, err)
	require.True(t, found)
	require.Same(t, u.None, none)
}
