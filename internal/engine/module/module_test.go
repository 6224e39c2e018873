package module_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"spek/internal/engine"
	"spek/internal/engine/module"
)

// runToReturn drives a freshly added task to completion and returns its
// return-value slot; it is the shared harness every test in this file
// uses to observe what a resolved program location actually produces.
func runToReturn(t *testing.T, u *engine.Universe, entry *engine.ProgramLocation) engine.Value {
	t.Helper()
	m := engine.NewMachineState()
	added, err := m.AddTask(func(id int) engine.Task {
		return engine.NewStackState(id, entry, nil)
	})
	require.NoError(t, err)
	st := added.(*engine.StackState)
	require.NoError(t, st.Run(u, m))
	require.Equal(t, engine.StatusCompleted, st.GetStatus())
	v, err := engine.ReturnValueRef().Read(st, m)
	require.NoError(t, err)
	return v
}

func TestBuiltinSpecResolvesNamesIntoNamespaceDict(t *testing.T) {
	u := engine.NewUniverse()
	spec := module.NewBuiltinSpec("math", map[string]engine.Value{
		"answer": engine.BoolOf(u, false),
	})

	entry, err := spec.Resolve(u)
	require.NoError(t, err)

	v := runToReturn(t, u, entry)
	ns, ok := v.(*engine.Dict)
	require.True(t, ok)

	got, found, err := ns.Get(engine.NewString("answer"))
	require.NoError(t, err)
	require.True(t, found)
	require.Same(t, u.False, got)
}

func TestASTSpecDelegatesToCompiler(t *testing.T) {
	u := engine.NewUniverse()
	var compiledWith string
	compile := func(u *engine.Universe, source string) (*engine.ProgramLocation, error) {
		compiledWith = source
		return module.NewBuiltinSpec("unused", map[string]engine.Value{
			"source_len": engine.NewString(source),
		}).Resolve(u)
	}
	spec := module.NewASTSpec("greeter", "hello", compile)

	entry, err := spec.Resolve(u)
	require.NoError(t, err)
	require.Equal(t, "hello", compiledWith)

	v := runToReturn(t, u, entry)
	ns, ok := v.(*engine.Dict)
	require.True(t, ok)
	got, found, err := ns.Get(engine.NewString("source_len"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "hello", got.(*engine.VStr).Value())
}

// countingSpec records how many times Resolve is actually invoked, so
// tests can assert the resolver's cache works rather than just
// happening to return a consistent value.
type countingSpec struct {
	key   string
	calls *int
}

func (c countingSpec) Key() string { return c.key }

func (c countingSpec) Resolve(u *engine.Universe) (*engine.ProgramLocation, error) {
	*c.calls++
	return module.NewBuiltinSpec(c.key, map[string]engine.Value{
		"calls": engine.NewString(c.key),
	}).Resolve(u)
}

func TestResolverCachesByKey(t *testing.T) {
	u := engine.NewUniverse()
	r := module.NewResolver()
	calls := 0
	spec := countingSpec{key: "mod-a", calls: &calls}

	first, err := r.Resolve(u, spec)
	require.NoError(t, err)
	second, err := r.Resolve(u, spec)
	require.NoError(t, err)

	require.Equal(t, 1, calls)
	require.Same(t, first, second)
}

func TestResolverForgetRecompiles(t *testing.T) {
	u := engine.NewUniverse()
	r := module.NewResolver()
	calls := 0
	spec := countingSpec{key: "mod-b", calls: &calls}

	_, err := r.Resolve(u, spec)
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	r.Forget("mod-b")

	_, err = r.Resolve(u, spec)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestResolverKeepsDistinctKeysIndependent(t *testing.T) {
	u := engine.NewUniverse()
	r := module.NewResolver()
	callsA, callsB := 0, 0

	_, err := r.Resolve(u, countingSpec{key: "mod-a", calls: &callsA})
	require.NoError(t, err)
	_, err = r.Resolve(u, countingSpec{key: "mod-b", calls: &callsB})
	require.NoError(t, err)

	require.Equal(t, 1, callsA)
	require.Equal(t, 1, callsB)
}
