package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestNewClassTermAssignsNonOverlappingInheritedFieldOffsets exercises
// the NewClassTerm (spec §4.3 "NewClass") + NewType (spec §3.4) field
// layout path: a subclass declaring one new field on top of a base
// class's own field must get a Compound large enough for both, at
// distinct, non-colliding offsets, so reading and writing either field
// through its raw member offset stays O(1) and never aliases the other.
func TestNewClassTermAssignsNonOverlappingInheritedFieldOffsets(t *testing.T) {
	u := NewUniverse()

	baseNS := NewDict(u)
	require.NoError(t, baseNS.Set(NewString("a"), u.None))
	baseNS.Seal()
	baseTerm := &NewClassTerm{
		NameTerm:      ConstTerm{NewString("Base")},
		SupersTerm:    ConstTerm{NewTuple(u.ObjectType)},
		NamespaceTerm: ConstTerm{baseNS},
	}
	baseVal, err := baseTerm.Evaluate(u, nil, nil)
	require.NoError(t, err)
	base := baseVal.(*Type)
	require.Equal(t, 1, base.TotalFields())

	subNS := NewDict(u)
	require.NoError(t, subNS.Set(NewString("b"), u.None))
	subNS.Seal()
	subTerm := &NewClassTerm{
		NameTerm:      ConstTerm{NewString("Sub")},
		SupersTerm:    ConstTerm{NewTuple(base)},
		NamespaceTerm: ConstTerm{subNS},
	}
	subVal, err := subTerm.Evaluate(u, nil, nil)
	require.NoError(t, err)
	sub := subVal.(*Type)
	require.Equal(t, 2, sub.TotalFields())

	aMember, ok := sub.Lookup("a")
	require.True(t, ok)
	bMember, ok := sub.Lookup("b")
	require.True(t, ok)
	aOffset, bOffset := aMember.(int), bMember.(int)
	require.NotEqual(t, aOffset, bOffset)

	inst := NewCompound(u, sub)
	require.NoError(t, inst.SetField(aOffset, NewInt(1)))
	require.NoError(t, inst.SetField(bOffset, NewInt(2)))

	aVal, err := inst.GetField(aOffset)
	require.NoError(t, err)
	bVal, err := inst.GetField(bOffset)
	require.NoError(t, err)
	require.Equal(t, int64(1), aVal.(*VInt).Value())
	require.Equal(t, int64(2), bVal.(*VInt).Value())
}

// TestNewTypeFieldOffsetIncludesOwnFields guards the NewType half of
// the same bug directly: a type whose only base is object (which
// declares no fields) must reserve storage for its own declared fields
// (spec §3.4), not just its ancestors'.
func TestNewTypeFieldOffsetIncludesOwnFields(t *testing.T) {
	u := NewUniverse()
	excType, err := NewType("Boom", []*Type{u.ObjectType}, 1, map[string]Member{"message": 0})
	require.NoError(t, err)
	require.Equal(t, 1, excType.TotalFields())

	off, ok := excType.FieldOffset(excType)
	require.True(t, ok)
	require.Equal(t, 0, off)
}
