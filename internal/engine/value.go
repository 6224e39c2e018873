// Package engine implements the Spek value substrate, stack task machine,
// and the machine-state primitives the explorer and bisimulation kernel
// operate over (spec §3, §4). The package is kept as one tightly coupled
// unit — the way the teacher keeps its SSA IR (internal/ir) or its
// semantic analyzer (internal/semantic) as one package of many files —
// because values, references, terms, instructions, tasks and machine
// states are mutually recursive by design and splitting them across
// packages would only fight the language for no benefit.
package engine

import (
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
)

// Value is the contract every runtime object satisfies (spec §4.1).
// Concrete kinds are *VNone, *VBool, *VInt, *VFloat, *VStr, *VRange,
// *Type, *Compound, *Exception, *Tuple, *List, *Dict, *DictView,
// *Cell, *Future, *IndexingIterator, *MutableIterator, the reference
// variants, the procedure variants, *Property, *StackState and
// *InteractionState, and *ProgramLocation.
type Value interface {
	// TypeOf returns the value's Type within u's type universe.
	TypeOf(u *Universe) *Type

	// Seal recurses into every structurally owned sub-value and then
	// marks self sealed (spec invariant 1). Idempotent.
	Seal()

	// Sealed reports whether Seal has been called.
	Sealed() bool

	// CloneUnsealed returns a fresh, unsealed deep copy, consulting and
	// populating clones to preserve sharing and break cycles (spec §4.1
	// "Deep clone", invariant 5).
	CloneUnsealed(clones CloneMap) Value

	// Hash is defined only for sealed values (spec invariant 2).
	Hash() uint64

	// Equals is the "can a program distinguish them at all" relation
	// (spec §3.3). It must imply equal Hash.
	Equals(other Value) bool

	// BEquals is Equals up to a partial identity bijection being built
	// incrementally across two whole machine states (spec §4.1
	// "Bijective equality").
	BEquals(other Value, bij *Bijection) bool

	// CEquals is the user-visible `==` operator, which may cross types.
	CEquals(other Value) bool

	// CHash is compatible with CEquals; unhashable containers return an
	// error rather than a hash.
	CHash() (uint64, error)

	// Print writes a human-readable rendering of the value to out.
	Print(out io.Writer)
}

// CloneMap is the identity map clone_unsealed threads through a traversal,
// from a source value to the clone already allocated for it. Because Go
// values are addressed by the interface's own pointer identity, the
// source value itself is usable as the map key.
type CloneMap map[Value]Value

// Bijection is the partial, incrementally-extended identity bijection
// bequals builds between two object graphs (spec §4.1). Constructing it
// from one side only and testing BEquals both ways is unsound, so
// Extend always updates both directions together.
type Bijection struct {
	forward  map[Value]Value
	backward map[Value]Value
}

// NewBijection returns an empty bijection.
func NewBijection() *Bijection {
	return &Bijection{forward: make(map[Value]Value), backward: make(map[Value]Value)}
}

// Extend tries to map a to b. It succeeds (returning true) if no binding
// exists yet for either side, or if the existing bindings already agree;
// it fails if a or b is already bound to something else.
func (b *Bijection) Extend(a, c Value) bool {
	if existing, ok := b.forward[a]; ok {
		return existing == c
	}
	if existing, ok := b.backward[c]; ok {
		return existing == a
	}
	b.forward[a] = c
	b.backward[c] = a
	return true
}

// Lookup returns the value a is currently bound to, if any.
func (b *Bijection) Lookup(a Value) (Value, bool) {
	c, ok := b.forward[a]
	return c, ok
}

// sealable is embedded by every mutable value kind to carry the one-way
// sealed flag (spec invariant 1). It does not implement Seal itself,
// since sealing a compound value must recurse into its fields first;
// concrete kinds call markSealed() once they have sealed every owned
// sub-value.
type sealable struct {
	sealed bool
}

func (s *sealable) Sealed() bool { return s.sealed }
func (s *sealable) markSealed()  { s.sealed = true }

func requireUnsealed(s *sealable, what string) error {
	if s.sealed {
		return SealedErrorf("cannot mutate a sealed %s", what)
	}
	return nil
}

// hashBytes folds arbitrary byte content into the 64-bit hash space used
// throughout the engine (machine-state hashing, the explorer's visited
// set, dict/set-like collections). xxhash is the teacher-pack's natural
// choice for a content hash: fast, stable across runs, and already a
// transitive dependency of several retrieved repos.
func hashBytes(b []byte) uint64 {
	return xxhash.Sum64(b)
}

func hashString(s string) uint64 {
	return xxhash.Sum64String(s)
}

// hashCombine folds a sequence of hashes into one, order-sensitive. Used
// by compounds, tuples and frames to combine field hashes.
func hashCombine(parts ...uint64) uint64 {
	h := uint64(14695981039346656037) // FNV offset basis, re-mixed below
	for _, p := range parts {
		h ^= p
		h *= 1099511628211
		h ^= h >> 33
	}
	return h
}

// printValue is a small helper used by collections to render an element
// without requiring every call site to allocate its own io.Writer shim.
func printValue(out io.Writer, v Value) {
	if v == nil {
		fmt.Fprint(out, "<nil>")
		return
	}
	v.Print(out)
}
