package engine

import (
	"fmt"
	"io"
)

// Member is either a field offset (int), a procedure (method), or a
// *Property (accessor) — spec §3.4 "dict of directly-defined members".
type Member any

// Type describes one entry in the closed value universe (spec §3.1,
// §3.4). Types are themselves Values: the atomic kind `type` is exactly
// *Type. A Type's method-resolution order is computed once, at
// construction, by C3 linearization of its direct bases.
type Type struct {
	sealable
	Name    string
	Bases   []*Type
	MRO     []*Type        // C3-linearized, most-derived first, ending in object
	Members map[string]Member

	// fieldOffset[t] is the slot at which t's own direct fields begin
	// within a Compound whose most-derived type is this one, letting
	// cross-inheritance field access stay O(1) (spec §3.4).
	fieldOffset map[*Type]int
	ownFields   int // number of fields this type itself directly declares
	totalFields int // ownFields plus every base's contribution
}

// fieldLayout linearizes bases' MRO and sums every ancestor's own field
// count in that order, giving the offset at which a type with these
// bases would place its own directly-declared fields (spec §3.4). mro
// never contains the type being built — callers add its own
// contribution on top of baseOffset.
func fieldLayout(name string, bases []*Type) (mro []*Type, baseOffset int, err error) {
	mro, err = c3Linearize(name, bases)
	if err != nil {
		return nil, 0, err
	}
	for i := len(mro) - 1; i >= 0; i-- {
		baseOffset += mro[i].ownFields
	}
	return mro, baseOffset, nil
}

// BaseFieldOffset returns the slot at which a not-yet-constructed type
// named name with direct bases would begin placing its own declared
// fields — every MRO ancestor's own-field count, summed. NewClassTerm
// uses this to assign each newly-declared field its final absolute
// offset before the Type itself exists to ask via FieldOffset.
func BaseFieldOffset(name string, bases []*Type) (int, error) {
	_, offset, err := fieldLayout(name, bases)
	return offset, err
}

// NewType builds a Type from a name, its direct bases (already sealed,
// already linearized) and its own field count, computing MRO and field
// offsets. It returns an error if the bases admit no consistent
// linearization (a monotonic-MRO violation).
func NewType(name string, bases []*Type, ownFields int, members map[string]Member) (*Type, error) {
	mro, baseOffset, err := fieldLayout(name, bases)
	if err != nil {
		return nil, err
	}
	t := &Type{
		Name:        name,
		Bases:       bases,
		MRO:         mro,
		Members:     members,
		fieldOffset: make(map[*Type]int),
		ownFields:   ownFields,
	}
	if members == nil {
		t.Members = make(map[string]Member)
	}
	// Offsets are assigned base-first (root of the MRO) so that a
	// subtype's fields always sit after every ancestor's, matching how
	// the stack compiler lays out FieldReference indices. t's own
	// fields begin at baseOffset, after every ancestor's contribution.
	offset := 0
	for i := len(mro) - 1; i >= 0; i-- {
		anc := mro[i]
		t.fieldOffset[anc] = offset
		offset += anc.ownFields
	}
	t.fieldOffset[t] = offset
	t.totalFields = offset + ownFields
	return t, nil
}

// c3Linearize implements the C3 superclass linearization algorithm used by
// Python's MRO (and adopted here verbatim per spec §3.4): merge(L[B1],
// ..., L[Bn], [B1..Bn]), where L[Bi] is Bi followed by Bi.MRO. The result
// does not include the type being built; Lookup puts that type first.
func c3Linearize(name string, bases []*Type) ([]*Type, error) {
	if len(bases) == 0 {
		return nil, nil // object itself: no ancestors
	}
	sequences := make([][]*Type, 0, len(bases)+1)
	for _, b := range bases {
		sequences = append(sequences, append([]*Type{b}, b.MRO...))
	}
	sequences = append(sequences, append([]*Type{}, bases...))

	var result []*Type
	for {
		sequences = dropEmpty(sequences)
		if len(sequences) == 0 {
			return result, nil
		}
		var head *Type
		for _, seq := range sequences {
			candidate := seq[0]
			if !appearsInTail(sequences, candidate) {
				head = candidate
				break
			}
		}
		if head == nil {
			return nil, InstructionErrorf("inconsistent method resolution order for %q", name)
		}
		result = append(result, head)
		for i, seq := range sequences {
			if len(seq) > 0 && seq[0] == head {
				sequences[i] = seq[1:]
			}
		}
	}
}

func dropEmpty(seqs [][]*Type) [][]*Type {
	out := seqs[:0]
	for _, s := range seqs {
		if len(s) > 0 {
			out = append(out, s)
		}
	}
	return out
}

func appearsInTail(seqs [][]*Type, candidate *Type) bool {
	for _, seq := range seqs {
		for _, t := range seq[1:] {
			if t == candidate {
				return true
			}
		}
	}
	return false
}

// FieldOffset returns the slot at which anc's direct fields begin within
// a Compound whose most-derived type is t, and whether anc is in t's MRO
// at all.
func (t *Type) FieldOffset(anc *Type) (int, bool) {
	off, ok := t.fieldOffset[anc]
	return off, ok
}

// TotalFields is the number of storage slots a Compound of this type
// needs (this type's own fields plus every ancestor's).
func (t *Type) TotalFields() int { return t.totalFields }

// IsSubtype reports whether t is anc or a descendant of anc in the MRO.
func (t *Type) IsSubtype(anc *Type) bool {
	if t == anc {
		return true
	}
	_, ok := t.fieldOffset[anc]
	return ok
}

// Lookup resolves name through t's MRO, most-derived first.
func (t *Type) Lookup(name string) (Member, bool) {
	for _, anc := range append([]*Type{t}, t.MRO...) {
		if m, ok := anc.Members[name]; ok {
			return m, true
		}
	}
	return nil, false
}

func (t *Type) TypeOf(u *Universe) *Type { return u.TypeType }

func (t *Type) Seal() {
	if t.sealed {
		return
	}
	t.markSealed()
}

func (t *Type) CloneUnsealed(clones CloneMap) Value {
	// Types are part of the program's static structure, not the mutable
	// state the explorer clones per step; they are effectively
	// immutable singletons once registered with a Universe, so cloning
	// returns the same pointer (consistent with spec invariant 3's
	// "canonical construction" idea extended to types).
	return t
}

func (t *Type) Hash() uint64 { return hashString("type:" + t.Name) }

func (t *Type) Equals(other Value) bool { return t == other }

func (t *Type) BEquals(other Value, bij *Bijection) bool {
	o, ok := other.(*Type)
	return ok && t == o
}

func (t *Type) CEquals(other Value) bool { return t.Equals(other) }

func (t *Type) CHash() (uint64, error) { return t.Hash(), nil }

func (t *Type) Print(out io.Writer) { fmt.Fprintf(out, "<type %s>", t.Name) }
