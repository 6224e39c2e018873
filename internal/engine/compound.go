package engine

import (
	"fmt"
	"io"
)

// Compound is a fixed-width tuple of field values backing every
// user-defined class instance (spec §3.1 "Compound"). Fields are
// addressed by absolute offset; Type.FieldOffset translates a
// (most-derived-type, declaring-ancestor) pair into the offset a
// FieldReference needs, giving O(1) cross-inheritance field access.
type Compound struct {
	sealable
	Class  *Type
	Fields []Value
}

// NewCompound allocates an unsealed instance of class with every field
// initialized to none; Update instructions fill them in before the
// constructor returns.
func NewCompound(u *Universe, class *Type) *Compound {
	fields := make([]Value, class.TotalFields())
	for i := range fields {
		fields[i] = u.None
	}
	return &Compound{Class: class, Fields: fields}
}

func (c *Compound) TypeOf(u *Universe) *Type { return c.Class }

func (c *Compound) GetField(i int) (Value, error) {
	if i < 0 || i >= len(c.Fields) {
		return nil, IndexErrorf("field offset %d out of range for %s", i, c.Class.Name)
	}
	return c.Fields[i], nil
}

func (c *Compound) SetField(i int, v Value) error {
	if err := requireUnsealed(&c.sealable, "compound"); err != nil {
		return err
	}
	if i < 0 || i >= len(c.Fields) {
		return IndexErrorf("field offset %d out of range for %s", i, c.Class.Name)
	}
	c.Fields[i] = v
	return nil
}

func (c *Compound) Seal() {
	if c.sealed {
		return
	}
	c.markSealed()
	for _, f := range c.Fields {
		f.Seal()
	}
}

func (c *Compound) CloneUnsealed(clones CloneMap) Value {
	if existing, ok := clones[c]; ok {
		return existing
	}
	clone := &Compound{Class: c.Class, Fields: make([]Value, len(c.Fields))}
	clones[c] = clone
	for i, f := range c.Fields {
		clone.Fields[i] = f.CloneUnsealed(clones)
	}
	return clone
}

func (c *Compound) Hash() uint64 {
	parts := []uint64{hashString(c.Class.Name)}
	for _, f := range c.Fields {
		parts = append(parts, f.Hash())
	}
	return hashCombine(parts...)
}

func (c *Compound) Equals(other Value) bool {
	o, ok := other.(*Compound)
	return ok && o == c // mutable compounds are equal only to themselves (identity), spec §3.3
}

func (c *Compound) BEquals(other Value, bij *Bijection) bool {
	o, ok := other.(*Compound)
	if !ok || o.Class != c.Class {
		return false
	}
	if !bij.Extend(c, o) {
		return false
	}
	if len(c.Fields) != len(o.Fields) {
		return false
	}
	for i := range c.Fields {
		if !c.Fields[i].BEquals(o.Fields[i], bij) {
			return false
		}
	}
	return true
}

func (c *Compound) CEquals(other Value) bool { return c.Equals(other) }
func (c *Compound) CHash() (uint64, error)    { return c.Hash(), nil }

func (c *Compound) Print(out io.Writer) {
	fmt.Fprintf(out, "%s(", c.Class.Name)
	for i, f := range c.Fields {
		if i > 0 {
			fmt.Fprint(out, ", ")
		}
		printValue(out, f)
	}
	fmt.Fprint(out, ")")
}

// Exception is the Compound backing every raised error value (spec §7).
// initial distinguishes the not-yet-observed CancellationError from its
// user-catchable form (spec §5 "Cancellation").
type Exception struct {
	*Compound
	initial bool
}

// NewException builds an unsealed Exception of class t with message as
// its sole declared field.
func NewException(t *Type, message *VStr) *Exception {
	c := &Compound{Class: t, Fields: []Value{message}}
	return &Exception{Compound: c}
}

// Message returns the exception's message field.
func (e *Exception) Message() *VStr {
	if len(e.Fields) == 0 {
		return NewString("")
	}
	if s, ok := e.Fields[0].(*VStr); ok {
		return s
	}
	return NewString("")
}

// Initial reports whether this is the not-yet-observed CancellationError
// marker (spec §5, §7).
func (e *Exception) Initial() bool { return e.initial }

// Downgrade returns a non-initial copy of an initial CancellationError,
// the transition an instruction performs on first observing one (spec
// §4.4 "On entry every instruction checks...").
func (e *Exception) Downgrade() *Exception {
	clone := &Exception{Compound: &Compound{Class: e.Class, Fields: e.Fields}, initial: false}
	return clone
}

func (e *Exception) CloneUnsealed(clones CloneMap) Value {
	if existing, ok := clones[e]; ok {
		return existing
	}
	clone := &Exception{Compound: &Compound{Class: e.Class, Fields: make([]Value, len(e.Fields))}, initial: e.initial}
	clones[e] = clone
	for i, f := range e.Fields {
		clone.Fields[i] = f.CloneUnsealed(clones)
	}
	return clone
}

// Exception is its own named type embedding *Compound, so a type
// assertion to *Compound inside the promoted methods above would never
// match another *Exception; these overrides keep exception equality and
// hashing exception-aware instead of silently falling through to false.

func (e *Exception) Equals(other Value) bool {
	o, ok := other.(*Exception)
	return ok && o == e
}

func (e *Exception) BEquals(other Value, bij *Bijection) bool {
	o, ok := other.(*Exception)
	if !ok || o.Class != e.Class {
		return false
	}
	if !bij.Extend(e, o) {
		return false
	}
	if len(e.Fields) != len(o.Fields) {
		return false
	}
	for i := range e.Fields {
		if !e.Fields[i].BEquals(o.Fields[i], bij) {
			return false
		}
	}
	return true
}

func (e *Exception) CEquals(other Value) bool { return e.Equals(other) }

func (e *Exception) Hash() uint64 {
	parts := []uint64{hashString(e.Class.Name)}
	for _, f := range e.Fields {
		parts = append(parts, f.Hash())
	}
	return hashCombine(parts...)
}

func (e *Exception) CHash() (uint64, error) { return e.Hash(), nil }
