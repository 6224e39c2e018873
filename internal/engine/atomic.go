package engine

import (
	"fmt"
	"io"
	"math"
)

// VNone is the singleton `none` value (spec §3.1, invariant 3). There is
// exactly one instance per Universe, u.None.
type VNone struct{ sealable }

func (n *VNone) TypeOf(u *Universe) *Type                 { return u.NoneType }
func (n *VNone) Seal()                                    { n.markSealed() }
func (n *VNone) CloneUnsealed(clones CloneMap) Value       { return n } // singleton, invariant 3
func (n *VNone) Hash() uint64                             { return hashString("none") }
func (n *VNone) Equals(other Value) bool                  { _, ok := other.(*VNone); return ok }
func (n *VNone) BEquals(other Value, bij *Bijection) bool { return n.Equals(other) }
func (n *VNone) CEquals(other Value) bool                 { return n.Equals(other) }
func (n *VNone) CHash() (uint64, error)                   { return n.Hash(), nil }
func (n *VNone) Print(out io.Writer)                      { fmt.Fprint(out, "none") }

// VBool is one of the two canonical booleans (spec invariant 3).
type VBool struct {
	sealable
	val bool
}

func (b *VBool) Value() bool                               { return b.val }
func (b *VBool) TypeOf(u *Universe) *Type                   { return u.BoolType }
func (b *VBool) Seal()                                      { b.markSealed() }
func (b *VBool) CloneUnsealed(clones CloneMap) Value        { return b } // canonical singleton
func (b *VBool) Hash() uint64                               { return hashString(fmt.Sprintf("bool:%v", b.val)) }
func (b *VBool) Equals(other Value) bool {
	o, ok := other.(*VBool)
	return ok && o.val == b.val
}
func (b *VBool) BEquals(other Value, bij *Bijection) bool { return b.Equals(other) }
func (b *VBool) CEquals(other Value) bool {
	switch o := other.(type) {
	case *VBool:
		return o.val == b.val
	case *VInt:
		return boolAsInt(b.val) == o.val
	case *VFloat:
		return float64(boolAsInt(b.val)) == o.val
	}
	return false
}
func (b *VBool) CHash() (uint64, error) { return hashString(fmt.Sprintf("num:%d", boolAsInt(b.val))), nil }
func (b *VBool) Print(out io.Writer)    { fmt.Fprintf(out, "%v", b.val) }

func boolAsInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// VInt is an arbitrary-but-here-fixed-width signed integer. The source
// language's integers are unbounded; since Spek explores finite example
// programs (spec's scope is enumerability, not speed, but the state
// space must still terminate), a 64-bit int is the pragmatic Go
// rendering and the one numeric-range simplification relative to the
// original's arbitrary precision.
type VInt struct {
	sealable
	val int64
}

func NewInt(v int64) *VInt { return &VInt{val: v} }

func (i *VInt) Value() int64                          { return i.val }
func (i *VInt) TypeOf(u *Universe) *Type               { return u.IntType }
func (i *VInt) Seal()                                  { i.markSealed() }
func (i *VInt) CloneUnsealed(clones CloneMap) Value {
	if c, ok := clones[i]; ok {
		return c
	}
	clone := &VInt{val: i.val}
	clones[i] = clone
	return clone
}
func (i *VInt) Hash() uint64 { return hashString(fmt.Sprintf("int:%d", i.val)) }
func (i *VInt) Equals(other Value) bool {
	o, ok := other.(*VInt)
	return ok && o.val == i.val
}
func (i *VInt) BEquals(other Value, bij *Bijection) bool { return i.Equals(other) }
func (i *VInt) CEquals(other Value) bool {
	switch o := other.(type) {
	case *VInt:
		return o.val == i.val
	case *VFloat:
		return float64(i.val) == o.val
	case *VBool:
		return i.val == boolAsInt(o.val)
	}
	return false
}
func (i *VInt) CHash() (uint64, error) { return hashString(fmt.Sprintf("num:%d", i.val)), nil }
func (i *VInt) Print(out io.Writer)    { fmt.Fprintf(out, "%d", i.val) }

// VFloat is a 64-bit float value.
type VFloat struct {
	sealable
	val float64
}

func NewFloat(v float64) *VFloat { return &VFloat{val: v} }

func (f *VFloat) Value() float64             { return f.val }
func (f *VFloat) TypeOf(u *Universe) *Type    { return u.FloatType }
func (f *VFloat) Seal()                       { f.markSealed() }
func (f *VFloat) CloneUnsealed(clones CloneMap) Value {
	if c, ok := clones[f]; ok {
		return c
	}
	clone := &VFloat{val: f.val}
	clones[f] = clone
	return clone
}
func (f *VFloat) Hash() uint64 { return hashString(fmt.Sprintf("float:%v", f.val)) }
func (f *VFloat) Equals(other Value) bool {
	o, ok := other.(*VFloat)
	return ok && (o.val == f.val || (math.IsNaN(o.val) && math.IsNaN(f.val)))
}
func (f *VFloat) BEquals(other Value, bij *Bijection) bool { return f.Equals(other) }
func (f *VFloat) CEquals(other Value) bool {
	switch o := other.(type) {
	case *VFloat:
		return o.val == f.val
	case *VInt:
		return f.val == float64(o.val)
	case *VBool:
		return f.val == float64(boolAsInt(o.val))
	}
	return false
}
func (f *VFloat) CHash() (uint64, error) { return hashString(fmt.Sprintf("num:%v", f.val)), nil }
func (f *VFloat) Print(out io.Writer)    { fmt.Fprintf(out, "%v", f.val) }

// VStr is an immutable string value.
type VStr struct {
	sealable
	val string
}

func NewString(v string) *VStr { return &VStr{val: v} }

func (s *VStr) Value() string              { return s.val }
func (s *VStr) TypeOf(u *Universe) *Type    { return u.StrType }
func (s *VStr) Seal()                       { s.markSealed() }
func (s *VStr) CloneUnsealed(clones CloneMap) Value {
	if c, ok := clones[s]; ok {
		return c
	}
	clone := &VStr{val: s.val}
	clones[s] = clone
	return clone
}
func (s *VStr) Hash() uint64 { return hashString("str:" + s.val) }
func (s *VStr) Equals(other Value) bool {
	o, ok := other.(*VStr)
	return ok && o.val == s.val
}
func (s *VStr) BEquals(other Value, bij *Bijection) bool { return s.Equals(other) }
func (s *VStr) CEquals(other Value) bool                 { return s.Equals(other) }
func (s *VStr) CHash() (uint64, error)                   { return s.Hash(), nil }
func (s *VStr) Print(out io.Writer)                      { fmt.Fprintf(out, "%q", s.val) }

// VRange is an immutable half-open integer range [Start, Stop) with Step.
type VRange struct {
	sealable
	Start, Stop, Step int64
}

func NewRange(start, stop, step int64) *VRange { return &VRange{Start: start, Stop: stop, Step: step} }

func (r *VRange) TypeOf(u *Universe) *Type { return u.RangeType }
func (r *VRange) Seal()                    { r.markSealed() }
func (r *VRange) CloneUnsealed(clones CloneMap) Value {
	if c, ok := clones[r]; ok {
		return c
	}
	clone := &VRange{Start: r.Start, Stop: r.Stop, Step: r.Step}
	clones[r] = clone
	return clone
}
func (r *VRange) Hash() uint64 {
	return hashCombine(hashString("range"), uint64(r.Start), uint64(r.Stop), uint64(r.Step))
}
func (r *VRange) Equals(other Value) bool {
	o, ok := other.(*VRange)
	return ok && o.Start == r.Start && o.Stop == r.Stop && o.Step == r.Step
}
func (r *VRange) BEquals(other Value, bij *Bijection) bool { return r.Equals(other) }
func (r *VRange) CEquals(other Value) bool                 { return r.Equals(other) }
func (r *VRange) CHash() (uint64, error)                    { return r.Hash(), nil }
func (r *VRange) Print(out io.Writer) {
	fmt.Fprintf(out, "range(%d, %d, %d)", r.Start, r.Stop, r.Step)
}

// Len reports how many integers the range yields.
func (r *VRange) Len() int {
	if r.Step == 0 {
		return 0
	}
	n := (r.Stop - r.Start)
	if r.Step > 0 {
		if n <= 0 {
			return 0
		}
		return int((n + r.Step - 1) / r.Step)
	}
	n = -n
	step := -r.Step
	if n <= 0 {
		return 0
	}
	return int((n + step - 1) / step)
}

// At returns the i-th element of the range.
func (r *VRange) At(i int) int64 { return r.Start + int64(i)*r.Step }
