package engine

import (
	"fmt"
	"io"
)

// Cell is the heap-allocated single-slot container that lets two
// procedures sharing a free variable see each other's writes (spec §4.2
// "Cells enable closures"). A closure's free variable is allocated once
// as a Cell; every procedure capturing it receives a CellReference to
// the same Cell.
type Cell struct {
	sealable
	content Value
}

func NewCell(initial Value) *Cell { return &Cell{content: initial} }

func (c *Cell) Get() Value { return c.content }

func (c *Cell) Set(v Value) error {
	if err := requireUnsealed(&c.sealable, "cell"); err != nil {
		return err
	}
	c.content = v
	return nil
}

func (c *Cell) TypeOf(u *Universe) *Type { return u.CellType }
func (c *Cell) Seal() {
	if c.sealed {
		return
	}
	c.markSealed()
	c.content.Seal()
}
func (c *Cell) CloneUnsealed(clones CloneMap) Value {
	if existing, ok := clones[c]; ok {
		return existing
	}
	clone := &Cell{}
	clones[c] = clone
	clone.content = c.content.CloneUnsealed(clones)
	return clone
}
func (c *Cell) Hash() uint64            { return hashCombine(hashString("cell"), c.content.Hash()) }
func (c *Cell) Equals(other Value) bool { return other == Value(c) }
func (c *Cell) BEquals(other Value, bij *Bijection) bool {
	o, ok := other.(*Cell)
	if !ok {
		return false
	}
	if !bij.Extend(c, o) {
		return false
	}
	return c.content.BEquals(o.content, bij)
}
func (c *Cell) CEquals(other Value) bool { return c.Equals(other) }
func (c *Cell) CHash() (uint64, error)    { return 0, RuntimeErrorf("unhashable type: cell") }
func (c *Cell) Print(out io.Writer) {
	fmt.Fprint(out, "cell(")
	printValue(out, c.content)
	fmt.Fprint(out, ")")
}
