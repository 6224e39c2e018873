package engine

import (
	"fmt"
	"io"
)

// indexable is satisfied by every collection an iterator can walk.
type indexable interface {
	Value
	iterLen() int
	iterAt(i int) (Value, error)
	iterToken() uint64
}

func (t *Tuple) iterLen() int               { return len(t.Elements) }
func (t *Tuple) iterAt(i int) (Value, error) { return t.Elements[i], nil }
func (t *Tuple) iterToken() uint64           { return 0 } // immutable: no token needed

func (l *List) iterLen() int               { return len(l.Elements) }
func (l *List) iterAt(i int) (Value, error) { return l.Elements[i], nil }
func (l *List) iterToken() uint64           { return l.token }

func (v *DictView) iterLen() int               { return len(v.Elements()) }
func (v *DictView) iterAt(i int) (Value, error) { return v.Elements()[i], nil }
func (v *DictView) iterToken() uint64           { return v.Dict.token }

// IndexingIterator walks an immutable collection by position; since its
// source cannot mutate, it never invalidates (spec §3.1 "indexing
// iterator").
type IndexingIterator struct {
	sealable
	source indexable
	pos    int
}

func NewIndexingIterator(source indexable) *IndexingIterator {
	return &IndexingIterator{source: source}
}

func (it *IndexingIterator) Next() (Value, error) {
	if it.pos >= it.source.iterLen() {
		return nil, StopIterationf("iterator exhausted")
	}
	v, err := it.source.iterAt(it.pos)
	if err != nil {
		return nil, err
	}
	it.pos++
	return v, nil
}

func (it *IndexingIterator) TypeOf(u *Universe) *Type { return u.IteratorType }
func (it *IndexingIterator) Seal()                     { it.markSealed() }
func (it *IndexingIterator) CloneUnsealed(clones CloneMap) Value {
	if existing, ok := clones[it]; ok {
		return existing
	}
	clone := &IndexingIterator{pos: it.pos}
	clones[it] = clone
	clone.source = it.source.CloneUnsealed(clones).(indexable)
	return clone
}
func (it *IndexingIterator) Hash() uint64 { return hashCombine(hashString("iiter"), it.source.Hash(), uint64(it.pos)) }
func (it *IndexingIterator) Equals(other Value) bool { return other == Value(it) }
func (it *IndexingIterator) BEquals(other Value, bij *Bijection) bool {
	o, ok := other.(*IndexingIterator)
	if !ok || o.pos != it.pos {
		return false
	}
	if !bij.Extend(it, o) {
		return false
	}
	return it.source.BEquals(o.source, bij)
}
func (it *IndexingIterator) CEquals(other Value) bool { return it.Equals(other) }
func (it *IndexingIterator) CHash() (uint64, error)    { return 0, RuntimeErrorf("unhashable type: iterator") }
func (it *IndexingIterator) Print(out io.Writer)       { fmt.Fprintf(out, "<iterator at %d>", it.pos) }

// MutableIterator walks a mutable collection, carrying the token
// observed at construction; any access after the source's token has
// moved raises RuntimeError (spec §3.1 "mutable-iterator ... invalidates
// on underlying mutation").
type MutableIterator struct {
	sealable
	source indexable
	pos    int
	token  uint64
}

func NewMutableIterator(source indexable) *MutableIterator {
	return &MutableIterator{source: source, token: source.iterToken()}
}

func (it *MutableIterator) Next() (Value, error) {
	if it.source.iterToken() != it.token {
		return nil, RuntimeErrorf("iterator invalidated by mutation")
	}
	if it.pos >= it.source.iterLen() {
		return nil, StopIterationf("iterator exhausted")
	}
	v, err := it.source.iterAt(it.pos)
	if err != nil {
		return nil, err
	}
	it.pos++
	return v, nil
}

func (it *MutableIterator) TypeOf(u *Universe) *Type { return u.IteratorType }
func (it *MutableIterator) Seal()                     { it.markSealed() }
func (it *MutableIterator) CloneUnsealed(clones CloneMap) Value {
	if existing, ok := clones[it]; ok {
		return existing
	}
	clone := &MutableIterator{pos: it.pos, token: it.token}
	clones[it] = clone
	clone.source = it.source.CloneUnsealed(clones).(indexable)
	return clone
}
func (it *MutableIterator) Hash() uint64 {
	return hashCombine(hashString("miter"), it.source.Hash(), uint64(it.pos), it.token)
}
func (it *MutableIterator) Equals(other Value) bool { return other == Value(it) }
func (it *MutableIterator) BEquals(other Value, bij *Bijection) bool {
	o, ok := other.(*MutableIterator)
	if !ok || o.pos != it.pos || o.token != it.token {
		return false
	}
	if !bij.Extend(it, o) {
		return false
	}
	return it.source.BEquals(o.source, bij)
}
func (it *MutableIterator) CEquals(other Value) bool { return it.Equals(other) }
func (it *MutableIterator) CHash() (uint64, error) {
	return 0, RuntimeErrorf("unhashable type: iterator")
}
func (it *MutableIterator) Print(out io.Writer) { fmt.Fprintf(out, "<iterator at %d>", it.pos) }
