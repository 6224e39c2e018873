package engine

import (
	"fmt"
	"io"
	"sort"
)

// Tuple is the immutable fixed-size collection (spec §3.1).
type Tuple struct {
	sealable
	Elements []Value
}

func NewTuple(elements ...Value) *Tuple { return &Tuple{Elements: elements} }

func (t *Tuple) TypeOf(u *Universe) *Type { return u.TupleType }
func (t *Tuple) Seal() {
	if t.sealed {
		return
	}
	t.markSealed()
	for _, e := range t.Elements {
		e.Seal()
	}
}
func (t *Tuple) CloneUnsealed(clones CloneMap) Value {
	if existing, ok := clones[t]; ok {
		return existing
	}
	clone := &Tuple{Elements: make([]Value, len(t.Elements))}
	clones[t] = clone
	for i, e := range t.Elements {
		clone.Elements[i] = e.CloneUnsealed(clones)
	}
	return clone
}
func (t *Tuple) Hash() uint64 {
	parts := []uint64{hashString("tuple")}
	for _, e := range t.Elements {
		parts = append(parts, e.Hash())
	}
	return hashCombine(parts...)
}
func (t *Tuple) Equals(other Value) bool {
	o, ok := other.(*Tuple)
	if !ok || len(o.Elements) != len(t.Elements) {
		return false
	}
	for i := range t.Elements {
		if !t.Elements[i].Equals(o.Elements[i]) {
			return false
		}
	}
	return true
}
func (t *Tuple) BEquals(other Value, bij *Bijection) bool {
	o, ok := other.(*Tuple)
	if !ok || len(o.Elements) != len(t.Elements) {
		return false
	}
	if !bij.Extend(t, o) {
		return false
	}
	for i := range t.Elements {
		if !t.Elements[i].BEquals(o.Elements[i], bij) {
			return false
		}
	}
	return true
}
func (t *Tuple) CEquals(other Value) bool { return t.Equals(other) }
func (t *Tuple) CHash() (uint64, error)    { return t.Hash(), nil }
func (t *Tuple) Print(out io.Writer) {
	fmt.Fprint(out, "(")
	for i, e := range t.Elements {
		if i > 0 {
			fmt.Fprint(out, ", ")
		}
		printValue(out, e)
	}
	fmt.Fprint(out, ")")
}

// List is the mutable variable-size collection. token increments on
// every structural mutation (Append/Set) so a MutableIterator
// built over this list can detect invalidation (spec §3.1 "mutable with
// a mutation token").
type List struct {
	sealable
	Elements []Value
	token    uint64
}

func NewList(elements ...Value) *List { return &List{Elements: elements} }

func (l *List) TypeOf(u *Universe) *Type { return u.ListType }
func (l *List) Token() uint64            { return l.token }

func (l *List) Append(v Value) error {
	if err := requireUnsealed(&l.sealable, "list"); err != nil {
		return err
	}
	l.Elements = append(l.Elements, v)
	l.token++
	return nil
}

func (l *List) Get(i int) (Value, error) {
	if i < 0 || i >= len(l.Elements) {
		return nil, IndexErrorf("list index %d out of range", i)
	}
	return l.Elements[i], nil
}

func (l *List) Set(i int, v Value) error {
	if err := requireUnsealed(&l.sealable, "list"); err != nil {
		return err
	}
	if i < 0 || i >= len(l.Elements) {
		return IndexErrorf("list index %d out of range", i)
	}
	l.Elements[i] = v
	l.token++
	return nil
}

func (l *List) Len() int { return len(l.Elements) }

func (l *List) Seal() {
	if l.sealed {
		return
	}
	l.markSealed()
	for _, e := range l.Elements {
		e.Seal()
	}
}
func (l *List) CloneUnsealed(clones CloneMap) Value {
	if existing, ok := clones[l]; ok {
		return existing
	}
	clone := &List{Elements: make([]Value, len(l.Elements))}
	clones[l] = clone
	for i, e := range l.Elements {
		clone.Elements[i] = e.CloneUnsealed(clones)
	}
	return clone
}
func (l *List) Hash() uint64 {
	parts := []uint64{hashString("list")}
	for _, e := range l.Elements {
		parts = append(parts, e.Hash())
	}
	return hashCombine(parts...)
}
func (l *List) Equals(other Value) bool { return other == Value(l) } // mutable, identity only
func (l *List) BEquals(other Value, bij *Bijection) bool {
	o, ok := other.(*List)
	if !ok || len(o.Elements) != len(l.Elements) {
		return false
	}
	if !bij.Extend(l, o) {
		return false
	}
	for i := range l.Elements {
		if !l.Elements[i].BEquals(o.Elements[i], bij) {
			return false
		}
	}
	return true
}
func (l *List) CEquals(other Value) bool { return l.Equals(other) }
func (l *List) CHash() (uint64, error)    { return 0, RuntimeErrorf("unhashable type: list") }
func (l *List) Print(out io.Writer) {
	fmt.Fprint(out, "[")
	for i, e := range l.Elements {
		if i > 0 {
			fmt.Fprint(out, ", ")
		}
		printValue(out, e)
	}
	fmt.Fprint(out, "]")
}

// dictEntry is one key/value pair in a Dict's collision bucket.
type dictEntry struct {
	key   Value
	value Value
}

// Dict is the mutable hash map keyed by cequals/chash (spec §3.1, §3.3).
type Dict struct {
	sealable
	buckets map[uint64][]dictEntry
	token   uint64
}

func NewDict(u *Universe) *Dict { return &Dict{buckets: make(map[uint64][]dictEntry)} }

func (d *Dict) Token() uint64 { return d.token }

func (d *Dict) Set(key, value Value) error {
	if err := requireUnsealed(&d.sealable, "dict"); err != nil {
		return err
	}
	h, err := key.CHash()
	if err != nil {
		return err
	}
	bucket := d.buckets[h]
	for i, e := range bucket {
		if e.key.CEquals(key) {
			bucket[i].value = value
			d.token++
			return nil
		}
	}
	d.buckets[h] = append(bucket, dictEntry{key: key, value: value})
	d.token++
	return nil
}

func (d *Dict) Get(key Value) (Value, bool, error) {
	h, err := key.CHash()
	if err != nil {
		return nil, false, err
	}
	for _, e := range d.buckets[h] {
		if e.key.CEquals(key) {
			return e.value, true, nil
		}
	}
	return nil, false, nil
}

func (d *Dict) Delete(key Value) (bool, error) {
	if err := requireUnsealed(&d.sealable, "dict"); err != nil {
		return false, err
	}
	h, err := key.CHash()
	if err != nil {
		return false, err
	}
	bucket := d.buckets[h]
	for i, e := range bucket {
		if e.key.CEquals(key) {
			d.buckets[h] = append(bucket[:i], bucket[i+1:]...)
			d.token++
			return true, nil
		}
	}
	return false, nil
}

func (d *Dict) Len() int {
	n := 0
	for _, b := range d.buckets {
		n += len(b)
	}
	return n
}

// Entries returns every (key, value) pair ordered by key hash (insertion
// order within one hash bucket), so the order is stable for a given,
// unmutated Dict, for iteration and view construction.
func (d *Dict) Entries() []dictEntry {
	hashes := make([]uint64, 0, len(d.buckets))
	for h := range d.buckets {
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })
	var all []dictEntry
	for _, h := range hashes {
		all = append(all, d.buckets[h]...)
	}
	return all
}

func (d *Dict) Seal() {
	if d.sealed {
		return
	}
	d.markSealed()
	for _, b := range d.buckets {
		for _, e := range b {
			e.key.Seal()
			e.value.Seal()
		}
	}
}
func (d *Dict) CloneUnsealed(clones CloneMap) Value {
	if existing, ok := clones[d]; ok {
		return existing
	}
	clone := &Dict{buckets: make(map[uint64][]dictEntry)}
	clones[d] = clone
	for h, b := range d.buckets {
		nb := make([]dictEntry, len(b))
		for i, e := range b {
			nb[i] = dictEntry{key: e.key.CloneUnsealed(clones), value: e.value.CloneUnsealed(clones)}
		}
		clone.buckets[h] = nb
	}
	return clone
}
func (d *Dict) TypeOf(u *Universe) *Type { return u.DictType }
func (d *Dict) Hash() uint64 {
	parts := []uint64{hashString("dict")}
	for _, e := range d.Entries() {
		parts = append(parts, hashCombine(e.key.Hash(), e.value.Hash()))
	}
	return hashCombine(parts...)
}
func (d *Dict) Equals(other Value) bool { return other == Value(d) }
func (d *Dict) BEquals(other Value, bij *Bijection) bool {
	o, ok := other.(*Dict)
	if !ok || o.Len() != d.Len() {
		return false
	}
	if !bij.Extend(d, o) {
		return false
	}
	for _, e := range d.Entries() {
		ov, found, err := o.Get(e.key)
		if err != nil || !found {
			return false
		}
		if !e.value.BEquals(ov, bij) {
			return false
		}
	}
	return true
}
func (d *Dict) CEquals(other Value) bool { return d.Equals(other) }
func (d *Dict) CHash() (uint64, error)    { return 0, RuntimeErrorf("unhashable type: dict") }
func (d *Dict) Print(out io.Writer) {
	fmt.Fprint(out, "{")
	for i, e := range d.Entries() {
		if i > 0 {
			fmt.Fprint(out, ", ")
		}
		printValue(out, e.key)
		fmt.Fprint(out, ": ")
		printValue(out, e.value)
	}
	fmt.Fprint(out, "}")
}

// DictViewKind distinguishes the three dict view flavors (spec §3.1
// "dict_keys/values/items views").
type DictViewKind int

const (
	DictViewKeys DictViewKind = iota
	DictViewValues
	DictViewItems
)

// DictView is a read-only projection of a Dict; it re-reads the
// underlying dict on every access rather than snapshotting, so it always
// reflects the dict's current content (consistent with the source
// language's live view semantics).
type DictView struct {
	sealable
	Dict *Dict
	Kind DictViewKind
}

func NewDictView(d *Dict, kind DictViewKind) *DictView { return &DictView{Dict: d, Kind: kind} }

func (v *DictView) TypeOf(u *Universe) *Type { return u.DictViewType }
func (v *DictView) Seal() {
	if v.sealed {
		return
	}
	v.markSealed()
}
func (v *DictView) CloneUnsealed(clones CloneMap) Value {
	if existing, ok := clones[v]; ok {
		return existing
	}
	clone := &DictView{Kind: v.Kind}
	clones[v] = clone
	clone.Dict = v.Dict.CloneUnsealed(clones).(*Dict)
	return clone
}
func (v *DictView) Hash() uint64 { return hashCombine(hashString("dictview"), uint64(v.Kind), v.Dict.Hash()) }
func (v *DictView) Equals(other Value) bool {
	o, ok := other.(*DictView)
	return ok && o.Kind == v.Kind && o.Dict == v.Dict
}
func (v *DictView) BEquals(other Value, bij *Bijection) bool {
	o, ok := other.(*DictView)
	if !ok || o.Kind != v.Kind {
		return false
	}
	return v.Dict.BEquals(o.Dict, bij)
}
func (v *DictView) CEquals(other Value) bool { return v.Equals(other) }
func (v *DictView) CHash() (uint64, error)    { return 0, RuntimeErrorf("unhashable type: dict_view") }
func (v *DictView) Elements() []Value {
	entries := v.Dict.Entries()
	out := make([]Value, 0, len(entries))
	for _, e := range entries {
		switch v.Kind {
		case DictViewKeys:
			out = append(out, e.key)
		case DictViewValues:
			out = append(out, e.value)
		case DictViewItems:
			out = append(out, NewTuple(e.key, e.value))
		}
	}
	return out
}
func (v *DictView) Print(out io.Writer) {
	names := [...]string{"dict_keys", "dict_values", "dict_items"}
	fmt.Fprintf(out, "%s([", names[v.Kind])
	for i, e := range v.Elements() {
		if i > 0 {
			fmt.Fprint(out, ", ")
		}
		printValue(out, e)
	}
	fmt.Fprint(out, "])")
}
