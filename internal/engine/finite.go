package engine

import (
	"fmt"
	"io"
)

// finiteKey identifies one instance of a closed enumeration: the
// enumeration's name (its "domain") plus the instance's index within it.
type finiteKey struct {
	domain string
	index  int
}

// Finite is a value kind for closed enumerations whose instances are
// canonical by construction index (spec invariant 3, generalized per
// SPEC_FULL.md beyond just none/bool — grounded on
// engine/core/finite.py in original_source). Future status and task
// status do not use it: they are the plain int enums FutureStatus and
// Status below.
type Finite struct {
	sealable
	key   finiteKey
	Label string
}

// internFinite returns the canonical *Finite for (domain, index),
// constructing it on first use (spec invariant 4, "keyable interning").
func (u *Universe) internFinite(domain string, index int, label string) *Finite {
	u.mu.Lock()
	defer u.mu.Unlock()
	k := finiteKey{domain: domain, index: index}
	if f, ok := u.finiteInter[k]; ok {
		return f
	}
	f := &Finite{key: k, Label: label}
	f.markSealed()
	u.finiteInter[k] = f
	return f
}

func (f *Finite) TypeOf(u *Universe) *Type { return u.ObjectType }
func (f *Finite) Seal()                    { f.markSealed() }
func (f *Finite) CloneUnsealed(clones CloneMap) Value {
	return f // canonical by construction, invariant 3/4
}
func (f *Finite) Hash() uint64 { return hashCombine(hashString(f.key.domain), uint64(f.key.index)) }
func (f *Finite) Equals(other Value) bool {
	o, ok := other.(*Finite)
	return ok && o.key == f.key
}
func (f *Finite) BEquals(other Value, bij *Bijection) bool { return f.Equals(other) }
func (f *Finite) CEquals(other Value) bool                 { return f.Equals(other) }
func (f *Finite) CHash() (uint64, error)                   { return f.Hash(), nil }
func (f *Finite) Print(out io.Writer)                       { fmt.Fprintf(out, "%s", f.Label) }

// Status is a StackState's or InteractionState's lifecycle stage (spec
// §4.5). It is a plain int enum stored directly in the task and hashed
// as its integer value; it is not itself a Value (statusValue maps it to
// an interned Finite, but no task field holds one).
type Status int

const (
	StatusWaiting Status = iota
	StatusRunning
	StatusCompleted
	StatusFailed
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "WAITING"
	case StatusRunning:
		return "RUNNING"
	case StatusCompleted:
		return "COMPLETED"
	case StatusFailed:
		return "FAILED"
	case StatusCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

func (u *Universe) statusValue(s Status) *Finite {
	return u.internFinite("task-status", int(s), s.String())
}

// FutureStatus is a Future's lifecycle stage (spec §5 "Futures").
type FutureStatus int

const (
	FutureUnset FutureStatus = iota
	FutureSet
	FutureFailed
	FutureCancelled
)

func (s FutureStatus) String() string {
	switch s {
	case FutureUnset:
		return "UNSET"
	case FutureSet:
		return "SET"
	case FutureFailed:
		return "FAILED"
	case FutureCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

func (u *Universe) futureStatusValue(s FutureStatus) *Finite {
	return u.internFinite("future-status", int(s), s.String())
}
