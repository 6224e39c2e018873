package engine

import (
	"fmt"
	"io"
)

// Future is a single-assignment handle to a value that may not yet exist
// (spec §5 "Futures", §3.1 "Futures"). result/exception/cancel are
// one-shot transitions out of FutureUnset; a second transition raises
// FutureError (spec "reassignment raises FutureError").
type Future struct {
	sealable
	status    FutureStatus
	result    Value
	exception *Exception
}

func NewFuture() *Future { return &Future{status: FutureUnset} }

func (f *Future) Status() FutureStatus { return f.status }
func (f *Future) Done() bool           { return f.status != FutureUnset }
func (f *Future) Cancelled() bool      { return f.status == FutureCancelled }

func (f *Future) SetResult(v Value) error {
	if err := requireUnsealed(&f.sealable, "future"); err != nil {
		return err
	}
	if f.status != FutureUnset {
		return FutureErrorf("future already resolved as %s", f.status)
	}
	f.status = FutureSet
	f.result = v
	return nil
}

func (f *Future) SetException(e *Exception) error {
	if err := requireUnsealed(&f.sealable, "future"); err != nil {
		return err
	}
	if f.status != FutureUnset {
		return FutureErrorf("future already resolved as %s", f.status)
	}
	f.status = FutureFailed
	f.exception = e
	return nil
}

func (f *Future) Cancel() error {
	if err := requireUnsealed(&f.sealable, "future"); err != nil {
		return err
	}
	if f.status != FutureUnset {
		return FutureErrorf("future already resolved as %s", f.status)
	}
	f.status = FutureCancelled
	return nil
}

// AwaitedResult implements the AwaitedResult term (spec §4.3, §5): it
// returns the stored value, raises the stored exception, or raises
// CancellationError/RuntimeError as appropriate.
func (f *Future) AwaitedResult() (Value, error) {
	switch f.status {
	case FutureSet:
		return f.result, nil
	case FutureFailed:
		return nil, &VMError{Kind: Kind(f.exception.Class.Name), Message: f.exception.Message().Value()}
	case FutureCancelled:
		return nil, CancellationErrorValue(false)
	default:
		return nil, RuntimeErrorf("future has no result yet")
	}
}

func (f *Future) TypeOf(u *Universe) *Type { return u.FutureType }
func (f *Future) Seal() {
	if f.sealed {
		return
	}
	f.markSealed()
	if f.result != nil {
		f.result.Seal()
	}
	if f.exception != nil {
		f.exception.Seal()
	}
}
func (f *Future) CloneUnsealed(clones CloneMap) Value {
	if existing, ok := clones[f]; ok {
		return existing
	}
	clone := &Future{status: f.status}
	clones[f] = clone
	if f.result != nil {
		clone.result = f.result.CloneUnsealed(clones)
	}
	if f.exception != nil {
		clone.exception = f.exception.CloneUnsealed(clones).(*Exception)
	}
	return clone
}
func (f *Future) Hash() uint64 {
	h := hashCombine(hashString("future"), uint64(f.status))
	if f.result != nil {
		h = hashCombine(h, f.result.Hash())
	}
	if f.exception != nil {
		h = hashCombine(h, f.exception.Hash())
	}
	return h
}
func (f *Future) Equals(other Value) bool { return other == Value(f) }
func (f *Future) BEquals(other Value, bij *Bijection) bool {
	o, ok := other.(*Future)
	if !ok || o.status != f.status {
		return false
	}
	if !bij.Extend(f, o) {
		return false
	}
	if f.result != nil {
		if o.result == nil || !f.result.BEquals(o.result, bij) {
			return false
		}
	}
	if f.exception != nil {
		if o.exception == nil || !f.exception.BEquals(o.exception, bij) {
			return false
		}
	}
	return true
}
func (f *Future) CEquals(other Value) bool { return f.Equals(other) }
func (f *Future) CHash() (uint64, error)    { return 0, RuntimeErrorf("unhashable type: future") }
func (f *Future) Print(out io.Writer)       { fmt.Fprintf(out, "<future %s>", f.status) }
