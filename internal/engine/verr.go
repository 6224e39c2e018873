package engine

import "fmt"

// Kind identifies one of the exception kinds a running program can raise
// (spec §7). Each kind maps onto the builtin exception type of the same
// name, except KindSealed, which surfaces as RuntimeError;
// CancellationError additionally carries an Initial flag.
type Kind string

const (
	KindException      Kind = "Exception"
	KindType           Kind = "TypeError"
	KindAttribute      Kind = "AttributeError"
	KindIndex          Kind = "IndexError"
	KindKey            Kind = "KeyError"
	KindReference      Kind = "ReferenceError"
	KindInstruction    Kind = "InstructionException"
	KindRuntime        Kind = "RuntimeError"
	KindStopIteration  Kind = "StopIteration"
	KindFuture         Kind = "FutureError"
	KindJump           Kind = "JumpError"
	KindCancellation   Kind = "CancellationError"
	KindSealed         Kind = "SealedException"
)

// VMError is the Go-level representation of a failure inside the engine.
// Every value-layer or instruction-layer error is one of these; Universe.WrapException turns
// it into the Spek-visible Exception value that a task's exception slot
// holds (spec §7 "Propagation").
type VMError struct {
	Kind    Kind
	Message string
	Initial bool // only meaningful for KindCancellation
}

func (e *VMError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newErr(kind Kind, format string, args ...any) *VMError {
	return &VMError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func TypeErrorf(format string, args ...any) *VMError      { return newErr(KindType, format, args...) }
func AttributeErrorf(format string, args ...any) *VMError { return newErr(KindAttribute, format, args...) }
func IndexErrorf(format string, args ...any) *VMError     { return newErr(KindIndex, format, args...) }
func KeyErrorf(format string, args ...any) *VMError       { return newErr(KindKey, format, args...) }
func ReferenceErrorf(format string, args ...any) *VMError { return newErr(KindReference, format, args...) }
func InstructionErrorf(format string, args ...any) *VMError {
	return newErr(KindInstruction, format, args...)
}
func RuntimeErrorf(format string, args ...any) *VMError { return newErr(KindRuntime, format, args...) }
func StopIterationf(format string, args ...any) *VMError {
	return newErr(KindStopIteration, format, args...)
}
func FutureErrorf(format string, args ...any) *VMError { return newErr(KindFuture, format, args...) }
func JumpErrorf(format string, args ...any) *VMError   { return newErr(KindJump, format, args...) }
func SealedErrorf(format string, args ...any) *VMError { return newErr(KindSealed, format, args...) }

// CancellationErrorValue builds the CancellationError raised by
// StackState.Cancel. initial marks it as not-yet-observed (spec §5
// "Cancellation"): the first instruction that sees it downgrades it to a
// non-initial one before routing to its error continuation.
func CancellationErrorValue(initial bool) *VMError {
	return &VMError{Kind: KindCancellation, Message: "task cancelled", Initial: initial}
}

// AsVMError unwraps err into a *VMError, synthesizing a RuntimeError for
// anything else (e.g. an error surfaced by a host-language intrinsic).
func AsVMError(err error) *VMError {
	if err == nil {
		return nil
	}
	if ve, ok := err.(*VMError); ok {
		return ve
	}
	return RuntimeErrorf("%s", err.Error())
}
