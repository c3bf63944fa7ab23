// Package kernelerr defines the error taxonomy surfaced by every kernel
// object operation. The kernel never unwinds through a system call: every
// failure mode in this package is a Code wrapped in an *Error and returned
// to the caller as a normal Go error value.
package kernelerr

import "fmt"

// Code identifies the reason a kernel operation failed.
type Code int

const (
	// CodeBadID means the handle does not name an object of the expected kind.
	CodeBadID Code = iota + 1
	// CodeBadContext means the operation was called from a context that
	// forbids it (CPU lock held, non-task context, non-waitable context).
	CodeBadContext
	// CodeBadParam means a semantic constraint was violated (priority out
	// of the managed range, mutex ceiling would be exceeded, ...).
	CodeBadParam
	// CodeBadObjectState means the object's current state forbids the
	// operation (dormant task, mutex not on top of the owner's stack, ...).
	CodeBadObjectState
	// CodeNotOwner means the calling task does not own the mutex.
	CodeNotOwner
	// CodeWouldDeadlock means the calling task already owns the mutex.
	CodeWouldDeadlock
	// CodeTimeout means a poll failed or a wait deadline expired.
	CodeTimeout
	// CodeInterrupted means the wait was cancelled by an interruption.
	CodeInterrupted
	// CodeAbandoned means the mutex was held by a task that exited; the
	// caller now owns it and the inconsistent flag is set.
	CodeAbandoned
	// CodeQueueOverflow means a counter would exceed its configured max
	// (semaphore Signal).
	CodeQueueOverflow
)

// String implements fmt.Stringer.
func (c Code) String() string {
	switch c {
	case CodeBadID:
		return "BadId"
	case CodeBadContext:
		return "BadContext"
	case CodeBadParam:
		return "BadParam"
	case CodeBadObjectState:
		return "BadObjectState"
	case CodeNotOwner:
		return "NotOwner"
	case CodeWouldDeadlock:
		return "WouldDeadlock"
	case CodeTimeout:
		return "Timeout"
	case CodeInterrupted:
		return "Interrupted"
	case CodeAbandoned:
		return "Abandoned"
	case CodeQueueOverflow:
		return "QueueOverflow"
	default:
		return fmt.Sprintf("Code(%d)", int(c))
	}
}

// Error is the concrete error type returned by kernel operations. Op names
// the failing operation (e.g. "Mutex.Lock"), Code classifies the failure,
// and Cause optionally chains an underlying error (rare: the kernel core
// itself never wraps anything but Code, but host ports may).
type Error struct {
	Op    string
	Code  Code
	Cause error
}

// New constructs an *Error for the given operation and code.
func New(op string, code Code) *Error {
	return &Error{Op: op, Code: code}
}

// Wrap constructs an *Error chaining an underlying cause.
func Wrap(op string, code Code, cause error) *Error {
	return &Error{Op: op, Code: code, Cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Code)
}

// Unwrap returns the chained cause, if any, for use with errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a sentinel Code value (see below) or another
// *Error with the same Code, so callers can write
// errors.Is(err, kernelerr.Abandoned).
func (e *Error) Is(target error) bool {
	if sc, ok := target.(sentinelCode); ok {
		return e.Code == Code(sc)
	}
	var oe *Error
	if ok := asError(target, &oe); ok {
		return oe.Code == e.Code
	}
	return false
}

func asError(err error, out **Error) bool {
	if oe, ok := err.(*Error); ok {
		*out = oe
		return true
	}
	return false
}

// sentinelCode lets a bare Code value participate in errors.Is matching.
type sentinelCode Code

func (s sentinelCode) Error() string { return Code(s).String() }

// Sentinel error values for errors.Is comparisons, one per Code.
var (
	BadID          error = sentinelCode(CodeBadID)
	BadContext     error = sentinelCode(CodeBadContext)
	BadParam       error = sentinelCode(CodeBadParam)
	BadObjectState error = sentinelCode(CodeBadObjectState)
	NotOwner       error = sentinelCode(CodeNotOwner)
	WouldDeadlock  error = sentinelCode(CodeWouldDeadlock)
	Timeout        error = sentinelCode(CodeTimeout)
	Interrupted    error = sentinelCode(CodeInterrupted)
	Abandoned      error = sentinelCode(CodeAbandoned)
	QueueOverflow  error = sentinelCode(CodeQueueOverflow)
)

// Is implements the reverse direction: errors.Is(err, kernelerr.Abandoned)
// where err is a *Error — handled above via Error.Is. This method lets the
// sentinel itself compare against another sentinel.
func (s sentinelCode) Is(target error) bool {
	if ts, ok := target.(sentinelCode); ok {
		return s == ts
	}
	return false
}

// OfCode returns true if err (or any error it wraps) carries the given Code.
func OfCode(err error, code Code) bool {
	var oe *Error
	for err != nil {
		if oe2, ok := err.(*Error); ok {
			oe = oe2
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return oe != nil && oe.Code == code
}
