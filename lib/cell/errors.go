package cell

import (
	"fmt"
)

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is returned by all cell operations. It wraps a return code and, where
// available, the error that caused it (e.g. the context error of a cancelled acquire).
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message
	Err  error   // The underlying cause, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("CellError (code %s): %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("CellError (code %s): %s", e.Code, e.Msg)
}

// Unwrap returns the underlying cause so errors.Is(err, context.Canceled) works.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the target is a cell error with the same return code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError creates a new cell error with the given code, message and cause.
func NewError(code RetCode, msg string, cause error) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
		Err:  cause,
	}
}

var (
	// ErrPoisoned matches every error caused by acquiring a poisoned cell.
	ErrPoisoned = NewError(RetCPoisoned, "lock poisoned", nil)
	// ErrCancelled matches every error caused by an acquire whose context was done.
	ErrCancelled = NewError(RetCCancelled, "acquire cancelled", nil)
)

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess   RetCode = iota // 0: Operation completed successfully.
	RetCPoisoned                 // 1: A previous holder panicked while holding the guard.
	RetCCancelled                // 2: The context was done before access was granted.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCPoisoned:
		return "Poisoned"
	case RetCCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}
