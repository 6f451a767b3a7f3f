// Package securestats provides the building blocks for computing joint
// statistics over the numeric data of several organizations without any
// of them revealing raw values: a Paillier cryptosystem, Shamir secret
// sharing, an aggregator composing the two, and the orchestrator driving
// a computation through its lifecycle.
package securestats

import (
	"fmt"

	"golang.org/x/xerrors"
)

// ErrorCode classifies the failures surfaced by the secure-computation
// core. Codes are stable and safe to match on.
type ErrorCode int

const (
	// ErrValidation flags a malformed or out-of-bounds payload.
	ErrValidation ErrorCode = iota + 1
	// ErrAuthorization flags an operation by an organization that is not
	// entitled to it, e.g. a non-participant submitting data.
	ErrAuthorization
	// ErrNotFound flags an unknown computation or invitation.
	ErrNotFound
	// ErrState flags an operation that is invalid for the current
	// computation status.
	ErrState
	// ErrCrypto flags a cryptographic failure: mismatched keys,
	// insufficient shares, a missing modular inverse.
	ErrCrypto
	// ErrThreshold flags an operation below the minimum number of
	// participants or shares.
	ErrThreshold
)

func (c ErrorCode) String() string {
	switch c {
	case ErrValidation:
		return "validation"
	case ErrAuthorization:
		return "authorization"
	case ErrNotFound:
		return "not found"
	case ErrState:
		return "state"
	case ErrCrypto:
		return "crypto"
	case ErrThreshold:
		return "threshold"
	}
	return "unknown"
}

// Error is a wrapper around a standard error that carries a stable code
// and allows to print the stack trace from the call of the constructor.
type Error struct {
	code  ErrorCode
	err   error
	msg   string
	frame xerrors.Frame
}

// NewError returns a coded error with the stack trace beginning at the
// call of the function.
func NewError(code ErrorCode, msg string) error {
	return &Error{
		code:  code,
		err:   xerrors.New(msg),
		frame: xerrors.Caller(1),
	}
}

// Errorf formats a coded error in the manner of fmt.Errorf.
func Errorf(code ErrorCode, format string, args ...interface{}) error {
	return &Error{
		code:  code,
		err:   xerrors.Errorf(format, args...),
		frame: xerrors.Caller(1),
	}
}

// WrapError returns the error if any, annotated with a code and message
// so it can be used for comparison.
func WrapError(code ErrorCode, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{
		code:  code,
		err:   err,
		msg:   msg,
		frame: xerrors.Caller(1),
	}
}

// CodeOf extracts the code from an error chain and returns 0 when the
// chain carries none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if xerrors.As(err, &e) {
		return e.code
	}
	return 0
}

// HasCode tells whether the error chain carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// Code returns the classification of the error.
func (e *Error) Code() ErrorCode {
	return e.code
}

func (e *Error) Error() string {
	if e.msg != "" {
		return e.msg + ": " + fmt.Sprintf("%v", e.err)
	}
	return fmt.Sprintf("%v", e.err)
}

// Unwrap returns the next error in the chain.
func (e *Error) Unwrap() error {
	return e.err
}

// Format prints the error to the formatter.
func (e *Error) Format(f fmt.State, c rune) {
	xerrors.FormatError(e, f, c)
}

// FormatError prints the error to the printer. It prints the stack trace
// when the '+' is used in combination with 'v'.
func (e *Error) FormatError(p xerrors.Printer) error {
	if e.msg != "" {
		p.Printf("%s: %v", e.msg, e.err)
	} else {
		p.Printf("%v", e.err)
	}

	if p.Detail() {
		e.frame.Format(p)
		p.Printf("%+v", e.err)
	}
	return nil
}
