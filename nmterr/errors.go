// Package nmterr defines the failure taxonomy shared by the workspace packages.
//
// Every error returned by bins, field, mcm and covar carries exactly one kind.
// Kinds fall in two classes: Validation errors are detected before any
// numeric work starts, Runtime errors come from reading or writing files.
package nmterr

import (
	"errors"
	"fmt"
)

// Kinds of failure. Test with errors.Is.
var (
	ErrShape          = errors.New("wrong input shape")
	ErrSpin           = errors.New("wrong input spins")
	ErrResolution     = errors.New("incompatible resolutions")
	ErrBinning        = errors.New("incompatible binning")
	ErrBandpowers     = errors.New("incompatible bandpowers")
	ErrNotInitialized = errors.New("workspace not initialized")
	ErrInvalid        = errors.New("invalid argument")
	ErrRead           = errors.New("cannot read workspace")
	ErrWrite          = errors.New("cannot write workspace")
)

// Class is the category of a failure.
type Class string

const (
	Validation Class = "VALIDATION"
	Runtime    Class = "RUNTIME"
)

// Error is the structured error returned by the workspace packages.
type Error struct {
	// Op names the failed operation, e.g. "covar.Compute".
	Op string
	// Kind is one of the Err* sentinels.
	Kind error
	Msg  string
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	s := e.Op + ": " + e.Kind.Error()
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// New creates an error of the given kind.
func New(op string, kind error, format string, args ...any) *Error {
	return &Error{Op: op, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind around a cause.
func Wrap(op string, kind error, cause error, format string, args ...any) *Error {
	return &Error{Op: op, Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// ClassOf returns the class of err.
// Errors without a known kind are Runtime.
func ClassOf(err error) Class {
	switch {
	case errors.Is(err, ErrRead), errors.Is(err, ErrWrite):
		return Runtime
	case errors.Is(err, ErrShape),
		errors.Is(err, ErrSpin),
		errors.Is(err, ErrResolution),
		errors.Is(err, ErrBinning),
		errors.Is(err, ErrBandpowers),
		errors.Is(err, ErrNotInitialized),
		errors.Is(err, ErrInvalid):
		return Validation
	}
	return Runtime
}
