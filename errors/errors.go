// Package errors provides error handling for promptvars.
//
// This package re-exports github.com/cockroachdb/errors so every package
// shares stack traces, wrapping and hints from one import path, and defines
// the sentinels the template store and its callers branch on.
//
// Usage:
//
//	if err := st.Save(ctx, tmpl); err != nil {
//	    if errors.IsInvalidRequestError(err) {
//	        // caller mistake, do not retry
//	    }
//	    return errors.Wrap(err, "failed to save template")
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint       = crdb.WithHint
	WithHintf      = crdb.WithHintf
	WithDetail     = crdb.WithDetail
	WithDetailf    = crdb.WithDetailf
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Error inspection and marking
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Mark      = crdb.Mark
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Sentinel errors. Check them with errors.Is; wrap them to add context
// without losing the classification.
var (
	// ErrNotFound is used by callers that turn a missing record into an error,
	// e.g. the CLI. Store operations report absence with a found flag instead.
	ErrNotFound = New("not found")

	// ErrInvalidRequest marks validation failures: a template without an id,
	// an unknown storage kind, malformed input.
	ErrInvalidRequest = New("invalid request")

	// ErrBackend marks storage I/O failures. No retry is attempted.
	ErrBackend = New("storage backend failure")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsInvalidRequestError checks if an error is or wraps ErrInvalidRequest
func IsInvalidRequestError(err error) bool {
	return err != nil && Is(err, ErrInvalidRequest)
}

// IsBackendError checks if an error was produced by WrapBackend
func IsBackendError(err error) bool {
	return err != nil && Is(err, ErrBackend)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Wrap(ErrInvalidRequest, Newf(format, args...).Error())
}

// WrapBackend wraps a storage failure with the name of the operation that
// failed and marks it as ErrBackend. The underlying error stays reachable
// through errors.Is. Returns nil for a nil error.
func WrapBackend(op string, err error) error {
	if err == nil {
		return nil
	}
	return Mark(Wrapf(err, "%s", op), ErrBackend)
}
