// internal/core/errors.go
package core

import (
	"errors"
	"fmt"
)

// Kind classifies engine errors for consistent handling.
type Kind string

const (
	KindShapeMismatch Kind = "shape_mismatch" // flattened lengths or shapes disagree
	KindDistribution  Kind = "distribution"   // probability vector is not a valid distribution
	KindCollaborator  Kind = "collaborator"   // device, model, transport or store failure
	KindState         Kind = "state"          // operation on a closed component
)

// Error - structured engine error with the failing operation and an optional cause.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

// Sentinels for errors.Is checks. Matching is by Kind only.
var (
	ErrShapeMismatch = &Error{Kind: KindShapeMismatch}
	ErrDistribution  = &Error{Kind: KindDistribution}
	ErrCollaborator  = &Error{Kind: KindCollaborator}
	ErrClosed        = &Error{Kind: KindState}
)

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// ShapeMismatch reports a flattened-length disagreement.
func ShapeMismatch(op string, want, got int) error {
	return &Error{
		Kind:    KindShapeMismatch,
		Op:      op,
		Message: fmt.Sprintf("want %d values, got %d", want, got),
	}
}

// Distribution reports an invalid categorical distribution.
func Distribution(op, msg string) error {
	return &Error{Kind: KindDistribution, Op: op, Message: msg}
}

// Collaborator wraps an error raised by an external dependency.
// Errors that are already engine errors pass through unchanged.
func Collaborator(op string, cause error) error {
	if cause == nil {
		return nil
	}
	var e *Error
	if errors.As(cause, &e) {
		return cause
	}
	return &Error{Kind: KindCollaborator, Op: op, Cause: cause}
}

// Closed reports an operation attempted after Close.
func Closed(op string) error {
	return &Error{Kind: KindState, Op: op, Message: "component is closed"}
}
