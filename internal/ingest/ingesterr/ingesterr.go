// Package ingesterr defines the error taxonomy used across the ingestion
// pipeline so callers can branch on failure kind with errors.As instead of
// string matching.
package ingesterr

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	// TransientIO covers sidecar HTTP and store RPC failures that are worth
	// retrying with backoff before surfacing.
	TransientIO Kind = "transient_io"
	// ParseError covers a single file or archive entry that failed to read
	// or decode; the enclosing batch continues.
	ParseError Kind = "parse_error"
	// SidecarUnhealthy covers a readiness timeout or unexpected process exit.
	SidecarUnhealthy Kind = "sidecar_unhealthy"
	// StoreConflict covers an upsert rejected by the vector store.
	StoreConflict Kind = "store_conflict"
	// Cancelled covers a deadline or external cancellation.
	Cancelled Kind = "cancelled"
	// Configuration covers invalid sizes or a missing docs directory,
	// fatal at startup.
	Configuration Kind = "configuration"
)

// Error wraps an underlying cause with a Kind and, where relevant, the
// offending file or worker id so the caller can report it verbatim.
type Error struct {
	Kind    Kind
	Subject string // offending file path or "worker-<n>"; may be empty
	Cause   error
}

// New builds an *Error for the given kind and cause.
func New(kind Kind, subject string, cause error) *Error {
	return &Error{Kind: kind, Subject: subject, Cause: cause}
}

func (e *Error) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %v", e.Kind, e.Subject, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// KindOf returns the Kind carried by err if it (or something it wraps) is
// an *Error, and ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
