// Package syncerr defines the error taxonomy of the update pipeline.
//
// Each error type wraps its cause so callers can use errors.Is on the
// underlying error and errors.As to classify the failure.
package syncerr

import (
	"errors"
	"fmt"
)

// FetchError is returned when a remote source is unreachable or returns a
// malformed transport response
type FetchError struct {
	SourceID string
	Op       string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s for source %s: %v", e.Op, e.SourceID, e.Err)
}

// Unwrap returns the underlying error
func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError is returned when a payload does not match the structure
// expected for its kind
type ParseError struct {
	Kind string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s payload: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned when a natural-key lookup misses a related row.
// It is not fatal to the task.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Key)
}

// PersistenceError is returned when a store write fails. It fails the
// current task only.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NewFetchError wraps err as a FetchError
func NewFetchError(sourceID, op string, err error) error {
	return &FetchError{SourceID: sourceID, Op: op, Err: err}
}

// NewParseError wraps err as a ParseError
func NewParseError(kind string, err error) error {
	return &ParseError{Kind: kind, Err: err}
}

// NewPersistenceError wraps err as a PersistenceError
func NewPersistenceError(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// IsNotFound reports whether err is or wraps a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsFetch reports whether err is or wraps a FetchError
func IsFetch(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
