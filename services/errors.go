package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a service query failed. All kinds share the same
// recovery (sentinel value plus a warning), so the kind is carried as data
// for logging rather than driving control flow.
type ErrorKind string

const (
	KindPermission ErrorKind = "permission"
	KindNotFound   ErrorKind = "not_found"
	KindOther      ErrorKind = "other"
)

// ProbeError wraps a failed service query with its classification and the
// operation that failed.
type ProbeError struct {
	Kind ErrorKind
	Op   string
	Name string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Name, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// NewProbeError builds a classified ProbeError for the named service.
func NewProbeError(kind ErrorKind, op, name string, err error) *ProbeError {
	return &ProbeError{Kind: kind, Op: op, Name: name, Err: err}
}

// Classify extracts the ErrorKind from err, defaulting to KindOther when err
// is not a ProbeError.
func Classify(err error) ErrorKind {
	var pe *ProbeError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindOther
}

// IsNotFound reports whether err indicates the named service does not exist.
func IsNotFound(err error) bool {
	return Classify(err) == KindNotFound
}
