// Package errors defines the proxy's error-kind taxonomy. The rest of the
// codebase still uses plain fmt.Errorf("...: %w", err) wrapping; this type
// exists only where callers need to branch on what went wrong (HTTP status
// mapping, metrics labeling) rather than just log it.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a ProxyError for status-code mapping and metrics labeling.
type Kind string

const (
	KindOrigin       Kind = "origin"
	KindParse        Kind = "parse"
	KindVAST         Kind = "vast"
	KindSession      Kind = "session"
	KindConfig       Kind = "config"
	KindNotFound     Kind = "not_found"
	KindBadRequest   Kind = "bad_request"
	KindUnsupported  Kind = "unsupported"
	KindInternal     Kind = "internal"
)

// ProxyError wraps an underlying error with a Kind so handlers can decide
// the HTTP status without string-matching the message.
type ProxyError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *ProxyError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *ProxyError) Unwrap() error { return e.Err }

// New builds a ProxyError for the given op/kind, wrapping err (which may be nil).
func New(op string, kind Kind, err error) *ProxyError {
	return &ProxyError{Op: op, Kind: kind, Err: err}
}

// KindOf extracts the Kind of err if it is (or wraps) a *ProxyError, else KindInternal.
func KindOf(err error) Kind {
	var pe *ProxyError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindInternal
}
