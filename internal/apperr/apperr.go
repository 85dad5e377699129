// Package apperr defines the typed error taxonomy shared by the domain
// services. Edge adapters (REST, MCP) map kinds to their own representation;
// the services themselves only ever produce one of these kinds.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindConflict
	KindValidation
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation_error"
	case KindUpstream:
		return "upstream_error"
	default:
		return "internal_error"
	}
}

// Error carries a kind and a human-readable message. The message is always
// safe to surface to the caller.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Upstream(format string, args ...any) error {
	return &Error{Kind: KindUpstream, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from an error chain, KindUnknown if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsNotFound(err error) bool   { return KindOf(err) == KindNotFound }
func IsConflict(err error) bool   { return KindOf(err) == KindConflict }
func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsUpstream(err error) bool   { return KindOf(err) == KindUpstream }
