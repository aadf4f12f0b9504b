package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the stable, client-visible error identifier.
type Kind string

const (
	KindValidation       Kind = "validation_error"
	KindSessionNotFound  Kind = "session_not_found"
	KindProjectNotFound  Kind = "project_not_found"
	KindRevisionNotFound Kind = "revision_not_found"
	KindSynthesisFailed  Kind = "synthesis_failed"
	KindLLMUnavailable   Kind = "llm_unavailable"
	KindStorage          Kind = "storage_error"
	KindInternal         Kind = "internal_error"
)

// Sentinels so callers can use errors.Is(err, apierr.ErrProjectNotFound).
var (
	ErrValidation       = &Error{Kind: KindValidation}
	ErrSessionNotFound  = &Error{Kind: KindSessionNotFound}
	ErrProjectNotFound  = &Error{Kind: KindProjectNotFound}
	ErrRevisionNotFound = &Error{Kind: KindRevisionNotFound}
	ErrSynthesisFailed  = &Error{Kind: KindSynthesisFailed}
	ErrLLMUnavailable   = &Error{Kind: KindLLMUnavailable}
	ErrStorage          = &Error{Kind: KindStorage}
)

type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf reports the kind carried by err, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) && e != nil && e.Kind != "" {
		return e.Kind
	}
	return KindInternal
}

func Status(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindSessionNotFound, KindProjectNotFound, KindRevisionNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
