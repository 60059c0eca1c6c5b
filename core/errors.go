package core

import (
	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// Kind classifies domain errors so the transport layer can map them without knowing every domain.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalid
	KindNotFound
	KindConflict
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Error is a domain error of a known Kind. Domains declare them as sentinels.
type Error struct {
	kind Kind
	msg  string
}

func NewError(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }
func (e *Error) Kind() Kind    { return e.kind }

// ErrStorageFailure matches (errors.Is) every error produced by the persistence layer.
var ErrStorageFailure = NewError(KindStorage, "storage failure")

type storageError struct {
	op  string
	err error
}

// NewStorageError wraps a driver error raised while doing op.
func NewStorageError(err error, op string) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(&storageError{op: op, err: err})
}

func (e *storageError) Error() string        { return e.op + ": " + e.err.Error() }
func (e *storageError) Unwrap() error        { return e.err }
func (e *storageError) Is(target error) bool { return target == ErrStorageFailure }

// KindOf reports the Kind of err, looking through wrappers.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.kind
	}
	if errors.Is(err, ErrStorageFailure) {
		return KindStorage
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return KindInvalid
	}
	return KindUnknown
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
