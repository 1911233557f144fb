package domain

import (
	"errors"
	"fmt"
)

// ErrorKind lets operators tell failing collaborators apart.
type ErrorKind string

const (
	KindUnknown          ErrorKind = "unknown"
	KindTransientSource  ErrorKind = "transient_source"
	KindPermanentSource  ErrorKind = "permanent_source"
	KindSinkPublish      ErrorKind = "sink_publish"
	KindIdempotencyStore ErrorKind = "idempotency_store"
	KindDeadlineExceeded ErrorKind = "deadline_exceeded"
	KindConfiguration    ErrorKind = "configuration"
)

type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func TransientSourceError(op string, err error) *Error {
	return NewError(KindTransientSource, op, err)
}

func PermanentSourceError(op string, err error) *Error {
	return NewError(KindPermanentSource, op, err)
}

func SinkPublishError(op string, err error) *Error {
	return NewError(KindSinkPublish, op, err)
}

func IdempotencyStoreError(op string, err error) *Error {
	return NewError(KindIdempotencyStore, op, err)
}

func DeadlineExceeded(op string, err error) *Error {
	return NewError(KindDeadlineExceeded, op, err)
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
