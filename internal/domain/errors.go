package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a failure surfaced by the booking engine.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindTransaction Kind = "transaction"
	KindGeneration  Kind = "generation"
)

// Sentinels for errors.Is matching against an *Error of the same kind.
var (
	ErrValidation  = &Error{Kind: KindValidation}
	ErrNotFound    = &Error{Kind: KindNotFound}
	ErrConflict    = &Error{Kind: KindConflict}
	ErrTransaction = &Error{Kind: KindTransaction}
	ErrGeneration  = &Error{Kind: KindGeneration}
)

// Error is the only error type the engine returns to its callers.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports kind equality so that errors.Is(err, ErrConflict) works for any conflict.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Msg == "" && t.Err == nil
}

func newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...interface{}) error {
	return newf(KindValidation, format, args...)
}
func NotFoundf(format string, args ...interface{}) error { return newf(KindNotFound, format, args...) }
func Conflictf(format string, args ...interface{}) error { return newf(KindConflict, format, args...) }
func Generationf(format string, args ...interface{}) error {
	return newf(KindGeneration, format, args...)
}

// KindOf returns the kind of err, or "" when err is not an engine error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Wrap tags err with op. Errors that are not already classified become
// transaction failures so store-native errors never reach callers.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Op != "" {
			return e
		}
		return &Error{Kind: e.Kind, Op: op, Msg: e.Msg, Err: e.Err}
	}
	return &Error{Kind: KindTransaction, Op: op, Msg: "store operation failed", Err: err}
}
