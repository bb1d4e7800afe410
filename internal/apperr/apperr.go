// Package apperr classifies failures so every one of them reaches the same
// reporting surface regardless of where it happened.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindInput     Kind = "input"
	KindTransport Kind = "transport"
	KindResponse  Kind = "response"
	KindConflict  Kind = "conflict"
)

// Error is a classified failure of operation Op.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, op string, err error) *Error {
	if err == nil {
		err = errors.New(string(kind) + " error")
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func Input(op string, format string, args ...any) *Error {
	return New(KindInput, op, fmt.Errorf(format, args...))
}

func Transport(op string, err error) *Error {
	return New(KindTransport, op, err)
}

func Response(op string, err error) *Error {
	return New(KindResponse, op, err)
}

// KindOf returns the kind of the first *Error in err's chain. Unclassified
// errors are treated as transport failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransport
}

// Reporter receives every user-visible failure.
type Reporter interface {
	Report(err error)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(err error)

func (f ReporterFunc) Report(err error) {
	f(err)
}

// Discard drops reports.
var Discard Reporter = ReporterFunc(func(error) {})
