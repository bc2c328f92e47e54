// Package errors classifies ceremony failures into the kinds an operator acts on.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is the failure class of an operation.
type Kind string

const (
	KindUnknown       Kind = "unknown"
	KindInputIO       Kind = "input_io"
	KindDecode        Kind = "decode"
	KindPrecondition  Kind = "protocol_precondition"
	KindCrypto        Kind = "crypto_primitive"
	KindNetwork       Kind = "network_or_chain"
	KindArgumentParse Kind = "argument_parse"
)

// Error attaches a Kind and the failing operation to an underlying error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New mirrors the standard library so callers need a single errors import.
func New(text string) error { return stderrors.New(text) }

func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }

func Join(errs ...error) error { return stderrors.Join(errs...) }

// Wrap returns err classified as kind. A nil err stays nil and an already
// classified error keeps its original kind.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		if e.Op == "" {
			return &Error{Kind: e.Kind, Op: op, Err: e.Err}
		}
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf reports the kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
