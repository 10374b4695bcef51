/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package errs holds the error taxonomy shared by the registries, the game
// engines and the dispatcher. Every error carries a Kind for errors.Is
// matching and an optional namespaced Code that clients may branch on.
package errs

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindAuthorization
	KindCapacity
	KindStage
	KindDuplicate
	KindExhausted
	KindSpectatorsDisabled
	KindSelfKick
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindAuthorization:
		return "authorization"
	case KindCapacity:
		return "capacity"
	case KindStage:
		return "stage"
	case KindDuplicate:
		return "duplicate"
	case KindExhausted:
		return "exhausted"
	case KindSpectatorsDisabled:
		return "spectators_disabled"
	case KindSelfKick:
		return "self_kick"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}

	return e.Message
}

// Is matches any *Error of the same Kind, so the sentinels below work with
// errors.Is regardless of code or message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}

	return t.Kind == e.Kind
}

var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrAuthorization      = &Error{Kind: KindAuthorization}
	ErrCapacity           = &Error{Kind: KindCapacity}
	ErrStage              = &Error{Kind: KindStage}
	ErrDuplicate          = &Error{Kind: KindDuplicate}
	ErrExhausted          = &Error{Kind: KindExhausted}
	ErrSpectatorsDisabled = &Error{Kind: KindSpectatorsDisabled}
	ErrSelfKick           = &Error{Kind: KindSelfKick}
)

func New(kind Kind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, "", format, args...)
}

func NotFound(code, format string, args ...any) *Error {
	return New(KindNotFound, code, format, args...)
}

func Authorization(code, format string, args ...any) *Error {
	return New(KindAuthorization, code, format, args...)
}

func Stage(format string, args ...any) *Error {
	return New(KindStage, "", format, args...)
}

func Duplicate(format string, args ...any) *Error {
	return New(KindDuplicate, "", format, args...)
}

// CodeOf returns the wire code carried by err, or fallback when err carries
// none.
func CodeOf(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Code != "" {
		return e.Code
	}

	return fallback
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return 0
}
