package service

import (
	"errors"
	"fmt"
)

// Code is the stable, log-friendly identifier of a rejection.
type Code string

const (
	CodeUIDNotRegistered     Code = "UID_NOT_REGISTERED"
	CodeTooManyTaps          Code = "TOO_MANY_TAPS"
	CodeDecisionInProgress   Code = "DECISION_IN_PROGRESS"
	CodePendingNotFound      Code = "PENDING_NOT_FOUND"
	CodeInvalidRequest       Code = "INVALID_REQUEST"
	CodeUIDAlreadyRegistered Code = "UID_ALREADY_REGISTERED"
	CodeNotFound             Code = "NOT_FOUND"
	CodeInternal             Code = "INTERNAL"
)

// Short texts for a reader's screen or the mobile app.
var displayMessages = map[Code]string{
	CodeUIDNotRegistered:     "Card not registered. Please register at the front desk.",
	CodeTooManyTaps:          "Already tagged. Please wait a moment.",
	CodeDecisionInProgress:   "Please finish the open confirmation first.",
	CodePendingNotFound:      "Confirmation expired. Please tap again.",
	CodeInvalidRequest:       "Invalid request.",
	CodeUIDAlreadyRegistered: "Card is already in use.",
	CodeNotFound:             "Not found.",
}

// Error is a classified rejection.  Message is safe to show to the person
// at the tap point; Err carries the detail for logs.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so the sentinels below work
// with errors.Is regardless of the wrapped detail.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrUIDNotRegistered     = &Error{Code: CodeUIDNotRegistered}
	ErrTooManyTaps          = &Error{Code: CodeTooManyTaps}
	ErrDecisionInProgress   = &Error{Code: CodeDecisionInProgress}
	ErrPendingNotFound      = &Error{Code: CodePendingNotFound}
	ErrInvalidRequest       = &Error{Code: CodeInvalidRequest}
	ErrUIDAlreadyRegistered = &Error{Code: CodeUIDAlreadyRegistered}
	ErrNotFound             = &Error{Code: CodeNotFound}
)

func newError(code Code, err error) *Error {
	return &Error{Code: code, Message: displayMessages[code], Err: err}
}

func invalid(format string, args ...any) *Error {
	return newError(CodeInvalidRequest, fmt.Errorf(format, args...))
}

// DisplayMessage returns the human-readable text for err, falling back to
// a generic retry hint for errors that carry no code.
func DisplayMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
		return displayMessages[e.Code]
	}
	return "Temporarily unavailable. Please tap again."
}

// CodeOf returns the code of err, or "" for unclassified errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
