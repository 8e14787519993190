// Package apperr defines the domain errors returned by the engine. Every
// specific error carries one of a small set of kinds so the transport layer
// can map failures to status codes without knowing each case.
package apperr

import (
	"errors"
	"fmt"
)

// Error kinds.
var (
	KindNotFound           = errors.New("not found")
	KindInvalidState       = errors.New("invalid state")
	KindAccessDenied       = errors.New("access denied")
	KindValidation         = errors.New("validation error")
	KindExpiredOrExhausted = errors.New("expired or exhausted")
	KindConflict           = errors.New("conflict")
)

var kinds = []error{
	KindNotFound,
	KindInvalidState,
	KindAccessDenied,
	KindValidation,
	KindExpiredOrExhausted,
	KindConflict,
}

// Error is a domain failure. Code is stable and used as the translation key
// for user-facing messages.
type Error struct {
	Kind    error
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports a match against the error's kind as well as against a
// specific error value with the same code.
func (e *Error) Is(target error) bool {
	if target == e.Kind {
		return true
	}
	var t *Error
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

func (e *Error) Unwrap() error {
	return e.Err
}

// With returns a copy of e carrying a more specific message.
func (e *Error) With(format string, args ...any) *Error {
	c := *e
	c.Message = fmt.Sprintf(format, args...)
	return &c
}

// Wrap returns a copy of e wrapping cause.
func (e *Error) Wrap(cause error) *Error {
	c := *e
	c.Err = cause
	return &c
}

func newError(kind error, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// Specific errors.
var (
	ErrNotFound           = newError(KindNotFound, "NotFound", "entity not found")
	ErrInvalidState       = newError(KindInvalidState, "InvalidState", "operation not valid in current state")
	ErrAccessDenied       = newError(KindAccessDenied, "AccessDenied", "access denied")
	ErrValidation         = newError(KindValidation, "ValidationError", "invalid input")
	ErrConflict           = newError(KindConflict, "Conflict", "conflicting concurrent update")
	ErrMissingTarget      = newError(KindValidation, "MissingTarget", "door or course is required")
	ErrInvalidCoupon      = newError(KindValidation, "InvalidCoupon", "invalid coupon code")
	ErrInvalidAccessCode  = newError(KindValidation, "InvalidAccessCode", "invalid access code")
	ErrCourseMismatch     = newError(KindValidation, "CourseMismatch", "access code not applicable to this course")
	ErrExpired            = newError(KindExpiredOrExhausted, "Expired", "access code is not valid at this time")
	ErrUsageLimitReached  = newError(KindExpiredOrExhausted, "UsageLimitReached", "access code usage limit reached")
	ErrDuplicateOrder     = newError(KindConflict, "DuplicateOrder", "an active order already exists for this item")
	ErrAlreadyExists      = newError(KindConflict, "AlreadyExists", "an entity with this name already exists")
	ErrAlreadyRejected    = newError(KindInvalidState, "AlreadyRejected", "order already rejected")
	ErrMissingDuration    = newError(KindValidation, "MissingDuration", "exam duration is required")
	ErrExamClosed         = newError(KindExpiredOrExhausted, "ExamClosed", "exam is already finished or time expired")
	ErrAlreadyExpired     = newError(KindExpiredOrExhausted, "AlreadyExpired", "exam time has already expired")
	ErrAlreadyFinished    = newError(KindInvalidState, "AlreadyFinished", "exam attempt already finished")
	ErrInvalidCredentials = newError(KindAccessDenied, "InvalidCredentials", "invalid username or password")
)

// KindOf returns the kind of err, or nil for infrastructure errors.
func KindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// CodeOf returns the code of the first *Error in err's chain, or "" if there
// is none.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsDomain reports whether err is a domain failure rather than an
// infrastructure error.
func IsDomain(err error) bool {
	return KindOf(err) != nil
}
