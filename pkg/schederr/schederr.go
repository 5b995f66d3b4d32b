// Package schederr defines the closed error taxonomy the scheduling core
// returns across its boundary. Nothing in internal/engine, internal/csp,
// internal/ga, internal/advisor, or internal/postvalidate ever panics or
// raises; every failure path produces one of the kinds below.
package schederr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies a distinct error category. Kinds are not exception
// classes - callers branch on them with errors.As, never on message text.
type Kind string

const (
	KindInfeasibleConstraints       Kind = "INFEASIBLE_CONSTRAINTS"
	KindNoQualifiedTeacher          Kind = "NO_QUALIFIED_TEACHER"
	KindInsufficientTeacherCapacity Kind = "INSUFFICIENT_TEACHER_CAPACITY"
	KindMissingHomeRoom             Kind = "MISSING_HOME_ROOM"
	KindTimeout                     Kind = "TIMEOUT"
	KindCancelled                   Kind = "CANCELLED"
	KindValidation                  Kind = "VALIDATION_ERROR"
	KindNotFound                    Kind = "NOT_FOUND"
	KindInternal                    Kind = "INTERNAL_ERROR"
)

// Error is a typed domain error with HTTP awareness, carrying whatever
// entity-named context a caller needs to render an actionable message.
type Error struct {
	Kind       Kind           `json:"kind"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Context    map[string]any `json:"context,omitempty"`
	Err        error          `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func statusFor(kind Kind) int {
	switch kind {
	case KindValidation, KindInfeasibleConstraints, KindNoQualifiedTeacher, KindInsufficientTeacherCapacity, KindMissingHomeRoom:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindCancelled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func newErr(kind Kind, message string, ctx map[string]any) *Error {
	return &Error{Kind: kind, Message: message, HTTPStatus: statusFor(kind), Context: ctx}
}

// InfeasibleConstraints reports that demand exceeds supply somewhere in
// the request; conflicts/suggestions are entity-named, never generic.
func InfeasibleConstraints(message string, conflicts, suggestions []string) *Error {
	return newErr(KindInfeasibleConstraints, message, map[string]any{
		"conflicts":   conflicts,
		"suggestions": suggestions,
	})
}

// NoQualifiedTeacher reports that a subject has zero qualified teachers.
func NoQualifiedTeacher(subject string) *Error {
	return newErr(KindNoQualifiedTeacher, fmt.Sprintf("no qualified teacher available for %s", subject), map[string]any{
		"subject": subject,
	})
}

// InsufficientTeacherCapacity reports a subject-level weekly period shortfall.
func InsufficientTeacherCapacity(subject string, deficitPeriods int) *Error {
	return newErr(KindInsufficientTeacherCapacity,
		fmt.Sprintf("qualified teachers for %s are short by %d periods/week", subject, deficitPeriods),
		map[string]any{"subject": subject, "deficitPeriods": deficitPeriods})
}

// MissingHomeRoom reports a v3.0-mode precondition failure.
func MissingHomeRoom(class string) *Error {
	return newErr(KindMissingHomeRoom, fmt.Sprintf("class %s has no home room assigned", class), map[string]any{
		"class": class,
	})
}

// Timeout reports a phase deadline expiry with the last known progress.
func Timeout(phase string, elapsedSeconds float64, lastProgress string) *Error {
	return newErr(KindTimeout, fmt.Sprintf("%s timed out after %.1fs", phase, elapsedSeconds), map[string]any{
		"phase":          phase,
		"elapsedSeconds": elapsedSeconds,
		"lastProgress":   lastProgress,
	})
}

// Cancelled reports cooperative cancellation of a long-running phase.
func Cancelled(phase string) *Error {
	return newErr(KindCancelled, fmt.Sprintf("%s was cancelled", phase), map[string]any{"phase": phase})
}

// Validation reports a rejected request payload.
func Validation(message string) *Error {
	return newErr(KindValidation, message, nil)
}

// NotFound reports a missing stored entity.
func NotFound(message string) *Error {
	return newErr(KindNotFound, message, nil)
}

// Internal wraps an unexpected lower-level error. It must never leak
// across the core boundary - callers at the engine layer catch it and
// remap to InfeasibleConstraints with the current bottleneck attached.
func Internal(context string, err error) *Error {
	return &Error{
		Kind:       KindInternal,
		Message:    fmt.Sprintf("internal error: %s", context),
		HTTPStatus: statusFor(KindInternal),
		Err:        err,
	}
}

// As normalises any error into an *Error, wrapping unknown errors as Internal.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("unclassified error", err)
}

// Is reports whether err is a schederr.Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
