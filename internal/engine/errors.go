package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/shortlist/internal/rules"
)

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// CodeValidation means an eligibility rule failed before anything was
	// submitted. No optimistic view was published.
	CodeValidation ErrorCode = "VALIDATION"

	// CodeStoreFailure means the store rejected or timed out on a submit.
	// Any optimistic view has been rolled back. Retrying is up to the caller.
	CodeStoreFailure ErrorCode = "STORE_FAILURE"

	// CodeAggregationInconsistency means authoritative data broke a
	// consistency rule. The authoritative view is published regardless.
	CodeAggregationInconsistency ErrorCode = "AGGREGATION_INCONSISTENCY"
)

// Error is returned by engine verbs and attached to inconsistent refreshes.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op is the verb or refresh trigger that failed.
	Op string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause: a *rules.Denial for validation errors,
	// the store error for store failures.
	Err error

	// Details contains additional context.
	Details map[string]string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func validationError(op string, d *rules.Denial) *Error {
	return &Error{
		Code:    CodeValidation,
		Op:      op,
		Message: d.Message,
		Err:     d,
		Details: map[string]string{"reason": string(d.Reason)},
	}
}

func storeFailure(op string, err error) *Error {
	return &Error{
		Code:    CodeStoreFailure,
		Op:      op,
		Message: err.Error(),
		Err:     err,
	}
}

func codeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsValidation reports whether err is an eligibility failure.
// Uses errors.As to handle wrapped errors.
func IsValidation(err error) bool { return codeOf(err) == CodeValidation }

// IsStoreFailure reports whether err is a failed or timed-out submit.
func IsStoreFailure(err error) bool { return codeOf(err) == CodeStoreFailure }

// IsAggregationInconsistency reports whether err flags inconsistent
// authoritative data.
func IsAggregationInconsistency(err error) bool {
	return codeOf(err) == CodeAggregationInconsistency
}

// IsUnauthorized reports whether err is a privileged action attempted by a
// non-admin.
func IsUnauthorized(err error) bool {
	return ReasonOf(err) == rules.ReasonNotPrivileged
}

// ReasonOf returns the denial reason carried by err, or "" if there is none.
func ReasonOf(err error) rules.Reason {
	var d *rules.Denial
	if errors.As(err, &d) {
		return d.Reason
	}
	return ""
}
