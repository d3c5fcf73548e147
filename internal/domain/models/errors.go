package models

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the allocation engine, admission and the presentation layer.
var (
	// ErrInsufficientStock indicates demand exceeds supply at approval time.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidState indicates the target request or allocation is not in the expected status.
	ErrInvalidState = errors.New("invalid state")
	// ErrValidationFailed indicates an admission-time rule violation.
	ErrValidationFailed = errors.New("validation failed")
	// ErrContention indicates a lock or transaction conflict; the operation is safe to retry.
	ErrContention = errors.New("contention")
	// ErrNotFound indicates a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the actor lacks the capability for the operation.
	ErrForbidden = errors.New("forbidden")
)

// ErrorKind is the machine-readable error category handed to callers.
type ErrorKind string

const (
	KindNone              ErrorKind = ""
	KindInsufficientStock ErrorKind = "InsufficientStock"
	KindInvalidState      ErrorKind = "InvalidState"
	KindValidationFailed  ErrorKind = "ValidationFailed"
	KindContention        ErrorKind = "Contention"
	KindNotFound          ErrorKind = "NotFound"
	KindForbidden         ErrorKind = "Forbidden"
	KindInternal          ErrorKind = "Internal"
)

// ValidationError names the specific admission rule that was violated.
type ValidationError struct {
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Message)
}

// Unwrap lets errors.Is(err, ErrValidationFailed) match.
func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// Invalid builds a ValidationError for the given rule.
func Invalid(rule, format string, args ...any) error {
	return &ValidationError{Rule: rule, Message: fmt.Sprintf(format, args...)}
}

// KindOf classifies err into the taxonomy. Unknown errors are Internal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInsufficientStock):
		return KindInsufficientStock
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrValidationFailed):
		return KindValidationFailed
	case errors.Is(err, ErrContention):
		return KindContention
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	default:
		return KindInternal
	}
}

// ViolatedRule returns the rule name carried by a ValidationError, if any.
func ViolatedRule(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Rule
	}
	return ""
}

// IsDomainError reports whether err already belongs to the taxonomy.
func IsDomainError(err error) bool {
	k := KindOf(err)
	return k != KindNone && k != KindInternal
}
