package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// Error codes for the achievement engine.
const (
	// Domain errors
	ErrCodeAchievementNotFound = "ACHIEVEMENT_NOT_FOUND"

	// Store errors (retryable)
	ErrCodeDatabaseError   = "DATABASE_ERROR"
	ErrCodeAggregateFailed = "AGGREGATE_FAILED"

	// Config errors
	ErrCodeConfigInvalid = "CONFIG_INVALID"

	// Notification errors
	ErrCodeNotificationFailed = "NOTIFICATION_FAILED"

	// Validation errors
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeInvalidInput     = "INVALID_INPUT"
)

// BadgeError represents an error in the achievement engine.
type BadgeError struct {
	Code    string
	Message string
	Err     error
}

func (e *BadgeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BadgeError) Unwrap() error {
	return e.Err
}

// NewBadgeError creates a new BadgeError.
func NewBadgeError(code, message string, err error) *BadgeError {
	return &BadgeError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ErrAchievementNotFound returns an error when an achievement ID is not in the registry.
func ErrAchievementNotFound(achievementID string) *BadgeError {
	return &BadgeError{
		Code:    ErrCodeAchievementNotFound,
		Message: fmt.Sprintf("achievement not found: %s", achievementID),
		Err:     nil,
	}
}

// ErrDatabaseError wraps award/counter store errors.
func ErrDatabaseError(operation string, err error) *BadgeError {
	return &BadgeError{
		Code:    ErrCodeDatabaseError,
		Message: fmt.Sprintf("database error during %s", operation),
		Err:     err,
	}
}

// ErrAggregateFailed wraps activity store query errors.
// A failed aggregate is never reported as zero.
func ErrAggregateFailed(collection string, err error) *BadgeError {
	return &BadgeError{
		Code:    ErrCodeAggregateFailed,
		Message: fmt.Sprintf("aggregate query failed for collection %s", collection),
		Err:     err,
	}
}

// ErrConfigInvalid wraps a parse or validation failure of the registry file at path.
func ErrConfigInvalid(path string, err error) *BadgeError {
	return &BadgeError{
		Code:    ErrCodeConfigInvalid,
		Message: fmt.Sprintf("invalid configuration in %s", path),
		Err:     err,
	}
}

// ErrNotificationFailed returns an error when the badge-earned notification could not be sent.
func ErrNotificationFailed(userID, achievementID string, err error) *BadgeError {
	return &BadgeError{
		Code:    ErrCodeNotificationFailed,
		Message: fmt.Sprintf("failed to notify user %s about %s", userID, achievementID),
		Err:     err,
	}
}

// ErrValidationFailed returns a validation error.
func ErrValidationFailed(field, reason string) *BadgeError {
	return &BadgeError{
		Code:    ErrCodeValidationFailed,
		Message: fmt.Sprintf("validation failed for %s: %s", field, reason),
		Err:     nil,
	}
}

// ErrInvalidInput returns an error for malformed caller input.
func ErrInvalidInput(field string) *BadgeError {
	return &BadgeError{
		Code:    ErrCodeInvalidInput,
		Message: fmt.Sprintf("invalid input: %s must not be empty", field),
		Err:     nil,
	}
}

// HasCode reports whether err wraps a BadgeError with the given code.
func HasCode(err error, code string) bool {
	var badgeErr *BadgeError
	if stderrors.As(err, &badgeErr) {
		return badgeErr.Code == code
	}
	return false
}

// IsRetryable reports whether the caller may retry the failed operation.
// Store and notification faults are transient; caller errors are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var badgeErr *BadgeError
	if !stderrors.As(err, &badgeErr) {
		return false
	}
	switch badgeErr.Code {
	case ErrCodeDatabaseError, ErrCodeAggregateFailed, ErrCodeNotificationFailed:
		return true
	default:
		return false
	}
}
