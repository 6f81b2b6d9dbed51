package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestBadgeError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *BadgeError
		wantMsg string
	}{
		{
			name: "error without wrapped error",
			err: &BadgeError{
				Code:    ErrCodeAchievementNotFound,
				Message: "achievement not found: trend-setter",
				Err:     nil,
			},
			wantMsg: "ACHIEVEMENT_NOT_FOUND: achievement not found: trend-setter",
		},
		{
			name: "error with wrapped error",
			err: &BadgeError{
				Code:    ErrCodeDatabaseError,
				Message: "database error during query",
				Err:     errors.New("connection timeout"),
			},
			wantMsg: "DATABASE_ERROR: database error during query: connection timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if got != tt.wantMsg {
				t.Errorf("BadgeError.Error() = %v, want %v", got, tt.wantMsg)
			}
		})
	}
}

func TestBadgeError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	err := &BadgeError{
		Code:    ErrCodeDatabaseError,
		Message: "test error",
		Err:     originalErr,
	}

	if err.Unwrap() != originalErr {
		t.Errorf("Unwrap() returned %v, want %v", err.Unwrap(), originalErr)
	}

	if !errors.Is(err, originalErr) {
		t.Error("errors.Is() should find the wrapped error")
	}
}

func TestErrAchievementNotFound(t *testing.T) {
	achievementID := "does-not-exist"
	err := ErrAchievementNotFound(achievementID)

	if err.Code != ErrCodeAchievementNotFound {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeAchievementNotFound)
	}

	if !strings.Contains(err.Message, achievementID) {
		t.Errorf("Message should contain achievement ID %v, got %v", achievementID, err.Message)
	}
}

func TestErrDatabaseError(t *testing.T) {
	operation := "create award"
	originalErr := errors.New("connection lost")
	err := ErrDatabaseError(operation, originalErr)

	if err.Code != ErrCodeDatabaseError {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeDatabaseError)
	}

	if !strings.Contains(err.Message, operation) {
		t.Errorf("Message should contain operation %v, got %v", operation, err.Message)
	}

	if err.Err != originalErr {
		t.Errorf("Wrapped error = %v, want %v", err.Err, originalErr)
	}
}

func TestErrAggregateFailed(t *testing.T) {
	originalErr := errors.New("store unavailable")
	err := ErrAggregateFailed("uploads", originalErr)

	if err.Code != ErrCodeAggregateFailed {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeAggregateFailed)
	}

	if !strings.Contains(err.Message, "uploads") {
		t.Errorf("Message should contain collection, got %v", err.Message)
	}
}

func TestErrValidationFailed(t *testing.T) {
	err := ErrValidationFailed("threshold", "must not be negative")

	if err.Code != ErrCodeValidationFailed {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeValidationFailed)
	}

	if !strings.Contains(err.Message, "threshold") || !strings.Contains(err.Message, "must not be negative") {
		t.Errorf("Message should contain field and reason, got %v", err.Message)
	}
}

func TestErrConfigInvalid(t *testing.T) {
	cause := errors.New("duplicate achievement ID 'critic'")
	err := ErrConfigInvalid("configs/achievements.json", cause)

	if err.Code != ErrCodeConfigInvalid {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeConfigInvalid)
	}
	if !strings.Contains(err.Message, "configs/achievements.json") {
		t.Errorf("Message should contain path, got %v", err.Message)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is() should find the cause")
	}
}

func TestHasCode(t *testing.T) {
	wrapped := fmt.Errorf("evaluate: %w", ErrInvalidInput("user_id"))

	if !HasCode(wrapped, ErrCodeInvalidInput) {
		t.Error("HasCode() = false for wrapped INVALID_INPUT")
	}
	if HasCode(wrapped, ErrCodeDatabaseError) {
		t.Error("HasCode() = true for mismatched code")
	}
	if HasCode(errors.New("plain"), ErrCodeInvalidInput) {
		t.Error("HasCode() = true for plain error")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "database error", err: ErrDatabaseError("increment", errors.New("x")), want: true},
		{name: "aggregate failed", err: ErrAggregateFailed("likes", errors.New("x")), want: true},
		{name: "notification failed", err: ErrNotificationFailed("u", "a", errors.New("x")), want: true},
		{name: "wrapped database error", err: fmt.Errorf("step: %w", ErrDatabaseError("exists", errors.New("x"))), want: true},
		{name: "deadline exceeded", err: fmt.Errorf("query: %w", context.DeadlineExceeded), want: true},
		{name: "not found", err: ErrAchievementNotFound("a"), want: false},
		{name: "invalid input", err: ErrInvalidInput("user_id"), want: false},
		{name: "config invalid", err: ErrConfigInvalid("achievements.json", errors.New("bad")), want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewBadgeError(t *testing.T) {
	originalErr := errors.New("wrapped error")

	err := NewBadgeError("TEST_CODE", "test message", originalErr)

	if err.Code != "TEST_CODE" {
		t.Errorf("Code = %v, want TEST_CODE", err.Code)
	}

	if err.Message != "test message" {
		t.Errorf("Message = %v, want test message", err.Message)
	}

	if err.Err != originalErr {
		t.Errorf("Wrapped error = %v, want %v", err.Err, originalErr)
	}
}
