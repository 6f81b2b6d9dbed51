package client

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/segmentio/kafka-go"

	"github.com/memeshare/achievement-engine/pkg/domain"
	"github.com/memeshare/achievement-engine/pkg/errors"
)

// NotificationClient tells a user they earned an achievement.
//
// It is called only for NEWLY_AWARDED outcomes, after the award is persisted.
// A failed notification never revokes or repeats the award.
type NotificationClient interface {
	// NotifyBadgeEarned delivers the celebration for rule to userID.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - userID: User's unique identifier
	//   - rule: The achievement that was just awarded
	NotifyBadgeEarned(ctx context.Context, userID string, rule *domain.AchievementRule) error
}

// IsRetryableError determines if a notification or store error should be retried.
//
// Classification strategy:
//  1. BadgeError codes, via errors.IsRetryable
//  2. Kafka protocol error codes, via kafka.Error.Temporary
//  3. Error message patterns for generic errors
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var badgeErr *errors.BadgeError
	if stderrors.As(err, &badgeErr) {
		// NOTIFICATION_FAILED wraps the channel error, which decides.
		if badgeErr.Code != errors.ErrCodeNotificationFailed || badgeErr.Err == nil {
			return errors.IsRetryable(err)
		}
		return IsRetryableError(badgeErr.Err)
	}

	var kafkaErr kafka.Error
	if stderrors.As(err, &kafkaErr) {
		return kafkaErr.Temporary()
	}

	errMsg := strings.ToLower(err.Error())
	nonRetryablePatterns := []string{
		"bad request",
		"invalid argument",
		"not found",
		"forbidden",
		"unauthorized",
		"permission denied",
		"unknown topic",
	}
	for _, pattern := range nonRetryablePatterns {
		if strings.Contains(errMsg, pattern) {
			return false
		}
	}

	// Network timeouts, broker unavailability and the like.
	return true
}
