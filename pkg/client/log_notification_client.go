package client

import (
	"context"

	"go.uber.org/zap"

	"github.com/memeshare/achievement-engine/pkg/domain"
)

// LogNotificationClient logs notifications instead of delivering them.
// Unlike MockNotificationClient it needs no setup and always succeeds.
//
// Use this for local development and the CLI. For tests, use MockNotificationClient.
type LogNotificationClient struct {
	logger *zap.Logger
}

// NewLogNotificationClient creates a logging notification client.
func NewLogNotificationClient(logger *zap.Logger) *LogNotificationClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotificationClient{logger: logger}
}

// NotifyBadgeEarned logs the notification and returns success.
func (c *LogNotificationClient) NotifyBadgeEarned(ctx context.Context, userID string, rule *domain.AchievementRule) error {
	c.logger.Info("badge earned notification",
		zap.String("user_id", userID),
		zap.String("achievement_id", rule.ID),
		zap.String("display_name", rule.DisplayName),
	)
	return nil
}
