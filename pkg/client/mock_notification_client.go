package client

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/memeshare/achievement-engine/pkg/domain"
)

// MockNotificationClient is a mock implementation of NotificationClient for testing.
// It uses testify/mock to allow test assertions on method calls.
type MockNotificationClient struct {
	mock.Mock
}

// NotifyBadgeEarned mocks sending a badge-earned notification.
func (m *MockNotificationClient) NotifyBadgeEarned(ctx context.Context, userID string, rule *domain.AchievementRule) error {
	args := m.Called(ctx, userID, rule)
	return args.Error(0)
}

// NewMockNotificationClient creates a new mock notification client.
func NewMockNotificationClient() *MockNotificationClient {
	return &MockNotificationClient{}
}
