package repository

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/memeshare/achievement-engine/pkg/domain"
)

// MockAwardRepository is a mock implementation of AwardRepository for testing.
type MockAwardRepository struct {
	mock.Mock
}

// Exists mocks AwardRepository.Exists.
func (m *MockAwardRepository) Exists(ctx context.Context, userID, achievementID string) (bool, error) {
	args := m.Called(ctx, userID, achievementID)
	return args.Bool(0), args.Error(1)
}

// CreateIfAbsent mocks AwardRepository.CreateIfAbsent.
func (m *MockAwardRepository) CreateIfAbsent(ctx context.Context, userID, achievementID string, awardedAt time.Time) (domain.CreateResult, error) {
	args := m.Called(ctx, userID, achievementID, awardedAt)
	return args.Get(0).(domain.CreateResult), args.Error(1)
}

// ListByUser mocks AwardRepository.ListByUser.
func (m *MockAwardRepository) ListByUser(ctx context.Context, userID string) ([]*domain.AwardRecord, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AwardRecord), args.Error(1)
}

// MockCounterRepository is a mock implementation of CounterRepository for testing.
type MockCounterRepository struct {
	mock.Mock
}

// Increment mocks CounterRepository.Increment.
func (m *MockCounterRepository) Increment(ctx context.Context, achievementID string) (int64, error) {
	args := m.Called(ctx, achievementID)
	return args.Get(0).(int64), args.Error(1)
}

// BatchRead mocks CounterRepository.BatchRead.
func (m *MockCounterRepository) BatchRead(ctx context.Context, achievementIDs []string) (map[string]int64, error) {
	args := m.Called(ctx, achievementIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}
