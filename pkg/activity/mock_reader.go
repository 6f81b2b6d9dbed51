package activity

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/memeshare/achievement-engine/pkg/domain"
)

// MockAggregateReader is a testify mock of AggregateReader.
type MockAggregateReader struct {
	mock.Mock
}

// Aggregate mocks AggregateReader.Aggregate.
func (m *MockAggregateReader) Aggregate(ctx context.Context, userID string, source domain.ActivitySource, mode domain.AggregationMode) (int64, error) {
	args := m.Called(ctx, userID, source, mode)
	return args.Get(0).(int64), args.Error(1)
}
