package repository

import (
	"context"
	"time"

	"github.com/memeshare/achievement-engine/pkg/domain"
)

// AwardRepository stores which users hold which achievements.
// At most one record exists per (user_id, achievement_id).
type AwardRepository interface {
	// Exists reports whether the user already holds the achievement.
	Exists(ctx context.Context, userID, achievementID string) (bool, error)

	// CreateIfAbsent inserts the award record only if none exists for the key.
	// The check and the insert are one store operation: under concurrent calls
	// for the same key exactly one caller observes CreateResultCreated.
	// CreateResultAlreadyExists is a result, not an error.
	CreateIfAbsent(ctx context.Context, userID, achievementID string, awardedAt time.Time) (domain.CreateResult, error)

	// ListByUser returns all of the user's award records, oldest first.
	// Returns an empty slice if the user holds nothing.
	ListByUser(ctx context.Context, userID string) ([]*domain.AwardRecord, error)
}

// CounterRepository stores the number of holders per achievement.
type CounterRepository interface {
	// Increment atomically adds one to the achievement's holder count, creating
	// the counter at 1 if absent, and returns the new count.
	Increment(ctx context.Context, achievementID string) (int64, error)

	// BatchRead returns the holder counts for all ids in a single store read.
	// Ids without a counter are reported as 0. Empty input returns an empty map.
	BatchRead(ctx context.Context, achievementIDs []string) (map[string]int64, error)
}

// createResultFromRows maps the rows affected by a conditional insert.
func createResultFromRows(n int64) domain.CreateResult {
	if n == 1 {
		return domain.CreateResultCreated
	}
	return domain.CreateResultAlreadyExists
}

// zeroFilled returns a map with every id set to 0, ready to be overlaid with stored counts.
func zeroFilled(ids []string) map[string]int64 {
	counts := make(map[string]int64, len(ids))
	for _, id := range ids {
		counts[id] = 0
	}
	return counts
}
