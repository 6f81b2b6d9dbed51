package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/memeshare/achievement-engine/pkg/domain"
	"github.com/memeshare/achievement-engine/pkg/errors"
)

type awardKey struct {
	userID        string
	achievementID string
}

// MemoryAwardRepository implements AwardRepository with a mutex-guarded map.
// The map insert under the lock is the conditional-create primitive.
type MemoryAwardRepository struct {
	mu      sync.RWMutex
	records map[awardKey]domain.AwardRecord
}

// NewMemoryAwardRepository creates an empty in-memory award repository.
func NewMemoryAwardRepository() *MemoryAwardRepository {
	return &MemoryAwardRepository{
		records: make(map[awardKey]domain.AwardRecord),
	}
}

// Exists reports whether an award record exists for the key.
func (r *MemoryAwardRepository) Exists(ctx context.Context, userID, achievementID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, errors.ErrDatabaseError("check award", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.records[awardKey{userID, achievementID}]
	return ok, nil
}

// CreateIfAbsent inserts the award record unless the key is taken.
func (r *MemoryAwardRepository) CreateIfAbsent(ctx context.Context, userID, achievementID string, awardedAt time.Time) (domain.CreateResult, error) {
	if err := ctx.Err(); err != nil {
		return 0, errors.ErrDatabaseError("create award", err)
	}

	key := awardKey{userID, achievementID}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[key]; ok {
		return domain.CreateResultAlreadyExists, nil
	}
	r.records[key] = domain.AwardRecord{
		UserID:        userID,
		AchievementID: achievementID,
		AwardedAt:     awardedAt,
		Earned:        true,
	}
	return domain.CreateResultCreated, nil
}

// ListByUser returns copies of the user's award records ordered by awarded_at.
func (r *MemoryAwardRepository) ListByUser(ctx context.Context, userID string) ([]*domain.AwardRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.ErrDatabaseError("list awards", err)
	}

	r.mu.RLock()
	records := []*domain.AwardRecord{}
	for key, rec := range r.records {
		if key.userID == userID {
			rec := rec
			records = append(records, &rec)
		}
	}
	r.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		if !records[i].AwardedAt.Equal(records[j].AwardedAt) {
			return records[i].AwardedAt.Before(records[j].AwardedAt)
		}
		return records[i].AchievementID < records[j].AchievementID
	})
	return records, nil
}

// Len returns the number of award records held.
func (r *MemoryAwardRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// MemoryCounterRepository implements CounterRepository with a mutex-guarded map.
type MemoryCounterRepository struct {
	mu     sync.Mutex
	counts map[string]int64
}

// NewMemoryCounterRepository creates an empty in-memory counter repository.
func NewMemoryCounterRepository() *MemoryCounterRepository {
	return &MemoryCounterRepository{
		counts: make(map[string]int64),
	}
}

// Increment adds one to the counter and returns the new count.
func (r *MemoryCounterRepository) Increment(ctx context.Context, achievementID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, errors.ErrDatabaseError("increment holders counter", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[achievementID]++
	return r.counts[achievementID], nil
}

// BatchRead returns the counts for all requested ids.
func (r *MemoryCounterRepository) BatchRead(ctx context.Context, achievementIDs []string) (map[string]int64, error) {
	if len(achievementIDs) == 0 {
		return map[string]int64{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.ErrDatabaseError("batch read holders counters", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	counts := zeroFilled(achievementIDs)
	for _, id := range achievementIDs {
		counts[id] = r.counts[id]
	}
	return counts, nil
}
