package activity

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/memeshare/achievement-engine/pkg/domain"
	"github.com/memeshare/achievement-engine/pkg/errors"
)

// MemoryAggregateReader keeps activity records in process.
// It is used by tests and by local dry runs of the CLI.
type MemoryAggregateReader struct {
	mu      sync.RWMutex
	records map[string][]*domain.ActivityRecord // user_id -> records
}

// NewMemoryAggregateReader creates an empty in-memory activity store.
func NewMemoryAggregateReader() *MemoryAggregateReader {
	return &MemoryAggregateReader{
		records: make(map[string][]*domain.ActivityRecord),
	}
}

// Record appends a copy of record.
func (r *MemoryAggregateReader) Record(ctx context.Context, record *domain.ActivityRecord) error {
	if err := ctx.Err(); err != nil {
		return errors.ErrDatabaseError("record activity", err)
	}

	c := *record
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Attributes = make(map[string]any, len(record.Attributes))
	for k, v := range record.Attributes {
		c.Attributes[k] = v
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[c.UserID] = append(r.records[c.UserID], &c)
	return nil
}

// Aggregate computes the aggregate over the user's in-memory records.
func (r *MemoryAggregateReader) Aggregate(ctx context.Context, userID string, source domain.ActivitySource, mode domain.AggregationMode) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, errors.ErrAggregateFailed(source.Collection, err)
	}
	if !mode.IsValid() {
		return 0, errors.ErrValidationFailed("aggregation_mode", fmt.Sprintf("unsupported mode %q", mode))
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	var sum compensatedSum
	for _, rec := range r.records[userID] {
		if rec.Collection != source.Collection || !matchesFilter(rec.Attributes, source.Filter) {
			continue
		}
		count++
		if mode == domain.AggregationSumAttribute {
			if v, ok := numericValue(rec.Attributes[source.Attribute]); ok {
				sum.Add(v)
			}
		}
	}

	if mode == domain.AggregationSumAttribute {
		return truncateSum(sum.Value()), nil
	}
	return count, nil
}
