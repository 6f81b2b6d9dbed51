package activity

import (
	"context"
	"encoding/json"
	"math"

	"github.com/memeshare/achievement-engine/pkg/domain"
)

// AggregateReader reduces a user's activity records to a single number for a rule.
// It is the only component that reads the activity store.
type AggregateReader interface {
	// Aggregate returns the COUNT_MATCHING or SUM_ATTRIBUTE value for userID over source.
	//
	// COUNT_MATCHING: number of records in source.Collection whose attributes
	// equal every source.Filter pair.
	//
	// SUM_ATTRIBUTE: sum of source.Attribute over the same records. Missing or
	// non-numeric values count as 0. Fractional totals are truncated toward zero.
	//
	// Store failures return an AGGREGATE_FAILED error, never a zero aggregate.
	Aggregate(ctx context.Context, userID string, source domain.ActivitySource, mode domain.AggregationMode) (int64, error)
}

// Recorder appends activity records. Event producers own the real writes;
// this is used to seed stores from the CLI and in tests.
type Recorder interface {
	Record(ctx context.Context, record *domain.ActivityRecord) error
}

// numericValue converts a decoded attribute value to float64.
// Returns false for missing, null, boolean or non-numeric values.
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// valuesEqual compares a filter value with a record attribute.
// Numbers compare by value regardless of their decoded Go type.
func valuesEqual(want, got any) bool {
	if wn, ok := numericValue(want); ok {
		gn, ok := numericValue(got)
		return ok && wn == gn
	}
	return want == got
}

// matchesFilter reports whether attrs satisfies every filter pair.
func matchesFilter(attrs map[string]any, filter map[string]any) bool {
	for key, want := range filter {
		got, ok := attrs[key]
		if !ok || !valuesEqual(want, got) {
			return false
		}
	}
	return true
}

// compensatedSum accumulates float64 values with Kahan-Babuska-Neumaier
// compensation, matching SQLite's SUM. A plain running total of 1000 x 0.1
// ends below 100 and would truncate to 99.
type compensatedSum struct {
	sum float64
	c   float64
}

func (s *compensatedSum) Add(v float64) {
	t := s.sum + v
	if math.Abs(s.sum) >= math.Abs(v) {
		s.c += (s.sum - t) + v
	} else {
		s.c += (v - t) + s.sum
	}
	s.sum = t
}

func (s *compensatedSum) Value() float64 {
	return s.sum + s.c
}

// truncateSum converts a summed float to int64, truncating toward zero.
func truncateSum(sum float64) int64 {
	if math.IsNaN(sum) || math.IsInf(sum, 0) {
		return 0
	}
	return int64(math.Trunc(sum))
}

// filterValueSQL normalizes a non-boolean filter value for comparison with
// json_extract output, which returns numbers as INTEGER or REAL.
func filterValueSQL(v any) any {
	if n, ok := v.(json.Number); ok {
		f, _ := n.Float64()
		return f
	}
	return v
}
