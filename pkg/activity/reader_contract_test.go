package activity

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memeshare/achievement-engine/pkg/domain"
)

// store is the capability every aggregate reader implementation is tested through.
type store interface {
	AggregateReader
	Recorder
}

var (
	sharesSource = domain.ActivitySource{Collection: "uploads", Attribute: "share_count"}
	likesSource  = domain.ActivitySource{Collection: "likes", Filter: map[string]any{"liked": true}}
)

func seed(t *testing.T, s store, userID, collection string, attrs ...map[string]any) {
	t.Helper()
	for _, a := range attrs {
		require.NoError(t, s.Record(context.Background(), &domain.ActivityRecord{
			Collection: collection,
			UserID:     userID,
			Attributes: a,
		}))
	}
}

// runReaderContract checks the aggregation semantics shared by every implementation.
func runReaderContract(t *testing.T, newStore func(t *testing.T) store) {
	ctx := context.Background()

	t.Run("sum reaching threshold exactly", func(t *testing.T) {
		s := newStore(t)
		seed(t, s, "alice", "uploads",
			map[string]any{"share_count": 40},
			map[string]any{"share_count": 40},
			map[string]any{"share_count": 20},
		)

		got, err := s.Aggregate(ctx, "alice", sharesSource, domain.AggregationSumAttribute)

		require.NoError(t, err)
		assert.Equal(t, int64(100), got)
	})

	t.Run("sum one below threshold", func(t *testing.T) {
		s := newStore(t)
		seed(t, s, "bob", "uploads",
			map[string]any{"share_count": 40},
			map[string]any{"share_count": 40},
			map[string]any{"share_count": 19},
		)

		got, err := s.Aggregate(ctx, "bob", sharesSource, domain.AggregationSumAttribute)

		require.NoError(t, err)
		assert.Equal(t, int64(99), got)
	})

	t.Run("sum treats missing and non-numeric as zero", func(t *testing.T) {
		s := newStore(t)
		seed(t, s, "carol", "uploads",
			map[string]any{"share_count": 10},
			map[string]any{"title": "legacy upload"},
			map[string]any{"share_count": "lots"},
			map[string]any{"share_count": nil},
			map[string]any{"share_count": true},
			map[string]any{"share_count": 2.5},
		)

		got, err := s.Aggregate(ctx, "carol", sharesSource, domain.AggregationSumAttribute)

		require.NoError(t, err)
		assert.Equal(t, int64(12), got)
	})

	t.Run("count matching ignores non-matching records", func(t *testing.T) {
		s := newStore(t)
		for i := 0; i < 5; i++ {
			seed(t, s, "dave", "likes", map[string]any{"liked": true})
		}
		for i := 0; i < 3; i++ {
			seed(t, s, "dave", "likes", map[string]any{"liked": false})
		}

		got, err := s.Aggregate(ctx, "dave", likesSource, domain.AggregationCountMatching)

		require.NoError(t, err)
		assert.Equal(t, int64(5), got)
	})

	t.Run("count matching four of fourteen", func(t *testing.T) {
		s := newStore(t)
		for i := 0; i < 4; i++ {
			seed(t, s, "erin", "likes", map[string]any{"liked": true})
		}
		for i := 0; i < 10; i++ {
			seed(t, s, "erin", "likes", map[string]any{"liked": false})
		}

		got, err := s.Aggregate(ctx, "erin", likesSource, domain.AggregationCountMatching)

		require.NoError(t, err)
		assert.Equal(t, int64(4), got)
	})

	t.Run("boolean filter does not match numeric one", func(t *testing.T) {
		s := newStore(t)
		seed(t, s, "frank", "likes", map[string]any{"liked": 1}, map[string]any{"liked": true})

		got, err := s.Aggregate(ctx, "frank", likesSource, domain.AggregationCountMatching)

		require.NoError(t, err)
		assert.Equal(t, int64(1), got)
	})

	t.Run("numeric filter does not match boolean true", func(t *testing.T) {
		s := newStore(t)
		seed(t, s, "fern", "likes", map[string]any{"liked": true}, map[string]any{"liked": 1})
		source := domain.ActivitySource{Collection: "likes", Filter: map[string]any{"liked": 1}}

		got, err := s.Aggregate(ctx, "fern", source, domain.AggregationCountMatching)

		require.NoError(t, err)
		assert.Equal(t, int64(1), got)
	})

	t.Run("string filter does not match number", func(t *testing.T) {
		s := newStore(t)
		seed(t, s, "fred", "uploads", map[string]any{"width": 480}, map[string]any{"width": "480"})
		source := domain.ActivitySource{Collection: "uploads", Filter: map[string]any{"width": "480"}}

		got, err := s.Aggregate(ctx, "fred", source, domain.AggregationCountMatching)

		require.NoError(t, err)
		assert.Equal(t, int64(1), got)
	})

	t.Run("sum of many fractions reaches threshold", func(t *testing.T) {
		s := newStore(t)
		tenths := make([]map[string]any, 1000)
		for i := range tenths {
			tenths[i] = map[string]any{"share_count": 0.1}
		}
		seed(t, s, "fiona", "uploads", tenths...)

		got, err := s.Aggregate(ctx, "fiona", sharesSource, domain.AggregationSumAttribute)

		require.NoError(t, err)
		assert.Equal(t, int64(100), got, "1000 x 0.1 must not truncate to 99")
	})

	t.Run("string and number filters", func(t *testing.T) {
		s := newStore(t)
		seed(t, s, "gina", "uploads",
			map[string]any{"format": "gif", "width": 480},
			map[string]any{"format": "gif", "width": 320},
			map[string]any{"format": "png", "width": 480},
		)
		source := domain.ActivitySource{
			Collection: "uploads",
			Filter:     map[string]any{"format": "gif", "width": json.Number("480")},
		}

		got, err := s.Aggregate(ctx, "gina", source, domain.AggregationCountMatching)

		require.NoError(t, err)
		assert.Equal(t, int64(1), got)
	})

	t.Run("records are scoped to user and collection", func(t *testing.T) {
		s := newStore(t)
		seed(t, s, "hank", "uploads", map[string]any{"share_count": 7})
		seed(t, s, "ivy", "uploads", map[string]any{"share_count": 1000})
		seed(t, s, "hank", "comments", map[string]any{"share_count": 1000})

		got, err := s.Aggregate(ctx, "hank", sharesSource, domain.AggregationSumAttribute)

		require.NoError(t, err)
		assert.Equal(t, int64(7), got)
	})

	t.Run("no records aggregates to zero", func(t *testing.T) {
		s := newStore(t)

		count, err := s.Aggregate(ctx, "nobody", likesSource, domain.AggregationCountMatching)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)

		sum, err := s.Aggregate(ctx, "nobody", sharesSource, domain.AggregationSumAttribute)
		require.NoError(t, err)
		assert.Equal(t, int64(0), sum)
	})

	t.Run("unsupported mode is rejected", func(t *testing.T) {
		s := newStore(t)

		_, err := s.Aggregate(ctx, "alice", sharesSource, domain.AggregationMode("MAX"))

		assert.Error(t, err)
	})
}
