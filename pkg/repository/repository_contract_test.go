package repository

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/memeshare/achievement-engine/pkg/domain"
)

type stores struct {
	awards   AwardRepository
	counters CounterRepository
}

var baseTime = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func runAwardContract(t *testing.T, newStores func(t *testing.T) stores) {
	ctx := context.Background()

	t.Run("create then exists", func(t *testing.T) {
		s := newStores(t)

		exists, err := s.awards.Exists(ctx, "alice", "critic")
		require.NoError(t, err)
		assert.False(t, exists)

		result, err := s.awards.CreateIfAbsent(ctx, "alice", "critic", baseTime)
		require.NoError(t, err)
		assert.Equal(t, domain.CreateResultCreated, result)

		exists, err = s.awards.Exists(ctx, "alice", "critic")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = s.awards.Exists(ctx, "bob", "critic")
		require.NoError(t, err)
		assert.False(t, exists, "awards are per user")
	})

	t.Run("second create reports already exists", func(t *testing.T) {
		s := newStores(t)

		first, err := s.awards.CreateIfAbsent(ctx, "alice", "critic", baseTime)
		require.NoError(t, err)
		second, err := s.awards.CreateIfAbsent(ctx, "alice", "critic", baseTime.Add(time.Hour))
		require.NoError(t, err)

		assert.Equal(t, domain.CreateResultCreated, first)
		assert.Equal(t, domain.CreateResultAlreadyExists, second)

		records, err := s.awards.ListByUser(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.True(t, records[0].AwardedAt.Equal(baseTime), "losing create must not overwrite awarded_at")
	})

	t.Run("concurrent creates produce exactly one winner", func(t *testing.T) {
		s := newStores(t)
		const callers = 20
		var created, existing atomic.Int64

		var g errgroup.Group
		for i := 0; i < callers; i++ {
			g.Go(func() error {
				result, err := s.awards.CreateIfAbsent(ctx, "alice", "trend-setter", baseTime)
				if err != nil {
					return err
				}
				switch result {
				case domain.CreateResultCreated:
					created.Add(1)
				case domain.CreateResultAlreadyExists:
					existing.Add(1)
				default:
					return fmt.Errorf("unexpected result %v", result)
				}
				return nil
			})
		}

		require.NoError(t, g.Wait())
		assert.Equal(t, int64(1), created.Load())
		assert.Equal(t, int64(callers-1), existing.Load())
	})

	t.Run("list by user is ordered by awarded_at", func(t *testing.T) {
		s := newStores(t)
		_, err := s.awards.CreateIfAbsent(ctx, "alice", "social-butterfly", baseTime.Add(2*time.Hour))
		require.NoError(t, err)
		_, err = s.awards.CreateIfAbsent(ctx, "alice", "first-upload", baseTime)
		require.NoError(t, err)
		_, err = s.awards.CreateIfAbsent(ctx, "alice", "critic", baseTime.Add(time.Hour))
		require.NoError(t, err)
		_, err = s.awards.CreateIfAbsent(ctx, "bob", "critic", baseTime)
		require.NoError(t, err)

		records, err := s.awards.ListByUser(ctx, "alice")

		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "first-upload", records[0].AchievementID)
		assert.Equal(t, "critic", records[1].AchievementID)
		assert.Equal(t, "social-butterfly", records[2].AchievementID)
		for _, rec := range records {
			assert.Equal(t, "alice", rec.UserID)
			assert.True(t, rec.Earned)
		}
	})

	t.Run("list by user with no awards", func(t *testing.T) {
		s := newStores(t)

		records, err := s.awards.ListByUser(ctx, "nobody")

		require.NoError(t, err)
		assert.NotNil(t, records)
		assert.Empty(t, records)
	})
}

func runCounterContract(t *testing.T, newStores func(t *testing.T) stores) {
	ctx := context.Background()

	t.Run("increment creates and advances", func(t *testing.T) {
		s := newStores(t)

		first, err := s.counters.Increment(ctx, "critic")
		require.NoError(t, err)
		second, err := s.counters.Increment(ctx, "critic")
		require.NoError(t, err)

		assert.Equal(t, int64(1), first)
		assert.Equal(t, int64(2), second)
	})

	t.Run("concurrent increments are not lost", func(t *testing.T) {
		s := newStores(t)
		const increments = 50

		var g errgroup.Group
		for i := 0; i < increments; i++ {
			g.Go(func() error {
				_, err := s.counters.Increment(ctx, "heart-giver")
				return err
			})
		}
		require.NoError(t, g.Wait())

		counts, err := s.counters.BatchRead(ctx, []string{"heart-giver"})
		require.NoError(t, err)
		assert.Equal(t, int64(increments), counts["heart-giver"])
	})

	t.Run("batch read fills missing ids with zero", func(t *testing.T) {
		s := newStores(t)
		for i := 0; i < 3; i++ {
			_, err := s.counters.Increment(ctx, "critic")
			require.NoError(t, err)
		}
		_, err := s.counters.Increment(ctx, "first-upload")
		require.NoError(t, err)

		counts, err := s.counters.BatchRead(ctx, []string{"critic", "first-upload", "never-awarded"})

		require.NoError(t, err)
		assert.Equal(t, map[string]int64{
			"critic":        3,
			"first-upload":  1,
			"never-awarded": 0,
		}, counts)
	})

	t.Run("batch read of nothing", func(t *testing.T) {
		s := newStores(t)

		counts, err := s.counters.BatchRead(ctx, nil)

		require.NoError(t, err)
		assert.NotNil(t, counts)
		assert.Empty(t, counts)
	})

	t.Run("distinct winners match counter", func(t *testing.T) {
		s := newStores(t)
		const users = 25

		var g errgroup.Group
		for i := 0; i < users; i++ {
			userID := uuid.NewString()
			g.Go(func() error {
				result, err := s.awards.CreateIfAbsent(ctx, userID, "first-upload", baseTime)
				if err != nil {
					return err
				}
				if result == domain.CreateResultCreated {
					_, err = s.counters.Increment(ctx, "first-upload")
				}
				return err
			})
		}
		require.NoError(t, g.Wait())

		counts, err := s.counters.BatchRead(ctx, []string{"first-upload"})
		require.NoError(t, err)
		assert.Equal(t, int64(users), counts["first-upload"])
	})
}
