// Package badge serves the read path: a user's earned achievements with holder counts.
package badge

import (
	"context"

	"go.uber.org/zap"

	"github.com/memeshare/achievement-engine/pkg/domain"
	"github.com/memeshare/achievement-engine/pkg/errors"
	"github.com/memeshare/achievement-engine/pkg/registry"
	"github.com/memeshare/achievement-engine/pkg/repository"
)

// Service lists earned awards enriched with registry metadata and holder counts.
type Service struct {
	registry registry.Registry
	awards   repository.AwardRepository
	counters repository.CounterRepository
	logger   *zap.Logger
}

// NewService creates a badge read service.
func NewService(reg registry.Registry, awards repository.AwardRepository, counters repository.CounterRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		registry: reg,
		awards:   awards,
		counters: counters,
		logger:   logger,
	}
}

// ListAwards returns the user's earned awards, oldest first.
// Holder counts for all awards are fetched with a single BatchRead.
// Awards whose achievement is no longer registered are skipped.
func (s *Service) ListAwards(ctx context.Context, userID string) ([]*domain.AwardView, error) {
	if userID == "" {
		return nil, errors.ErrInvalidInput("user_id")
	}

	records, err := s.awards.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []*domain.AwardView{}, nil
	}

	type known struct {
		record *domain.AwardRecord
		rule   *domain.AchievementRule
	}
	matched := make([]known, 0, len(records))
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		rule, ok := s.registry.Lookup(rec.AchievementID)
		if !ok {
			s.logger.Warn("skipping award for unregistered achievement",
				zap.String("user_id", userID),
				zap.String("achievement_id", rec.AchievementID),
			)
			continue
		}
		matched = append(matched, known{record: rec, rule: rule})
		ids = append(ids, rec.AchievementID)
	}

	if len(ids) == 0 {
		return []*domain.AwardView{}, nil
	}

	holders, err := s.counters.BatchRead(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]*domain.AwardView, 0, len(matched))
	for _, m := range matched {
		views = append(views, &domain.AwardView{
			AchievementID: m.rule.ID,
			DisplayName:   m.rule.DisplayName,
			Description:   m.rule.Description,
			Icon:          m.rule.Icon,
			AwardedAt:     m.record.AwardedAt,
			Holders:       holders[m.rule.ID],
		})
	}
	return views, nil
}
