// Package engine decides and persists achievement awards.
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/memeshare/achievement-engine/pkg/common"
	"github.com/memeshare/achievement-engine/pkg/domain"
	"github.com/memeshare/achievement-engine/pkg/errors"
	"github.com/memeshare/achievement-engine/pkg/metrics"
	"github.com/memeshare/achievement-engine/pkg/registry"
	"github.com/memeshare/achievement-engine/pkg/repository"
)

// EligibilityChecker decides whether a user currently qualifies for a rule.
// Implemented by eligibility.Evaluator.
type EligibilityChecker interface {
	IsEligible(ctx context.Context, userID string, rule *domain.AchievementRule) (bool, error)
}

// AwardEngine evaluates one (user, achievement) pair and awards it at most once.
//
// The engine holds no locks. At-most-once relies on the award store's
// conditional create; the holders counter relies on the counter store's
// atomic increment.
type AwardEngine struct {
	registry  registry.Registry
	awards    repository.AwardRepository
	counters  repository.CounterRepository
	evaluator EligibilityChecker
	logger    *zap.Logger
	metrics   *metrics.Metrics
	clock     common.Clock
}

// Option configures an AwardEngine.
type Option func(*AwardEngine)

// WithClock sets the clock used for awarded_at.
func WithClock(clock common.Clock) Option {
	return func(e *AwardEngine) {
		e.clock = clock
	}
}

// WithMetrics sets the collectors outcomes and step latencies are recorded on.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *AwardEngine) {
		e.metrics = m
	}
}

// NewAwardEngine creates an award engine.
func NewAwardEngine(
	reg registry.Registry,
	awards repository.AwardRepository,
	counters repository.CounterRepository,
	evaluator EligibilityChecker,
	logger *zap.Logger,
	opts ...Option,
) *AwardEngine {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &AwardEngine{
		registry:  reg,
		awards:    awards,
		counters:  counters,
		evaluator: evaluator,
		logger:    logger,
		clock:     common.NowUTC,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EvaluateAndAward checks whether userID has earned achievementID and records
// the award if so.
//
// Results:
//   - UNKNOWN_ACHIEVEMENT: the id is not in the registry; no store is touched
//   - ALREADY_EARNED: an award record exists, or a concurrent call created it first
//   - NOT_ELIGIBLE: the aggregate is below the threshold
//   - NEWLY_AWARDED: this call created the award record
//
// Store failures are returned as retryable errors; nothing is retried here.
// A failed holders counter increment after a successful create does not fail
// the call: the outcome is NEWLY_AWARDED with CounterStale set.
func (e *AwardEngine) EvaluateAndAward(ctx context.Context, userID, achievementID string) (*domain.AwardOutcome, error) {
	if userID == "" {
		return nil, errors.ErrInvalidInput("user_id")
	}

	rule, ok := e.registry.Lookup(achievementID)
	if !ok {
		e.logger.Warn("unknown achievement requested",
			zap.String("user_id", userID),
			zap.String("achievement_id", achievementID),
		)
		return e.finish(&domain.AwardOutcome{Result: domain.AwardResultUnknownAchievement}), nil
	}

	start := time.Now()
	exists, err := e.awards.Exists(ctx, userID, achievementID)
	e.metrics.ObserveStep(metrics.StepExists, start)
	if err != nil {
		return nil, err
	}
	if exists {
		return e.finish(&domain.AwardOutcome{Result: domain.AwardResultAlreadyEarned, Rule: rule}), nil
	}

	start = time.Now()
	eligible, err := e.evaluator.IsEligible(ctx, userID, rule)
	e.metrics.ObserveStep(metrics.StepEvaluate, start)
	if err != nil {
		return nil, err
	}
	if !eligible {
		return e.finish(&domain.AwardOutcome{Result: domain.AwardResultNotEligible, Rule: rule}), nil
	}

	awardedAt := e.clock()
	start = time.Now()
	created, err := e.awards.CreateIfAbsent(ctx, userID, achievementID, awardedAt)
	e.metrics.ObserveStep(metrics.StepCreate, start)
	if err != nil {
		return nil, err
	}
	if created == domain.CreateResultAlreadyExists {
		e.logger.Debug("award created concurrently",
			zap.String("user_id", userID),
			zap.String("achievement_id", achievementID),
		)
		return e.finish(&domain.AwardOutcome{Result: domain.AwardResultAlreadyEarned, Rule: rule}), nil
	}

	outcome := &domain.AwardOutcome{
		Result: domain.AwardResultNewlyAwarded,
		Rule:   rule,
		Record: &domain.AwardRecord{
			UserID:        userID,
			AchievementID: achievementID,
			AwardedAt:     awardedAt,
			Earned:        true,
		},
	}

	start = time.Now()
	holders, err := e.counters.Increment(ctx, achievementID)
	e.metrics.ObserveStep(metrics.StepIncrement, start)
	if err != nil {
		// The award stands; the holders counter now trails the award records by one.
		outcome.CounterStale = true
		e.metrics.ObserveDrift(achievementID)
		e.logger.Error("holders counter increment failed after award",
			zap.String("user_id", userID),
			zap.String("achievement_id", achievementID),
			zap.Error(err),
		)
		return e.finish(outcome), nil
	}

	e.logger.Info("achievement awarded",
		zap.String("user_id", userID),
		zap.String("achievement_id", achievementID),
		zap.Int64("holders", holders),
	)
	return e.finish(outcome), nil
}

func (e *AwardEngine) finish(outcome *domain.AwardOutcome) *domain.AwardOutcome {
	e.metrics.ObserveResult(outcome.Result)
	return outcome
}
