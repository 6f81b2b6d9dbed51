// Package eligibility decides whether a user's activity reaches a rule's threshold.
package eligibility

import (
	"context"

	"go.uber.org/zap"

	"github.com/memeshare/achievement-engine/pkg/activity"
	"github.com/memeshare/achievement-engine/pkg/domain"
	"github.com/memeshare/achievement-engine/pkg/errors"
)

// Evaluator wraps an AggregateReader with threshold comparison.
// It never writes and keeps no state between calls.
type Evaluator struct {
	reader activity.AggregateReader
	logger *zap.Logger
}

// Decision is the aggregate value seen by an evaluation and its outcome.
type Decision struct {
	Aggregate int64 `json:"aggregate"`
	Threshold int64 `json:"threshold"`
	Eligible  bool  `json:"eligible"`
}

// NewEvaluator creates an evaluator backed by reader.
func NewEvaluator(reader activity.AggregateReader, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{reader: reader, logger: logger}
}

// IsEligible reports whether userID's aggregate for rule is at least rule.Threshold.
// A failed aggregate is returned as an error, never as ineligible.
func (e *Evaluator) IsEligible(ctx context.Context, userID string, rule *domain.AchievementRule) (bool, error) {
	d, err := e.Evaluate(ctx, userID, rule)
	if err != nil {
		return false, err
	}
	return d.Eligible, nil
}

// Evaluate returns the full decision, including the aggregate value.
func (e *Evaluator) Evaluate(ctx context.Context, userID string, rule *domain.AchievementRule) (Decision, error) {
	if rule == nil {
		return Decision{}, errors.ErrValidationFailed("rule", "must not be nil")
	}

	aggregate, err := e.reader.Aggregate(ctx, userID, rule.ActivitySource, rule.AggregationMode)
	if err != nil {
		return Decision{}, err
	}

	d := Decision{
		Aggregate: aggregate,
		Threshold: rule.Threshold,
		Eligible:  rule.IsMetBy(aggregate),
	}
	e.logger.Debug("evaluated eligibility",
		zap.String("user_id", userID),
		zap.String("achievement_id", rule.ID),
		zap.Int64("aggregate", d.Aggregate),
		zap.Int64("threshold", d.Threshold),
		zap.Bool("eligible", d.Eligible),
	)
	return d, nil
}
