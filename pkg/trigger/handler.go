// Package trigger runs achievement evaluation after user activity.
package trigger

import (
	"context"
	stderrors "errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/memeshare/achievement-engine/pkg/client"
	"github.com/memeshare/achievement-engine/pkg/domain"
	"github.com/memeshare/achievement-engine/pkg/errors"
	"github.com/memeshare/achievement-engine/pkg/registry"
)

// Awarder evaluates and awards a single achievement. Implemented by engine.AwardEngine.
type Awarder interface {
	EvaluateAndAward(ctx context.Context, userID, achievementID string) (*domain.AwardOutcome, error)
}

// Handler evaluates every achievement subscribed to an activity kind.
//
// Failures never reach the activity that triggered the evaluation: a store or
// notification error is logged and the user simply gets no badge this time.
// The next trigger re-evaluates from scratch.
type Handler struct {
	registry registry.Registry
	awarder  Awarder
	notifier client.NotificationClient
	logger   *zap.Logger
	limit    int
}

// NewHandler creates a trigger handler. limit bounds concurrent evaluations per
// event; values <= 0 mean no bound.
func NewHandler(reg registry.Registry, awarder Awarder, notifier client.NotificationClient, logger *zap.Logger, limit int) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		registry: reg,
		awarder:  awarder,
		notifier: notifier,
		logger:   logger,
		limit:    limit,
	}
}

// HandleActivity evaluates the achievements triggered by event.Kind for event.UserID.
// It returns the outcomes that were decided, in registry order; failed
// evaluations are omitted.
func (h *Handler) HandleActivity(ctx context.Context, event domain.ActivityEvent) []*domain.AwardOutcome {
	outcomes, _ := h.Process(ctx, event)
	return outcomes
}

// Process is HandleActivity for callers that can redeliver the event. The
// returned error joins the retryable evaluation failures; it is nil when every
// failure is permanent or nothing failed. Re-processing an event is safe:
// achievements awarded on the first pass come back as ALREADY_EARNED.
func (h *Handler) Process(ctx context.Context, event domain.ActivityEvent) ([]*domain.AwardOutcome, error) {
	if event.UserID == "" {
		h.logger.Warn("activity event without user id", zap.String("kind", event.Kind))
		return []*domain.AwardOutcome{}, nil
	}

	rules := h.registry.LookupByTrigger(event.Kind)
	if len(rules) == 0 {
		h.logger.Debug("no achievements for activity kind", zap.String("kind", event.Kind))
		return []*domain.AwardOutcome{}, nil
	}

	outcomes := make([]*domain.AwardOutcome, len(rules))
	failures := make([]error, len(rules))

	// Errors are absorbed per rule so one failure does not cancel the others.
	var g errgroup.Group
	if h.limit > 0 {
		g.SetLimit(h.limit)
	}
	for i, rule := range rules {
		g.Go(func() error {
			outcomes[i], failures[i] = h.evaluate(ctx, event, rule)
			return nil
		})
	}
	_ = g.Wait()

	decided := make([]*domain.AwardOutcome, 0, len(outcomes))
	for _, o := range outcomes {
		if o != nil {
			decided = append(decided, o)
		}
	}

	var retryable []error
	for _, err := range failures {
		if errors.IsRetryable(err) {
			retryable = append(retryable, err)
		}
	}
	return decided, stderrors.Join(retryable...)
}

func (h *Handler) evaluate(ctx context.Context, event domain.ActivityEvent, rule *domain.AchievementRule) (*domain.AwardOutcome, error) {
	outcome, err := h.awarder.EvaluateAndAward(ctx, event.UserID, rule.ID)
	if err != nil {
		h.logger.Warn("achievement evaluation failed",
			zap.String("kind", event.Kind),
			zap.String("user_id", event.UserID),
			zap.String("achievement_id", rule.ID),
			zap.Bool("retryable", errors.IsRetryable(err)),
			zap.Error(err),
		)
		return nil, err
	}

	if outcome.Result.IsCelebration() && h.notifier != nil {
		if err := h.notifier.NotifyBadgeEarned(ctx, event.UserID, rule); err != nil {
			h.logger.Warn("badge notification failed",
				zap.String("user_id", event.UserID),
				zap.String("achievement_id", rule.ID),
				zap.Bool("retryable", client.IsRetryableError(err)),
				zap.Error(err),
			)
		}
	}
	return outcome, nil
}
