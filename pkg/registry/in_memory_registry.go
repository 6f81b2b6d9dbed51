package registry

import (
	"slices"

	"go.uber.org/zap"

	"github.com/memeshare/achievement-engine/pkg/config"
	"github.com/memeshare/achievement-engine/pkg/domain"
)

// InMemoryRegistry is an immutable Registry backed by maps.
// All indexes are built in the constructor; reads need no locking.
type InMemoryRegistry struct {
	rulesByID      map[string]*domain.AchievementRule   // "trend-setter" -> rule
	rulesByTrigger map[string][]*domain.AchievementRule // "share" -> [rules]
	rules          []*domain.AchievementRule            // config order
}

// NewInMemoryRegistry builds a registry from a validated configuration.
// Rules are deep-copied, so later changes to cfg are not observed.
func NewInMemoryRegistry(cfg *config.Config, logger *zap.Logger) *InMemoryRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &InMemoryRegistry{
		rulesByID:      make(map[string]*domain.AchievementRule, len(cfg.Achievements)),
		rulesByTrigger: make(map[string][]*domain.AchievementRule),
		rules:          make([]*domain.AchievementRule, 0, len(cfg.Achievements)),
	}

	for _, rule := range cfg.Achievements {
		c := rule.Clone()
		r.rulesByID[c.ID] = c
		r.rules = append(r.rules, c)

		for _, kind := range c.Triggers {
			r.rulesByTrigger[kind] = append(r.rulesByTrigger[kind], c)
		}
	}

	logger.Info("Registry built successfully",
		zap.Int("achievements", len(r.rules)),
		zap.Int("triggers", len(r.rulesByTrigger)),
	)

	return r
}

// Lookup retrieves a rule by achievement ID.
func (r *InMemoryRegistry) Lookup(achievementID string) (*domain.AchievementRule, bool) {
	rule, ok := r.rulesByID[achievementID]
	return rule, ok
}

// LookupByTrigger retrieves all rules evaluated for an activity kind.
// The returned slice is a copy; rules themselves are shared and read-only.
func (r *InMemoryRegistry) LookupByTrigger(kind string) []*domain.AchievementRule {
	rules := r.rulesByTrigger[kind]
	if rules == nil {
		return []*domain.AchievementRule{}
	}
	return slices.Clone(rules)
}

// All retrieves all rules in config order.
func (r *InMemoryRegistry) All() []*domain.AchievementRule {
	return slices.Clone(r.rules)
}
