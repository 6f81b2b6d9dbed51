package registry

import "github.com/memeshare/achievement-engine/pkg/domain"

// Registry provides O(1) lookups of achievement rules.
// It is built once at application startup from the achievements config and is
// never mutated afterwards, so rules cannot change under an in-flight evaluation.
type Registry interface {
	// Lookup retrieves a rule by achievement ID.
	// Returns false if the achievement is unknown; callers must not substitute a default rule.
	Lookup(achievementID string) (*domain.AchievementRule, bool)

	// LookupByTrigger retrieves all rules evaluated for an activity kind.
	// Returns empty slice if no rule lists the kind.
	LookupByTrigger(kind string) []*domain.AchievementRule

	// All retrieves all rules in config order.
	All() []*domain.AchievementRule
}
