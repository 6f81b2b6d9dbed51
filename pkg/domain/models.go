package domain

import "time"

// AggregationMode defines how a rule's activity records are reduced to a single number.
//
// Usage in Eligibility Evaluation:
//   - COUNT_MATCHING: aggregate = number of records matching the source filter
//   - SUM_ATTRIBUTE: aggregate = sum of source.Attribute across matching records
//
// In both cases the user is eligible when aggregate >= threshold.
type AggregationMode string

const (
	// AggregationCountMatching counts activity records that satisfy the source filter.
	// Example: "liked = true" on the likes collection → number of likes given.
	AggregationCountMatching AggregationMode = "COUNT_MATCHING"

	// AggregationSumAttribute sums a numeric attribute across activity records.
	// Missing or non-numeric attribute values contribute 0.
	// Example: "share_count" on the uploads collection → total shares received.
	AggregationSumAttribute AggregationMode = "SUM_ATTRIBUTE"
)

// IsValid returns true if the aggregation mode is a known mode.
func (m AggregationMode) IsValid() bool {
	switch m {
	case AggregationCountMatching, AggregationSumAttribute:
		return true
	default:
		return false
	}
}

// ActivitySource tells the aggregate reader which activity records belong to a rule.
type ActivitySource struct {
	Collection string         `json:"collection" yaml:"collection"`                   // Activity collection (e.g., "uploads", "comments")
	Filter     map[string]any `json:"filter,omitempty" yaml:"filter,omitempty"`       // Equality predicate, every pair must match
	Attribute  string         `json:"attribute,omitempty" yaml:"attribute,omitempty"` // Numeric attribute summed by SUM_ATTRIBUTE
}

// AchievementRule is a registry entry describing one achievement and how it is earned.
// Rules are loaded once at startup and never mutated afterwards.
type AchievementRule struct {
	ID              string          `json:"id" yaml:"id"`
	DisplayName     string          `json:"displayName" yaml:"displayName"`
	Description     string          `json:"description" yaml:"description"`
	Icon            string          `json:"icon,omitempty" yaml:"icon,omitempty"`
	AggregationMode AggregationMode `json:"aggregationMode" yaml:"aggregationMode"`
	ActivitySource  ActivitySource  `json:"activitySource" yaml:"activitySource"`
	Threshold       int64           `json:"threshold" yaml:"threshold"`
	Triggers        []string        `json:"triggers,omitempty" yaml:"triggers,omitempty"` // Activity kinds that evaluate this rule
}

// IsMetBy returns true if the aggregate value reaches the rule's threshold.
// The comparison is inclusive: aggregate == threshold is eligible.
func (r *AchievementRule) IsMetBy(aggregate int64) bool {
	return aggregate >= r.Threshold
}

// Clone returns a deep copy of the rule.
func (r *AchievementRule) Clone() *AchievementRule {
	c := *r
	if r.ActivitySource.Filter != nil {
		c.ActivitySource.Filter = make(map[string]any, len(r.ActivitySource.Filter))
		for k, v := range r.ActivitySource.Filter {
			c.ActivitySource.Filter[k] = v
		}
	}
	if r.Triggers != nil {
		c.Triggers = append([]string(nil), r.Triggers...)
	}
	return &c
}

// AwardRecord marks that a user holds an achievement.
// Exactly one record exists per (user_id, achievement_id); absence means "not earned".
type AwardRecord struct {
	UserID        string    `json:"userId" db:"user_id"`
	AchievementID string    `json:"achievementId" db:"achievement_id"`
	AwardedAt     time.Time `json:"awardedAt" db:"awarded_at"`
	Earned        bool      `json:"earned" db:"earned"` // Always true once persisted
}

// HoldersCounter tracks how many users hold an achievement.
// The count trails the number of award records when an increment failed after an award.
type HoldersCounter struct {
	AchievementID string `json:"achievementId" db:"achievement_id"`
	Count         int64  `json:"count" db:"count"`
}

// CreateResult is the outcome of a conditional award create.
type CreateResult int

const (
	// CreateResultCreated means this call inserted the award record.
	CreateResultCreated CreateResult = iota + 1

	// CreateResultAlreadyExists means a record for the key was already present.
	// This is an expected outcome under concurrent triggers, not an error.
	CreateResultAlreadyExists
)

func (r CreateResult) String() string {
	switch r {
	case CreateResultCreated:
		return "created"
	case CreateResultAlreadyExists:
		return "already_exists"
	default:
		return "unknown"
	}
}

// AwardResult is the caller-facing result of an evaluate-and-award call.
type AwardResult string

const (
	// AwardResultAlreadyEarned indicates the user already held the achievement,
	// either before the call or because a concurrent call won the create race.
	AwardResultAlreadyEarned AwardResult = "ALREADY_EARNED"

	// AwardResultNotEligible indicates the aggregate is below the threshold.
	AwardResultNotEligible AwardResult = "NOT_ELIGIBLE"

	// AwardResultNewlyAwarded indicates this call created the award record.
	AwardResultNewlyAwarded AwardResult = "NEWLY_AWARDED"

	// AwardResultUnknownAchievement indicates the achievement ID is not in the registry.
	AwardResultUnknownAchievement AwardResult = "UNKNOWN_ACHIEVEMENT"
)

// IsValid returns true if the result is a known result.
func (r AwardResult) IsValid() bool {
	switch r {
	case AwardResultAlreadyEarned, AwardResultNotEligible, AwardResultNewlyAwarded, AwardResultUnknownAchievement:
		return true
	default:
		return false
	}
}

// IsCelebration returns true only for results that should be shown to the user.
func (r AwardResult) IsCelebration() bool {
	return r == AwardResultNewlyAwarded
}

// AwardOutcome is returned by the award engine for every evaluation.
type AwardOutcome struct {
	Result AwardResult      `json:"result"`
	Rule   *AchievementRule `json:"rule,omitempty"`   // Set for every known achievement
	Record *AwardRecord     `json:"record,omitempty"` // Set only for NEWLY_AWARDED

	// CounterStale is true when the award was created but the holders counter
	// increment failed. The award stands; the counter is undercounted by one.
	CounterStale bool `json:"counterStale,omitempty"`
}

// AwardView is an earned award enriched for display.
type AwardView struct {
	AchievementID string    `json:"achievementId"`
	DisplayName   string    `json:"displayName"`
	Description   string    `json:"description"`
	Icon          string    `json:"icon,omitempty"`
	AwardedAt     time.Time `json:"awardedAt"`
	Holders       int64     `json:"holders"`
}

// ActivityRecord is a single row in the generic activity store.
type ActivityRecord struct {
	ID         string         `json:"id" db:"id"`
	Collection string         `json:"collection" db:"collection"`
	UserID     string         `json:"userId" db:"user_id"`
	Attributes map[string]any `json:"attributes"`
	CreatedAt  time.Time      `json:"createdAt" db:"created_at"`
}

// ActivityEvent announces that a user's activity write has committed.
type ActivityEvent struct {
	Kind       string    `json:"kind"` // "share", "comment", "upload", "follow", "like"
	UserID     string    `json:"userId"`
	OccurredAt time.Time `json:"occurredAt"`
}
