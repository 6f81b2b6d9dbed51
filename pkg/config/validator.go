package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/memeshare/achievement-engine/pkg/domain"
)

// attributeNamePattern restricts attribute names to plain JSON object keys.
var attributeNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Validator validates achievement configuration files.
// It ensures every rule is evaluable before the application starts.
type Validator struct{}

// NewValidator creates a new Validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate performs validation of the configuration.
// It checks for:
// - At least one achievement exists
// - All achievement IDs are unique
// - Every rule has a valid aggregation mode, source and threshold
//
// Returns an error describing the first validation failure encountered.
func (v *Validator) Validate(config *Config) error {
	if config == nil || len(config.Achievements) == 0 {
		return errors.New("config must have at least one achievement")
	}

	ids := make(map[string]bool)
	for i, rule := range config.Achievements {
		if rule == nil {
			return fmt.Errorf("achievement at index %d is empty", i)
		}
		if err := v.validateRule(rule); err != nil {
			return fmt.Errorf("invalid achievement '%s': %w", rule.ID, err)
		}
		if ids[rule.ID] {
			return fmt.Errorf("duplicate achievement ID: %s", rule.ID)
		}
		ids[rule.ID] = true
	}

	return nil
}

// validateRule validates a single achievement rule.
func (v *Validator) validateRule(rule *domain.AchievementRule) error {
	if strings.TrimSpace(rule.ID) == "" {
		return errors.New("achievement ID cannot be empty")
	}
	if strings.TrimSpace(rule.DisplayName) == "" {
		return errors.New("display name cannot be empty")
	}

	if !rule.AggregationMode.IsValid() {
		return fmt.Errorf("invalid aggregation mode '%s' (must be 'COUNT_MATCHING' or 'SUM_ATTRIBUTE')", rule.AggregationMode)
	}

	if strings.TrimSpace(rule.ActivitySource.Collection) == "" {
		return errors.New("activity source collection cannot be empty")
	}
	if rule.AggregationMode == domain.AggregationSumAttribute && strings.TrimSpace(rule.ActivitySource.Attribute) == "" {
		return errors.New("SUM_ATTRIBUTE requires an activity source attribute")
	}
	if rule.ActivitySource.Attribute != "" && !attributeNamePattern.MatchString(rule.ActivitySource.Attribute) {
		return fmt.Errorf("invalid attribute name '%s'", rule.ActivitySource.Attribute)
	}
	for key, value := range rule.ActivitySource.Filter {
		if !attributeNamePattern.MatchString(key) {
			return fmt.Errorf("invalid filter attribute name '%s'", key)
		}
		switch value.(type) {
		case string, bool, int, int64, float64:
		default:
			return fmt.Errorf("filter value for '%s' must be a string, bool or number", key)
		}
	}

	if rule.Threshold < 0 {
		return errors.New("threshold must not be negative")
	}

	for _, kind := range rule.Triggers {
		if strings.TrimSpace(kind) == "" {
			return errors.New("trigger kinds cannot be empty")
		}
	}

	return nil
}
