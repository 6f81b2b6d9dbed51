package config

import "github.com/memeshare/achievement-engine/pkg/domain"

// Config represents the top-level configuration loaded from achievements.json (or .yaml).
// This structure is parsed once and validated during application startup.
type Config struct {
	Achievements []*domain.AchievementRule `json:"achievements" yaml:"achievements"`
}
