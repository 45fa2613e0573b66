package planner

import "fmt"

// Config holds the planner's tunable constants.
type Config struct {
	// Urgency tiers by whole days until the exam.
	FarDays         int     `yaml:"far_days"`
	NearDays        int     `yaml:"near_days"`
	UrgencyFar      float64 `yaml:"urgency_far"`
	UrgencyNear     float64 `yaml:"urgency_near"`
	UrgencyImminent float64 `yaml:"urgency_imminent"`
	UrgencyOverdue  float64 `yaml:"urgency_overdue"`

	LowSkillThreshold float64 `yaml:"low_skill_threshold"`
	AdaptiveBoost     float64 `yaml:"adaptive_boost"`
	PrerequisiteBoost float64 `yaml:"prerequisite_boost"`

	// Dependency penalty multipliers chosen by the largest prerequisite gap.
	SevereGap       float64 `yaml:"severe_gap"`
	ModerateGap     float64 `yaml:"moderate_gap"`
	SeverePenalty   float64 `yaml:"severe_penalty"`
	ModeratePenalty float64 `yaml:"moderate_penalty"`
	MildPenalty     float64 `yaml:"mild_penalty"`

	MaxHoursPerTopic float64 `yaml:"max_hours_per_topic"`
	MinHours         float64 `yaml:"min_hours"`
	Granularity      float64 `yaml:"granularity"`
}

// DefaultConfig returns the stock planner constants.
func DefaultConfig() Config {
	return Config{
		FarDays:         30,
		NearDays:        7,
		UrgencyFar:      1.0,
		UrgencyNear:     2.0,
		UrgencyImminent: 3.0,
		UrgencyOverdue:  4.0,

		LowSkillThreshold: 40,
		AdaptiveBoost:     1.5,
		PrerequisiteBoost: 1.5,

		SevereGap:       30,
		ModerateGap:     15,
		SeverePenalty:   0.3,
		ModeratePenalty: 0.6,
		MildPenalty:     0.85,

		MaxHoursPerTopic: 3.0,
		MinHours:         0.25,
		Granularity:      0.01,
	}
}

// Validate rejects constants that would break the planner's guarantees.
func (c Config) Validate() error {
	if c.NearDays < 1 || c.FarDays < c.NearDays {
		return fmt.Errorf("urgency days must satisfy 1 <= near_days <= far_days, got %d and %d", c.NearDays, c.FarDays)
	}
	if c.UrgencyFar <= 0 || c.UrgencyNear < c.UrgencyFar || c.UrgencyImminent < c.UrgencyNear || c.UrgencyOverdue < c.UrgencyImminent {
		return fmt.Errorf("urgency factors must be positive and non-decreasing as the exam approaches")
	}
	if c.AdaptiveBoost < 1 || c.PrerequisiteBoost < 1 {
		return fmt.Errorf("boosts must be >= 1")
	}
	for name, v := range map[string]float64{
		"severe_penalty":   c.SeverePenalty,
		"moderate_penalty": c.ModeratePenalty,
		"mild_penalty":     c.MildPenalty,
	} {
		if v <= 0 || v > 1 {
			return fmt.Errorf("%s must be in (0, 1], got %v", name, v)
		}
	}
	if c.ModerateGap < 0 || c.SevereGap < c.ModerateGap {
		return fmt.Errorf("gap thresholds must satisfy 0 <= moderate_gap <= severe_gap")
	}
	if c.Granularity <= 0 || c.MinHours < c.Granularity || c.MaxHoursPerTopic < c.MinHours {
		return fmt.Errorf("allocation limits must satisfy 0 < granularity <= min_hours <= max_hours_per_topic")
	}
	return nil
}
