package scoring

import "fmt"

// Config holds the scoring engine's tunable constants.
type Config struct {
	PenaltyPerWeight    float64 `yaml:"penalty_per_weight"`
	MaxPenalty          float64 `yaml:"max_penalty"`
	BaseUncertainty     float64 `yaml:"base_uncertainty"`
	CoverageUncertainty float64 `yaml:"coverage_uncertainty"`

	HighRiskWeight float64 `yaml:"high_risk_weight"`
	HighRiskSkill  float64 `yaml:"high_risk_skill"`

	ImminentDays   int     `yaml:"imminent_days"`
	PassingScore   float64 `yaml:"passing_score"`
	CriticalSkill  float64 `yaml:"critical_skill"`
	CriticalWeight float64 `yaml:"critical_weight"`
	CoverageLow    float64 `yaml:"coverage_low"`
	CoverageHigh   float64 `yaml:"coverage_high"`
	LowSkill       float64 `yaml:"low_skill"`

	// Forced reprioritization locks topics lighter than LockBelowWeight or
	// stronger than LockAboveSkill until critical topics reach UnlockSkill.
	LockBelowWeight float64 `yaml:"lock_below_weight"`
	LockAboveSkill  float64 `yaml:"lock_above_skill"`
	UnlockSkill     float64 `yaml:"unlock_skill"`

	MaxInactiveDays int `yaml:"max_inactive_days"`
}

// DefaultConfig returns the stock scoring constants.
func DefaultConfig() Config {
	return Config{
		PenaltyPerWeight:    10,
		MaxPenalty:          30,
		BaseUncertainty:     5,
		CoverageUncertainty: 20,

		HighRiskWeight: 0.15,
		HighRiskSkill:  50,

		ImminentDays:   7,
		PassingScore:   60,
		CriticalSkill:  40,
		CriticalWeight: 0.25,
		CoverageLow:    0.95,
		CoverageHigh:   1.05,
		LowSkill:       50,

		LockBelowWeight: 0.15,
		LockAboveSkill:  80,
		UnlockSkill:     60,

		MaxInactiveDays: 30,
	}
}

// Validate rejects inconsistent constants.
func (c Config) Validate() error {
	if c.PenaltyPerWeight < 0 || c.MaxPenalty < 0 || c.MaxPenalty > 100 {
		return fmt.Errorf("dependency penalty must be non-negative and capped at or below 100")
	}
	if c.BaseUncertainty < 0 || c.CoverageUncertainty < 0 {
		return fmt.Errorf("uncertainty terms must be non-negative")
	}
	if c.CoverageLow > 1 || c.CoverageHigh < 1 {
		return fmt.Errorf("coverage band must contain 1.0, got [%v, %v]", c.CoverageLow, c.CoverageHigh)
	}
	if c.LockBelowWeight < 0 || c.LockBelowWeight > 1 || c.LockAboveSkill < 0 || c.LockAboveSkill > 100 {
		return fmt.Errorf("lock thresholds must be a weight in [0, 1] and a skill in [0, 100]")
	}
	if c.ImminentDays < 0 || c.MaxInactiveDays < 1 {
		return fmt.Errorf("day limits must be positive")
	}
	return nil
}
