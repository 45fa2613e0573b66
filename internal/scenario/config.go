package scenario

import "fmt"

// Config holds simulator constants.
type Config struct {
	// SkillPerHour is the projected skill gain per allocated study hour.
	SkillPerHour float64 `yaml:"skill_per_hour"`
	// Hours needed per topic are gap x weight x RequiredPerGap, clamped.
	RequiredPerGap float64 `yaml:"required_per_gap"`
	RequiredMin    float64 `yaml:"required_min"`
	RequiredMax    float64 `yaml:"required_max"`
	// MinUsefulHours is the least a newly covered topic must receive for a
	// larger budget to be recommended.
	MinUsefulHours float64 `yaml:"min_useful_hours"`
}

// DefaultConfig returns the stock simulator constants.
func DefaultConfig() Config {
	return Config{
		SkillPerHour:   8,
		RequiredPerGap: 5,
		RequiredMin:    0.5,
		RequiredMax:    3.0,
		MinUsefulHours: 0.5,
	}
}

// Validate rejects inconsistent constants.
func (c Config) Validate() error {
	if c.SkillPerHour < 0 {
		return fmt.Errorf("skill_per_hour must be non-negative, got %v", c.SkillPerHour)
	}
	if c.RequiredPerGap <= 0 || c.RequiredMin <= 0 || c.RequiredMax < c.RequiredMin {
		return fmt.Errorf("required hours must satisfy 0 < required_min <= required_max")
	}
	if c.MinUsefulHours < 0 {
		return fmt.Errorf("min_useful_hours must be non-negative, got %v", c.MinUsefulHours)
	}
	return nil
}
