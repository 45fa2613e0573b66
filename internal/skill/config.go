package skill

import "fmt"

// Config holds skill tracking constants.
type Config struct {
	MaxDailyIncrease float64 `yaml:"max_daily_increase"`
	ManualWeight     float64 `yaml:"manual_weight"`
	QuizWeight       float64 `yaml:"quiz_weight"`
	QuizMidpoint     float64 `yaml:"quiz_midpoint"`
	QuizScale        float64 `yaml:"quiz_scale"`

	DecayGraceDays   int     `yaml:"decay_grace_days"`
	DecayPerDay      float64 `yaml:"decay_per_day"`
	MaxDecayFraction float64 `yaml:"max_decay_fraction"`
	MinDecayChange   float64 `yaml:"min_decay_change"`
}

// DefaultConfig returns the stock skill constants.
func DefaultConfig() Config {
	return Config{
		MaxDailyIncrease: 15,
		ManualWeight:     0.5,
		QuizWeight:       1.0,
		QuizMidpoint:     50,
		QuizScale:        0.3,

		DecayGraceDays:   7,
		DecayPerDay:      0.5,
		MaxDecayFraction: 0.3,
		MinDecayChange:   0.1,
	}
}

// Validate rejects inconsistent constants.
func (c Config) Validate() error {
	if c.MaxDailyIncrease <= 0 {
		return fmt.Errorf("max_daily_increase must be positive, got %v", c.MaxDailyIncrease)
	}
	if c.ManualWeight <= 0 || c.ManualWeight > 1 || c.QuizWeight <= 0 || c.QuizWeight > 1 {
		return fmt.Errorf("manual_weight and quiz_weight must be in (0, 1]")
	}
	if c.DecayGraceDays < 0 || c.DecayPerDay < 0 {
		return fmt.Errorf("decay settings must be non-negative")
	}
	if c.MaxDecayFraction < 0 || c.MaxDecayFraction > 1 {
		return fmt.Errorf("max_decay_fraction must be in [0, 1], got %v", c.MaxDecayFraction)
	}
	return nil
}
