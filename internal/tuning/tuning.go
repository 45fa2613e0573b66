// Package tuning loads the planner, scoring, skill and scenario constants,
// overlaying an optional YAML file on the built-in defaults.
package tuning

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/p-n-ai/pai-planner/internal/planner"
	"github.com/p-n-ai/pai-planner/internal/scenario"
	"github.com/p-n-ai/pai-planner/internal/scoring"
	"github.com/p-n-ai/pai-planner/internal/skill"
)

// Tuning groups every engine's constants.
type Tuning struct {
	Planner  planner.Config  `yaml:"planner"`
	Scoring  scoring.Config  `yaml:"scoring"`
	Skill    skill.Config    `yaml:"skill"`
	Scenario scenario.Config `yaml:"scenario"`
}

// Default returns the built-in constants.
func Default() Tuning {
	return Tuning{
		Planner:  planner.DefaultConfig(),
		Scoring:  scoring.DefaultConfig(),
		Skill:    skill.DefaultConfig(),
		Scenario: scenario.DefaultConfig(),
	}
}

// Load reads path over the defaults. Keys absent from the file keep their
// default value; unknown keys are rejected. An empty path returns the
// defaults.
func Load(path string) (Tuning, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, fmt.Errorf("reading tuning file: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return Tuning{}, fmt.Errorf("%s: %w", path, err)
	}
	slog.Info("tuning loaded", "path", path)
	return t, nil
}

// Parse overlays YAML data on the defaults and validates the result.
func Parse(data []byte) (Tuning, error) {
	t := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil && !errors.Is(err, io.EOF) {
		return Tuning{}, fmt.Errorf("parsing tuning: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Tuning{}, err
	}
	return t, nil
}

// Validate checks every section.
func (t Tuning) Validate() error {
	if err := t.Planner.Validate(); err != nil {
		return fmt.Errorf("planner: %w", err)
	}
	if err := t.Scoring.Validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	if err := t.Skill.Validate(); err != nil {
		return fmt.Errorf("skill: %w", err)
	}
	if err := t.Scenario.Validate(); err != nil {
		return fmt.Errorf("scenario: %w", err)
	}
	return nil
}
