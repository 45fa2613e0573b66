package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/p-n-ai/pai-planner/internal/study"
)

// SeedFile is the YAML layout accepted by Seed.
type SeedFile struct {
	Courses      []SeedCourse     `yaml:"courses"`
	Dependencies []SeedDependency `yaml:"dependencies"`
}

// SeedCourse describes one course. ExamInDays, when set, is resolved
// relative to the seeding time and wins over ExamDate.
type SeedCourse struct {
	Name       string      `yaml:"name"`
	ExamDate   time.Time   `yaml:"exam_date"`
	ExamInDays int         `yaml:"exam_in_days"`
	Topics     []SeedTopic `yaml:"topics"`
}

type SeedTopic struct {
	Name       string  `yaml:"name"`
	Weight     float64 `yaml:"weight"`
	SkillLevel float64 `yaml:"skill_level"`
}

// SeedDependency references topics as "Course/Topic".
type SeedDependency struct {
	Prerequisite      string   `yaml:"prerequisite"`
	Dependent         string   `yaml:"dependent"`
	MinSkillThreshold *float64 `yaml:"min_skill_threshold"`
}

// SeedResult counts what Seed created.
type SeedResult struct {
	Courses      int
	Topics       int
	Dependencies int
	Skipped      bool
}

// LoadSeed reads a YAML file, or every .yaml/.yml file below a directory,
// and merges them in path order. Files that fail to parse are skipped.
func LoadSeed(path string) (SeedFile, error) {
	var paths []string
	err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if strings.HasSuffix(p, ".yaml") || strings.HasSuffix(p, ".yml") {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return SeedFile{}, fmt.Errorf("walking seed path: %w", err)
	}
	sort.Strings(paths)

	var merged SeedFile
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return SeedFile{}, err
		}
		var f SeedFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			slog.Warn("skipping invalid seed YAML", "path", p, "error", err)
			continue
		}
		merged.Courses = append(merged.Courses, f.Courses...)
		merged.Dependencies = append(merged.Dependencies, f.Dependencies...)
	}
	return merged, nil
}

// Seed inserts the file's contents into an empty repository. A repository
// that already has courses is left untouched.
func Seed(ctx context.Context, repo Repository, f SeedFile, now time.Time) (SeedResult, error) {
	existing, err := repo.ListCourses(ctx)
	if err != nil {
		return SeedResult{}, err
	}
	if len(existing) > 0 {
		return SeedResult{Skipped: true}, nil
	}

	var res SeedResult
	ids := make(map[string]int64)
	for _, sc := range f.Courses {
		c := study.Course{Name: sc.Name, ExamDate: sc.ExamDate}
		if sc.ExamInDays != 0 {
			c.ExamDate = StartOfDay(now).AddDate(0, 0, sc.ExamInDays)
		}
		if err := study.ValidateCourse(c, now); err != nil {
			return res, fmt.Errorf("seed course %q: %w", sc.Name, err)
		}
		c, err := repo.CreateCourse(ctx, c)
		if err != nil {
			return res, fmt.Errorf("seed course %q: %w", sc.Name, err)
		}
		res.Courses++

		for _, st := range sc.Topics {
			t := study.Topic{CourseID: c.ID, Name: st.Name, Weight: st.Weight, SkillLevel: st.SkillLevel}
			if err := study.ValidateTopic(t); err != nil {
				return res, fmt.Errorf("seed topic %q: %w", st.Name, err)
			}
			t, err := repo.CreateTopic(ctx, t)
			if err != nil {
				return res, fmt.Errorf("seed topic %q: %w", st.Name, err)
			}
			ids[seedKey(c.Name, t.Name)] = t.ID
			res.Topics++
		}
	}

	for _, sd := range f.Dependencies {
		pre, ok := lookupSeedTopic(ids, sd.Prerequisite)
		if !ok {
			return res, fmt.Errorf("seed dependency: unknown topic %q", sd.Prerequisite)
		}
		dep, ok := lookupSeedTopic(ids, sd.Dependent)
		if !ok {
			return res, fmt.Errorf("seed dependency: unknown topic %q", sd.Dependent)
		}
		d := study.Dependency{PrerequisiteTopicID: pre, DependentTopicID: dep, MinSkillThreshold: study.DefaultMinSkillThreshold}
		if sd.MinSkillThreshold != nil {
			d.MinSkillThreshold = *sd.MinSkillThreshold
		}
		if err := study.ValidateDependency(d); err != nil {
			return res, fmt.Errorf("seed dependency %s -> %s: %w", sd.Prerequisite, sd.Dependent, err)
		}
		if _, err := repo.CreateDependency(ctx, d); err != nil {
			return res, fmt.Errorf("seed dependency %s -> %s: %w", sd.Prerequisite, sd.Dependent, err)
		}
		res.Dependencies++
	}

	slog.Info("seed loaded", "courses", res.Courses, "topics", res.Topics, "dependencies", res.Dependencies)
	return res, nil
}

func seedKey(course, topic string) string {
	return study.NameKey(course) + "/" + study.NameKey(topic)
}

func lookupSeedTopic(ids map[string]int64, ref string) (int64, bool) {
	course, topic, ok := strings.Cut(ref, "/")
	if !ok {
		return 0, false
	}
	id, ok := ids[seedKey(study.NormalizeName(course), study.NormalizeName(topic))]
	return id, ok
}
