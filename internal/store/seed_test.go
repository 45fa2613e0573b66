package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/p-n-ai/pai-planner/internal/store"
)

const seedYAML = `
courses:
  - name: Physics
    exam_in_days: 14
    topics:
      - {name: Kinematics, weight: 0.5, skill_level: 60}
      - {name: Dynamics, weight: 0.5, skill_level: 20}
dependencies:
  - prerequisite: Physics/Kinematics
    dependent: Physics/Dynamics
`

func writeSeed(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadSeed_Directory(t *testing.T) {
	dir := t.TempDir()
	writeSeed(t, dir, "physics.yaml", seedYAML)
	writeSeed(t, dir, "broken.yml", "courses: [unterminated")
	writeSeed(t, dir, "notes.txt", "ignored")

	f, err := store.LoadSeed(dir)
	if err != nil {
		t.Fatalf("LoadSeed() error = %v", err)
	}
	if len(f.Courses) != 1 || len(f.Courses[0].Topics) != 2 || len(f.Dependencies) != 1 {
		t.Errorf("LoadSeed() = %+v", f)
	}
}

func TestLoadSeed_MissingPath(t *testing.T) {
	if _, err := store.LoadSeed(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("LoadSeed() should fail for a missing path")
	}
}

func TestSeed_PopulatesEmptyStoreOnce(t *testing.T) {
	dir := t.TempDir()
	writeSeed(t, dir, "physics.yaml", seedYAML)
	f, err := store.LoadSeed(dir)
	if err != nil {
		t.Fatalf("LoadSeed() error = %v", err)
	}

	repo := store.NewMemoryStore()
	ctx := context.Background()
	res, err := store.Seed(ctx, repo, f, base)
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if res.Courses != 1 || res.Topics != 2 || res.Dependencies != 1 {
		t.Errorf("Seed() = %+v", res)
	}

	deps, _ := repo.ListDependencies(ctx)
	if len(deps) != 1 || deps[0].MinSkillThreshold != 70 {
		t.Errorf("dependencies = %+v, want one edge with default threshold", deps)
	}
	courses, _ := repo.ListCourses(ctx)
	if want := store.StartOfDay(base).AddDate(0, 0, 14); !courses[0].ExamDate.Equal(want) {
		t.Errorf("exam date = %v, want %v", courses[0].ExamDate, want)
	}

	again, err := store.Seed(ctx, repo, f, base)
	if err != nil || !again.Skipped {
		t.Errorf("second Seed() = %+v, %v; want skipped", again, err)
	}
}

func TestSeed_UnknownDependencyTopic(t *testing.T) {
	f := store.SeedFile{
		Courses:      []store.SeedCourse{{Name: "Art", ExamInDays: 3, Topics: []store.SeedTopic{{Name: "Colour", Weight: 1}}}},
		Dependencies: []store.SeedDependency{{Prerequisite: "Art/Shape", Dependent: "Art/Colour"}},
	}
	if _, err := store.Seed(context.Background(), store.NewMemoryStore(), f, base); err == nil {
		t.Fatal("Seed() should reject a dependency on an unknown topic")
	}
}
