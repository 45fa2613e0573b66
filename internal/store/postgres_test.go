package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/p-n-ai/pai-planner/internal/platform/database"
	"github.com/p-n-ai/pai-planner/internal/store"
	"github.com/p-n-ai/pai-planner/internal/study"
)

func TestNewPostgresStore_NilPool(t *testing.T) {
	if _, err := store.NewPostgresStore(nil); err == nil {
		t.Fatal("NewPostgresStore(nil) should return error")
	}
}

func TestPostgresStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("planner"),
		tcpostgres.WithUsername("planner"),
		tcpostgres.WithPassword("planner"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}

	url, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("ConnectionString() error = %v", err)
	}
	db, err := database.New(ctx, url, 4, 1)
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	repo, err := store.NewPostgresStore(db.Pool)
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}

	c, err := repo.CreateCourse(ctx, study.Course{Name: "Chemistry", ExamDate: time.Now().AddDate(0, 0, 10)})
	if err != nil {
		t.Fatalf("CreateCourse() error = %v", err)
	}
	a, err := repo.CreateTopic(ctx, study.Topic{CourseID: c.ID, Name: "Atoms", Weight: 0.5, SkillLevel: 40})
	if err != nil {
		t.Fatalf("CreateTopic() error = %v", err)
	}
	b, err := repo.CreateTopic(ctx, study.Topic{CourseID: c.ID, Name: "Bonds", Weight: 0.5, SkillLevel: 10})
	if err != nil {
		t.Fatalf("CreateTopic() error = %v", err)
	}
	if _, err := repo.CreateTopic(ctx, study.Topic{CourseID: c.ID, Name: "atoms", Weight: 0.1}); !errors.Is(err, study.ErrConflict) {
		t.Errorf("duplicate topic error = %v, want ErrConflict", err)
	}

	if _, err := repo.CreateDependency(ctx, study.Dependency{PrerequisiteTopicID: a.ID, DependentTopicID: b.ID, MinSkillThreshold: 70}); err != nil {
		t.Fatalf("CreateDependency() error = %v", err)
	}
	if _, err := repo.CreateDependency(ctx, study.Dependency{PrerequisiteTopicID: b.ID, DependentTopicID: a.ID, MinSkillThreshold: 70}); !errors.Is(err, study.ErrConflict) {
		t.Errorf("cyclic dependency error = %v, want ErrConflict", err)
	}

	quizAt := time.Now().Add(time.Minute).UTC().Truncate(time.Microsecond)
	change, err := repo.UpdateSkill(ctx, store.SkillUpdate{
		TopicID: a.ID, Source: study.SourceQuiz, Reason: "quiz", At: quizAt,
		Apply: func(st store.SkillState) (float64, error) { return st.Topic.SkillLevel + 6, nil },
	})
	if err != nil {
		t.Fatalf("UpdateSkill() error = %v", err)
	}
	if change.PreviousSkill != 40 || change.NewSkill != 46 {
		t.Errorf("UpdateSkill() = %+v, want 40 -> 46", change)
	}

	snap, err := repo.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(snap.Topics) != 2 || len(snap.Dependencies) != 1 {
		t.Errorf("Snapshot() topics=%d deps=%d", len(snap.Topics), len(snap.Dependencies))
	}
	if got := snap.Activity[a.ID].LastActive; !got.Equal(quizAt) {
		t.Errorf("activity last active = %v, want %v", got, quizAt)
	}

	if err := repo.DeleteCourse(ctx, c.ID); err != nil {
		t.Fatalf("DeleteCourse() error = %v", err)
	}
	if _, err := repo.SkillHistory(ctx, a.ID, 0); !errors.Is(err, study.ErrNotFound) {
		t.Errorf("SkillHistory() after delete error = %v, want ErrNotFound", err)
	}
}
