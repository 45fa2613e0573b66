package study_test

import (
	"errors"
	"testing"
	"time"

	"github.com/p-n-ai/pai-planner/internal/study"
)

func TestDaysUntil(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		t    time.Time
		want int
	}{
		{"three days", now.Add(72 * time.Hour), 3},
		{"partial day rounds down", now.Add(30 * time.Hour), 1},
		{"now", now, 0},
		{"past partial day", now.Add(-time.Hour), -1},
		{"past whole days", now.Add(-48 * time.Hour), -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := study.DaysUntil(now, tt.t); got != tt.want {
				t.Errorf("DaysUntil() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestValidateTopic(t *testing.T) {
	tests := []struct {
		name      string
		topic     study.Topic
		wantField string
	}{
		{"valid", study.Topic{CourseID: 1, Name: "Graphs", Weight: 0.4, SkillLevel: 50}, ""},
		{"missing name", study.Topic{CourseID: 1, Weight: 0.4}, "name"},
		{"weight above one", study.Topic{CourseID: 1, Name: "x", Weight: 1.5}, "weight"},
		{"negative skill", study.Topic{CourseID: 1, Name: "x", SkillLevel: -1}, "skill_level"},
		{"missing course", study.Topic{Name: "x"}, "course_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := study.ValidateTopic(tt.topic)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("ValidateTopic() error = %v", err)
				}
				return
			}
			var verr *study.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("ValidateTopic() error = %v, want *ValidationError", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", verr.Field, tt.wantField)
			}
		})
	}
}

func TestValidateCourse_PastExam(t *testing.T) {
	now := time.Now()
	err := study.ValidateCourse(study.Course{Name: "Algorithms", ExamDate: now.Add(-time.Hour)}, now)
	var verr *study.ValidationError
	if !errors.As(err, &verr) || verr.Field != "exam_date" {
		t.Errorf("ValidateCourse() error = %v, want exam_date validation error", err)
	}
}

func TestValidateDependency_SelfLoop(t *testing.T) {
	err := study.ValidateDependency(study.Dependency{PrerequisiteTopicID: 3, DependentTopicID: 3, MinSkillThreshold: 70})
	var verr *study.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("ValidateDependency() error = %v, want *ValidationError", err)
	}
}

func TestNameKey(t *testing.T) {
	if study.NameKey("  Dynamic   Programming ") != study.NameKey("dynamic programming") {
		t.Error("NameKey() should fold case and whitespace")
	}
	if study.NormalizeName("  Graph\tTheory ") != "Graph Theory" {
		t.Errorf("NormalizeName() = %q, want %q", study.NormalizeName("  Graph\tTheory "), "Graph Theory")
	}
}

func TestSnapshot_CloneIsIndependent(t *testing.T) {
	exam := time.Now().Add(240 * time.Hour)
	snap := study.NewSnapshot(time.Now(),
		[]study.Course{{ID: 1, Name: "Algorithms", ExamDate: exam}},
		[]study.Topic{{ID: 1, CourseID: 1, Name: "A", Weight: 1, SkillLevel: 40}},
		nil, nil)

	clone := snap.Clone()
	clone.SetSkill(1, 90)
	clone.ShiftExam(1, 5)

	orig, _ := snap.Topic(1)
	if orig.SkillLevel != 40 {
		t.Errorf("original SkillLevel = %v, want 40", orig.SkillLevel)
	}
	course, _ := snap.Course(1)
	if !course.ExamDate.Equal(exam) {
		t.Error("original exam date changed")
	}
	got, _ := clone.Topic(1)
	if got.SkillLevel != 90 {
		t.Errorf("clone SkillLevel = %v, want 90", got.SkillLevel)
	}
}
