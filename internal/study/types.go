// Package study defines the course, topic and dependency model shared by the
// planner, the scoring engine and the stores.
package study

import "time"

// Course is an examined subject. It owns zero or more topics.
type Course struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name" validate:"required,max=200"`
	ExamDate  time.Time `json:"exam_date" validate:"required"`
	CreatedAt time.Time `json:"created_at"`
}

// Topic is a gradable unit of course content.
type Topic struct {
	ID         int64     `json:"id"`
	CourseID   int64     `json:"course_id" validate:"required,gt=0"`
	Name       string    `json:"name" validate:"required,max=200"`
	Weight     float64   `json:"weight" validate:"gte=0,lte=1"`
	SkillLevel float64   `json:"skill_level" validate:"gte=0,lte=100"`
	CreatedAt  time.Time `json:"created_at"`
}

// Dependency is a directed prerequisite edge: the dependent topic needs the
// prerequisite at MinSkillThreshold or above.
type Dependency struct {
	ID                  int64   `json:"id"`
	PrerequisiteTopicID int64   `json:"prerequisite_topic_id" validate:"required,gt=0"`
	DependentTopicID    int64   `json:"dependent_topic_id" validate:"required,gt=0,nefield=PrerequisiteTopicID"`
	MinSkillThreshold   float64 `json:"min_skill_threshold" validate:"gte=0,lte=100"`
}

// DefaultMinSkillThreshold is used when a dependency is created without one.
const DefaultMinSkillThreshold = 70.0

// SkillSource identifies what caused a skill mutation.
type SkillSource string

const (
	SourceQuiz   SkillSource = "quiz"
	SourceManual SkillSource = "manual"
	SourceDecay  SkillSource = "decay"
)

// SkillChange is one append-only skill history entry.
type SkillChange struct {
	ID            int64       `json:"id"`
	TopicID       int64       `json:"topic_id"`
	Timestamp     time.Time   `json:"timestamp"`
	PreviousSkill float64     `json:"previous_skill"`
	NewSkill      float64     `json:"new_skill"`
	Reason        string      `json:"reason"`
	Source        SkillSource `json:"source"`
}

// Activity summarises a topic's history for decay and weak-topic detection.
type Activity struct {
	// LastActive is the latest non-decay skill change, or the topic's creation
	// time when there is none.
	LastActive time.Time
	// DecayedSince is the total skill removed by decay after LastActive.
	DecayedSince float64
}

// DaysUntil returns whole days from now until t, rounded down. Past dates
// yield negative values.
func DaysUntil(now, t time.Time) int {
	d := t.Sub(now)
	days := int(d / (24 * time.Hour))
	if d < 0 && d%(24*time.Hour) != 0 {
		days--
	}
	return days
}

// DaysSince returns whole days elapsed from t to now, never negative.
func DaysSince(now, t time.Time) int {
	if t.After(now) {
		return 0
	}
	return int(now.Sub(t) / (24 * time.Hour))
}
