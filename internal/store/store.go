// Package store persists courses, topics, dependency edges and skill history.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/p-n-ai/pai-planner/internal/study"
)

// ErrSkillUnchanged is returned by a SkillFunc to leave the topic untouched.
// UpdateSkill then returns it without recording history.
var ErrSkillUnchanged = errors.New("skill unchanged")

// SkillState is a topic's skill position read under the store's write lock.
type SkillState struct {
	Topic       study.Topic
	GainedToday float64
	Activity    study.Activity
}

// SkillFunc computes a topic's new skill level from its locked state. It runs
// inside the store's write lock or transaction so the read-modify-write is
// applied at most once.
type SkillFunc func(s SkillState) (float64, error)

// SkillUpdate describes one skill mutation request.
type SkillUpdate struct {
	TopicID int64
	Source  study.SkillSource
	Reason  string
	At      time.Time
	Apply   SkillFunc
}

// Repository is the storage contract used by the HTTP layer and services.
type Repository interface {
	// Snapshot returns a consistent view of all planning inputs.
	Snapshot(ctx context.Context) (*study.Snapshot, error)

	ListCourses(ctx context.Context) ([]study.Course, error)
	GetCourse(ctx context.Context, id int64) (study.Course, error)
	CreateCourse(ctx context.Context, c study.Course) (study.Course, error)
	UpdateCourse(ctx context.Context, c study.Course) (study.Course, error)
	// DeleteCourse removes the course with its topics, their edges and history.
	DeleteCourse(ctx context.Context, id int64) error

	ListTopics(ctx context.Context, courseID int64) ([]study.Topic, error)
	GetTopic(ctx context.Context, id int64) (study.Topic, error)
	CreateTopic(ctx context.Context, t study.Topic) (study.Topic, error)
	// UpdateTopic edits name and weight. Skill only changes through
	// UpdateSkill.
	UpdateTopic(ctx context.Context, t study.Topic) (study.Topic, error)
	DeleteTopic(ctx context.Context, id int64) error

	ListDependencies(ctx context.Context) ([]study.Dependency, error)
	// CreateDependency rejects unknown topics, duplicates and cycles.
	CreateDependency(ctx context.Context, d study.Dependency) (study.Dependency, error)
	DeleteDependency(ctx context.Context, id int64) error

	UpdateSkill(ctx context.Context, u SkillUpdate) (study.SkillChange, error)
	SkillHistory(ctx context.Context, topicID int64, limit int) ([]study.SkillChange, error)
}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
