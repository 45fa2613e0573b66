// Package decision records why the planner and the decay job did what they
// did. The log is append-only: entries are never updated or deleted.
package decision

import (
	"context"
	"time"
)

// Type classifies a decision entry.
type Type string

const (
	PriorityBoost     Type = "priority_boost"
	PriorityReduction Type = "priority_reduction"
	TopicAllocation   Type = "topic_allocation"
	SkillDecay        Type = "skill_decay"
	DependencyBlock   Type = "dependency_block"
)

// Valid reports whether t is a known decision type.
func (t Type) Valid() bool {
	switch t {
	case PriorityBoost, PriorityReduction, TopicAllocation, SkillDecay, DependencyBlock:
		return true
	}
	return false
}

// Entry is one audit record.
type Entry struct {
	ID          int64          `json:"id"`
	Timestamp   time.Time      `json:"timestamp"`
	Type        Type           `json:"decision_type"`
	TopicID     *int64         `json:"topic_id"`
	Explanation string         `json:"explanation"`
	Metadata    map[string]any `json:"metadata"`
}

// ForTopic is a convenience constructor for topic-scoped entries.
func ForTopic(t Type, topicID int64, explanation string, metadata map[string]any) Entry {
	id := topicID
	return Entry{Type: t, TopicID: &id, Explanation: explanation, Metadata: metadata}
}

// Logger appends and reads decision entries. Reads return newest first.
type Logger interface {
	Append(ctx context.Context, entries ...Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	ByType(ctx context.Context, t Type, limit int) ([]Entry, error)
	ByTopic(ctx context.Context, topicID int64, limit int) ([]Entry, error)
}

// NopLog ignores all entries.
type NopLog struct{}

func (NopLog) Append(context.Context, ...Entry) error { return nil }

func (NopLog) Recent(context.Context, int) ([]Entry, error) { return []Entry{}, nil }

func (NopLog) ByType(context.Context, Type, int) ([]Entry, error) { return []Entry{}, nil }

func (NopLog) ByTopic(context.Context, int64, int) ([]Entry, error) { return []Entry{}, nil }
