package decision_test

import (
	"context"
	"testing"
	"time"

	"github.com/p-n-ai/pai-planner/internal/decision"
)

func TestMemoryLog_AppendAssignsIDsAndTimestamps(t *testing.T) {
	log := decision.NewMemoryLog()

	entries := []decision.Entry{
		decision.ForTopic(decision.TopicAllocation, 1, "allocated 1.5h", map[string]any{"hours": 1.5}),
		decision.ForTopic(decision.DependencyBlock, 2, "blocked", nil),
	}
	if err := log.Append(context.Background(), entries...); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if entries[0].ID != 1 || entries[1].ID != 2 {
		t.Errorf("IDs = %d, %d, want 1, 2", entries[0].ID, entries[1].ID)
	}

	got, err := log.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(Recent()) = %d, want 2", len(got))
	}
	if got[0].ID != 2 {
		t.Errorf("Recent()[0].ID = %d, want newest first", got[0].ID)
	}
	if got[0].Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
}

func TestMemoryLog_RejectsUnknownType(t *testing.T) {
	log := decision.NewMemoryLog()
	err := log.Append(context.Background(), decision.Entry{Type: "time_travel"})
	if err == nil {
		t.Fatal("expected error for unknown decision type")
	}
	if log.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after rejected append", log.Len())
	}
}

func TestMemoryLog_Filters(t *testing.T) {
	log := decision.NewMemoryLog()
	ctx := context.Background()
	_ = log.Append(ctx,
		decision.ForTopic(decision.TopicAllocation, 1, "a", nil),
		decision.ForTopic(decision.SkillDecay, 1, "b", nil),
		decision.ForTopic(decision.TopicAllocation, 2, "c", nil),
		decision.ForTopic(decision.TopicAllocation, 3, "d", nil),
	)

	byType, _ := log.ByType(ctx, decision.TopicAllocation, 2)
	if len(byType) != 2 {
		t.Fatalf("len(ByType()) = %d, want 2 (limit)", len(byType))
	}
	if byType[0].Explanation != "d" {
		t.Errorf("ByType()[0] = %q, want d", byType[0].Explanation)
	}

	byTopic, _ := log.ByTopic(ctx, 1, 0)
	if len(byTopic) != 2 {
		t.Errorf("len(ByTopic(1)) = %d, want 2", len(byTopic))
	}
}

func TestHub_PublishesToSubscribers(t *testing.T) {
	hub := decision.NewHub(decision.NewMemoryLog(), 4)
	ch, cancel := hub.Subscribe()
	defer cancel()

	if err := hub.Append(context.Background(), decision.ForTopic(decision.PriorityBoost, 7, "boost", nil)); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	select {
	case e := <-ch:
		if e.Type != decision.PriorityBoost || e.ID == 0 {
			t.Errorf("received %+v, want stored priority_boost entry", e)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for entry")
	}
}

func TestHub_CancelReleasesSubscriber(t *testing.T) {
	hub := decision.NewHub(decision.NopLog{}, 1)
	_, cancel := hub.Subscribe()
	if hub.Subscribers() != 1 {
		t.Fatalf("Subscribers() = %d, want 1", hub.Subscribers())
	}
	cancel()
	cancel()
	if hub.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d, want 0", hub.Subscribers())
	}
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := decision.NewHub(decision.NopLog{}, 1)
	_, cancel := hub.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			_ = hub.Append(context.Background(), decision.Entry{Type: decision.TopicAllocation})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Append() blocked on a full subscriber")
	}
}

func TestPostgresLog_NilPool(t *testing.T) {
	log := decision.NewPostgresLog(nil)
	err := log.Append(context.Background(), decision.Entry{Type: decision.SkillDecay})
	if err == nil {
		t.Fatal("expected error for nil pool")
	}
}
