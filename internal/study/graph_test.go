package study_test

import (
	"reflect"
	"testing"

	"github.com/p-n-ai/pai-planner/internal/study"
)

func chain() *study.Graph {
	// 1 -> 2 -> 3, 1 -> 3
	return study.NewGraph([]study.Dependency{
		{ID: 2, PrerequisiteTopicID: 2, DependentTopicID: 3, MinSkillThreshold: 70},
		{ID: 1, PrerequisiteTopicID: 1, DependentTopicID: 2, MinSkillThreshold: 60},
		{ID: 3, PrerequisiteTopicID: 1, DependentTopicID: 3, MinSkillThreshold: 50},
	})
}

func TestGraph_WouldCycle(t *testing.T) {
	g := chain()

	tests := []struct {
		name         string
		prerequisite int64
		dependent    int64
		want         bool
	}{
		{"back edge closes cycle", 3, 1, true},
		{"indirect back edge", 3, 2, true},
		{"self loop", 4, 4, true},
		{"parallel edge is fine", 2, 3, false},
		{"new node", 3, 4, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.WouldCycle(tt.prerequisite, tt.dependent); got != tt.want {
				t.Errorf("WouldCycle(%d, %d) = %v, want %v", tt.prerequisite, tt.dependent, got, tt.want)
			}
		})
	}
}

func TestGraph_Unmet(t *testing.T) {
	g := chain()
	skills := map[int64]float64{1: 55, 2: 80}
	lookup := func(id int64) (float64, bool) {
		v, ok := skills[id]
		return v, ok
	}

	unmet := g.Unmet(3, lookup)
	if len(unmet) != 0 {
		t.Fatalf("Unmet(3) = %v, want none (2 at 80 >= 70, 1 at 55 >= 50)", unmet)
	}

	unmet = g.Unmet(2, lookup)
	if len(unmet) != 1 {
		t.Fatalf("len(Unmet(2)) = %d, want 1", len(unmet))
	}
	if unmet[0].PrerequisiteID != 1 || unmet[0].Gap() != 5 {
		t.Errorf("Unmet(2)[0] = %+v, want prerequisite 1 with gap 5", unmet[0])
	}
}

func TestGraph_UnmetIgnoresUnknownTopics(t *testing.T) {
	g := chain()
	unmet := g.Unmet(2, func(int64) (float64, bool) { return 0, false })
	if len(unmet) != 0 {
		t.Errorf("Unmet() = %v, want none for unknown prerequisites", unmet)
	}
}

func TestGraph_LearningPath(t *testing.T) {
	g := chain()

	got := g.LearningPath(3)
	want := []int64{1, 2, 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LearningPath(3) = %v, want %v", got, want)
	}

	if got := g.LearningPath(9); !reflect.DeepEqual(got, []int64{9}) {
		t.Errorf("LearningPath(9) = %v, want [9]", got)
	}
}
