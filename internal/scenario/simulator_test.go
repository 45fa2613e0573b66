package scenario_test

import (
	"context"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/p-n-ai/pai-planner/internal/planner"
	"github.com/p-n-ai/pai-planner/internal/scenario"
	"github.com/p-n-ai/pai-planner/internal/scoring"
	"github.com/p-n-ai/pai-planner/internal/study"
)

var now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func examIn(days int) time.Time {
	return now.AddDate(0, 0, days).Add(time.Hour)
}

func newSimulator() *scenario.Simulator {
	return scenario.New(planner.New(planner.DefaultConfig()), scoring.New(scoring.DefaultConfig()), scenario.DefaultConfig())
}

// semester has one course three days out and three topics of falling
// priority: 1.2, 0.45 and 0.24 in non-adaptive balanced mode.
func semester() *study.Snapshot {
	return study.NewSnapshot(now,
		[]study.Course{
			{ID: 1, Name: "Physics", ExamDate: examIn(3)},
			{ID: 2, Name: "History", ExamDate: examIn(60)},
		},
		[]study.Topic{
			{ID: 1, CourseID: 1, Name: "Mechanics", Weight: 0.5, SkillLevel: 20},
			{ID: 2, CourseID: 1, Name: "Optics", Weight: 0.3, SkillLevel: 50},
			{ID: 3, CourseID: 1, Name: "Waves", Weight: 0.2, SkillLevel: 60},
			{ID: 4, CourseID: 2, Name: "Empires", Weight: 1, SkillLevel: 100},
		},
		nil, nil)
}

// crunch has topics weighted 0.4, 0.3, 0.2 and 0.1 (median 0.25) and needs
// 4.5 hours to cover.
func crunch() *study.Snapshot {
	return study.NewSnapshot(now,
		[]study.Course{{ID: 1, Name: "Chemistry", ExamDate: examIn(3)}},
		[]study.Topic{
			{ID: 1, CourseID: 1, Name: "Bonding", Weight: 0.4, SkillLevel: 0},
			{ID: 2, CourseID: 1, Name: "Kinetics", Weight: 0.3, SkillLevel: 0},
			{ID: 3, CourseID: 1, Name: "Organics", Weight: 0.2, SkillLevel: 50},
			{ID: 4, CourseID: 1, Name: "Nuclear", Weight: 0.1, SkillLevel: 50},
		},
		nil, nil)
}

func ids(refs []scenario.TopicRef) []int64 {
	out := []int64{}
	for _, r := range refs {
		out = append(out, r.ID)
	}
	return out
}

func TestHoursChange(t *testing.T) {
	sim := newSimulator()

	res, err := sim.HoursChange(semester(), 1, 3, false)
	if err != nil {
		t.Fatalf("HoursChange() error = %v", err)
	}
	if res.CurrentTopics != 2 || res.NewTopics != 3 {
		t.Fatalf("topics = %d -> %d, want 2 -> 3", res.CurrentTopics, res.NewTopics)
	}
	if got := ids(res.GainedTopics); !reflect.DeepEqual(got, []int64{2}) {
		t.Errorf("gained = %v, want [2]", got)
	}
	if res.TopicsLost != 0 || res.TopicsGained != 1 {
		t.Errorf("gained/lost = %d/%d, want 1/0", res.TopicsGained, res.TopicsLost)
	}
	if res.Recommendation != "increase_hours" {
		t.Errorf("Recommendation = %q, want increase_hours", res.Recommendation)
	}

	if res.Reason != "3.00h covers 3 topics instead of 2" {
		t.Errorf("Reason = %q", res.Reason)
	}

	// At 2h Optics is newly covered but gets only 0.48h.
	res, err = sim.HoursChange(semester(), 1, 2, false)
	if err != nil {
		t.Fatalf("HoursChange() error = %v", err)
	}
	if res.NewTopics != 3 || res.Recommendation != "keep_current" {
		t.Errorf("HoursChange(1, 2) = %d topics, %q, want 3 topics, keep_current", res.NewTopics, res.Recommendation)
	}
	if want := "Optics would get only 0.48h, below the 0.50h worth scheduling"; res.Reason != want {
		t.Errorf("Reason = %q, want %q", res.Reason, want)
	}

	res, err = sim.HoursChange(semester(), 3, 4, false)
	if err != nil {
		t.Fatalf("HoursChange() error = %v", err)
	}
	if res.Recommendation != "keep_current" {
		t.Errorf("Recommendation = %q, want keep_current when coverage is unchanged", res.Recommendation)
	}
	if res.NewExpectedScore < res.CurrentExpectedScore {
		t.Errorf("more hours projected lower: %v < %v", res.NewExpectedScore, res.CurrentExpectedScore)
	}
}

func TestHoursChange_Validation(t *testing.T) {
	sim := newSimulator()
	for _, tc := range []struct{ current, next float64 }{{0, 2}, {2, -1}} {
		_, err := sim.HoursChange(semester(), tc.current, tc.next, false)
		var ve *study.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("HoursChange(%v, %v) error = %v, want ValidationError", tc.current, tc.next, err)
		}
	}
}

func TestIgnoreLowWeight(t *testing.T) {
	sim := newSimulator()

	res, err := sim.IgnoreLowWeight(semester(), 3, 0.25, false)
	if err != nil {
		t.Fatalf("IgnoreLowWeight() error = %v", err)
	}
	if got := ids(res.IgnoredTopics); !reflect.DeepEqual(got, []int64{3}) {
		t.Errorf("ignored = %v, want [3]", got)
	}
	if res.BaselineTopics != 3 || res.FilteredTopics != 2 {
		t.Errorf("plan topics = %d/%d, want 3/2", res.BaselineTopics, res.FilteredTopics)
	}

	if _, err := sim.IgnoreLowWeight(semester(), 3, 1.5, false); err == nil {
		t.Error("IgnoreLowWeight(threshold 1.5) error = nil, want ValidationError")
	}
}

func TestExamDateChange(t *testing.T) {
	sim := newSimulator()
	snap := study.NewSnapshot(now,
		[]study.Course{
			{ID: 1, Name: "Physics", ExamDate: examIn(3)},
			{ID: 2, Name: "History", ExamDate: examIn(60)},
		},
		[]study.Topic{
			{ID: 1, CourseID: 1, Name: "Mechanics", Weight: 1, SkillLevel: 0},
			{ID: 2, CourseID: 2, Name: "Empires", Weight: 1, SkillLevel: 0},
		},
		nil, nil)

	res, err := sim.ExamDateChange(snap, 2, -57, 2, false)
	if err != nil {
		t.Fatalf("ExamDateChange() error = %v", err)
	}
	if res.UrgencyBefore != 1 || res.UrgencyAfter != 3 {
		t.Errorf("urgency = %v -> %v, want 1 -> 3", res.UrgencyBefore, res.UrgencyAfter)
	}
	if res.CourseHoursAfter <= res.CourseHoursBefore {
		t.Errorf("course hours = %v -> %v, want an increase", res.CourseHoursBefore, res.CourseHoursAfter)
	}
	if c, _ := snap.Course(2); !c.ExamDate.Equal(examIn(60)) {
		t.Errorf("input snapshot exam date changed to %v", c.ExamDate)
	}

	if _, err := sim.ExamDateChange(snap, 99, 1, 2, false); !errors.Is(err, study.ErrNotFound) {
		t.Errorf("ExamDateChange(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestCompareStrategies(t *testing.T) {
	sim := newSimulator()

	cmp, err := sim.CompareStrategies(context.Background(), semester(), 2, true)
	if err != nil {
		t.Fatalf("CompareStrategies() error = %v", err)
	}
	if len(cmp.Strategies) != len(planner.Strategies) {
		t.Fatalf("got %d strategies, want %d", len(cmp.Strategies), len(planner.Strategies))
	}
	best := cmp.Strategies[0]
	for i, s := range cmp.Strategies {
		if s.Name != string(planner.Strategies[i]) {
			t.Errorf("strategy[%d] = %s, want %s", i, s.Name, planner.Strategies[i])
		}
		if s.TotalHours > 2 {
			t.Errorf("%s allocated %v > 2", s.Name, s.TotalHours)
		}
		if s.ExpectedScore > best.ExpectedScore {
			best = s
		}
	}
	if cmp.BestStrategy != best.Name {
		t.Errorf("BestStrategy = %s, want %s", cmp.BestStrategy, best.Name)
	}
}

func TestCompareStrategies_TieGoesToFirst(t *testing.T) {
	snap := study.NewSnapshot(now,
		[]study.Course{{ID: 1, Name: "Art", ExamDate: examIn(3)}},
		[]study.Topic{{ID: 1, CourseID: 1, Name: "Colour", Weight: 1, SkillLevel: 0}},
		nil, nil)

	cmp, err := newSimulator().CompareStrategies(context.Background(), snap, 2, false)
	if err != nil {
		t.Fatalf("CompareStrategies() error = %v", err)
	}
	if cmp.BestStrategy != string(planner.Balanced) {
		t.Errorf("BestStrategy = %s, want balanced on a tie", cmp.BestStrategy)
	}
}

func TestCompareStrategies_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newSimulator().CompareStrategies(ctx, semester(), 2, false); !errors.Is(err, context.Canceled) {
		t.Errorf("CompareStrategies() error = %v, want context.Canceled", err)
	}
}

func TestSkipSuggestions(t *testing.T) {
	sim := newSimulator()

	res, err := sim.SkipSuggestions(crunch(), 2, false)
	if err != nil {
		t.Fatalf("SkipSuggestions() error = %v", err)
	}
	if res.RequiredHours != 4.5 || res.Deficit != 2.5 || res.MedianWeight != 0.25 {
		t.Errorf("required/deficit/median = %v/%v/%v, want 4.5/2.5/0.25", res.RequiredHours, res.Deficit, res.MedianWeight)
	}
	if len(res.Suggestions) != 2 {
		t.Fatalf("got %d suggestions, want 2: %+v", len(res.Suggestions), res.Suggestions)
	}
	if res.Suggestions[0].Topic.ID != 4 || res.Suggestions[1].Topic.ID != 3 {
		t.Errorf("order = [%d %d], want ascending priority [4 3]", res.Suggestions[0].Topic.ID, res.Suggestions[1].Topic.ID)
	}
	for _, s := range res.Suggestions {
		if s.Weight >= res.MedianWeight {
			t.Errorf("suggested %s with weight %v >= median", s.Topic.Name, s.Weight)
		}
		if s.TimeSaved <= 0 {
			t.Errorf("suggested %s with time_saved %v", s.Topic.Name, s.TimeSaved)
		}
	}
	if math.Abs(res.TotalTimeSaved-0.8) > 1e-9 {
		t.Errorf("TotalTimeSaved = %v, want 0.53 + 0.27", res.TotalTimeSaved)
	}
}

func TestSkipSuggestions_StopsWhenCovered(t *testing.T) {
	res, err := newSimulator().SkipSuggestions(crunch(), 4.3, false)
	if err != nil {
		t.Fatalf("SkipSuggestions() error = %v", err)
	}
	if len(res.Suggestions) != 1 || res.Suggestions[0].Topic.ID != 4 {
		t.Fatalf("suggestions = %+v, want only the lowest-priority topic", res.Suggestions)
	}
}

func TestSkipSuggestions_EqualWeightsFallBackToPriority(t *testing.T) {
	snap := study.NewSnapshot(now,
		[]study.Course{{ID: 1, Name: "Biology", ExamDate: examIn(3)}},
		[]study.Topic{
			{ID: 1, CourseID: 1, Name: "Cells", Weight: 0.25, SkillLevel: 0},
			{ID: 2, CourseID: 1, Name: "Genetics", Weight: 0.25, SkillLevel: 10},
			{ID: 3, CourseID: 1, Name: "Ecology", Weight: 0.25, SkillLevel: 20},
			{ID: 4, CourseID: 1, Name: "Evolution", Weight: 0.25, SkillLevel: 30},
		},
		nil, nil)

	res, err := newSimulator().SkipSuggestions(snap, 1, false)
	if err != nil {
		t.Fatalf("SkipSuggestions() error = %v", err)
	}
	if res.RequiredHours != 4.25 || res.Deficit != 3.25 {
		t.Errorf("required/deficit = %v/%v, want 4.25/3.25", res.RequiredHours, res.Deficit)
	}
	var got []int64
	for _, s := range res.Suggestions {
		got = append(got, s.Topic.ID)
		if s.TimeSaved <= 0 {
			t.Errorf("suggested %s with time_saved %v", s.Topic.Name, s.TimeSaved)
		}
		if !strings.Contains(s.Reason, "ranked by priority alone") {
			t.Errorf("reason for %s = %q, want the priority fallback noted", s.Topic.Name, s.Reason)
		}
	}
	if want := []int64{4, 3, 2, 1}; !reflect.DeepEqual(got, want) {
		t.Errorf("suggestions = %v, want ascending priority %v", got, want)
	}
	if !strings.HasPrefix(res.Suggestions[1].Reason, "dropped from the 1.00h plan") {
		t.Errorf("Ecology reason = %q, want it marked as dropped at 1h", res.Suggestions[1].Reason)
	}
}

func TestSkipSuggestions_NoDeficit(t *testing.T) {
	res, err := newSimulator().SkipSuggestions(crunch(), 5, false)
	if err != nil {
		t.Fatalf("SkipSuggestions() error = %v", err)
	}
	if res.Deficit != 0 || len(res.Suggestions) != 0 {
		t.Errorf("deficit/suggestions = %v/%d, want 0/0", res.Deficit, len(res.Suggestions))
	}
}

func TestSimulate_DoesNotMutateInput(t *testing.T) {
	sim := newSimulator()
	snap := semester()
	topics := append([]study.Topic(nil), snap.Topics...)
	courses := append([]study.Course(nil), snap.Courses...)

	for _, tc := range []struct {
		typ    string
		params scenario.Params
	}{
		{scenario.HoursChange, scenario.Params{CurrentHours: 1, NewHours: 3, Adaptive: true}},
		{scenario.IgnoreLowWeight, scenario.Params{AvailableHours: 2, WeightThreshold: 0.25}},
		{scenario.ExamDateChange, scenario.Params{CourseID: 2, DaysShift: -50, AvailableHours: 2}},
	} {
		if _, err := sim.Simulate(snap, tc.typ, tc.params); err != nil {
			t.Fatalf("Simulate(%s) error = %v", tc.typ, err)
		}
	}
	if _, err := sim.CompareStrategies(context.Background(), snap, 2, true); err != nil {
		t.Fatalf("CompareStrategies() error = %v", err)
	}
	if _, err := sim.SkipSuggestions(snap, 0.5, true); err != nil {
		t.Fatalf("SkipSuggestions() error = %v", err)
	}

	if !reflect.DeepEqual(snap.Topics, topics) || !reflect.DeepEqual(snap.Courses, courses) {
		t.Error("simulation modified the input snapshot")
	}
}

func TestSimulate_UnknownType(t *testing.T) {
	_, err := newSimulator().Simulate(semester(), "lottery", scenario.Params{})
	var ve *study.ValidationError
	if !errors.As(err, &ve) || ve.Field != "scenario_type" {
		t.Errorf("Simulate(unknown) error = %v, want scenario_type ValidationError", err)
	}
}

func TestProject(t *testing.T) {
	sim := newSimulator()
	snap := semester()
	plan, err := planner.New(planner.DefaultConfig()).Plan(snap, planner.Request{Hours: 3})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	projected := sim.Project(snap, plan)
	for _, a := range plan.AllocatedTopics {
		got, _ := projected.Topic(a.Topic.ID)
		want := math.Min(a.Topic.SkillLevel+a.AllocatedHours*8, 100)
		if math.Abs(got.SkillLevel-want) > 1e-9 {
			t.Errorf("%s projected skill = %v, want %v", a.Topic.Name, got.SkillLevel, want)
		}
	}
	if orig, _ := snap.Topic(1); orig.SkillLevel != 20 {
		t.Errorf("input skill changed to %v", orig.SkillLevel)
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := scenario.DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() error = %v", err)
	}
	cfg := scenario.DefaultConfig()
	cfg.RequiredMax = 0.1
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() error = nil, want error for required_max < required_min")
	}
}
