// Package scenario re-runs the planner and scoring engine against
// hypothetical inputs. Every operation works on a private copy of the
// snapshot and never writes to the repository.
package scenario

import (
	"context"
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/p-n-ai/pai-planner/internal/planner"
	"github.com/p-n-ai/pai-planner/internal/scoring"
	"github.com/p-n-ai/pai-planner/internal/study"
)

// Scenario types accepted by Simulate.
const (
	HoursChange     = "hours_change"
	IgnoreLowWeight = "ignore_low_weight"
	ExamDateChange  = "exam_date_change"
)

// Simulator runs what-if scenarios.
type Simulator struct {
	planner *planner.Planner
	scoring *scoring.Engine
	cfg     Config
}

// New creates a simulator.
func New(p *planner.Planner, s *scoring.Engine, cfg Config) *Simulator {
	return &Simulator{planner: p, scoring: s, cfg: cfg}
}

// Params carries the parameters of every scenario type; each type reads
// only its own fields.
type Params struct {
	CurrentHours    float64 `json:"current_hours"`
	NewHours        float64 `json:"new_hours"`
	AvailableHours  float64 `json:"available_hours"`
	WeightThreshold float64 `json:"weight_threshold"`
	CourseID        int64   `json:"course_id"`
	DaysShift       int     `json:"days_shift"`
	Adaptive        bool    `json:"adaptive"`
}

// Simulate dispatches on scenarioType.
func (s *Simulator) Simulate(snap *study.Snapshot, scenarioType string, p Params) (any, error) {
	switch scenarioType {
	case HoursChange:
		return s.HoursChange(snap, p.CurrentHours, p.NewHours, p.Adaptive)
	case IgnoreLowWeight:
		return s.IgnoreLowWeight(snap, p.AvailableHours, p.WeightThreshold, p.Adaptive)
	case ExamDateChange:
		return s.ExamDateChange(snap, p.CourseID, p.DaysShift, p.AvailableHours, p.Adaptive)
	default:
		return nil, study.Invalid("scenario_type", "unknown scenario type %q", scenarioType)
	}
}

// Project returns a copy of snap with each allocated topic's skill raised by
// the hours it received. snap is not modified.
func (s *Simulator) Project(snap *study.Snapshot, plan *planner.Plan) *study.Snapshot {
	out := snap.Clone()
	for _, a := range plan.AllocatedTopics {
		t, ok := out.Topic(a.Topic.ID)
		if !ok {
			continue
		}
		gain := math.Min(a.AllocatedHours*s.cfg.SkillPerHour, 100-t.SkillLevel)
		out.SetSkill(t.ID, t.SkillLevel+gain)
	}
	return out
}

func (s *Simulator) projectedScore(snap *study.Snapshot, plan *planner.Plan) float64 {
	return scoring.Aggregate(s.scoring.ExpectedScores(s.Project(snap, plan)))
}

// TopicRef names a topic in scenario output.
type TopicRef struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Course string  `json:"course"`
	Hours  float64 `json:"hours"`
}

func refs(plan *planner.Plan, keep func(planner.Allocation) bool) []TopicRef {
	out := []TopicRef{}
	for _, a := range plan.AllocatedTopics {
		if keep(a) {
			out = append(out, TopicRef{ID: a.Topic.ID, Name: a.Topic.Name, Course: a.Course.Name, Hours: a.AllocatedHours})
		}
	}
	return out
}

// HoursChangeResult compares plans at two budgets.
type HoursChangeResult struct {
	ScenarioType         string     `json:"scenario_type"`
	CurrentHours         float64    `json:"current_hours"`
	NewHours             float64    `json:"new_hours"`
	CurrentTopics        int        `json:"current_plan_topics"`
	NewTopics            int        `json:"new_plan_topics"`
	TopicsGained         int        `json:"topics_gained"`
	TopicsLost           int        `json:"topics_lost"`
	GainedTopics         []TopicRef `json:"gained_topics"`
	LostTopics           []TopicRef `json:"lost_topics"`
	CurrentExpectedScore float64    `json:"current_expected_score"`
	NewExpectedScore     float64    `json:"new_expected_score"`
	Recommendation       string     `json:"recommendation"`
	Reason               string     `json:"reason"`
}

// HoursChange plans at both budgets and recommends increase_hours only when
// the new budget covers strictly more topics and every newly covered topic
// gets at least MinUsefulHours.
func (s *Simulator) HoursChange(snap *study.Snapshot, current, next float64, adaptive bool) (*HoursChangeResult, error) {
	if current <= 0 {
		return nil, study.Invalid("current_hours", "must be greater than 0")
	}
	if next <= 0 {
		return nil, study.Invalid("new_hours", "must be greater than 0")
	}
	cur, err := s.planner.Plan(snap, planner.Request{Hours: current, Adaptive: adaptive})
	if err != nil {
		return nil, err
	}
	nxt, err := s.planner.Plan(snap, planner.Request{Hours: next, Adaptive: adaptive})
	if err != nil {
		return nil, err
	}

	res := &HoursChangeResult{
		ScenarioType:         HoursChange,
		CurrentHours:         current,
		NewHours:             next,
		CurrentTopics:        len(cur.AllocatedTopics),
		NewTopics:            len(nxt.AllocatedTopics),
		GainedTopics:         refs(nxt, func(a planner.Allocation) bool { return cur.Hours(a.Topic.ID) == 0 }),
		LostTopics:           refs(cur, func(a planner.Allocation) bool { return nxt.Hours(a.Topic.ID) == 0 }),
		CurrentExpectedScore: s.projectedScore(snap, cur),
		NewExpectedScore:     s.projectedScore(snap, nxt),
	}
	res.TopicsGained = len(res.GainedTopics)
	res.TopicsLost = len(res.LostTopics)

	// Newly covered topics must each get a useful amount of time.
	thinnest, thinnestHours := TopicRef{}, math.Inf(1)
	for _, g := range res.GainedTopics {
		if g.Hours < thinnestHours {
			thinnest, thinnestHours = g, g.Hours
		}
	}
	switch {
	case res.NewTopics > res.CurrentTopics && thinnestHours >= s.cfg.MinUsefulHours:
		res.Recommendation = "increase_hours"
		res.Reason = fmt.Sprintf("%.2fh covers %d topics instead of %d", next, res.NewTopics, res.CurrentTopics)
	case res.NewTopics > res.CurrentTopics:
		res.Recommendation = "keep_current"
		res.Reason = fmt.Sprintf("%s would get only %.2fh, below the %.2fh worth scheduling", thinnest.Name, thinnestHours, s.cfg.MinUsefulHours)
	default:
		res.Recommendation = "keep_current"
		res.Reason = fmt.Sprintf("%.2fh covers no more topics than %.2fh", next, current)
	}
	return res, nil
}

// IgnoreLowWeightResult compares a plan with and without light topics.
type IgnoreLowWeightResult struct {
	ScenarioType          string     `json:"scenario_type"`
	AvailableHours        float64    `json:"available_hours"`
	WeightThreshold       float64    `json:"weight_threshold"`
	IgnoredTopics         []TopicRef `json:"ignored_topics"`
	BaselineTopics        int        `json:"baseline_plan_topics"`
	FilteredTopics        int        `json:"filtered_plan_topics"`
	BaselineExpectedScore float64    `json:"baseline_expected_score"`
	FilteredExpectedScore float64    `json:"filtered_expected_score"`
	ScoreChange           float64    `json:"score_change"`
}

// IgnoreLowWeight replans without topics lighter than threshold.
func (s *Simulator) IgnoreLowWeight(snap *study.Snapshot, hours, threshold float64, adaptive bool) (*IgnoreLowWeightResult, error) {
	if threshold < 0 || threshold > 1 {
		return nil, study.Invalid("weight_threshold", "must be between 0 and 1")
	}
	base, err := s.planner.Plan(snap, planner.Request{Hours: hours, Adaptive: adaptive})
	if err != nil {
		return nil, err
	}
	filtered, err := s.planner.Plan(snap, planner.Request{Hours: hours, Adaptive: adaptive, MinWeight: threshold})
	if err != nil {
		return nil, err
	}

	ignored := []TopicRef{}
	for _, t := range snap.Topics {
		if t.Weight < threshold {
			c, _ := snap.Course(t.CourseID)
			ignored = append(ignored, TopicRef{ID: t.ID, Name: t.Name, Course: c.Name, Hours: base.Hours(t.ID)})
		}
	}
	res := &IgnoreLowWeightResult{
		ScenarioType:          IgnoreLowWeight,
		AvailableHours:        hours,
		WeightThreshold:       threshold,
		IgnoredTopics:         ignored,
		BaselineTopics:        len(base.AllocatedTopics),
		FilteredTopics:        len(filtered.AllocatedTopics),
		BaselineExpectedScore: s.projectedScore(snap, base),
		FilteredExpectedScore: s.projectedScore(snap, filtered),
	}
	res.ScoreChange = round1(res.FilteredExpectedScore - res.BaselineExpectedScore)
	return res, nil
}

// ExamDateChangeResult shows how moving one exam reshapes the plan.
type ExamDateChangeResult struct {
	ScenarioType       string     `json:"scenario_type"`
	CourseID           int64      `json:"course_id"`
	DaysShift          int        `json:"days_shift"`
	DaysUntilBefore    int        `json:"days_until_exam_before"`
	DaysUntilAfter     int        `json:"days_until_exam_after"`
	UrgencyBefore      float64    `json:"urgency_before"`
	UrgencyAfter       float64    `json:"urgency_after"`
	CourseHoursBefore  float64    `json:"course_hours_before"`
	CourseHoursAfter   float64    `json:"course_hours_after"`
	AllocationsBefore  []TopicRef `json:"allocations_before"`
	AllocationsAfter   []TopicRef `json:"allocations_after"`
	ExpectedScoreAfter float64    `json:"expected_score_after"`
}

// ExamDateChange moves one course's exam by daysShift and replans.
func (s *Simulator) ExamDateChange(snap *study.Snapshot, courseID int64, shift int, hours float64, adaptive bool) (*ExamDateChangeResult, error) {
	course, ok := snap.Course(courseID)
	if !ok {
		return nil, study.NotFound("course", courseID)
	}
	moved := snap.Clone()
	moved.ShiftExam(courseID, shift)
	after, _ := moved.Course(courseID)

	before, err := s.planner.Plan(snap, planner.Request{Hours: hours, Adaptive: adaptive})
	if err != nil {
		return nil, err
	}
	replanned, err := s.planner.Plan(moved, planner.Request{Hours: hours, Adaptive: adaptive})
	if err != nil {
		return nil, err
	}

	daysBefore := study.DaysUntil(snap.TakenAt, course.ExamDate)
	daysAfter := study.DaysUntil(snap.TakenAt, after.ExamDate)
	inCourse := func(a planner.Allocation) bool { return a.Course.ID == courseID }
	res := &ExamDateChangeResult{
		ScenarioType:      ExamDateChange,
		CourseID:          courseID,
		DaysShift:         shift,
		DaysUntilBefore:   daysBefore,
		DaysUntilAfter:    daysAfter,
		UrgencyBefore:     s.planner.Urgency(daysBefore),
		UrgencyAfter:      s.planner.Urgency(daysAfter),
		AllocationsBefore: refs(before, inCourse),
		AllocationsAfter:  refs(replanned, inCourse),
	}
	for _, r := range res.AllocationsBefore {
		res.CourseHoursBefore += r.Hours
	}
	for _, r := range res.AllocationsAfter {
		res.CourseHoursAfter += r.Hours
	}
	if score, err := s.scoring.CourseScore(s.Project(moved, replanned), courseID); err == nil {
		res.ExpectedScoreAfter = score.EstimatedScore
	}
	return res, nil
}

// StrategyResult is one strategy's outcome.
type StrategyResult struct {
	Name            string               `json:"name"`
	TopicsCovered   int                  `json:"topics_covered"`
	TotalHours      float64              `json:"total_hours"`
	ExpectedScore   float64              `json:"expected_score"`
	AllocatedTopics []planner.Allocation `json:"allocated_topics"`
}

// Comparison ranks strategies at a fixed budget.
type Comparison struct {
	AvailableHours float64          `json:"available_hours"`
	Strategies     []StrategyResult `json:"strategies"`
	BestStrategy   string           `json:"best_strategy"`
	Reason         string           `json:"reason"`
}

// CompareStrategies runs every strategy concurrently against the same
// snapshot. The best has the highest projected expected score; ties go to
// the strategy listed first.
func (s *Simulator) CompareStrategies(ctx context.Context, snap *study.Snapshot, hours float64, adaptive bool) (*Comparison, error) {
	if hours <= 0 {
		return nil, study.Invalid("available_hours", "must be greater than 0")
	}

	results := make([]StrategyResult, len(planner.Strategies))
	g, ctx := errgroup.WithContext(ctx)
	for i, strategy := range planner.Strategies {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			plan, err := s.planner.Plan(snap, planner.Request{Hours: hours, Adaptive: adaptive, Strategy: strategy})
			if err != nil {
				return fmt.Errorf("strategy %s: %w", strategy, err)
			}
			results[i] = StrategyResult{
				Name:            string(strategy),
				TopicsCovered:   len(plan.AllocatedTopics),
				TotalHours:      plan.TotalAllocated,
				ExpectedScore:   s.projectedScore(snap, plan),
				AllocatedTopics: plan.AllocatedTopics,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	best := 0
	for i := range results {
		if results[i].ExpectedScore > results[best].ExpectedScore {
			best = i
		}
	}
	cmp := &Comparison{
		AvailableHours: hours,
		Strategies:     results,
		BestStrategy:   results[best].Name,
	}
	runnerUp := -1
	for i := range results {
		if i != best && (runnerUp < 0 || results[i].ExpectedScore > results[runnerUp].ExpectedScore) {
			runnerUp = i
		}
	}
	if runnerUp >= 0 && results[runnerUp].ExpectedScore == results[best].ExpectedScore {
		cmp.Reason = fmt.Sprintf("%s ties %s at a projected %.1f and is listed first", cmp.BestStrategy, results[runnerUp].Name, results[best].ExpectedScore)
	} else if runnerUp >= 0 {
		cmp.Reason = fmt.Sprintf("%s projects %.1f, %.1f ahead of %s", cmp.BestStrategy, results[best].ExpectedScore,
			results[best].ExpectedScore-results[runnerUp].ExpectedScore, results[runnerUp].Name)
	}
	return cmp, nil
}

// SkipSuggestion is a topic that can be dropped to fit the budget.
type SkipSuggestion struct {
	Topic         study.Topic `json:"topic"`
	Course        string      `json:"course"`
	Reason        string      `json:"reason"`
	Weight        float64     `json:"weight"`
	SkillLevel    float64     `json:"skill_level"`
	PriorityScore float64     `json:"priority_score"`
	TimeSaved     float64     `json:"time_saved_estimate"`
}

// SkipResult lists suggestions for a budget shortfall.
type SkipResult struct {
	AvailableHours float64          `json:"available_hours"`
	RequiredHours  float64          `json:"required_hours"`
	Deficit        float64          `json:"deficit"`
	MedianWeight   float64          `json:"median_weight"`
	Suggestions    []SkipSuggestion `json:"suggestions"`
	TotalTimeSaved float64          `json:"total_time_saved"`
}

// RequiredHours estimates the daily hours needed to cover every topic with a
// skill gap.
func (s *Simulator) RequiredHours(snap *study.Snapshot) float64 {
	var total float64
	for _, t := range snap.Topics {
		gap := 1 - t.SkillLevel/100
		if gap <= 0 || t.Weight <= 0 {
			continue
		}
		total += study.Clamp(gap*t.Weight*s.cfg.RequiredPerGap, s.cfg.RequiredMin, s.cfg.RequiredMax)
	}
	return round2(total)
}

// SkipSuggestions proposes low-priority, below-median-weight topics to drop
// when available hours fall short. Topics the planner already drops at the
// available budget come first; more are added in ascending priority until
// the deficit is covered. When no topic is below the median weight, every
// planned topic is a candidate in ascending priority.
func (s *Simulator) SkipSuggestions(snap *study.Snapshot, available float64, adaptive bool) (*SkipResult, error) {
	if available <= 0 {
		return nil, study.Invalid("available_hours", "must be greater than 0")
	}
	required := s.RequiredHours(snap)
	res := &SkipResult{
		AvailableHours: available,
		RequiredHours:  required,
		Deficit:        round2(math.Max(0, required-available)),
		MedianWeight:   medianWeight(snap.Topics),
		Suggestions:    []SkipSuggestion{},
	}
	if required <= available {
		return res, nil
	}

	full, err := s.planner.Plan(snap, planner.Request{Hours: required, Adaptive: adaptive})
	if err != nil {
		return nil, err
	}
	limited, err := s.planner.Plan(snap, planner.Request{Hours: available, Adaptive: adaptive})
	if err != nil {
		return nil, err
	}

	var candidates []planner.Priority
	for _, r := range full.Ranked {
		if r.Topic.Weight < res.MedianWeight && full.Hours(r.Topic.ID) > 0 {
			candidates = append(candidates, r)
		}
	}
	// With no topic lighter than the median, fall back to priority alone.
	byPriority := len(candidates) == 0
	if byPriority {
		for _, r := range full.Ranked {
			if full.Hours(r.Topic.ID) > 0 {
				candidates = append(candidates, r)
			}
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score < candidates[j].Score
		}
		return candidates[i].Topic.ID < candidates[j].Topic.ID
	})

	chosen := make(map[int64]string)
	var saved float64
	for _, c := range candidates {
		if limited.Hours(c.Topic.ID) == 0 {
			chosen[c.Topic.ID] = fmt.Sprintf("dropped from the %.2fh plan; %s", available, weightNote(c, res.MedianWeight, byPriority))
			saved += full.Hours(c.Topic.ID)
		}
	}
	for _, c := range candidates {
		if saved >= res.Deficit {
			break
		}
		if _, ok := chosen[c.Topic.ID]; ok {
			continue
		}
		chosen[c.Topic.ID] = fmt.Sprintf("lowest remaining priority (%.3f); %s", c.Score, weightNote(c, res.MedianWeight, byPriority))
		saved += full.Hours(c.Topic.ID)
	}

	for _, c := range candidates {
		reason, ok := chosen[c.Topic.ID]
		if !ok {
			continue
		}
		res.Suggestions = append(res.Suggestions, SkipSuggestion{
			Topic:         c.Topic,
			Course:        c.Course.Name,
			Reason:        reason,
			Weight:        c.Topic.Weight,
			SkillLevel:    c.Topic.SkillLevel,
			PriorityScore: c.Score,
			TimeSaved:     full.Hours(c.Topic.ID),
		})
	}
	res.TotalTimeSaved = round2(saved)
	return res, nil
}

func weightNote(c planner.Priority, median float64, byPriority bool) string {
	if byPriority {
		return fmt.Sprintf("no topic weighs less than the median %.2f, so ranked by priority alone", median)
	}
	return fmt.Sprintf("weight %.2f is below the median %.2f", c.Topic.Weight, median)
}

func medianWeight(topics []study.Topic) float64 {
	if len(topics) == 0 {
		return 0
	}
	w := make([]float64, len(topics))
	for i, t := range topics {
		w[i] = t.Weight
	}
	sort.Float64s(w)
	mid := len(w) / 2
	if len(w)%2 == 1 {
		return w[mid]
	}
	return (w[mid-1] + w[mid]) / 2
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
