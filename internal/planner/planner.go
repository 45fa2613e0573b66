// Package planner ranks topics by study priority and splits a daily hours
// budget across them.
package planner

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/p-n-ai/pai-planner/internal/decision"
	"github.com/p-n-ai/pai-planner/internal/study"
)

// Strategy selects the base priority formula.
type Strategy string

const (
	// Balanced weighs content share and skill gap.
	Balanced Strategy = "balanced"
	// WeightFocus ignores the skill gap.
	WeightFocus Strategy = "weight-focus"
	// WeakTopicFocus ignores topic weight.
	WeakTopicFocus Strategy = "weak-topic-focus"
)

// Strategies lists the strategies in comparison order.
var Strategies = []Strategy{Balanced, WeightFocus, WeakTopicFocus}

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case Balanced, WeightFocus, WeakTopicFocus:
		return true
	}
	return false
}

// Request parameterises one planning run.
type Request struct {
	Hours    float64
	Adaptive bool
	// Strategy defaults to Balanced.
	Strategy Strategy
	// MinWeight excludes topics whose weight is below it.
	MinWeight float64
}

// Priority is a scored topic before allocation.
type Priority struct {
	Topic         study.Topic
	Course        study.Course
	DaysUntilExam int
	Urgency       float64
	BaseScore     float64
	Score         float64
	Blocking      []study.Blocking
	// PenaltyFactor is 1 when no prerequisite is unmet.
	PenaltyFactor float64
}

// Allocation is one topic's share of the daily budget.
type Allocation struct {
	Topic          study.Topic  `json:"topic"`
	Course         study.Course `json:"course"`
	PriorityScore  float64      `json:"priority_score"`
	UrgencyFactor  float64      `json:"urgency_factor"`
	AllocatedHours float64      `json:"allocated_hours"`
}

// Plan is the planner's output.
type Plan struct {
	DailyHours      float64          `json:"daily_hours"`
	AllocatedTopics []Allocation     `json:"allocated_topics"`
	TotalAllocated  float64          `json:"total_allocated_hours"`
	Strategy        Strategy         `json:"strategy"`
	Decisions       []decision.Entry `json:"-"`
	Ranked          []Priority       `json:"-"`
}

// Hours returns the hours allocated to a topic, or 0.
func (p *Plan) Hours(topicID int64) float64 {
	for _, a := range p.AllocatedTopics {
		if a.Topic.ID == topicID {
			return a.AllocatedHours
		}
	}
	return 0
}

// Planner computes priorities and allocations. It is safe for concurrent use.
type Planner struct {
	cfg Config
}

// New creates a planner with the given constants.
func New(cfg Config) *Planner {
	return &Planner{cfg: cfg}
}

// Config returns the planner's constants.
func (p *Planner) Config() Config {
	return p.cfg
}

// Urgency maps days until the exam to a multiplier.
func (p *Planner) Urgency(days int) float64 {
	switch {
	case days <= 0:
		return p.cfg.UrgencyOverdue
	case days < p.cfg.NearDays:
		return p.cfg.UrgencyImminent
	case days <= p.cfg.FarDays:
		return p.cfg.UrgencyNear
	default:
		return p.cfg.UrgencyFar
	}
}

// BaseScore is the strategy's priority before boosts and penalties.
func BaseScore(s Strategy, weight, skill, urgency float64) float64 {
	gap := 1 - study.Clamp(skill, 0, 100)/100
	switch s {
	case WeightFocus:
		return weight * urgency
	case WeakTopicFocus:
		return gap * urgency
	default:
		return weight * gap * urgency
	}
}

func validateRequest(req *Request) error {
	if math.IsNaN(req.Hours) || math.IsInf(req.Hours, 0) || req.Hours <= 0 {
		return study.Invalid("hours", "must be greater than 0")
	}
	if req.Strategy == "" {
		req.Strategy = Balanced
	}
	if !req.Strategy.Valid() {
		return study.Invalid("strategy", "unknown strategy %q", req.Strategy)
	}
	return nil
}

// Rank scores every candidate topic and returns them in allocation order
// along with the boost and penalty decisions taken.
func (p *Planner) Rank(snap *study.Snapshot, req Request) ([]Priority, []decision.Entry) {
	if req.Strategy == "" {
		req.Strategy = Balanced
	}
	now := snap.TakenAt
	graph := snap.Graph()

	candidates := make(map[int64]bool, len(snap.Topics))
	for _, t := range snap.Topics {
		if _, ok := snap.Course(t.CourseID); ok && t.Weight >= req.MinWeight {
			candidates[t.ID] = true
		}
	}

	var ranked []Priority
	var decisions []decision.Entry
	for _, t := range snap.Topics {
		if !candidates[t.ID] {
			continue
		}
		course, _ := snap.Course(t.CourseID)
		days := study.DaysUntil(now, course.ExamDate)
		urgency := p.Urgency(days)
		base := BaseScore(req.Strategy, t.Weight, t.SkillLevel, urgency)
		score := base

		if req.Adaptive && t.SkillLevel < p.cfg.LowSkillThreshold && score > 0 {
			score *= p.cfg.AdaptiveBoost
			decisions = append(decisions, entry(now, decision.ForTopic(decision.PriorityBoost, t.ID,
				fmt.Sprintf("%s boosted x%.2f: skill %.1f is below %.0f", t.Name, p.cfg.AdaptiveBoost, t.SkillLevel, p.cfg.LowSkillThreshold),
				map[string]any{
					"reason":      "low_skill",
					"multiplier":  p.cfg.AdaptiveBoost,
					"skill_level": t.SkillLevel,
					"threshold":   p.cfg.LowSkillThreshold,
				})))
		}

		if unlocks := p.unlocks(graph, t, candidates); len(unlocks) > 0 && score > 0 {
			score *= p.cfg.PrerequisiteBoost
			decisions = append(decisions, entry(now, decision.ForTopic(decision.PriorityBoost, t.ID,
				fmt.Sprintf("%s boosted x%.2f: it is an unmet prerequisite of %d topic(s)", t.Name, p.cfg.PrerequisiteBoost, len(unlocks)),
				map[string]any{
					"reason":     "unlocks_dependents",
					"multiplier": p.cfg.PrerequisiteBoost,
					"dependents": unlocks,
				})))
		}

		blocking := snap.Unmet(t.ID)
		factor := 1.0
		if len(blocking) > 0 {
			factor = p.penaltyFactor(blocking)
			before := score
			score *= factor
			decisions = append(decisions, entry(now, decision.ForTopic(decision.DependencyBlock, t.ID,
				fmt.Sprintf("%s deprioritised x%.2f: %d prerequisite(s) below threshold", t.Name, factor, len(blocking)),
				map[string]any{
					"penalty_factor": factor,
					"max_gap":        maxGap(blocking),
					"blocking":       blocking,
					"score_before":   before,
					"score_after":    score,
				})))
		}

		ranked = append(ranked, Priority{
			Topic:         t,
			Course:        course,
			DaysUntilExam: days,
			Urgency:       urgency,
			BaseScore:     base,
			Score:         score,
			Blocking:      blocking,
			PenaltyFactor: factor,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Topic.SkillLevel != b.Topic.SkillLevel {
			return a.Topic.SkillLevel < b.Topic.SkillLevel
		}
		if !a.Course.ExamDate.Equal(b.Course.ExamDate) {
			return a.Course.ExamDate.Before(b.Course.ExamDate)
		}
		return a.Topic.ID < b.Topic.ID
	})
	return ranked, decisions
}

// unlocks lists candidate topics that wait on t reaching its threshold.
func (p *Planner) unlocks(g *study.Graph, t study.Topic, candidates map[int64]bool) []int64 {
	var out []int64
	for _, d := range g.Dependents(t.ID) {
		if candidates[d.DependentTopicID] && t.SkillLevel < d.MinSkillThreshold {
			out = append(out, d.DependentTopicID)
		}
	}
	return out
}

func (p *Planner) penaltyFactor(blocking []study.Blocking) float64 {
	gap := maxGap(blocking)
	switch {
	case gap > p.cfg.SevereGap:
		return p.cfg.SeverePenalty
	case gap > p.cfg.ModerateGap:
		return p.cfg.ModeratePenalty
	default:
		return p.cfg.MildPenalty
	}
}

func maxGap(blocking []study.Blocking) float64 {
	var gap float64
	for _, b := range blocking {
		gap = math.Max(gap, b.Gap())
	}
	return gap
}

// Plan ranks topics and allocates req.Hours across them. The returned
// decisions are not persisted; callers append them to a decision log.
func (p *Planner) Plan(snap *study.Snapshot, req Request) (*Plan, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	ranked, decisions := p.Rank(snap, req)
	plan := &Plan{
		DailyHours:      req.Hours,
		AllocatedTopics: []Allocation{},
		Strategy:        req.Strategy,
		Ranked:          ranked,
	}

	var pool float64
	for _, r := range ranked {
		pool += r.Score
	}
	if pool <= 0 {
		plan.Decisions = decisions
		return plan, nil
	}

	now := snap.TakenAt
	remaining := req.Hours
	for _, r := range ranked {
		if r.Score <= 0 {
			continue
		}
		share := remaining * r.Score / pool
		pool -= r.Score
		share = math.Min(share, p.cfg.MaxHoursPerTopic)
		share = math.Min(floorTo(share, p.cfg.Granularity), remaining)

		if share < p.cfg.MinHours {
			reason := "below_min_hours"
			if remaining < p.cfg.MinHours {
				reason = "budget_exhausted"
			}
			decisions = append(decisions, entry(now, decision.ForTopic(decision.PriorityReduction, r.Topic.ID,
				fmt.Sprintf("%s skipped today: %.2fh is below the %.2fh minimum", r.Topic.Name, share, p.cfg.MinHours),
				map[string]any{
					"reason":         reason,
					"priority_score": r.Score,
					"would_receive":  share,
					"min_hours":      p.cfg.MinHours,
				})))
			continue
		}

		remaining -= share
		plan.TotalAllocated += share
		plan.AllocatedTopics = append(plan.AllocatedTopics, Allocation{
			Topic:          r.Topic,
			Course:         r.Course,
			PriorityScore:  r.Score,
			UrgencyFactor:  r.Urgency,
			AllocatedHours: share,
		})
		decisions = append(decisions, entry(now, decision.ForTopic(decision.TopicAllocation, r.Topic.ID,
			fmt.Sprintf("%s allocated %.2fh (priority %.3f, urgency x%.1f, exam in %d days)", r.Topic.Name, share, r.Score, r.Urgency, r.DaysUntilExam),
			map[string]any{
				"allocated_hours": share,
				"priority_score":  r.Score,
				"urgency_factor":  r.Urgency,
				"weight":          r.Topic.Weight,
				"skill_level":     r.Topic.SkillLevel,
				"days_until_exam": r.DaysUntilExam,
				"penalty_factor":  r.PenaltyFactor,
				"strategy":        string(req.Strategy),
			})))
	}

	plan.Decisions = decisions
	return plan, nil
}

func entry(now time.Time, e decision.Entry) decision.Entry {
	e.Timestamp = now
	return e
}

// floorTo rounds v down to a multiple of step, tolerating float noise.
func floorTo(v, step float64) float64 {
	return math.Floor(v/step+1e-9) * step
}
