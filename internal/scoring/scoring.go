// Package scoring estimates exam outcomes per course and flags risks.
package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/p-n-ai/pai-planner/internal/study"
)

// RiskTopic is a topic singled out in a course score.
type RiskTopic struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Weight     float64 `json:"weight"`
	SkillLevel float64 `json:"skill_level"`
	Reason     string  `json:"reason"`
}

// CourseScore is the expected exam outcome for one course.
type CourseScore struct {
	CourseID            int64       `json:"course_id"`
	CourseName          string      `json:"course_name"`
	EstimatedScore      float64     `json:"estimated_score"`
	ScoreRange          [2]float64  `json:"score_range"`
	TotalWeightCoverage float64     `json:"total_weight_coverage"`
	DependencyPenalty   float64     `json:"dependency_penalty"`
	HighRiskTopics      []RiskTopic `json:"high_risk_topics"`
	DaysUntilExam       int         `json:"days_until_exam"`
}

// Engine computes scores and risks from a snapshot. It holds no state.
type Engine struct {
	cfg Config
}

// New creates an engine with the given constants.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// ExpectedScores scores every course, keyed by course id.
func (e *Engine) ExpectedScores(snap *study.Snapshot) map[int64]CourseScore {
	out := make(map[int64]CourseScore, len(snap.Courses))
	for _, c := range snap.Courses {
		out[c.ID] = e.score(snap, c)
	}
	return out
}

// CourseScore scores one course.
func (e *Engine) CourseScore(snap *study.Snapshot, courseID int64) (CourseScore, error) {
	c, ok := snap.Course(courseID)
	if !ok {
		return CourseScore{}, study.NotFound("course", courseID)
	}
	return e.score(snap, c), nil
}

// Aggregate is the mean course estimate, or 0 when there are no courses.
func Aggregate(scores map[int64]CourseScore) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s.EstimatedScore
	}
	return round1(sum / float64(len(scores)))
}

func (e *Engine) score(snap *study.Snapshot, c study.Course) CourseScore {
	topics := snap.TopicsByCourse(c.ID)

	var coverage, weighted, penalty float64
	risky := []RiskTopic{}
	for _, t := range topics {
		coverage += t.Weight
		weighted += t.Weight * t.SkillLevel

		unmet := snap.Unmet(t.ID)
		if len(unmet) > 0 {
			penalty += e.cfg.PenaltyPerWeight * t.Weight
		}
		switch {
		case len(unmet) > 0:
			risky = append(risky, riskTopic(t, fmt.Sprintf("%d unmet prerequisite(s)", len(unmet))))
		case t.Weight > e.cfg.HighRiskWeight && t.SkillLevel < e.cfg.HighRiskSkill:
			risky = append(risky, riskTopic(t, "high weight with low skill"))
		}
	}
	penalty = math.Min(penalty, e.cfg.MaxPenalty)

	var base float64
	if coverage > 0 {
		base = weighted / coverage
	}
	estimate := study.Clamp(base-penalty, 0, 100)
	spread := e.cfg.BaseUncertainty + e.cfg.CoverageUncertainty*math.Min(1, math.Abs(1-coverage))

	return CourseScore{
		CourseID:            c.ID,
		CourseName:          c.Name,
		EstimatedScore:      round1(estimate),
		ScoreRange:          [2]float64{round1(study.Clamp(estimate-spread, 0, 100)), round1(study.Clamp(estimate+spread, 0, 100))},
		TotalWeightCoverage: round3(coverage),
		DependencyPenalty:   round1(penalty),
		HighRiskTopics:      risky,
		DaysUntilExam:       study.DaysUntil(snap.TakenAt, c.ExamDate),
	}
}

func riskTopic(t study.Topic, reason string) RiskTopic {
	return RiskTopic{ID: t.ID, Name: t.Name, Weight: t.Weight, SkillLevel: t.SkillLevel, Reason: reason}
}

// WeightValidation reports whether a course's topic weights sum to about 1.
type WeightValidation struct {
	CourseID    int64   `json:"course_id"`
	Valid       bool    `json:"valid"`
	TotalWeight float64 `json:"total_weight"`
	TopicCount  int     `json:"topic_count"`
	Message     string  `json:"message"`
}

// ValidateCourseWeights checks one course's weight sum against the coverage
// band. An imbalance is a warning, never an error.
func (e *Engine) ValidateCourseWeights(snap *study.Snapshot, courseID int64) (WeightValidation, error) {
	if _, ok := snap.Course(courseID); !ok {
		return WeightValidation{}, study.NotFound("course", courseID)
	}
	topics := snap.TopicsByCourse(courseID)
	var total float64
	for _, t := range topics {
		total += t.Weight
	}
	total = round3(total)

	v := WeightValidation{
		CourseID:    courseID,
		TotalWeight: total,
		TopicCount:  len(topics),
		Valid:       total >= e.cfg.CoverageLow && total <= e.cfg.CoverageHigh,
	}
	switch {
	case v.Valid:
		v.Message = "topic weights sum to 1.0"
	case total < 1:
		v.Message = fmt.Sprintf("topic weights sum to %.3f; %.3f of the exam is not covered", total, 1-total)
	default:
		v.Message = fmt.Sprintf("topic weights sum to %.3f; reduce weights by %.3f", total, total-1)
	}
	return v, nil
}

// WeakTopic is a topic that needs attention, ranked by urgency_score.
type WeakTopic struct {
	Topic        study.Topic  `json:"topic"`
	Course       study.Course `json:"course"`
	DaysInactive int          `json:"days_inactive"`
	UrgencyScore float64      `json:"urgency_score"`
}

// WeakTopics lists topics below the low-skill threshold, most urgent first.
// urgency maps days until the exam to the planner's multiplier.
func (e *Engine) WeakTopics(snap *study.Snapshot, urgency func(days int) float64) []WeakTopic {
	out := []WeakTopic{}
	for _, t := range snap.Topics {
		if t.SkillLevel >= e.cfg.LowSkill {
			continue
		}
		c, ok := snap.Course(t.CourseID)
		if !ok {
			continue
		}
		inactive := study.DaysSince(snap.TakenAt, snap.Activity[t.ID].LastActive)
		if snap.Activity[t.ID].LastActive.IsZero() {
			inactive = study.DaysSince(snap.TakenAt, t.CreatedAt)
		}
		staleness := 1 + float64(min(inactive, e.cfg.MaxInactiveDays))/float64(e.cfg.MaxInactiveDays)
		score := t.Weight * (1 - t.SkillLevel/100) * urgency(study.DaysUntil(snap.TakenAt, c.ExamDate)) * staleness

		out = append(out, WeakTopic{Topic: t, Course: c, DaysInactive: inactive, UrgencyScore: round3(score)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UrgencyScore != out[j].UrgencyScore {
			return out[i].UrgencyScore > out[j].UrgencyScore
		}
		return out[i].Topic.ID < out[j].Topic.ID
	})
	return out
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
