package scoring

import (
	"fmt"
	"sort"

	"github.com/p-n-ai/pai-planner/internal/study"
)

// Severity orders risks from most to least serious.
type Severity string

const (
	Critical Severity = "CRITICAL"
	High     Severity = "HIGH"
	Medium   Severity = "MEDIUM"
	Low      Severity = "LOW"
)

func (s Severity) rank() int {
	switch s {
	case Critical:
		return 0
	case High:
		return 1
	case Medium:
		return 2
	default:
		return 3
	}
}

// Risk types.
const (
	ExamPressure      = "exam_pressure"
	UnmetPrerequisite = "unmet_prerequisite"
	CriticalWeakness  = "critical_weakness"
	WeightImbalance   = "weight_imbalance"
	LowSkill          = "low_skill"
)

// Risk is one detected condition.
type Risk struct {
	Type        string   `json:"type"`
	Severity    Severity `json:"severity"`
	Course      string   `json:"course"`
	CourseID    int64    `json:"course_id"`
	TopicID     *int64   `json:"topic_id,omitempty"`
	Description string   `json:"description"`
}

// Risks scans every course and returns detected risks ordered by severity,
// then course id, then detection order. Identical input yields identical
// output.
func (e *Engine) Risks(snap *study.Snapshot) []Risk {
	out := []Risk{}
	for _, c := range snap.Courses {
		out = append(out, e.courseRisks(snap, c)...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if ri, rj := out[i].Severity.rank(), out[j].Severity.rank(); ri != rj {
			return ri < rj
		}
		return out[i].CourseID < out[j].CourseID
	})
	return out
}

func (e *Engine) courseRisks(snap *study.Snapshot, c study.Course) []Risk {
	var out []Risk
	add := func(typ string, sev Severity, topicID *int64, format string, args ...any) {
		out = append(out, Risk{
			Type:        typ,
			Severity:    sev,
			Course:      c.Name,
			CourseID:    c.ID,
			TopicID:     topicID,
			Description: fmt.Sprintf(format, args...),
		})
	}

	score := e.score(snap, c)
	if score.DaysUntilExam <= e.cfg.ImminentDays && score.EstimatedScore < e.cfg.PassingScore {
		add(ExamPressure, Critical, nil, "exam in %d days with an estimated score of %.1f (below %.0f)",
			score.DaysUntilExam, score.EstimatedScore, e.cfg.PassingScore)
	}

	topics := snap.TopicsByCourse(c.ID)
	for _, t := range topics {
		id := t.ID
		unmet := snap.Unmet(t.ID)
		for _, b := range unmet {
			pre, _ := snap.Topic(b.PrerequisiteID)
			sev := Medium
			if t.Weight > e.cfg.HighRiskWeight {
				sev = High
			}
			add(UnmetPrerequisite, sev, &id, "%s is blocked: prerequisite %s is at %.1f, needs %.1f",
				t.Name, pre.Name, b.CurrentSkill, b.RequiredSkill)
		}

		switch {
		case t.SkillLevel < e.cfg.CriticalSkill && t.Weight > e.cfg.CriticalWeight:
			add(CriticalWeakness, High, &id, "%s carries %.0f%% of the exam at skill %.1f",
				t.Name, t.Weight*100, t.SkillLevel)
		case t.SkillLevel < e.cfg.LowSkill:
			add(LowSkill, Low, &id, "%s is at skill %.1f", t.Name, t.SkillLevel)
		}
	}

	if len(topics) > 0 && (score.TotalWeightCoverage < e.cfg.CoverageLow || score.TotalWeightCoverage > e.cfg.CoverageHigh) {
		add(WeightImbalance, Medium, nil, "topic weights sum to %.3f instead of 1.0", score.TotalWeightCoverage)
	}
	return out
}
