package scoring

import (
	"fmt"
	"strings"

	"github.com/p-n-ai/pai-planner/internal/study"
)

// Reprioritization triggers.
const (
	TriggerImminentExam          = "imminent_exam"
	TriggerCriticalPrerequisites = "critical_prerequisites"
)

// Override is one forced change to a course's study priorities.
type Override struct {
	Trigger         string      `json:"trigger"`
	Severity        Severity    `json:"severity"`
	Message         string      `json:"message"`
	Action          string      `json:"action"`
	MandatoryTopics []RiskTopic `json:"mandatory_topics"`
	LockedTopics    []RiskTopic `json:"locked_topics"`
}

// Reprioritization reports whether a course's risk is high enough to
// override the learner's own priorities.
type Reprioritization struct {
	CourseID      int64      `json:"course_id"`
	CourseName    string     `json:"course_name"`
	DaysUntilExam int        `json:"days_until_exam"`
	Forced        bool       `json:"forced"`
	RiskLevel     string     `json:"risk_level"`
	Overrides     []Override `json:"overrides"`
	CanIgnore     bool       `json:"can_ignore"`
	Explanation   string     `json:"explanation"`
}

// Reprioritize checks a course for an imminent exam it would fail today and
// for heavy topics below the critical skill. Either forces an override that
// makes those topics mandatory and locks light or already-strong ones. A
// CRITICAL result cannot be ignored.
func (e *Engine) Reprioritize(snap *study.Snapshot, courseID int64) (Reprioritization, error) {
	exam, err := e.SimulateExam(snap, courseID)
	if err != nil {
		return Reprioritization{}, err
	}
	topics := snap.TopicsByCourse(courseID)
	locked := e.lockedTopics(topics)

	out := Reprioritization{
		CourseID:      courseID,
		CourseName:    exam.CourseName,
		DaysUntilExam: exam.DaysRemaining,
		RiskLevel:     "NORMAL",
		Overrides:     []Override{},
	}

	if exam.DaysRemaining <= e.cfg.ImminentDays && !exam.WillPass {
		out.RiskLevel = string(Critical)
		out.Overrides = append(out.Overrides, Override{
			Trigger:  TriggerImminentExam,
			Severity: Critical,
			Message: fmt.Sprintf("exam in %d days with an estimated score of %.0f%%, below the %.0f%% pass mark",
				exam.DaysRemaining, exam.EstimatedScore, e.cfg.PassingScore),
			Action:          "focus on the critical gaps",
			MandatoryTopics: exam.CriticalGaps,
			LockedTopics:    locked,
		})
	}

	critical := []RiskTopic{}
	for _, t := range topics {
		if t.Weight > e.cfg.CriticalWeight && t.SkillLevel < e.cfg.CriticalSkill {
			critical = append(critical, riskTopic(t, "heavy topic below the critical skill"))
		}
	}
	if len(critical) > 0 {
		if out.RiskLevel == "NORMAL" {
			out.RiskLevel = string(High)
		}
		out.Overrides = append(out.Overrides, Override{
			Trigger:         TriggerCriticalPrerequisites,
			Severity:        High,
			Message:         fmt.Sprintf("%d critical topics below %.0f%% skill", len(critical), e.cfg.CriticalSkill),
			Action:          fmt.Sprintf("lock low-priority topics until critical topics reach %.0f%%", e.cfg.UnlockSkill),
			MandatoryTopics: critical,
			LockedTopics:    locked,
		})
	}

	out.Forced = len(out.Overrides) > 0
	out.CanIgnore = out.RiskLevel != string(Critical)
	out.Explanation = explainOverrides(out.Overrides)
	return out, nil
}

func (e *Engine) lockedTopics(topics []study.Topic) []RiskTopic {
	out := []RiskTopic{}
	for _, t := range topics {
		switch {
		case t.Weight < e.cfg.LockBelowWeight:
			out = append(out, riskTopic(t, "light topic"))
		case t.SkillLevel > e.cfg.LockAboveSkill:
			out = append(out, riskTopic(t, "already strong"))
		}
	}
	return out
}

func explainOverrides(overrides []Override) string {
	if len(overrides) == 0 {
		return "no forced reprioritization needed"
	}
	lines := make([]string, 0, len(overrides))
	for _, o := range overrides {
		lines = append(lines, fmt.Sprintf("%s: %s", o.Message, o.Action))
	}
	return strings.Join(lines, "; ")
}
