package scoring

import (
	"sort"

	"github.com/p-n-ai/pai-planner/internal/study"
)

// ExamToday is the outcome if the exam were sat now.
type ExamToday struct {
	CourseID        int64       `json:"course_id"`
	CourseName      string      `json:"course_name"`
	DaysRemaining   int         `json:"days_remaining"`
	EstimatedScore  float64     `json:"estimated_score"`
	PassingScore    float64     `json:"passing_threshold"`
	PassProbability int         `json:"pass_probability"`
	WillPass        bool        `json:"will_pass"`
	RiskLevel       string      `json:"risk_level"`
	WeakestTopics   []RiskTopic `json:"weakest_topics"`
	CriticalGaps    []RiskTopic `json:"critical_gaps"`
}

var passBands = []struct {
	margin      float64
	probability int
}{
	{20, 95}, {10, 85}, {5, 70}, {0, 55}, {-5, 35}, {-10, 15},
}

// SimulateExam estimates pass chances for one course as of the snapshot.
func (e *Engine) SimulateExam(snap *study.Snapshot, courseID int64) (ExamToday, error) {
	score, err := e.CourseScore(snap, courseID)
	if err != nil {
		return ExamToday{}, err
	}

	out := ExamToday{
		CourseID:        courseID,
		CourseName:      score.CourseName,
		DaysRemaining:   score.DaysUntilExam,
		EstimatedScore:  score.EstimatedScore,
		PassingScore:    e.cfg.PassingScore,
		PassProbability: 5,
		WillPass:        score.EstimatedScore >= e.cfg.PassingScore,
		WeakestTopics:   []RiskTopic{},
		CriticalGaps:    []RiskTopic{},
	}
	margin := score.EstimatedScore - e.cfg.PassingScore
	for _, b := range passBands {
		if margin >= b.margin {
			out.PassProbability = b.probability
			break
		}
	}
	out.RiskLevel = riskLevel(score.EstimatedScore, score.DaysUntilExam, e.cfg.ImminentDays)

	topics := snap.TopicsByCourse(courseID)
	sort.SliceStable(topics, func(i, j int) bool {
		return topics[i].Weight*(100-topics[i].SkillLevel) > topics[j].Weight*(100-topics[j].SkillLevel)
	})
	for _, t := range topics {
		if t.SkillLevel < e.cfg.LowSkill && len(out.WeakestTopics) < 5 {
			out.WeakestTopics = append(out.WeakestTopics, riskTopic(t, "below the low-skill threshold"))
		}
		if t.Weight > e.cfg.HighRiskWeight && t.SkillLevel < e.cfg.PassingScore && len(out.CriticalGaps) < 3 {
			out.CriticalGaps = append(out.CriticalGaps, riskTopic(t, "heavy topic below the passing score"))
		}
	}
	return out, nil
}

func riskLevel(score float64, days, imminent int) string {
	switch {
	case score >= 75:
		return "LOW"
	case score >= 60 && days > imminent:
		return "MODERATE"
	case score >= 50 && days > 2*imminent:
		return "MODERATE"
	case score >= 40:
		return "HIGH"
	default:
		return "CRITICAL"
	}
}
