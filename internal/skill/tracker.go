// Package skill applies skill changes from assessments, quizzes and
// inactivity decay.
package skill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/p-n-ai/pai-planner/internal/decision"
	"github.com/p-n-ai/pai-planner/internal/store"
	"github.com/p-n-ai/pai-planner/internal/study"
)

// Tracker mutates skill levels through the repository so every change is
// recorded in skill history.
type Tracker struct {
	repo store.Repository
	log  decision.Logger
	cfg  Config
	now  func() time.Time

	// decayMu serialises ApplyDecay so overlapping calls cannot both apply
	// the same pending amount.
	decayMu sync.Mutex
}

// NewTracker creates a tracker. A nil logger discards decisions.
func NewTracker(repo store.Repository, log decision.Logger, cfg Config) *Tracker {
	if log == nil {
		log = decision.NopLog{}
	}
	return &Tracker{repo: repo, log: log, cfg: cfg, now: time.Now}
}

// WithClock replaces the tracker's time source. Intended for tests.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// Manual records a self-assessment. Only ManualWeight of the difference
// between the claimed and current skill is applied.
func (t *Tracker) Manual(ctx context.Context, topicID int64, claimed float64, reason string) (study.SkillChange, error) {
	if math.IsNaN(claimed) || claimed < 0 || claimed > 100 {
		return study.SkillChange{}, study.Invalid("new_skill", "must be between 0 and 100")
	}
	if reason == "" {
		reason = "manual self-assessment"
	}
	return t.repo.UpdateSkill(ctx, store.SkillUpdate{
		TopicID: topicID,
		Source:  study.SourceManual,
		Reason:  reason,
		At:      t.now(),
		Apply: func(st store.SkillState) (float64, error) {
			current := st.Topic.SkillLevel
			return current + t.capIncrease((claimed-current)*t.cfg.ManualWeight, st.GainedToday), nil
		},
	})
}

// Quiz records a quiz result. A score at the midpoint leaves skill unchanged.
func (t *Tracker) Quiz(ctx context.Context, topicID int64, score float64, reason string) (study.SkillChange, error) {
	if math.IsNaN(score) || score < 0 || score > 100 {
		return study.SkillChange{}, study.Invalid("quiz_score", "must be between 0 and 100")
	}
	if reason == "" {
		reason = "quiz result"
	}
	delta := (score - t.cfg.QuizMidpoint) * t.cfg.QuizScale * t.cfg.QuizWeight
	return t.repo.UpdateSkill(ctx, store.SkillUpdate{
		TopicID: topicID,
		Source:  study.SourceQuiz,
		Reason:  reason,
		At:      t.now(),
		Apply: func(st store.SkillState) (float64, error) {
			return st.Topic.SkillLevel + t.capIncrease(delta, st.GainedToday), nil
		},
	})
}

// capIncrease limits a positive delta to what remains of today's allowance.
func (t *Tracker) capIncrease(delta, gained float64) float64 {
	if delta <= 0 {
		return delta
	}
	return math.Min(delta, math.Max(0, t.cfg.MaxDailyIncrease-gained))
}

// DecayStatus describes one topic's decay position.
type DecayStatus struct {
	TopicID        int64   `json:"topic_id"`
	TopicName      string  `json:"topic_name"`
	CourseID       int64   `json:"course_id"`
	SkillLevel     float64 `json:"skill_level"`
	DaysInactive   int     `json:"days_inactive"`
	DecayDays      int     `json:"decay_days"`
	TotalDecay     float64 `json:"total_decay"`
	AlreadyDecayed float64 `json:"already_decayed"`
	PendingDecay   float64 `json:"pending_decay"`
	ProjectedSkill float64 `json:"projected_skill"`
	Decaying       bool    `json:"decaying"`
}

// Status computes the decay position of a topic as of now.
func (c Config) Status(now time.Time, t study.Topic, a study.Activity) DecayStatus {
	last := a.LastActive
	if last.IsZero() {
		last = t.CreatedAt
	}
	inactive := study.DaysSince(now, last)
	decayDays := max(0, inactive-c.DecayGraceDays)

	// Skill held at the last activity, before any decay since.
	held := t.SkillLevel + a.DecayedSince
	total := math.Min(held*c.MaxDecayFraction, float64(decayDays)*c.DecayPerDay)
	pending := math.Max(0, math.Min(total-a.DecayedSince, t.SkillLevel))

	return DecayStatus{
		TopicID:        t.ID,
		TopicName:      t.Name,
		CourseID:       t.CourseID,
		SkillLevel:     t.SkillLevel,
		DaysInactive:   inactive,
		DecayDays:      decayDays,
		TotalDecay:     round2(total),
		AlreadyDecayed: round2(a.DecayedSince),
		PendingDecay:   round2(pending),
		ProjectedSkill: round2(t.SkillLevel - pending),
		Decaying:       pending > c.MinDecayChange,
	}
}

// DecayStatus reports the decay position of every topic.
func (t *Tracker) DecayStatus(ctx context.Context) ([]DecayStatus, error) {
	snap, err := t.repo.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	now := t.now()
	out := make([]DecayStatus, 0, len(snap.Topics))
	for _, topic := range snap.Topics {
		out = append(out, t.cfg.Status(now, topic, snap.Activity[topic.ID]))
	}
	return out, nil
}

// DecayResult summarises one ApplyDecay run.
type DecayResult struct {
	Checked int                 `json:"topics_checked"`
	Decayed []study.SkillChange `json:"decayed"`
}

// ApplyDecay lowers the skill of every inactive topic by its pending decay
// and logs a skill_decay decision per change. Running it again on the same
// day finds nothing pending.
func (t *Tracker) ApplyDecay(ctx context.Context) (DecayResult, error) {
	t.decayMu.Lock()
	defer t.decayMu.Unlock()

	snap, err := t.repo.Snapshot(ctx)
	if err != nil {
		return DecayResult{}, fmt.Errorf("snapshot: %w", err)
	}
	now := t.now()

	res := DecayResult{Checked: len(snap.Topics), Decayed: []study.SkillChange{}}
	var entries []decision.Entry
	for _, topic := range snap.Topics {
		pre := t.cfg.Status(now, topic, snap.Activity[topic.ID])
		if !pre.Decaying {
			continue
		}
		// The snapshot may be stale by the time the topic is locked, so the
		// pending amount is recomputed from the locked state.
		var st DecayStatus
		change, err := t.repo.UpdateSkill(ctx, store.SkillUpdate{
			TopicID: topic.ID,
			Source:  study.SourceDecay,
			At:      now,
			Reason:  fmt.Sprintf("skill decay after %d inactive days", pre.DaysInactive),
			Apply: func(locked store.SkillState) (float64, error) {
				st = t.cfg.Status(now, locked.Topic, locked.Activity)
				if !st.Decaying {
					return 0, store.ErrSkillUnchanged
				}
				return math.Max(0, locked.Topic.SkillLevel-st.PendingDecay), nil
			},
		})
		if errors.Is(err, store.ErrSkillUnchanged) || errors.Is(err, study.ErrNotFound) {
			continue
		}
		if err != nil {
			return res, fmt.Errorf("decay topic %d: %w", topic.ID, err)
		}
		res.Decayed = append(res.Decayed, change)

		e := decision.ForTopic(decision.SkillDecay, topic.ID,
			fmt.Sprintf("%s decayed %.2f points after %d days without activity", topic.Name, change.PreviousSkill-change.NewSkill, st.DaysInactive),
			map[string]any{
				"previous_skill": change.PreviousSkill,
				"new_skill":      change.NewSkill,
				"days_inactive":  st.DaysInactive,
				"decay_days":     st.DecayDays,
				"total_decay":    st.TotalDecay,
				"rate_per_day":   t.cfg.DecayPerDay,
			})
		e.Timestamp = now
		entries = append(entries, e)
	}

	if len(entries) > 0 {
		if err := t.log.Append(ctx, entries...); err != nil {
			slog.Warn("decision log append failed", "type", decision.SkillDecay, "entries", len(entries), "error", err)
		}
	}
	slog.Info("skill decay applied", "checked", res.Checked, "decayed", len(res.Decayed))
	return res, nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
