package api

import (
	"net/http"

	"github.com/p-n-ai/pai-planner/internal/study"
)

type skillRequest struct {
	Source    study.SkillSource `json:"source"`
	NewSkill  *float64          `json:"new_skill"`
	QuizScore *float64          `json:"quiz_score"`
	Reason    string            `json:"reason"`
}

func (s *Server) handleUpdateSkill(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req skillRequest
	if err := decodeBody(w, r, skillSchema, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var change study.SkillChange
	switch req.Source {
	case study.SourceQuiz:
		if req.QuizScore == nil {
			writeError(w, r, study.Invalid("quiz_score", "is required for quiz updates"))
			return
		}
		change, err = s.skill.Quiz(r.Context(), id, *req.QuizScore, req.Reason)
	default:
		if req.NewSkill == nil {
			writeError(w, r, study.Invalid("new_skill", "is required for manual updates"))
			return
		}
		change, err = s.skill.Manual(r.Context(), id, *req.NewSkill, req.Reason)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidate(r.Context())
	writeJSON(w, http.StatusOK, change)
}

func (s *Server) handleSkillHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryLimit(r, 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := s.repo.GetTopic(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	history, err := s.repo.SkillHistory(r.Context(), id, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleApplyDecay(w http.ResponseWriter, r *http.Request) {
	res, err := s.skill.ApplyDecay(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(res.Decayed) > 0 {
		s.invalidate(r.Context())
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDecayStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.skill.DecayStatus(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
