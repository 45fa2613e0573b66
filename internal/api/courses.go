package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/p-n-ai/pai-planner/internal/study"
)

type courseRequest struct {
	Name     string `json:"name"`
	ExamDate string `json:"exam_date"`
}

func (c courseRequest) course(now time.Time) (study.Course, error) {
	exam, err := parseDate(c.ExamDate)
	if err != nil {
		return study.Course{}, err
	}
	course := study.Course{Name: study.NormalizeName(c.Name), ExamDate: exam}
	if err := study.ValidateCourse(course, now); err != nil {
		return study.Course{}, err
	}
	return course, nil
}

// parseDate accepts RFC 3339 timestamps and plain dates. Plain dates are
// read as midnight UTC.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, study.Invalid("exam_date", "must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
}

// invalidate advances the cache generation after a write so cached
// analytics are recomputed.
func (s *Server) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Bump(ctx); err != nil {
		slog.Warn("failed to invalidate analytics cache", "request_id", RequestID(ctx), "error", err)
	}
}

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := s.repo.ListCourses(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, courses)
}

func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	var req courseRequest
	if err := decodeBody(w, r, courseSchema, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := req.course(s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.repo.CreateCourse(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidate(r.Context())
	slog.Info("course created", "course_id", created.ID, "request_id", RequestID(r.Context()))
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.repo.GetCourse(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleUpdateCourse(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req courseRequest
	if err := decodeBody(w, r, courseSchema, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := req.course(s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	c.ID = id
	updated, err := s.repo.UpdateCourse(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidate(r.Context())
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteCourse(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.repo.DeleteCourse(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidate(r.Context())
	slog.Info("course deleted", "course_id", id, "request_id", RequestID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTopics(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := s.repo.GetCourse(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	topics, err := s.repo.ListTopics(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, topics)
}

type topicRequest struct {
	CourseID   int64   `json:"course_id"`
	Name       string  `json:"name"`
	Weight     float64 `json:"weight"`
	SkillLevel float64 `json:"skill_level"`
}

func (s *Server) handleCreateTopic(w http.ResponseWriter, r *http.Request) {
	var req topicRequest
	if err := decodeBody(w, r, topicSchema, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t := study.Topic{
		CourseID:   req.CourseID,
		Name:       study.NormalizeName(req.Name),
		Weight:     req.Weight,
		SkillLevel: req.SkillLevel,
	}
	if err := study.ValidateTopic(t); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.repo.CreateTopic(r.Context(), t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidate(r.Context())
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetTopic(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.repo.GetTopic(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type topicUpdateRequest struct {
	Name       *string  `json:"name"`
	Weight     *float64 `json:"weight"`
	SkillLevel *float64 `json:"skill_level"`
}

// handleUpdateTopic edits name and weight directly. A skill_level is a
// self-assessment and goes through the skill tracker like any manual update.
func (s *Server) handleUpdateTopic(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req topicUpdateRequest
	if err := decodeBody(w, r, topicUpdateSchema, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()
	t, err := s.repo.GetTopic(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if req.Name != nil || req.Weight != nil {
		if req.Name != nil {
			t.Name = study.NormalizeName(*req.Name)
		}
		if req.Weight != nil {
			t.Weight = *req.Weight
		}
		if err := study.ValidateTopic(t); err != nil {
			writeError(w, r, err)
			return
		}
		if t, err = s.repo.UpdateTopic(ctx, t); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if req.SkillLevel != nil {
		change, err := s.skill.Manual(ctx, id, *req.SkillLevel, "topic edit")
		if err != nil {
			writeError(w, r, err)
			return
		}
		t.SkillLevel = change.NewSkill
	}
	s.invalidate(ctx)
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTopic(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.repo.DeleteTopic(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidate(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
