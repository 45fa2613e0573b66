package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/p-n-ai/pai-planner/internal/platform/cache"
	"github.com/p-n-ai/pai-planner/internal/study"
)

// serveAnalytics renders compute's result with an ETag. With a cache
// configured the encoded body is memoised per data generation and calendar
// day, so any write or a date change produces a fresh result.
func (s *Server) serveAnalytics(w http.ResponseWriter, r *http.Request, name string, compute func(*study.Snapshot) (any, error)) {
	ctx := r.Context()

	var key string
	if s.cache != nil {
		gen, err := s.cache.Generation(ctx)
		if err != nil {
			slog.Warn("cache generation unavailable", "request_id", RequestID(ctx), "error", err)
		} else {
			key = cache.Key("analytics", name, strconv.FormatInt(gen, 10), r.URL.RawQuery, s.now().UTC().Format(time.DateOnly))
			var body json.RawMessage
			hit, err := s.cache.GetJSON(ctx, key, &body)
			if err != nil {
				slog.Warn("cache read failed", "key", key, "error", err)
			} else if hit {
				writeBody(w, r, body)
				return
			}
		}
	}

	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := compute(snap)
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, err := json.Marshal(v)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if key != "" {
		if err := s.cache.SetJSON(ctx, key, json.RawMessage(body), s.ttl); err != nil {
			slog.Warn("cache write failed", "key", key, "error", err)
		}
	}
	writeBody(w, r, body)
}

func writeBody(w http.ResponseWriter, r *http.Request, body []byte) {
	tag := cache.ETag(body)
	w.Header().Set("ETag", tag)
	w.Header().Set("Cache-Control", "no-cache")
	if r.Header.Get("If-None-Match") == tag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (s *Server) handleExpectedScores(w http.ResponseWriter, r *http.Request) {
	s.serveAnalytics(w, r, "expected-scores", func(snap *study.Snapshot) (any, error) {
		return s.scoring.ExpectedScores(snap), nil
	})
}

func (s *Server) handleRisks(w http.ResponseWriter, r *http.Request) {
	s.serveAnalytics(w, r, "risks", func(snap *study.Snapshot) (any, error) {
		return s.scoring.Risks(snap), nil
	})
}

func (s *Server) handleWeakTopics(w http.ResponseWriter, r *http.Request) {
	s.serveAnalytics(w, r, "weak-topics", func(snap *study.Snapshot) (any, error) {
		return s.scoring.WeakTopics(snap, s.planner.Urgency), nil
	})
}

func (s *Server) handleCourseValidation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.serveAnalytics(w, r, "validation/"+strconv.FormatInt(id, 10), func(snap *study.Snapshot) (any, error) {
		return s.scoring.ValidateCourseWeights(snap, id)
	})
}

func (s *Server) handleExamSimulation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.serveAnalytics(w, r, "exam-simulation/"+strconv.FormatInt(id, 10), func(snap *study.Snapshot) (any, error) {
		return s.scoring.SimulateExam(snap, id)
	})
}

func (s *Server) handleReprioritization(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.serveAnalytics(w, r, "reprioritization/"+strconv.FormatInt(id, 10), func(snap *study.Snapshot) (any, error) {
		return s.scoring.Reprioritize(snap, id)
	})
}
