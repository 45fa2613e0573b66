// Package api serves the planner, scoring engine, scenario simulator and
// CRUD surface over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/p-n-ai/pai-planner/internal/decision"
	"github.com/p-n-ai/pai-planner/internal/planner"
	"github.com/p-n-ai/pai-planner/internal/scenario"
	"github.com/p-n-ai/pai-planner/internal/scoring"
	"github.com/p-n-ai/pai-planner/internal/skill"
	"github.com/p-n-ai/pai-planner/internal/store"
	"github.com/p-n-ai/pai-planner/internal/tuning"
)

// Cache memoises analytics responses. *cache.Cache satisfies it.
type Cache interface {
	Generation(ctx context.Context) (int64, error)
	Bump(ctx context.Context) (int64, error)
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
}

// Deps are the collaborators a Server needs. Repo is required; a nil Log
// discards decisions, a nil Hub disables streaming and a nil Cache disables
// response caching.
type Deps struct {
	Repo     store.Repository
	Log      decision.Logger
	Hub      *decision.Hub
	Cache    Cache
	CacheTTL time.Duration
	Tuning   tuning.Tuning
	Now      func() time.Time
}

// Server holds the HTTP handlers.
type Server struct {
	repo  store.Repository
	log   decision.Logger
	hub   *decision.Hub
	cache Cache
	ttl   time.Duration
	now   func() time.Time

	planner *planner.Planner
	scoring *scoring.Engine
	sim     *scenario.Simulator
	skill   *skill.Tracker
}

// New builds a Server.
func New(d Deps) *Server {
	if d.Log == nil {
		d.Log = decision.NopLog{}
		if d.Hub != nil {
			d.Log = d.Hub
		}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.CacheTTL <= 0 {
		d.CacheTTL = 5 * time.Minute
	}

	p := planner.New(d.Tuning.Planner)
	sc := scoring.New(d.Tuning.Scoring)
	return &Server{
		repo:    d.Repo,
		log:     d.Log,
		hub:     d.Hub,
		cache:   d.Cache,
		ttl:     d.CacheTTL,
		now:     d.Now,
		planner: p,
		scoring: sc,
		sim:     scenario.New(p, sc, d.Tuning.Scenario),
		skill:   skill.NewTracker(d.Repo, d.Log, d.Tuning.Skill).WithClock(d.Now),
	}
}

// Register adds every API route to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/courses", s.handleListCourses)
	mux.HandleFunc("POST /api/courses", s.handleCreateCourse)
	mux.HandleFunc("GET /api/courses/{id}", s.handleGetCourse)
	mux.HandleFunc("PUT /api/courses/{id}", s.handleUpdateCourse)
	mux.HandleFunc("DELETE /api/courses/{id}", s.handleDeleteCourse)
	mux.HandleFunc("GET /api/courses/{id}/topics", s.handleListTopics)
	mux.HandleFunc("GET /api/courses/{id}/validation", s.handleCourseValidation)
	mux.HandleFunc("GET /api/courses/{id}/exam-simulation", s.handleExamSimulation)
	mux.HandleFunc("GET /api/courses/{id}/reprioritization", s.handleReprioritization)

	mux.HandleFunc("POST /api/topics", s.handleCreateTopic)
	mux.HandleFunc("GET /api/topics/{id}", s.handleGetTopic)
	mux.HandleFunc("PUT /api/topics/{id}", s.handleUpdateTopic)
	mux.HandleFunc("DELETE /api/topics/{id}", s.handleDeleteTopic)
	mux.HandleFunc("GET /api/topics/{id}/history", s.handleSkillHistory)
	mux.HandleFunc("POST /api/topics/{id}/skill", s.handleUpdateSkill)
	mux.HandleFunc("GET /api/topics/{id}/prerequisites", s.handlePrerequisites)
	mux.HandleFunc("GET /api/topics/{id}/learning-path", s.handleLearningPath)

	mux.HandleFunc("GET /api/dependencies", s.handleListDependencies)
	mux.HandleFunc("POST /api/dependencies", s.handleCreateDependency)
	mux.HandleFunc("DELETE /api/dependencies/{id}", s.handleDeleteDependency)

	mux.HandleFunc("POST /api/plan", s.handlePlan)
	mux.HandleFunc("GET /api/plan/export", s.handleExport)

	mux.HandleFunc("GET /api/analytics/expected-scores", s.handleExpectedScores)
	mux.HandleFunc("GET /api/analytics/risks", s.handleRisks)
	mux.HandleFunc("GET /api/analytics/weak-topics", s.handleWeakTopics)

	mux.HandleFunc("POST /api/scenarios/simulate", s.handleSimulate)
	mux.HandleFunc("POST /api/scenarios/compare-strategies", s.handleCompareStrategies)
	mux.HandleFunc("GET /api/scenarios/skip-suggestions", s.handleSkipSuggestions)

	mux.HandleFunc("GET /api/decision-logs", s.handleRecentDecisions)
	mux.HandleFunc("GET /api/decision-logs/type/{type}", s.handleDecisionsByType)
	mux.HandleFunc("GET /api/decision-logs/topic/{id}", s.handleDecisionsByTopic)
	mux.HandleFunc("GET /api/decision-logs/stream", s.handleDecisionStream)

	mux.HandleFunc("POST /api/skill-decay/apply", s.handleApplyDecay)
	mux.HandleFunc("GET /api/skill-decay/status", s.handleDecayStatus)
}

// Handler returns the routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return WithRequestLog(mux)
}

// recordDecisions appends entries without failing the caller.
func (s *Server) recordDecisions(ctx context.Context, entries []decision.Entry) {
	if len(entries) == 0 {
		return
	}
	if err := s.log.Append(ctx, entries...); err != nil {
		slog.Warn("failed to record decisions", "count", len(entries), "request_id", RequestID(ctx), "error", err)
	}
}
