package api

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/p-n-ai/pai-planner/internal/export"
	"github.com/p-n-ai/pai-planner/internal/planner"
)

type planRequest struct {
	Hours     float64          `json:"hours"`
	Adaptive  bool             `json:"adaptive"`
	Strategy  planner.Strategy `json:"strategy"`
	MinWeight float64          `json:"min_weight"`
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := decodeBody(w, r, planSchema, &req); err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := s.repo.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	plan, err := s.planner.Plan(snap, planner.Request{
		Hours:     req.Hours,
		Adaptive:  req.Adaptive,
		Strategy:  req.Strategy,
		MinWeight: req.MinWeight,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.recordDecisions(r.Context(), plan.Decisions)
	slog.Info("plan generated",
		"request_id", RequestID(r.Context()),
		"hours", req.Hours,
		"adaptive", req.Adaptive,
		"topics", len(plan.AllocatedTopics),
		"allocated", plan.TotalAllocated,
	)
	writeJSON(w, http.StatusOK, plan)
}

// handleExport renders the plan for ?hours= and the current expected scores
// as a workbook. It does not record decisions.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	hours, err := queryFloat(r, "hours")
	if err != nil {
		writeError(w, r, err)
		return
	}
	adaptive, err := queryBool(r, "adaptive")
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := s.repo.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	plan, err := s.planner.Plan(snap, planner.Request{
		Hours:    hours,
		Adaptive: adaptive,
		Strategy: planner.Strategy(r.URL.Query().Get("strategy")),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, plan, s.scoring.ExpectedScores(snap), snap.TakenAt); err != nil {
		writeError(w, r, fmt.Errorf("exporting plan: %w", err))
		return
	}
	name := fmt.Sprintf("study-plan-%s.xlsx", snap.TakenAt.Format("2006-01-02"))
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
