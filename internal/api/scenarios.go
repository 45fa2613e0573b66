package api

import (
	"net/http"

	"github.com/p-n-ai/pai-planner/internal/scenario"
)

type simulateRequest struct {
	ScenarioType string          `json:"scenario_type"`
	Params       scenario.Params `json:"params"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := decodeBody(w, r, simulateSchema, &req); err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := s.repo.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.sim.Simulate(snap, req.ScenarioType, req.Params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type compareRequest struct {
	AvailableHours float64 `json:"available_hours"`
	Adaptive       bool    `json:"adaptive"`
}

func (s *Server) handleCompareStrategies(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := decodeBody(w, r, compareSchema, &req); err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := s.repo.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.sim.CompareStrategies(r.Context(), snap, req.AvailableHours, req.Adaptive)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSkipSuggestions(w http.ResponseWriter, r *http.Request) {
	hours, err := queryFloat(r, "available_hours")
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
	res, err := s.sim.SkipSuggestions(snap, hours, adaptive)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
