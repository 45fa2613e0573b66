package api

import (
	"net/http"

	"github.com/p-n-ai/pai-planner/internal/study"
)

type graphNode struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	CourseID   int64   `json:"course_id"`
	SkillLevel float64 `json:"skill_level"`
	Weight     float64 `json:"weight"`
}

type graphEdge struct {
	ID                int64   `json:"id"`
	Source            int64   `json:"source"`
	Target            int64   `json:"target"`
	MinSkillThreshold float64 `json:"min_skill_threshold"`
	Satisfied         bool    `json:"satisfied"`
}

type graphResponse struct {
	Nodes []graphNode `json:"nodes"`
	Edges []graphEdge `json:"edges"`
}

func (s *Server) handleListDependencies(w http.ResponseWriter, r *http.Request) {
	snap, err := s.repo.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := graphResponse{Nodes: []graphNode{}, Edges: []graphEdge{}}
	for _, t := range snap.Topics {
		resp.Nodes = append(resp.Nodes, graphNode{ID: t.ID, Name: t.Name, CourseID: t.CourseID, SkillLevel: t.SkillLevel, Weight: t.Weight})
	}
	for _, d := range snap.Graph().Edges() {
		prereq, _ := snap.Topic(d.PrerequisiteTopicID)
		resp.Edges = append(resp.Edges, graphEdge{
			ID:                d.ID,
			Source:            d.PrerequisiteTopicID,
			Target:            d.DependentTopicID,
			MinSkillThreshold: d.MinSkillThreshold,
			Satisfied:         prereq.SkillLevel >= d.MinSkillThreshold,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type dependencyRequest struct {
	PrerequisiteTopicID int64    `json:"prerequisite_topic_id"`
	DependentTopicID    int64    `json:"dependent_topic_id"`
	MinSkillThreshold   *float64 `json:"min_skill_threshold"`
}

func (s *Server) handleCreateDependency(w http.ResponseWriter, r *http.Request) {
	var req dependencyRequest
	if err := decodeBody(w, r, dependencySchema, &req); err != nil {
		writeError(w, r, err)
		return
	}
	d := study.Dependency{
		PrerequisiteTopicID: req.PrerequisiteTopicID,
		DependentTopicID:    req.DependentTopicID,
		MinSkillThreshold:   study.DefaultMinSkillThreshold,
	}
	if req.MinSkillThreshold != nil {
		d.MinSkillThreshold = *req.MinSkillThreshold
	}
	if err := study.ValidateDependency(d); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.repo.CreateDependency(r.Context(), d)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidate(r.Context())
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteDependency(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.repo.DeleteDependency(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidate(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

type prerequisiteStatus struct {
	DependencyID      int64   `json:"dependency_id"`
	TopicID           int64   `json:"prerequisite_topic_id"`
	TopicName         string  `json:"prerequisite_name"`
	CurrentSkill      float64 `json:"current_skill"`
	MinSkillThreshold float64 `json:"min_skill_threshold"`
	Satisfied         bool    `json:"satisfied"`
}

type prerequisitesResponse struct {
	TopicID       int64                `json:"topic_id"`
	AllSatisfied  bool                 `json:"all_satisfied"`
	Prerequisites []prerequisiteStatus `json:"prerequisites"`
}

func (s *Server) handlePrerequisites(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := s.repo.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, ok := snap.Topic(id); !ok {
		writeError(w, r, study.NotFound("topic", id))
		return
	}

	resp := prerequisitesResponse{TopicID: id, AllSatisfied: true, Prerequisites: []prerequisiteStatus{}}
	for _, d := range snap.Graph().Prerequisites(id) {
		p, _ := snap.Topic(d.PrerequisiteTopicID)
		ok := p.SkillLevel >= d.MinSkillThreshold
		resp.AllSatisfied = resp.AllSatisfied && ok
		resp.Prerequisites = append(resp.Prerequisites, prerequisiteStatus{
			DependencyID:      d.ID,
			TopicID:           p.ID,
			TopicName:         p.Name,
			CurrentSkill:      p.SkillLevel,
			MinSkillThreshold: d.MinSkillThreshold,
			Satisfied:         ok,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLearningPath(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := s.repo.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, ok := snap.Topic(id); !ok {
		writeError(w, r, study.NotFound("topic", id))
		return
	}

	path := []study.Topic{}
	for _, tid := range snap.Graph().LearningPath(id) {
		if t, ok := snap.Topic(tid); ok {
			path = append(path, t)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"topic_id": id, "path": path})
}
