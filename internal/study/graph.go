package study

import "sort"

// Graph is the prerequisite graph with edges indexed by both endpoints so
// satisfaction checks touch only a topic's own edges.
type Graph struct {
	edges        []Dependency
	prereqsOf    map[int64][]Dependency // dependent id -> incoming edges
	dependentsOf map[int64][]Dependency // prerequisite id -> outgoing edges
}

// Blocking describes one unmet prerequisite edge.
type Blocking struct {
	DependencyID   int64   `json:"dependency_id"`
	PrerequisiteID int64   `json:"prerequisite_id"`
	CurrentSkill   float64 `json:"current_skill"`
	RequiredSkill  float64 `json:"required_skill"`
}

// Gap is how far the prerequisite is below its threshold.
func (b Blocking) Gap() float64 {
	return b.RequiredSkill - b.CurrentSkill
}

// NewGraph indexes deps. Edges are ordered by id for deterministic traversal.
func NewGraph(deps []Dependency) *Graph {
	edges := append([]Dependency(nil), deps...)
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })

	g := &Graph{
		edges:        edges,
		prereqsOf:    make(map[int64][]Dependency),
		dependentsOf: make(map[int64][]Dependency),
	}
	for _, d := range edges {
		g.prereqsOf[d.DependentTopicID] = append(g.prereqsOf[d.DependentTopicID], d)
		g.dependentsOf[d.PrerequisiteTopicID] = append(g.dependentsOf[d.PrerequisiteTopicID], d)
	}
	return g
}

// Edges returns all edges ordered by id.
func (g *Graph) Edges() []Dependency {
	return append([]Dependency(nil), g.edges...)
}

// Prerequisites returns the edges into topicID.
func (g *Graph) Prerequisites(topicID int64) []Dependency {
	return g.prereqsOf[topicID]
}

// Dependents returns the edges out of topicID.
func (g *Graph) Dependents(topicID int64) []Dependency {
	return g.dependentsOf[topicID]
}

// Unmet returns the prerequisite edges of topicID whose prerequisite skill is
// below threshold. skill reports a topic's current level; edges to unknown
// topics are ignored.
func (g *Graph) Unmet(topicID int64, skill func(int64) (float64, bool)) []Blocking {
	var out []Blocking
	for _, d := range g.prereqsOf[topicID] {
		current, ok := skill(d.PrerequisiteTopicID)
		if !ok || current >= d.MinSkillThreshold {
			continue
		}
		out = append(out, Blocking{
			DependencyID:   d.ID,
			PrerequisiteID: d.PrerequisiteTopicID,
			CurrentSkill:   current,
			RequiredSkill:  d.MinSkillThreshold,
		})
	}
	return out
}

// WouldCycle reports whether adding prerequisite -> dependent closes a cycle,
// i.e. whether dependent already reaches prerequisite.
func (g *Graph) WouldCycle(prerequisite, dependent int64) bool {
	if prerequisite == dependent {
		return true
	}
	visited := make(map[int64]bool)
	stack := []int64{dependent}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == prerequisite {
			return true
		}
		if visited[n] {
			continue
		}
		visited[n] = true
		for _, d := range g.dependentsOf[n] {
			stack = append(stack, d.DependentTopicID)
		}
	}
	return false
}

// LearningPath returns target and all of its transitive prerequisites,
// prerequisites first.
func (g *Graph) LearningPath(target int64) []int64 {
	visited := make(map[int64]bool)
	var path []int64
	var visit func(int64)
	visit = func(id int64) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, d := range g.prereqsOf[id] {
			visit(d.PrerequisiteTopicID)
		}
		path = append(path, id)
	}
	visit(target)
	return path
}
