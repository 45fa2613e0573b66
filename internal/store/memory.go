package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/p-n-ai/pai-planner/internal/study"
)

// MemoryStore is an in-memory Repository.
type MemoryStore struct {
	mu           sync.RWMutex
	courses      map[int64]study.Course
	topics       map[int64]study.Topic
	dependencies map[int64]study.Dependency
	history      []study.SkillChange
	nextID       map[string]int64
	now          func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		courses:      make(map[int64]study.Course),
		topics:       make(map[int64]study.Topic),
		dependencies: make(map[int64]study.Dependency),
		history:      []study.SkillChange{},
		nextID:       make(map[string]int64),
		now:          time.Now,
	}
}

// WithClock replaces the store's time source. Intended for tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) id(kind string) int64 {
	s.nextID[kind]++
	return s.nextID[kind]
}

func (s *MemoryStore) Snapshot(_ context.Context) (*study.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	courses := make([]study.Course, 0, len(s.courses))
	for _, c := range s.courses {
		courses = append(courses, c)
	}
	topics := make([]study.Topic, 0, len(s.topics))
	activity := make(map[int64]study.Activity, len(s.topics))
	for _, t := range s.topics {
		topics = append(topics, t)
		activity[t.ID] = study.Activity{LastActive: t.CreatedAt}
	}
	deps := make([]study.Dependency, 0, len(s.dependencies))
	for _, d := range s.dependencies {
		deps = append(deps, d)
	}

	for _, h := range s.history {
		if a, ok := activity[h.TopicID]; ok {
			activity[h.TopicID] = foldActivity(a, h)
		}
	}

	return study.NewSnapshot(s.now(), courses, topics, deps, activity), nil
}

// foldActivity advances a topic's activity by one history entry. History is
// in append order; a non-decay change resets the decay tally.
func foldActivity(a study.Activity, h study.SkillChange) study.Activity {
	if h.Source == study.SourceDecay {
		if !h.Timestamp.Before(a.LastActive) {
			a.DecayedSince += h.PreviousSkill - h.NewSkill
		}
	} else if !h.Timestamp.Before(a.LastActive) {
		a.LastActive = h.Timestamp
		a.DecayedSince = 0
	}
	return a
}

func (s *MemoryStore) ListCourses(_ context.Context) ([]study.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]study.Course, 0, len(s.courses))
	for _, c := range s.courses {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetCourse(_ context.Context, id int64) (study.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.courses[id]
	if !ok {
		return study.Course{}, study.NotFound("course", id)
	}
	return c, nil
}

func (s *MemoryStore) CreateCourse(_ context.Context, c study.Course) (study.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = s.id("course")
	c.Name = study.NormalizeName(c.Name)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	s.courses[c.ID] = c
	return c, nil
}

func (s *MemoryStore) UpdateCourse(_ context.Context, c study.Course) (study.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.courses[c.ID]
	if !ok {
		return study.Course{}, study.NotFound("course", c.ID)
	}
	existing.Name = study.NormalizeName(c.Name)
	existing.ExamDate = c.ExamDate
	s.courses[c.ID] = existing
	return existing, nil
}

func (s *MemoryStore) DeleteCourse(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.courses[id]; !ok {
		return study.NotFound("course", id)
	}
	for tid, t := range s.topics {
		if t.CourseID == id {
			s.deleteTopicLocked(tid)
		}
	}
	delete(s.courses, id)
	return nil
}

func (s *MemoryStore) ListTopics(_ context.Context, courseID int64) ([]study.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.courses[courseID]; !ok {
		return nil, study.NotFound("course", courseID)
	}
	out := []study.Topic{}
	for _, t := range s.topics {
		if t.CourseID == courseID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetTopic(_ context.Context, id int64) (study.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.topics[id]
	if !ok {
		return study.Topic{}, study.NotFound("topic", id)
	}
	return t, nil
}

func (s *MemoryStore) CreateTopic(_ context.Context, t study.Topic) (study.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.courses[t.CourseID]; !ok {
		return study.Topic{}, study.NotFound("course", t.CourseID)
	}
	t.Name = study.NormalizeName(t.Name)
	if s.nameTakenLocked(t.CourseID, t.Name, 0) {
		return study.Topic{}, study.Conflict("topic %q already exists in course %d", t.Name, t.CourseID)
	}
	t.ID = s.id("topic")
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	s.topics[t.ID] = t
	return t, nil
}

func (s *MemoryStore) UpdateTopic(_ context.Context, t study.Topic) (study.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.topics[t.ID]
	if !ok {
		return study.Topic{}, study.NotFound("topic", t.ID)
	}
	name := study.NormalizeName(t.Name)
	if s.nameTakenLocked(existing.CourseID, name, t.ID) {
		return study.Topic{}, study.Conflict("topic %q already exists in course %d", name, existing.CourseID)
	}

	existing.Name = name
	existing.Weight = t.Weight
	s.topics[t.ID] = existing
	return existing, nil
}

func (s *MemoryStore) DeleteTopic(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.topics[id]; !ok {
		return study.NotFound("topic", id)
	}
	s.deleteTopicLocked(id)
	return nil
}

func (s *MemoryStore) deleteTopicLocked(id int64) {
	delete(s.topics, id)
	for did, d := range s.dependencies {
		if d.PrerequisiteTopicID == id || d.DependentTopicID == id {
			delete(s.dependencies, did)
		}
	}
	kept := s.history[:0]
	for _, h := range s.history {
		if h.TopicID != id {
			kept = append(kept, h)
		}
	}
	s.history = kept
}

func (s *MemoryStore) nameTakenLocked(courseID int64, name string, exceptID int64) bool {
	key := study.NameKey(name)
	for _, t := range s.topics {
		if t.CourseID == courseID && t.ID != exceptID && study.NameKey(t.Name) == key {
			return true
		}
	}
	return false
}

func (s *MemoryStore) ListDependencies(_ context.Context) ([]study.Dependency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]study.Dependency, 0, len(s.dependencies))
	for _, d := range s.dependencies {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) CreateDependency(_ context.Context, d study.Dependency) (study.Dependency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.topics[d.PrerequisiteTopicID]; !ok {
		return study.Dependency{}, study.Invalid("prerequisite_topic_id", "topic %d does not exist", d.PrerequisiteTopicID)
	}
	if _, ok := s.topics[d.DependentTopicID]; !ok {
		return study.Dependency{}, study.Invalid("dependent_topic_id", "topic %d does not exist", d.DependentTopicID)
	}

	edges := make([]study.Dependency, 0, len(s.dependencies))
	for _, e := range s.dependencies {
		if e.PrerequisiteTopicID == d.PrerequisiteTopicID && e.DependentTopicID == d.DependentTopicID {
			return study.Dependency{}, study.Conflict("dependency %d -> %d already exists", d.PrerequisiteTopicID, d.DependentTopicID)
		}
		edges = append(edges, e)
	}
	if study.NewGraph(edges).WouldCycle(d.PrerequisiteTopicID, d.DependentTopicID) {
		return study.Dependency{}, study.Conflict("dependency %d -> %d would create a cycle", d.PrerequisiteTopicID, d.DependentTopicID)
	}

	d.ID = s.id("dependency")
	s.dependencies[d.ID] = d
	return d, nil
}

func (s *MemoryStore) DeleteDependency(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.dependencies[id]; !ok {
		return study.NotFound("dependency", id)
	}
	delete(s.dependencies, id)
	return nil
}

func (s *MemoryStore) UpdateSkill(_ context.Context, u SkillUpdate) (study.SkillChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.topics[u.TopicID]
	if !ok {
		return study.SkillChange{}, study.NotFound("topic", u.TopicID)
	}
	at := u.At
	if at.IsZero() {
		at = s.now()
	}

	dayStart := StartOfDay(at)
	state := SkillState{Topic: t, Activity: study.Activity{LastActive: t.CreatedAt}}
	for _, h := range s.history {
		if h.TopicID != u.TopicID {
			continue
		}
		state.Activity = foldActivity(state.Activity, h)
		if !h.Timestamp.Before(dayStart) && h.NewSkill > h.PreviousSkill {
			state.GainedToday += h.NewSkill - h.PreviousSkill
		}
	}

	next, err := u.Apply(state)
	if err != nil {
		return study.SkillChange{}, err
	}
	next = study.Clamp(next, 0, 100)

	change := s.appendHistoryLocked(study.SkillChange{
		TopicID:       u.TopicID,
		Timestamp:     at,
		PreviousSkill: t.SkillLevel,
		NewSkill:      next,
		Reason:        u.Reason,
		Source:        u.Source,
	})
	t.SkillLevel = next
	s.topics[u.TopicID] = t
	return change, nil
}

func (s *MemoryStore) appendHistoryLocked(h study.SkillChange) study.SkillChange {
	h.ID = s.id("history")
	s.history = append(s.history, h)
	return h
}

func (s *MemoryStore) SkillHistory(_ context.Context, topicID int64, limit int) ([]study.SkillChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.topics[topicID]; !ok {
		return nil, study.NotFound("topic", topicID)
	}
	out := []study.SkillChange{}
	for i := len(s.history) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		if s.history[i].TopicID == topicID {
			out = append(out, s.history[i])
		}
	}
	return out, nil
}
