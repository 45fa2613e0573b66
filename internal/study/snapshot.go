package study

import (
	"sort"
	"time"
)

// Snapshot is a consistent, read-only view of all courses, topics and
// dependency edges. Planning, scoring and simulation run against one snapshot
// so concurrent edits cannot tear a computation.
type Snapshot struct {
	TakenAt      time.Time
	Courses      []Course
	Topics       []Topic
	Dependencies []Dependency
	Activity     map[int64]Activity

	courseIdx map[int64]int
	topicIdx  map[int64]int
	graph     *Graph
}

// NewSnapshot takes ownership of the given slices, sorts them by id and
// builds lookup indexes.
func NewSnapshot(takenAt time.Time, courses []Course, topics []Topic, deps []Dependency, activity map[int64]Activity) *Snapshot {
	sort.Slice(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })
	sort.Slice(topics, func(i, j int) bool { return topics[i].ID < topics[j].ID })
	if activity == nil {
		activity = make(map[int64]Activity)
	}

	s := &Snapshot{
		TakenAt:      takenAt,
		Courses:      courses,
		Topics:       topics,
		Dependencies: deps,
		Activity:     activity,
	}
	s.reindex()
	return s
}

func (s *Snapshot) reindex() {
	s.courseIdx = make(map[int64]int, len(s.Courses))
	for i, c := range s.Courses {
		s.courseIdx[c.ID] = i
	}
	s.topicIdx = make(map[int64]int, len(s.Topics))
	for i, t := range s.Topics {
		s.topicIdx[t.ID] = i
	}
	s.graph = NewGraph(s.Dependencies)
}

// Course looks up a course by id.
func (s *Snapshot) Course(id int64) (Course, bool) {
	i, ok := s.courseIdx[id]
	if !ok {
		return Course{}, false
	}
	return s.Courses[i], true
}

// Topic looks up a topic by id.
func (s *Snapshot) Topic(id int64) (Topic, bool) {
	i, ok := s.topicIdx[id]
	if !ok {
		return Topic{}, false
	}
	return s.Topics[i], true
}

// TopicsByCourse returns the topics of one course ordered by id.
func (s *Snapshot) TopicsByCourse(courseID int64) []Topic {
	var out []Topic
	for _, t := range s.Topics {
		if t.CourseID == courseID {
			out = append(out, t)
		}
	}
	return out
}

// Graph returns the dependency graph.
func (s *Snapshot) Graph() *Graph {
	return s.graph
}

// Unmet returns the unmet prerequisites of a topic at current skill levels.
func (s *Snapshot) Unmet(topicID int64) []Blocking {
	return s.graph.Unmet(topicID, s.skillOf)
}

func (s *Snapshot) skillOf(id int64) (float64, bool) {
	t, ok := s.Topic(id)
	return t.SkillLevel, ok
}

// Clone returns a deep copy that can be modified for what-if runs without
// touching the original.
func (s *Snapshot) Clone() *Snapshot {
	activity := make(map[int64]Activity, len(s.Activity))
	for k, v := range s.Activity {
		activity[k] = v
	}
	c := &Snapshot{
		TakenAt:      s.TakenAt,
		Courses:      append([]Course(nil), s.Courses...),
		Topics:       append([]Topic(nil), s.Topics...),
		Dependencies: append([]Dependency(nil), s.Dependencies...),
		Activity:     activity,
	}
	c.reindex()
	return c
}

// SetSkill overwrites a topic's skill level in this snapshot only.
func (s *Snapshot) SetSkill(topicID int64, skill float64) {
	if i, ok := s.topicIdx[topicID]; ok {
		s.Topics[i].SkillLevel = Clamp(skill, 0, 100)
	}
}

// ShiftExam moves a course's exam date by days in this snapshot only.
func (s *Snapshot) ShiftExam(courseID int64, days int) bool {
	i, ok := s.courseIdx[courseID]
	if !ok {
		return false
	}
	s.Courses[i].ExamDate = s.Courses[i].ExamDate.AddDate(0, 0, days)
	return true
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
