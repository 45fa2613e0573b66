package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/pai-planner/internal/study"
)

const (
	dbTimeout      = 5 * time.Second
	uniqueViolated = "23505"
)

// PostgresStore is a PostgreSQL-backed Repository implementation.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresStore creates a store on an already migrated pool.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool, now: time.Now}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

const (
	courseColumns     = `id, name, exam_date, created_at`
	topicColumns      = `id, course_id, name, weight, skill_level, created_at`
	dependencyColumns = `id, prerequisite_topic_id, dependent_topic_id, min_skill_threshold`
	historyColumns    = `id, topic_id, recorded_at, previous_skill, new_skill, reason, source`
)

func scanCourse(row scanner) (study.Course, error) {
	var c study.Course
	err := row.Scan(&c.ID, &c.Name, &c.ExamDate, &c.CreatedAt)
	return c, err
}

func scanTopic(row scanner) (study.Topic, error) {
	var t study.Topic
	err := row.Scan(&t.ID, &t.CourseID, &t.Name, &t.Weight, &t.SkillLevel, &t.CreatedAt)
	return t, err
}

func scanDependency(row scanner) (study.Dependency, error) {
	var d study.Dependency
	err := row.Scan(&d.ID, &d.PrerequisiteTopicID, &d.DependentTopicID, &d.MinSkillThreshold)
	return d, err
}

func scanHistory(row scanner) (study.SkillChange, error) {
	var h study.SkillChange
	var source string
	err := row.Scan(&h.ID, &h.TopicID, &h.Timestamp, &h.PreviousSkill, &h.NewSkill, &h.Reason, &source)
	h.Source = study.SkillSource(source)
	return h, err
}

func collect[T any](rows pgx.Rows, scan func(scanner) (T, error)) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const activityQuery = `
WITH last_active AS (
    SELECT t.id AS topic_id,
           GREATEST(t.created_at,
                    COALESCE(MAX(h.recorded_at) FILTER (WHERE h.source <> 'decay'), t.created_at)) AS at
    FROM topics t
    LEFT JOIN skill_history h ON h.topic_id = t.id
    GROUP BY t.id, t.created_at
)
SELECT la.topic_id, la.at,
       COALESCE((SELECT SUM(h.previous_skill - h.new_skill)
                 FROM skill_history h
                 WHERE h.topic_id = la.topic_id AND h.source = 'decay' AND h.recorded_at >= la.at), 0)
FROM last_active la`

func (s *PostgresStore) Snapshot(ctx context.Context) (*study.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	courses, err := listCourses(ctx, tx)
	if err != nil {
		return nil, err
	}
	topics, err := listTopics(ctx, tx, `SELECT `+topicColumns+` FROM topics ORDER BY id`)
	if err != nil {
		return nil, err
	}
	deps, err := listDependencies(ctx, tx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, activityQuery)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	activity := make(map[int64]study.Activity, len(topics))
	for rows.Next() {
		var id int64
		var a study.Activity
		if err := rows.Scan(&id, &a.LastActive, &a.DecayedSince); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		activity[id] = a
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity: %w", err)
	}

	return study.NewSnapshot(s.now(), courses, topics, deps, activity), nil
}

func listCourses(ctx context.Context, q querier) ([]study.Course, error) {
	rows, err := q.Query(ctx, `SELECT `+courseColumns+` FROM courses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query courses: %w", err)
	}
	courses, err := collect(rows, scanCourse)
	if err != nil {
		return nil, fmt.Errorf("scan courses: %w", err)
	}
	return courses, nil
}

func listTopics(ctx context.Context, q querier, sql string, args ...any) ([]study.Topic, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query topics: %w", err)
	}
	topics, err := collect(rows, scanTopic)
	if err != nil {
		return nil, fmt.Errorf("scan topics: %w", err)
	}
	return topics, nil
}

func listDependencies(ctx context.Context, q querier) ([]study.Dependency, error) {
	rows, err := q.Query(ctx, `SELECT `+dependencyColumns+` FROM topic_dependencies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query dependencies: %w", err)
	}
	deps, err := collect(rows, scanDependency)
	if err != nil {
		return nil, fmt.Errorf("scan dependencies: %w", err)
	}
	return deps, nil
}

func (s *PostgresStore) ListCourses(ctx context.Context) ([]study.Course, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return listCourses(ctx, s.pool)
}

func (s *PostgresStore) GetCourse(ctx context.Context, id int64) (study.Course, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	c, err := scanCourse(s.pool.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return study.Course{}, study.NotFound("course", id)
	}
	if err != nil {
		return study.Course{}, fmt.Errorf("get course: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) CreateCourse(ctx context.Context, c study.Course) (study.Course, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	out, err := scanCourse(s.pool.QueryRow(ctx,
		`INSERT INTO courses (name, exam_date, created_at)
		 VALUES ($1, $2, $3)
		 RETURNING `+courseColumns,
		study.NormalizeName(c.Name), c.ExamDate, createdAt,
	))
	if err != nil {
		return study.Course{}, fmt.Errorf("create course: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpdateCourse(ctx context.Context, c study.Course) (study.Course, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	out, err := scanCourse(s.pool.QueryRow(ctx,
		`UPDATE courses SET name = $2, exam_date = $3
		 WHERE id = $1
		 RETURNING `+courseColumns,
		c.ID, study.NormalizeName(c.Name), c.ExamDate,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return study.Course{}, study.NotFound("course", c.ID)
	}
	if err != nil {
		return study.Course{}, fmt.Errorf("update course: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) DeleteCourse(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "course", `DELETE FROM courses WHERE id = $1`, id)
}

func (s *PostgresStore) deleteByID(ctx context.Context, kind, sql string, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx, sql, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	if tag.RowsAffected() == 0 {
		return study.NotFound(kind, id)
	}
	return nil
}

func (s *PostgresStore) ListTopics(ctx context.Context, courseID int64) ([]study.Topic, error) {
	if _, err := s.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return listTopics(ctx, s.pool, `SELECT `+topicColumns+` FROM topics WHERE course_id = $1 ORDER BY id`, courseID)
}

func (s *PostgresStore) GetTopic(ctx context.Context, id int64) (study.Topic, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	t, err := scanTopic(s.pool.QueryRow(ctx, `SELECT `+topicColumns+` FROM topics WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return study.Topic{}, study.NotFound("topic", id)
	}
	if err != nil {
		return study.Topic{}, fmt.Errorf("get topic: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) CreateTopic(ctx context.Context, t study.Topic) (study.Topic, error) {
	if _, err := s.GetCourse(ctx, t.CourseID); err != nil {
		return study.Topic{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	name := study.NormalizeName(t.Name)
	out, err := scanTopic(s.pool.QueryRow(ctx,
		`INSERT INTO topics (course_id, name, name_key, weight, skill_level, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+topicColumns,
		t.CourseID, name, study.NameKey(name), t.Weight, t.SkillLevel, createdAt,
	))
	if isUniqueViolation(err) {
		return study.Topic{}, study.Conflict("topic %q already exists in course %d", name, t.CourseID)
	}
	if err != nil {
		return study.Topic{}, fmt.Errorf("create topic: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpdateTopic(ctx context.Context, t study.Topic) (study.Topic, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var out study.Topic
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		existing, err := scanTopic(tx.QueryRow(ctx,
			`SELECT `+topicColumns+` FROM topics WHERE id = $1 FOR UPDATE`, t.ID))
		if errors.Is(err, pgx.ErrNoRows) {
			return study.NotFound("topic", t.ID)
		}
		if err != nil {
			return fmt.Errorf("lock topic: %w", err)
		}

		name := study.NormalizeName(t.Name)
		out, err = scanTopic(tx.QueryRow(ctx,
			`UPDATE topics SET name = $2, name_key = $3, weight = $4
			 WHERE id = $1
			 RETURNING `+topicColumns,
			t.ID, name, study.NameKey(name), t.Weight,
		))
		if isUniqueViolation(err) {
			return study.Conflict("topic %q already exists in course %d", name, existing.CourseID)
		}
		if err != nil {
			return fmt.Errorf("update topic: %w", err)
		}
		return nil
	})
	if err != nil {
		return study.Topic{}, err
	}
	return out, nil
}

func (s *PostgresStore) DeleteTopic(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "topic", `DELETE FROM topics WHERE id = $1`, id)
}

func (s *PostgresStore) ListDependencies(ctx context.Context) ([]study.Dependency, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return listDependencies(ctx, s.pool)
}

func (s *PostgresStore) CreateDependency(ctx context.Context, d study.Dependency) (study.Dependency, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var out study.Dependency
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		// Serialises edge inserts so two concurrent requests cannot close a cycle.
		if _, err := tx.Exec(ctx, `LOCK TABLE topic_dependencies IN SHARE ROW EXCLUSIVE MODE`); err != nil {
			return fmt.Errorf("lock dependencies: %w", err)
		}

		refs := []struct {
			field string
			id    int64
		}{
			{"prerequisite_topic_id", d.PrerequisiteTopicID},
			{"dependent_topic_id", d.DependentTopicID},
		}
		for _, ref := range refs {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM topics WHERE id = $1)`, ref.id).Scan(&exists); err != nil {
				return fmt.Errorf("check topic: %w", err)
			}
			if !exists {
				return study.Invalid(ref.field, "topic %d does not exist", ref.id)
			}
		}

		edges, err := listDependencies(ctx, tx)
		if err != nil {
			return err
		}
		for _, e := range edges {
			if e.PrerequisiteTopicID == d.PrerequisiteTopicID && e.DependentTopicID == d.DependentTopicID {
				return study.Conflict("dependency %d -> %d already exists", d.PrerequisiteTopicID, d.DependentTopicID)
			}
		}
		if study.NewGraph(edges).WouldCycle(d.PrerequisiteTopicID, d.DependentTopicID) {
			return study.Conflict("dependency %d -> %d would create a cycle", d.PrerequisiteTopicID, d.DependentTopicID)
		}

		out, err = scanDependency(tx.QueryRow(ctx,
			`INSERT INTO topic_dependencies (prerequisite_topic_id, dependent_topic_id, min_skill_threshold)
			 VALUES ($1, $2, $3)
			 RETURNING `+dependencyColumns,
			d.PrerequisiteTopicID, d.DependentTopicID, d.MinSkillThreshold,
		))
		if err != nil {
			return fmt.Errorf("create dependency: %w", err)
		}
		return nil
	})
	if err != nil {
		return study.Dependency{}, err
	}
	return out, nil
}

func (s *PostgresStore) DeleteDependency(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "dependency", `DELETE FROM topic_dependencies WHERE id = $1`, id)
}

func (s *PostgresStore) UpdateSkill(ctx context.Context, u SkillUpdate) (study.SkillChange, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	at := u.At
	if at.IsZero() {
		at = s.now()
	}

	var change study.SkillChange
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		topic, err := scanTopic(tx.QueryRow(ctx,
			`SELECT `+topicColumns+` FROM topics WHERE id = $1 FOR UPDATE`, u.TopicID))
		if errors.Is(err, pgx.ErrNoRows) {
			return study.NotFound("topic", u.TopicID)
		}
		if err != nil {
			return fmt.Errorf("lock topic: %w", err)
		}
		current := topic.SkillLevel

		state := SkillState{Topic: topic}
		if err := tx.QueryRow(ctx,
			`SELECT COALESCE(SUM(new_skill - previous_skill), 0)
			 FROM skill_history
			 WHERE topic_id = $1 AND recorded_at >= $2 AND new_skill > previous_skill`,
			u.TopicID, StartOfDay(at),
		).Scan(&state.GainedToday); err != nil {
			return fmt.Errorf("sum daily gain: %w", err)
		}
		if err := tx.QueryRow(ctx, activityQuery+` WHERE la.topic_id = $1`, u.TopicID).
			Scan(new(int64), &state.Activity.LastActive, &state.Activity.DecayedSince); err != nil {
			return fmt.Errorf("query activity: %w", err)
		}

		next, err := u.Apply(state)
		if err != nil {
			return err
		}
		next = study.Clamp(next, 0, 100)

		if _, err := tx.Exec(ctx, `UPDATE topics SET skill_level = $2 WHERE id = $1`, u.TopicID, next); err != nil {
			return fmt.Errorf("update skill: %w", err)
		}
		change, err = insertHistory(ctx, tx, study.SkillChange{
			TopicID:       u.TopicID,
			Timestamp:     at,
			PreviousSkill: current,
			NewSkill:      next,
			Reason:        u.Reason,
			Source:        u.Source,
		})
		return err
	})
	if err != nil {
		return study.SkillChange{}, err
	}
	return change, nil
}

func insertHistory(ctx context.Context, tx pgx.Tx, h study.SkillChange) (study.SkillChange, error) {
	out, err := scanHistory(tx.QueryRow(ctx,
		`INSERT INTO skill_history (topic_id, recorded_at, previous_skill, new_skill, reason, source)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+historyColumns,
		h.TopicID, h.Timestamp, h.PreviousSkill, h.NewSkill, h.Reason, string(h.Source),
	))
	if err != nil {
		return study.SkillChange{}, fmt.Errorf("insert skill history: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SkillHistory(ctx context.Context, topicID int64, limit int) ([]study.SkillChange, error) {
	if _, err := s.GetTopic(ctx, topicID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+historyColumns+`
		 FROM skill_history
		 WHERE topic_id = $1
		 ORDER BY id DESC
		 LIMIT $2`,
		topicID, lim,
	)
	if err != nil {
		return nil, fmt.Errorf("query skill history: %w", err)
	}
	history, err := collect(rows, scanHistory)
	if err != nil {
		return nil, fmt.Errorf("scan skill history: %w", err)
	}
	return history, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolated
}
