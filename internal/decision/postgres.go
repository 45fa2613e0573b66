package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresLog stores entries in the decision_logs table.
type PostgresLog struct {
	pool *pgxpool.Pool
}

func NewPostgresLog(pool *pgxpool.Pool) *PostgresLog {
	return &PostgresLog{pool: pool}
}

func (l *PostgresLog) Append(ctx context.Context, entries ...Entry) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("decision log pool is nil")
	}
	if len(entries) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	batch := &pgx.Batch{}
	for _, e := range entries {
		if !e.Type.Valid() {
			return fmt.Errorf("invalid decision type %q", e.Type)
		}
		payload := e.Metadata
		if payload == nil {
			payload = map[string]any{}
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal decision metadata: %w", err)
		}
		ts := e.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		batch.Queue(
			`INSERT INTO decision_logs (recorded_at, decision_type, topic_id, explanation, metadata)
			 VALUES ($1, $2, $3, $4, $5::jsonb)
			 RETURNING id`,
			ts, string(e.Type), e.TopicID, e.Explanation, string(data),
		)
	}

	results := l.pool.SendBatch(ctx, batch)
	defer results.Close()
	for i := range entries {
		if err := results.QueryRow().Scan(&entries[i].ID); err != nil {
			return fmt.Errorf("insert decision: %w", err)
		}
	}

	slog.Debug("decisions logged", "count", len(entries))
	return nil
}

func (l *PostgresLog) Recent(ctx context.Context, limit int) ([]Entry, error) {
	return l.query(ctx,
		`SELECT id, recorded_at, decision_type, topic_id, explanation, metadata
		 FROM decision_logs
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT $1`,
		limitOrAll(limit),
	)
}

func (l *PostgresLog) ByType(ctx context.Context, t Type, limit int) ([]Entry, error) {
	return l.query(ctx,
		`SELECT id, recorded_at, decision_type, topic_id, explanation, metadata
		 FROM decision_logs
		 WHERE decision_type = $2
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT $1`,
		limitOrAll(limit), string(t),
	)
}

func (l *PostgresLog) ByTopic(ctx context.Context, topicID int64, limit int) ([]Entry, error) {
	return l.query(ctx,
		`SELECT id, recorded_at, decision_type, topic_id, explanation, metadata
		 FROM decision_logs
		 WHERE topic_id = $2
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT $1`,
		limitOrAll(limit), topicID,
	)
}

func (l *PostgresLog) query(ctx context.Context, sql string, args ...any) ([]Entry, error) {
	if l == nil || l.pool == nil {
		return nil, fmt.Errorf("decision log pool is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := l.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		var kind string
		var metadata []byte
		if err := rows.Scan(&e.ID, &e.Timestamp, &kind, &e.TopicID, &e.Explanation, &metadata); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		e.Type = Type(kind)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				slog.Warn("skipping malformed decision metadata", "id", e.ID, "error", err)
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decisions: %w", err)
	}
	return out, nil
}

// limitOrAll maps a non-positive limit to NULL, which LIMIT treats as no limit.
func limitOrAll(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}
