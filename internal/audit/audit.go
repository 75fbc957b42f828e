// Package audit keeps an append-only trail of console mutations in
// Postgres. Entries record who changed which resource, never the full
// payload of reads.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is one recorded mutation.
type Entry struct {
	ID        int64          `json:"id"`
	Actor     string         `json:"actor"`
	Action    string         `json:"action"`
	Entity    string         `json:"entity"`
	EntityID  int64          `json:"entity_id"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Logger writes and queries audit entries.
type Logger struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewLogger(pool *pgxpool.Pool, logger *slog.Logger) *Logger {
	return &Logger{pool: pool, logger: logger}
}

// Record appends one entry.
func (l *Logger) Record(ctx context.Context, actor, action, entity string, entityID int64, meta map[string]any) error {
	var metaJSON []byte
	if len(meta) > 0 {
		var err error
		metaJSON, err = json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("audit: marshal meta: %w", err)
		}
	}
	_, err := l.pool.Exec(ctx, `
		INSERT INTO audit_logs (actor, action, entity, entity_id, meta, created_at)
		VALUES ($1, $2, $3, $4, $5, now())`,
		actor, action, entity, entityID, metaJSON)
	if err != nil {
		return fmt.Errorf("audit: insert entry: %w", err)
	}
	return nil
}

// Recent returns the newest entries, capped at limit.
func (l *Logger) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.pool.Query(ctx, `
		SELECT id, actor, action, entity, entity_id, COALESCE(meta, 'null'::jsonb), created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: query entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var metaJSON []byte
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.Entity, &e.EntityID, &metaJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan entry: %w", err)
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &e.Meta); err != nil {
				l.logger.Warn("audit meta decode failed", "id", e.ID, "error", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Sweep deletes entries older than the retention window and reports how
// many were removed.
func (l *Logger) Sweep(ctx context.Context, retention time.Duration) (int64, error) {
	tag, err := l.pool.Exec(ctx, `
		DELETE FROM audit_logs
		WHERE created_at < now() - make_interval(secs => $1)`,
		retention.Seconds())
	if err != nil {
		return 0, fmt.Errorf("audit: sweep entries: %w", err)
	}
	return tag.RowsAffected(), nil
}
