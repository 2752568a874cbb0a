// Package runs is the durable registry of ingestion runs. One row is
// recorded per upload attempt, whether or not the payload ever loads;
// downstream processing owns status transitions beyond "uploaded".
package runs

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Run statuses. The registry only ever writes StatusUploaded; the others
// exist for downstream writers and the list filter.
const (
	StatusUploaded  = "uploaded"
	StatusProcessed = "processed"
	StatusFailed    = "failed"
)

// List limits. Requests outside the range are clamped, not rejected, so
// a sloppy caller still gets a bounded answer.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// DBTX is the database capability the registry consumes. Satisfied by
// *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// IngestionRun is one upload attempt.
type IngestionRun struct {
	RunID            string    `json:"run_id"`
	Source           string    `json:"source"`
	OriginalFilename string    `json:"original_filename"`
	Bucket           string    `json:"bucket"`
	ObjectKey        string    `json:"object_key"`
	SizeBytes        int64     `json:"size_bytes"`
	ContentType      string    `json:"content_type"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

// Registry reads and writes public.ingestion_runs.
type Registry struct {
	db DBTX
}

// NewRegistry creates a registry over db.
func NewRegistry(db DBTX) *Registry {
	return &Registry{db: db}
}

const recordSQL = `
	INSERT INTO ingestion_runs
		(run_id, source, original_filename, bucket, object_key, size_bytes, content_type, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (run_id) DO NOTHING`

// Record inserts the run. A conflict on run_id means this run was
// already recorded (the client retried after losing the response) and is
// not an error: the caller keeps its stable, client-generated id.
func (r *Registry) Record(ctx context.Context, run IngestionRun) error {
	_, err := r.db.Exec(ctx, recordSQL,
		run.RunID,
		run.Source,
		run.OriginalFilename,
		run.Bucket,
		run.ObjectKey,
		run.SizeBytes,
		run.ContentType,
		run.Status,
	)
	if err != nil {
		return fmt.Errorf("record ingestion run: %w", err)
	}
	return nil
}

const listSQL = `
	SELECT run_id, source, original_filename, bucket, object_key, size_bytes, content_type, status, created_at
	FROM ingestion_runs`

// List returns runs ordered by creation time descending. An empty status
// means no filter; limit is clamped into [1, MaxListLimit] with
// DefaultListLimit for non-positive values.
func (r *Registry) List(ctx context.Context, status string, limit int) ([]IngestionRun, error) {
	limit = ClampLimit(limit)

	sql := listSQL
	args := []any{}
	if status != "" {
		sql += " WHERE status = $1 ORDER BY created_at DESC LIMIT $2"
		args = append(args, status, limit)
	} else {
		sql += " ORDER BY created_at DESC LIMIT $1"
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list ingestion runs: %w", err)
	}
	defer rows.Close()

	var runs []IngestionRun
	for rows.Next() {
		var run IngestionRun
		if err := rows.Scan(
			&run.RunID,
			&run.Source,
			&run.OriginalFilename,
			&run.Bucket,
			&run.ObjectKey,
			&run.SizeBytes,
			&run.ContentType,
			&run.Status,
			&run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ingestion run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list ingestion runs: %w", err)
	}
	return runs, nil
}

const findByKeySQL = listSQL + ` WHERE bucket = $1 AND object_key = $2 ORDER BY created_at DESC LIMIT 1`

// FindByObjectKey returns the most recent run recorded for an object.
// Returns pgx.ErrNoRows (wrapped) when no run references the key.
func (r *Registry) FindByObjectKey(ctx context.Context, bucket, objectKey string) (IngestionRun, error) {
	var run IngestionRun
	err := r.db.QueryRow(ctx, findByKeySQL, bucket, objectKey).Scan(
		&run.RunID,
		&run.Source,
		&run.OriginalFilename,
		&run.Bucket,
		&run.ObjectKey,
		&run.SizeBytes,
		&run.ContentType,
		&run.Status,
		&run.CreatedAt,
	)
	if err != nil {
		return IngestionRun{}, fmt.Errorf("find run for %s/%s: %w", bucket, objectKey, err)
	}
	return run, nil
}

// ClampLimit bounds a caller-supplied list limit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}
