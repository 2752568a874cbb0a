package bronze

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/filmlake/ingest/internal/digest"
)

// The load history is keyed on content digest alone: re-uploading the
// same bytes under a different name, key, or run must still be a no-op.
// All three statements here run inside the load transaction.

const (
	lockSQL = `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`

	isLoadedSQL = `SELECT EXISTS (SELECT 1 FROM bronze.load_history WHERE source_sha256 = $1)`

	markLoadedSQL = `
		INSERT INTO bronze.load_history (source_sha256, source_object_key, ingestion_run_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (source_sha256) DO NOTHING`
)

// acquireDigestLock serializes loaders racing on the same digest. The
// lock is transaction-scoped: Postgres releases it at commit or rollback,
// which upgrades the check-then-insert to exactly-once under contention.
func acquireDigestLock(ctx context.Context, tx pgx.Tx, d digest.Digest) error {
	if _, err := tx.Exec(ctx, lockSQL, d.String()); err != nil {
		return fmt.Errorf("acquire digest lock: %w", err)
	}
	return nil
}

// isLoaded reports whether a load for this digest has already committed.
func isLoaded(ctx context.Context, tx pgx.Tx, d digest.Digest) (bool, error) {
	var loaded bool
	if err := tx.QueryRow(ctx, isLoadedSQL, d.String()).Scan(&loaded); err != nil {
		return false, fmt.Errorf("load history check: %w", err)
	}
	return loaded, nil
}

// markLoaded records the completed load. It must be the last statement
// before commit so rows and ledger entry persist or vanish together. A
// unique violation from a racing writer is treated as the no-op it is.
func markLoaded(ctx context.Context, tx pgx.Tx, d digest.Digest, objectKey string, runID string) error {
	_, err := tx.Exec(ctx, markLoadedSQL, d.String(), objectKey, runID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil
		}
		return fmt.Errorf("mark loaded: %w", err)
	}
	return nil
}
