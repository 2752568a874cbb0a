package bronze

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/filmlake/ingest/internal/digest"
	"github.com/filmlake/ingest/internal/storage"
)

// DefaultBatchSize bounds memory and per-statement payload; batch
// boundaries carry no transactional meaning.
const DefaultBatchSize = 5000

// lineageColumns are appended to every bronze row, in this order.
var lineageColumns = []string{"ingestion_run_id", "source_object_key", "source_sha256", "row_num"}

// DB is the slice of a warehouse pool the loader needs. Satisfied by
// *pgxpool.Pool.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// LoadStatus is the terminal state of one Load call.
type LoadStatus string

const (
	StatusLoaded  LoadStatus = "loaded"
	StatusSkipped LoadStatus = "skipped"
)

// SkipAlreadyLoaded is the Reason reported when the digest was loaded by
// an earlier (or concurrently racing) call.
const SkipAlreadyLoaded = "already_loaded"

// LoadRequest identifies one raw object to load.
type LoadRequest struct {
	RunID     string
	ObjectKey string
	Digest    digest.Digest
}

// LoadResult reports what a Load call did.
type LoadResult struct {
	Status       LoadStatus `json:"status"`
	Table        string     `json:"table"`
	ObjectKey    string     `json:"object_key"`
	Digest       string     `json:"sha256"`
	RowsInserted int        `json:"rows_inserted"`
	Reason       string     `json:"reason,omitempty"`
	Note         string     `json:"note,omitempty"`
}

// Loader moves one raw CSV object from storage into its bronze table.
type Loader struct {
	store     storage.ObjectStore
	bucket    string
	batchSize int
}

// NewLoader creates a loader reading from bucket in store. batchSize <= 0
// falls back to DefaultBatchSize.
func NewLoader(store storage.ObjectStore, bucket string, batchSize int) *Loader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Loader{store: store, bucket: bucket, batchSize: batchSize}
}

// Load performs one exactly-once load of the object named in req.
//
// Everything from the ledger check to the ledger mark happens in a single
// transaction; a failure at any step rolls back all row inserts and the
// mark, so a partially-inserted load is never observable. The already-
// loaded fast path answers from the ledger alone with zero object-store
// I/O, which is what makes blind retries cheap.
//
// Fatal errors (UnsupportedSourceError, MissingColumnsError,
// MalformedInputError) need operator action. Storage errors are
// retryable: re-invoking Load with the same request is safe.
func (l *Loader) Load(ctx context.Context, db DB, req LoadRequest) (LoadResult, error) {
	spec, err := Resolve(req.ObjectKey)
	if err != nil {
		return LoadResult{}, err
	}
	return l.load(ctx, db, req, spec)
}

// LoadTable is the explicit-routing variant: the caller names the target
// table instead of relying on the storage key's filename.
func (l *Loader) LoadTable(ctx context.Context, db DB, req LoadRequest, table string) (LoadResult, error) {
	spec, err := ResolveTable(table)
	if err != nil {
		return LoadResult{}, err
	}
	return l.load(ctx, db, req, spec)
}

func (l *Loader) load(ctx context.Context, db DB, req LoadRequest, spec Spec) (LoadResult, error) {
	start := time.Now()

	tx, err := db.Begin(ctx)
	if err != nil {
		return LoadResult{}, fmt.Errorf("begin load transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Serialize against other loaders for the same digest before looking
	// at the ledger; the lock rides the transaction to commit/rollback.
	if err := acquireDigestLock(ctx, tx, req.Digest); err != nil {
		return LoadResult{}, err
	}

	loaded, err := isLoaded(ctx, tx, req.Digest)
	if err != nil {
		return LoadResult{}, err
	}
	if loaded {
		return LoadResult{
			Status:    StatusSkipped,
			Table:     spec.Table,
			ObjectKey: req.ObjectKey,
			Digest:    req.Digest.String(),
			Reason:    SkipAlreadyLoaded,
		}, nil
	}

	data, err := l.store.Get(ctx, l.bucket, req.ObjectKey)
	if err != nil {
		return LoadResult{}, fmt.Errorf("fetch %s/%s: %w", l.bucket, req.ObjectKey, err)
	}

	headers, rows, err := parseCSV(data)
	if err != nil {
		return LoadResult{}, err
	}
	if err := Validate(spec, headers); err != nil {
		return LoadResult{}, err
	}

	result := LoadResult{
		Status:    StatusLoaded,
		Table:     spec.Table,
		ObjectKey: req.ObjectKey,
		Digest:    req.Digest.String(),
	}

	if len(rows) == 0 {
		// A header-only file is terminal, not retryable: mark it loaded
		// so identical bytes are skipped next time.
		if err := markLoaded(ctx, tx, req.Digest, req.ObjectKey, req.RunID); err != nil {
			return LoadResult{}, err
		}
		if err := tx.Commit(ctx); err != nil {
			return LoadResult{}, fmt.Errorf("commit load: %w", err)
		}
		result.Note = "no_data_rows"
		return result, nil
	}

	idx := headerIndex(headers)
	inserted, err := l.insertRows(ctx, tx, spec, req, idx, rows)
	if err != nil {
		return LoadResult{}, err
	}

	if err := markLoaded(ctx, tx, req.Digest, req.ObjectKey, req.RunID); err != nil {
		return LoadResult{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return LoadResult{}, fmt.Errorf("commit load: %w", err)
	}

	result.RowsInserted = inserted
	slog.Info("bronze load complete",
		"table", spec.Table,
		"key", req.ObjectKey,
		"sha256", req.Digest.String(),
		"rows", inserted,
		"duration", time.Since(start),
	)
	return result, nil
}

// insertRows maps and inserts all data rows in bounded batches within tx.
func (l *Loader) insertRows(ctx context.Context, tx pgx.Tx, spec Spec, req LoadRequest, idx map[string]int, rows [][]string) (int, error) {
	width := len(spec.Mapping) + len(lineageColumns)
	total := 0

	for batchStart := 0; batchStart < len(rows); batchStart += l.batchSize {
		batchEnd := batchStart + l.batchSize
		if batchEnd > len(rows) {
			batchEnd = len(rows)
		}
		batch := rows[batchStart:batchEnd]

		args := make([]any, 0, len(batch)*width)
		for i, row := range batch {
			rowNum := batchStart + i + 1 // 1-based, dense across the file
			args = append(args, mapRow(spec, idx, row)...)
			args = append(args, req.RunID, req.ObjectKey, req.Digest.String(), rowNum)
		}

		sql := buildInsertSQL(spec, len(batch))
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return 0, fmt.Errorf("insert into %s: %w", spec.Table, err)
		}
		total += len(batch)
	}

	return total, nil
}

// mapRow projects one CSV row onto the spec's target columns. Cells are
// trimmed, and a cell that is empty after trimming becomes NULL rather
// than an empty string.
func mapRow(spec Spec, idx map[string]int, row []string) []any {
	values := make([]any, len(spec.Mapping))
	for i, m := range spec.Mapping {
		pos, ok := idx[m.Source]
		if !ok || pos >= len(row) {
			continue // short row: mapped column absent, stays NULL
		}
		cell := strings.TrimSpace(row[pos])
		if cell == "" {
			continue
		}
		values[i] = cell
	}
	return values
}

// buildInsertSQL renders a multi-row VALUES insert for rowCount rows.
func buildInsertSQL(spec Spec, rowCount int) string {
	columns := append(spec.TargetColumns(), lineageColumns...)
	width := len(columns)

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(spec.Table)
	b.WriteString(" (")
	b.WriteString(strings.Join(columns, ", "))
	b.WriteString(") VALUES ")

	arg := 1
	for r := 0; r < rowCount; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := 0; c < width; c++ {
			if c > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", arg)
			arg++
		}
		b.WriteByte(')')
	}
	return b.String()
}
