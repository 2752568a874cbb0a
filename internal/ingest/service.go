// Package ingest wires the upload and load pipeline together: content
// digesting, object placement, run registration, and bronze loading.
// The HTTP layer is a thin adapter over this service.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/filmlake/ingest/internal/bronze"
	"github.com/filmlake/ingest/internal/digest"
	"github.com/filmlake/ingest/internal/runs"
	"github.com/filmlake/ingest/internal/storage"
)

// ErrInvalidRunID marks a run id that is not a UUID.
var ErrInvalidRunID = errors.New("run id must be a UUID")

// DB joins the database capabilities the service consumes. Satisfied by
// *pgxpool.Pool.
type DB interface {
	bronze.DB
	runs.DBTX
}

// Options configures a Service.
type Options struct {
	Bucket       string
	SourcePrefix string
	MaxFileSize  int64
	BatchSize    int

	// MaxConcurrentLoads and LoadWait bound parallel bronze loads;
	// zero values take the package defaults.
	MaxConcurrentLoads int
	LoadWait           time.Duration
}

// Service is the ingestion core behind the HTTP surface.
type Service struct {
	db       DB
	store    storage.ObjectStore
	loader   *bronze.Loader
	registry *runs.Registry
	limiter  *loadLimiter
	opts     Options

	// clock and id generation are injectable for tests
	now   func() time.Time
	newID func() string
}

// NewService builds the service over an object store and warehouse pool.
func NewService(db DB, store storage.ObjectStore, opts Options) *Service {
	return &Service{
		db:       db,
		store:    store,
		loader:   bronze.NewLoader(store, opts.Bucket, opts.BatchSize),
		registry: runs.NewRegistry(db),
		limiter:  newLoadLimiter(opts.MaxConcurrentLoads, opts.LoadWait),
		opts:     opts,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// UploadRequest is one incoming raw file.
type UploadRequest struct {
	// RunID is optional; clients retrying an upload supply a stable id
	// so the run is recorded once. Empty means generate.
	RunID       string
	Source      string
	Filename    string
	ContentType string
	Data        []byte
}

// UploadReceipt reports where an upload landed.
type UploadReceipt struct {
	RunID     string `json:"run_id"`
	Status    string `json:"status"`
	Bucket    string `json:"bucket"`
	ObjectKey string `json:"object_key"`
	SizeBytes int64  `json:"size_bytes"`
	Digest    string `json:"sha256"`
}

// ErrFileTooLarge rejects uploads over the configured limit.
type ErrFileTooLarge struct {
	Size, Limit int64
}

func (e *ErrFileTooLarge) Error() string {
	return fmt.Sprintf("file size %d exceeds limit %d", e.Size, e.Limit)
}

// Upload stores the raw bytes and records the ingestion run. The run row
// is written regardless of whether the payload ever loads; a later load
// references it through lineage columns.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (UploadReceipt, error) {
	if req.Filename == "" {
		return UploadReceipt{}, fmt.Errorf("upload missing filename")
	}
	if s.opts.MaxFileSize > 0 && int64(len(req.Data)) > s.opts.MaxFileSize {
		return UploadReceipt{}, &ErrFileTooLarge{Size: int64(len(req.Data)), Limit: s.opts.MaxFileSize}
	}

	runID := req.RunID
	if runID == "" {
		runID = s.newID()
	} else if _, err := uuid.Parse(runID); err != nil {
		return UploadReceipt{}, fmt.Errorf("%w: %q", ErrInvalidRunID, runID)
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	source := req.Source
	if source == "" {
		source = s.opts.SourcePrefix
	}

	d := digest.Sum(req.Data)
	key := storage.BuildKey(s.opts.SourcePrefix, s.now(), d, req.Filename)

	if err := s.store.Put(ctx, s.opts.Bucket, key, req.Data, contentType); err != nil {
		return UploadReceipt{}, fmt.Errorf("store raw object: %w", err)
	}

	run := runs.IngestionRun{
		RunID:            runID,
		Source:           source,
		OriginalFilename: req.Filename,
		Bucket:           s.opts.Bucket,
		ObjectKey:        key,
		SizeBytes:        int64(len(req.Data)),
		ContentType:      contentType,
		Status:           runs.StatusUploaded,
	}
	if err := s.registry.Record(ctx, run); err != nil {
		return UploadReceipt{}, err
	}

	slog.InfoContext(ctx, "upload recorded",
		"run_id", runID,
		"key", key,
		"sha256", d.String(),
		"size", len(req.Data),
	)

	return UploadReceipt{
		RunID:     runID,
		Status:    runs.StatusUploaded,
		Bucket:    s.opts.Bucket,
		ObjectKey: key,
		SizeBytes: int64(len(req.Data)),
		Digest:    d.String(),
	}, nil
}

// Load runs the exactly-once bronze load for one stored object.
func (s *Service) Load(ctx context.Context, runID, objectKey, rawDigest string) (bronze.LoadResult, error) {
	d, err := digest.Parse(rawDigest)
	if err != nil {
		return bronze.LoadResult{}, err
	}
	if _, err := uuid.Parse(runID); err != nil {
		return bronze.LoadResult{}, fmt.Errorf("%w: %q", ErrInvalidRunID, runID)
	}

	if err := s.limiter.acquire(ctx); err != nil {
		return bronze.LoadResult{}, err
	}
	defer s.limiter.release()

	return s.loader.Load(ctx, s.db, bronze.LoadRequest{
		RunID:     runID,
		ObjectKey: objectKey,
		Digest:    d,
	})
}

// LoadLatest discovers the newest stored export for table and loads it
// via explicit-table routing. The object's digest is computed from its
// bytes, so re-running against an unchanged latest file is a skip.
func (s *Service) LoadLatest(ctx context.Context, table string) (bronze.LoadResult, error) {
	if _, err := bronze.ResolveTable(table); err != nil {
		return bronze.LoadResult{}, err
	}

	if err := s.limiter.acquire(ctx); err != nil {
		return bronze.LoadResult{}, err
	}
	defer s.limiter.release()

	suffix := "_" + table + ".csv"
	key, err := storage.FindLatestKey(ctx, s.store, s.opts.Bucket, s.opts.SourcePrefix+"/", suffix)
	if err != nil {
		return bronze.LoadResult{}, err
	}

	data, err := s.store.Get(ctx, s.opts.Bucket, key)
	if err != nil {
		return bronze.LoadResult{}, fmt.Errorf("fetch %s/%s: %w", s.opts.Bucket, key, err)
	}
	d := digest.Sum(data)

	run, err := s.registry.FindByObjectKey(ctx, s.opts.Bucket, key)
	if err != nil {
		return bronze.LoadResult{}, err
	}

	return s.loader.LoadTable(ctx, s.db, bronze.LoadRequest{
		RunID:     run.RunID,
		ObjectKey: key,
		Digest:    d,
	}, table)
}

// ListRuns lists recorded ingestion runs, newest first.
func (s *Service) ListRuns(ctx context.Context, status string, limit int) ([]runs.IngestionRun, error) {
	return s.registry.List(ctx, status, limit)
}
