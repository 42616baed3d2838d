package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// ExtractionCacheKey is the unique tuple described in spec §3/§4.4.
type ExtractionCacheKey struct {
	DocType          string
	TextSHA256       string
	ExtractorVersion string
	ModelID          string
	PromptVersion    string
}

const lockExtractionCacheRow = `-- name: LockExtractionCacheRow :one
SELECT id, doc_type, text_sha256, extractor_version, model_id, prompt_version,
       status, result_json, diagnostics, created_at, updated_at
FROM extraction_cache
WHERE doc_type = $1 AND text_sha256 = $2 AND extractor_version = $3
      AND model_id = $4 AND prompt_version = $5
FOR UPDATE SKIP LOCKED
`

// LockExtractionCacheRow implements the row-level exclusive lock with
// skip-locked semantics required by spec §4.4 step 1 / §5. Must be called
// inside a transaction. Returns sql.ErrNoRows both when the row does not
// exist and when it exists but is currently locked by another transaction
// (the skip-locked case); the two cases are not distinguished here. The
// extraction cache treats both as missing and lets
// InsertExtractionCacheRunning's conflict handling sort them out.
func (q *Queries) LockExtractionCacheRow(ctx context.Context, tx *sql.Tx, key ExtractionCacheKey) (ExtractionCacheRow, error) {
	var r ExtractionCacheRow
	err := tx.QueryRowContext(ctx, lockExtractionCacheRow,
		key.DocType, key.TextSHA256, key.ExtractorVersion, key.ModelID, key.PromptVersion,
	).Scan(
		&r.ID, &r.DocType, &r.TextSHA256, &r.ExtractorVersion, &r.ModelID, &r.PromptVersion,
		&r.Status, &r.ResultJSON, &r.Diagnostics, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return ExtractionCacheRow{}, err
	}
	return r, nil
}

const insertExtractionCacheRunning = `-- name: InsertExtractionCacheRunning :one
INSERT INTO extraction_cache (id, doc_type, text_sha256, extractor_version, model_id, prompt_version, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, 'running', now(), now())
ON CONFLICT (doc_type, text_sha256, extractor_version, model_id, prompt_version)
DO UPDATE SET status = 'running', result_json = NULL, diagnostics = NULL, updated_at = now()
WHERE extraction_cache.status = 'failed'
RETURNING id
`

// InsertExtractionCacheRunning attempts to claim a new cache row for key, or
// reclaim an existing one left 'failed' by a prior attempt, implementing
// spec §4.4 steps 4-5 ("found and status == failed: treat as missing
// (re-attempt)"). The ON CONFLICT...WHERE clause only fires for a failed
// row; a row that is already running or ready leaves the WHERE unsatisfied,
// so no row is returned and the caller restarts from step 1 to observe its
// real status. Returns sql.ErrNoRows if another caller won the race.
func (q *Queries) InsertExtractionCacheRunning(ctx context.Context, key ExtractionCacheKey) (uuid.UUID, error) {
	id := uuid.New()
	var returned uuid.UUID
	err := q.db.QueryRowContext(ctx, insertExtractionCacheRunning,
		id, key.DocType, key.TextSHA256, key.ExtractorVersion, key.ModelID, key.PromptVersion,
	).Scan(&returned)
	if err != nil {
		return uuid.Nil, err
	}
	return returned, nil
}

const getExtractionCacheByKey = `-- name: GetExtractionCacheByKey :one
SELECT id, doc_type, text_sha256, extractor_version, model_id, prompt_version,
       status, result_json, diagnostics, created_at, updated_at
FROM extraction_cache
WHERE doc_type = $1 AND text_sha256 = $2 AND extractor_version = $3
      AND model_id = $4 AND prompt_version = $5
`

// GetExtractionCacheByKey is a plain, non-locking read used for the
// join-window re-read in spec §4.4 step 3.
func (q *Queries) GetExtractionCacheByKey(ctx context.Context, key ExtractionCacheKey) (ExtractionCacheRow, error) {
	var r ExtractionCacheRow
	err := q.db.QueryRowContext(ctx, getExtractionCacheByKey,
		key.DocType, key.TextSHA256, key.ExtractorVersion, key.ModelID, key.PromptVersion,
	).Scan(
		&r.ID, &r.DocType, &r.TextSHA256, &r.ExtractorVersion, &r.ModelID, &r.PromptVersion,
		&r.Status, &r.ResultJSON, &r.Diagnostics, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return ExtractionCacheRow{}, err
	}
	return r, nil
}

const markExtractionCacheReady = `-- name: MarkExtractionCacheReady :exec
UPDATE extraction_cache
SET status = 'ready', result_json = $2, diagnostics = $3, updated_at = now()
WHERE id = $1
`

func (q *Queries) MarkExtractionCacheReady(ctx context.Context, id uuid.UUID, resultJSON, diagnostics []byte) error {
	_, err := q.db.ExecContext(ctx, markExtractionCacheReady, id, resultJSON, diagnostics)
	return err
}

const markExtractionCacheFailed = `-- name: MarkExtractionCacheFailed :exec
UPDATE extraction_cache
SET status = 'failed', diagnostics = $2, updated_at = now()
WHERE id = $1
`

func (q *Queries) MarkExtractionCacheFailed(ctx context.Context, id uuid.UUID, diagnostics []byte) error {
	_, err := q.db.ExecContext(ctx, markExtractionCacheFailed, id, diagnostics)
	return err
}

// BeginTx starts a transaction for the cache's lock/insert/compute sequence.
func (q *Queries) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return q.db.BeginTx(ctx, nil)
}

// SweepStaleRunning marks ExtractionCache rows still 'running' past maxAge
// as 'failed', implementing the bounded-age background sweep spec §5
// describes as out of scope for the core but expected of the enclosing
// system; exposed here so that system can call it.
func (q *Queries) SweepStaleRunning(ctx context.Context, maxAge time.Duration) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE extraction_cache
		SET status = 'failed', updated_at = now()
		WHERE status = 'running' AND updated_at < now() - $1::interval
	`, maxAge.String())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
