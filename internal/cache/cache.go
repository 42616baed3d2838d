// Package cache implements the ExtractionCache: a content-hash-keyed
// memoization layer that makes language-model extraction idempotent and
// concurrency-safe, built atop internal/database's row-level
// skip-locked Postgres queries.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jobmatch/careerengine/internal/database"
)

// ErrExtractionPending is raised when a cache row is still `running` past
// the join window — the caller surfaces this as "still generating".
var ErrExtractionPending = errors.New("cache: extraction still pending")

const joinWindow = 2500 * time.Millisecond
const pollInterval = 250 * time.Millisecond

// Key identifies a distinct extraction cache entry, pre-hash.
type Key struct {
	DocType          string
	Text             string
	ExtractorVersion string
	ModelID          string
	PromptVersion    string
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// normalize lowercases, trims, and collapses runs of whitespace without
// touching semantically significant punctuation, per spec §4.4.
func normalize(text string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(text)), " ")
}

func (k Key) row() database.ExtractionCacheKey {
	sum := sha256.Sum256([]byte(normalize(k.Text)))
	return database.ExtractionCacheKey{
		DocType:          k.DocType,
		TextSHA256:       hex.EncodeToString(sum[:]),
		ExtractorVersion: k.ExtractorVersion,
		ModelID:          k.ModelID,
		PromptVersion:    k.PromptVersion,
	}
}

// ComputeFunc produces the extraction output on a cache miss. Its result is
// marshaled to result_json verbatim.
type ComputeFunc func(ctx context.Context) (json.RawMessage, map[string]any, error)

// ExtractionCache wraps the database layer's cache queries with the
// get_or_compute orchestration from spec §4.4.
type ExtractionCache struct {
	db *database.Queries
}

// New constructs an ExtractionCache over db.
func New(db *database.Queries) *ExtractionCache {
	return &ExtractionCache{db: db}
}

// GetOrCompute implements the spec §4.4 algorithm: lock-and-check, wait on a
// join window for an in-flight compute, retry on a failed/raced row, and run
// fn exactly once per winning insert.
func (c *ExtractionCache) GetOrCompute(ctx context.Context, key Key, fn ComputeFunc) (json.RawMessage, error) {
	dbKey := key.row()

	for {
		result, pending, err := c.lookupAndTryClaim(ctx, dbKey)
		if err != nil {
			return nil, err
		}
		if result != nil {
			return result, nil
		}
		if pending {
			ready, err := c.waitForReady(ctx, dbKey)
			if err != nil {
				return nil, err
			}
			if ready != nil {
				return ready, nil
			}
			return nil, ErrExtractionPending
		}

		// No usable row: try to claim it; if the claim succeeds, compute now,
		// outside any lock.
		claimedID, claimErr := c.db.InsertExtractionCacheRunning(ctx, dbKey)
		if claimErr != nil {
			if errors.Is(claimErr, sql.ErrNoRows) {
				continue // someone else raced us; restart from step 1
			}
			return nil, fmt.Errorf("cache: claim row: %w", claimErr)
		}

		resultJSON, diagnostics, computeErr := fn(ctx)
		if computeErr != nil {
			diagBytes, _ := json.Marshal(map[string]any{"error": computeErr.Error()})
			if markErr := c.db.MarkExtractionCacheFailed(ctx, claimedID, diagBytes); markErr != nil {
				return nil, fmt.Errorf("cache: mark failed: %w", markErr)
			}
			return nil, fmt.Errorf("cache: compute: %w", computeErr)
		}
		diagBytes, _ := json.Marshal(diagnostics)
		if err := c.db.MarkExtractionCacheReady(ctx, claimedID, resultJSON, diagBytes); err != nil {
			return nil, fmt.Errorf("cache: mark ready: %w", err)
		}
		return resultJSON, nil
	}
}

// lookupAndTryClaim performs steps 1-4 of the algorithm inside a single
// transaction holding the skip-locked row lock. It returns (result, false,
// nil) on a ready hit, (nil, true, nil) when another compute is in flight
// and the caller should wait, or (nil, false, nil) when the caller should
// attempt to claim the row itself (row missing or previously failed).
func (c *ExtractionCache) lookupAndTryClaim(ctx context.Context, key database.ExtractionCacheKey) (json.RawMessage, bool, error) {
	tx, err := c.db.BeginTx(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("cache: begin tx: %w", err)
	}
	defer tx.Rollback()

	row, err := c.db.LockExtractionCacheRow(ctx, tx, key)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("cache: lock row: %w", err)
	}

	switch row.Status {
	case database.ExtractionCacheReady:
		return json.RawMessage(row.ResultJSON), false, nil
	case database.ExtractionCacheRunning:
		return nil, true, nil
	case database.ExtractionCacheFailed:
		return nil, false, nil
	default:
		return nil, false, nil
	}
}

// waitForReady implements step 3's join-window wait: poll the row (a plain,
// non-locking read) until it becomes ready or the window elapses.
func (c *ExtractionCache) waitForReady(ctx context.Context, key database.ExtractionCacheKey) (json.RawMessage, error) {
	deadline := time.Now().Add(joinWindow)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
		row, err := c.db.GetExtractionCacheByKey(ctx, key)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, fmt.Errorf("cache: re-read row: %w", err)
		}
		if row.Status == database.ExtractionCacheReady {
			return json.RawMessage(row.ResultJSON), nil
		}
	}
	return nil, nil
}
