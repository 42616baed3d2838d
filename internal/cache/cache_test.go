package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobmatch/careerengine/internal/database"
)

func newMockCache(t *testing.T) (*ExtractionCache, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(database.New(db)), mock
}

func testKey() Key {
	return Key{
		DocType:          "resume",
		Text:             "5 Years Of Python   experience",
		ExtractorVersion: "v1",
		ModelID:          "gemini-2.5-pro",
		PromptVersion:    "v1",
	}
}

// TestGetOrCompute_ReadyRowReturnsCachedResult covers spec §4.4 step 2: a
// ready row short-circuits straight to its stored result, and compute_fn is
// never invoked (P1 cache idempotence).
func TestGetOrCompute_ReadyRowReturnsCachedResult(t *testing.T) {
	c, mock := newMockCache(t)

	id := uuid.New()
	rows := sqlmock.NewRows([]string{
		"id", "doc_type", "text_sha256", "extractor_version", "model_id", "prompt_version",
		"status", "result_json", "diagnostics", "created_at", "updated_at",
	}).AddRow(id, "resume", "deadbeef", "v1", "gemini-2.5-pro", "v1",
		database.ExtractionCacheReady, []byte(`{"skills":[]}`), []byte(`{}`), sqlNow(), sqlNow())

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE SKIP LOCKED").WillReturnRows(rows)
	mock.ExpectRollback()

	computeCalled := false
	out, err := c.GetOrCompute(context.Background(), testKey(), func(ctx context.Context) (json.RawMessage, map[string]any, error) {
		computeCalled = true
		return []byte(`{}`), nil, nil
	})

	require.NoError(t, err)
	assert.JSONEq(t, `{"skills":[]}`, string(out))
	assert.False(t, computeCalled, "compute_fn must not run on a cache hit")
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestGetOrCompute_MissingRowClaimsAndComputes covers spec §4.4 steps 4-6:
// no row exists, this caller wins the insert race, runs compute_fn exactly
// once, and marks the row ready.
func TestGetOrCompute_MissingRowClaimsAndComputes(t *testing.T) {
	c, mock := newMockCache(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE SKIP LOCKED").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	claimedID := uuid.New()
	mock.ExpectQuery("INSERT INTO extraction_cache").WillReturnRows(
		sqlmock.NewRows([]string{"id"}).AddRow(claimedID))

	mock.ExpectExec("UPDATE extraction_cache").
		WillReturnResult(sqlmock.NewResult(0, 1))

	computeCalls := 0
	out, err := c.GetOrCompute(context.Background(), testKey(), func(ctx context.Context) (json.RawMessage, map[string]any, error) {
		computeCalls++
		return []byte(`{"skills":[{"name":"Python"}]}`), map[string]any{"doc_type": "resume"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, computeCalls)
	assert.JSONEq(t, `{"skills":[{"name":"Python"}]}`, string(out))
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestGetOrCompute_ComputeFailureMarksRowFailed covers spec §4.4 step 6's
// failure branch: the row transitions to failed and the caller's error wraps
// compute_fn's error.
func TestGetOrCompute_ComputeFailureMarksRowFailed(t *testing.T) {
	c, mock := newMockCache(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE SKIP LOCKED").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	claimedID := uuid.New()
	mock.ExpectQuery("INSERT INTO extraction_cache").WillReturnRows(
		sqlmock.NewRows([]string{"id"}).AddRow(claimedID))

	mock.ExpectExec("UPDATE extraction_cache").
		WillReturnResult(sqlmock.NewResult(0, 1))

	wantErr := errors.New("model call timed out")
	_, err := c.GetOrCompute(context.Background(), testKey(), func(ctx context.Context) (json.RawMessage, map[string]any, error) {
		return nil, nil, wantErr
	})

	require.Error(t, err)
	assert.ErrorContains(t, err, "model call timed out")
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestGetOrCompute_RacedInsertRestartsLookup covers spec §4.4 step 5: when
// this caller's insert loses the unique-constraint race, it restarts from
// step 1 and picks up the winner's now-ready row rather than erroring.
func TestGetOrCompute_RacedInsertRestartsLookup(t *testing.T) {
	c, mock := newMockCache(t)

	// First pass: row not found, we attempt to claim it.
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE SKIP LOCKED").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()
	mock.ExpectQuery("INSERT INTO extraction_cache").WillReturnError(sql.ErrNoRows)

	// Second pass: the winner's row is now visible and ready.
	id := uuid.New()
	rows := sqlmock.NewRows([]string{
		"id", "doc_type", "text_sha256", "extractor_version", "model_id", "prompt_version",
		"status", "result_json", "diagnostics", "created_at", "updated_at",
	}).AddRow(id, "resume", "deadbeef", "v1", "gemini-2.5-pro", "v1",
		database.ExtractionCacheReady, []byte(`{"skills":[]}`), []byte(`{}`), sqlNow(), sqlNow())
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE SKIP LOCKED").WillReturnRows(rows)
	mock.ExpectRollback()

	computeCalled := false
	out, err := c.GetOrCompute(context.Background(), testKey(), func(ctx context.Context) (json.RawMessage, map[string]any, error) {
		computeCalled = true
		return []byte(`{}`), nil, nil
	})

	require.NoError(t, err)
	assert.False(t, computeCalled)
	assert.JSONEq(t, `{"skills":[]}`, string(out))
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestGetOrCompute_FailedRowIsTreatedAsMissing covers spec §4.4 step 4:
// a previously failed row is retried rather than returned as a permanent
// error.
func TestGetOrCompute_FailedRowIsTreatedAsMissing(t *testing.T) {
	c, mock := newMockCache(t)

	id := uuid.New()
	rows := sqlmock.NewRows([]string{
		"id", "doc_type", "text_sha256", "extractor_version", "model_id", "prompt_version",
		"status", "result_json", "diagnostics", "created_at", "updated_at",
	}).AddRow(id, "resume", "deadbeef", "v1", "gemini-2.5-pro", "v1",
		database.ExtractionCacheFailed, nil, []byte(`{"error":"previous timeout"}`), sqlNow(), sqlNow())

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE SKIP LOCKED").WillReturnRows(rows)
	mock.ExpectRollback()

	claimedID := uuid.New()
	mock.ExpectQuery("INSERT INTO extraction_cache").WillReturnRows(
		sqlmock.NewRows([]string{"id"}).AddRow(claimedID))
	mock.ExpectExec("UPDATE extraction_cache").WillReturnResult(sqlmock.NewResult(0, 1))

	computeCalls := 0
	_, err := c.GetOrCompute(context.Background(), testKey(), func(ctx context.Context) (json.RawMessage, map[string]any, error) {
		computeCalls++
		return []byte(`{}`), nil, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, computeCalls)
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestNormalize_CollapsesWhitespaceWithoutTouchingPunctuation exercises the
// key-hash normalization rule from spec §4.4: lowercase, trim, collapse
// whitespace, leave punctuation alone.
func TestNormalize_CollapsesWhitespaceWithoutTouchingPunctuation(t *testing.T) {
	got := normalize("  5 Years Of  C++   and Node.js\n\nexperience  ")
	assert.Equal(t, "5 years of c++ and node.js experience", got)
}

// TestKey_RowIsStableForEquivalentText covers the cache-key half of P1: two
// Keys whose text differs only by normalization-insignificant whitespace
// hash to the same row.
func TestKey_RowIsStableForEquivalentText(t *testing.T) {
	a := Key{DocType: "resume", Text: "Python  Django", ExtractorVersion: "v1", ModelID: "m", PromptVersion: "p1"}
	b := Key{DocType: "resume", Text: "  python django ", ExtractorVersion: "v1", ModelID: "m", PromptVersion: "p1"}
	assert.Equal(t, a.row().TextSHA256, b.row().TextSHA256)
}

func sqlNow() time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
}
