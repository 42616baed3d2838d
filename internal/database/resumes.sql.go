package database

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

const getDefaultResume = `-- name: GetDefaultResume :one
SELECT id, user_id, raw_text, processing_run_id, is_default, created_at
FROM resumes
WHERE user_id = $1 AND is_default = true
ORDER BY created_at DESC
LIMIT 1
`

// GetDefaultResume implements the resume store's get_default_resume contract
// (spec §6a): returns sql.ErrNoRows when the user has no default resume, the
// signal ResumeAdapter turns into models.ErrNoDefaultResume.
func (q *Queries) GetDefaultResume(ctx context.Context, userID uuid.UUID) (Resume, error) {
	var r Resume
	err := q.db.QueryRowContext(ctx, getDefaultResume, userID).Scan(
		&r.ID, &r.UserID, &r.RawText, &r.ProcessingRunID, &r.IsDefault, &r.CreatedAt,
	)
	if err != nil {
		return Resume{}, err
	}
	return r, nil
}

const getResumeByID = `-- name: GetResumeByID :one
SELECT id, user_id, raw_text, processing_run_id, is_default, created_at
FROM resumes
WHERE id = $1
`

func (q *Queries) GetResumeByID(ctx context.Context, id uuid.UUID) (Resume, error) {
	var r Resume
	err := q.db.QueryRowContext(ctx, getResumeByID, id).Scan(
		&r.ID, &r.UserID, &r.RawText, &r.ProcessingRunID, &r.IsDefault, &r.CreatedAt,
	)
	if err != nil {
		return Resume{}, err
	}
	return r, nil
}

// IsNotFound reports whether err is the "no matching row" sentinel that
// database/sql returns for QueryRowContext.Scan, the shape the adapters in
// adapters.go map onto NoDefaultResume / JobNotFound / ResumeMissing.
func IsNotFound(err error) bool {
	return err == sql.ErrNoRows
}
