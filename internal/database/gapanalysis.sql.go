package database

import (
	"context"

	"github.com/google/uuid"
)

const insertGapAnalysisResult = `-- name: InsertGapAnalysisResult :exec
INSERT INTO gap_analysis_results (
	id, resume_id, job_id, processing_run_id, user_id, score,
	matched_skills_json, missing_skills_json, weak_skills_json, resume_skills_json,
	analysis_json, analysis_version, report_markdown, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now())
`

// InsertGapAnalysisResult persists a GapAnalysisResult row, dual-format per
// spec §6e. GapAnalysisResult rows are never mutated after insert (spec §3).
func (q *Queries) InsertGapAnalysisResult(ctx context.Context, row GapAnalysisRow) error {
	_, err := q.db.ExecContext(ctx, insertGapAnalysisResult,
		row.ID, row.ResumeID, row.JobID, row.ProcessingRunID, row.UserID, row.Score,
		row.MatchedSkillsJSON, row.MissingSkillsJSON, row.WeakSkillsJSON, row.ResumeSkillsJSON,
		row.AnalysisJSON, row.AnalysisVersion, row.ReportMarkdown,
	)
	return err
}

const getGapAnalysisResultByID = `-- name: GetGapAnalysisResultByID :one
SELECT id, resume_id, job_id, processing_run_id, user_id, score,
       matched_skills_json, missing_skills_json, weak_skills_json, resume_skills_json,
       analysis_json, analysis_version, report_markdown, created_at
FROM gap_analysis_results
WHERE id = $1
`

func (q *Queries) GetGapAnalysisResultByID(ctx context.Context, id uuid.UUID) (GapAnalysisRow, error) {
	var r GapAnalysisRow
	err := q.db.QueryRowContext(ctx, getGapAnalysisResultByID, id).Scan(
		&r.ID, &r.ResumeID, &r.JobID, &r.ProcessingRunID, &r.UserID, &r.Score,
		&r.MatchedSkillsJSON, &r.MissingSkillsJSON, &r.WeakSkillsJSON, &r.ResumeSkillsJSON,
		&r.AnalysisJSON, &r.AnalysisVersion, &r.ReportMarkdown, &r.CreatedAt,
	)
	if err != nil {
		return GapAnalysisRow{}, err
	}
	return r, nil
}

const upsertReportStatus = `-- name: UpsertReportStatus :exec
INSERT INTO report_status (user_id, job_id, status, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (user_id, job_id)
DO UPDATE SET status = EXCLUDED.status, updated_at = now()
`

// UpsertReportStatus implements spec §6e's "Upsert ReportStatus rows."
func (q *Queries) UpsertReportStatus(ctx context.Context, userID, jobID uuid.UUID, status ReportStatusValue) error {
	_, err := q.db.ExecContext(ctx, upsertReportStatus, userID, jobID, status)
	return err
}

const getReportStatus = `-- name: GetReportStatus :one
SELECT user_id, job_id, status, updated_at
FROM report_status
WHERE user_id = $1 AND job_id = $2
`

func (q *Queries) GetReportStatus(ctx context.Context, userID, jobID uuid.UUID) (ReportStatusRow, error) {
	var r ReportStatusRow
	err := q.db.QueryRowContext(ctx, getReportStatus, userID, jobID).Scan(
		&r.UserID, &r.JobID, &r.Status, &r.UpdatedAt,
	)
	if err != nil {
		return ReportStatusRow{}, err
	}
	return r, nil
}

const clearReportStatus = `-- name: ClearReportStatus :exec
DELETE FROM report_status WHERE user_id = $1 AND job_id = $2
`

// ClearReportStatus implements spec §4.2 failure semantics: "ReportStatus is
// cleared so clients can retry."
func (q *Queries) ClearReportStatus(ctx context.Context, userID, jobID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, clearReportStatus, userID, jobID)
	return err
}
