package database

import (
	"context"

	"github.com/google/uuid"
)

const insertProcessingRun = `-- name: InsertProcessingRun :exec
INSERT INTO processing_runs (id, resume_id, job_id, llm_model_id, embedding_model_id, code_version, taxonomy_snapshot_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, now())
`

// InsertProcessingRun creates the ProcessingRun row at analysis start, per
// spec §3 "Created at the start of analysis; immutable after commit" (the
// effective configuration is attached afterwards via
// UpdateProcessingRunConfig, once the mapper has run).
func (q *Queries) InsertProcessingRun(ctx context.Context, row ProcessingRunRow) error {
	_, err := q.db.ExecContext(ctx, insertProcessingRun,
		row.ID, row.ResumeID, row.JobID, row.LLMModelID, row.EmbeddingModelID,
		row.CodeVersion, row.TaxonomySnapshotID,
	)
	return err
}

const updateProcessingRunConfig = `-- name: UpdateProcessingRunConfig :exec
UPDATE processing_runs
SET effective_config_json = $2
WHERE id = $1
`

// UpdateProcessingRunConfig enriches the ProcessingRun with the effective
// configuration snapshot post-mapping, per spec §3 lifecycle summary.
func (q *Queries) UpdateProcessingRunConfig(ctx context.Context, id uuid.UUID, effectiveConfigJSON []byte) error {
	_, err := q.db.ExecContext(ctx, updateProcessingRunConfig, id, effectiveConfigJSON)
	return err
}
