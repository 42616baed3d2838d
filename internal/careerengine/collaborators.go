package careerengine

import (
	"context"

	"github.com/google/uuid"
	"github.com/jobmatch/careerengine/internal/models"
)

// ResumeStore is external collaborator (a) from spec §6: resume resolution
// and lookup by id.
type ResumeStore interface {
	GetDefaultResume(ctx context.Context, userID uuid.UUID) (models.Resume, error)
	GetResumeByID(ctx context.Context, resumeID uuid.UUID) (models.Resume, error)
}

// JobStore is external collaborator (b) from spec §6.
type JobStore interface {
	GetJob(ctx context.Context, jobID uuid.UUID) (models.JobRecord, error)
}

// Persistence is external collaborator (e) from spec §6: ProcessingRun,
// GapAnalysisResult, and ReportStatus writes.
type Persistence interface {
	InsertProcessingRun(ctx context.Context, id, resumeID, jobID uuid.UUID, llmModelID, embeddingModelID, codeVersion, taxonomySnapshotID string) error
	UpdateProcessingRunConfig(ctx context.Context, id uuid.UUID, effectiveConfigJSON []byte) error
	InsertGapAnalysisResult(ctx context.Context, userID uuid.UUID, result models.GapAnalysisResult) error
	UpsertReportStatusGenerating(ctx context.Context, userID, jobID uuid.UUID) error
	UpsertReportStatusReady(ctx context.Context, userID, jobID uuid.UUID) error
	ClearReportStatus(ctx context.Context, userID, jobID uuid.UUID) error
}
