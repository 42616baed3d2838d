package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jobmatch/careerengine/internal/models"
	"github.com/jobmatch/careerengine/internal/retry"
)

// ResumeAdapter satisfies careerengine.ResumeStore over Queries, translating
// sql.ErrNoRows into the core's input-error sentinels.
type ResumeAdapter struct{ Q *Queries }

func (a ResumeAdapter) GetDefaultResume(ctx context.Context, userID uuid.UUID) (models.Resume, error) {
	r, err := a.Q.GetDefaultResume(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Resume{}, models.ErrNoDefaultResume
	}
	if err != nil {
		return models.Resume{}, err
	}
	return toModelResume(r), nil
}

func (a ResumeAdapter) GetResumeByID(ctx context.Context, resumeID uuid.UUID) (models.Resume, error) {
	r, err := a.Q.GetResumeByID(ctx, resumeID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Resume{}, models.ErrResumeMissing
	}
	if err != nil {
		return models.Resume{}, err
	}
	return toModelResume(r), nil
}

func toModelResume(r Resume) models.Resume {
	return models.Resume{
		ID:              r.ID,
		UserID:          r.UserID,
		RawText:         r.RawText,
		ProcessingRunID: r.ProcessingRunID,
	}
}

// JobAdapter satisfies careerengine.JobStore over Queries.
type JobAdapter struct{ Q *Queries }

func (a JobAdapter) GetJob(ctx context.Context, jobID uuid.UUID) (models.JobRecord, error) {
	j, err := a.Q.GetJobByID(ctx, jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.JobRecord{}, models.ErrJobNotFound
	}
	if err != nil {
		return models.JobRecord{}, err
	}
	return models.JobRecord{
		ID:              j.ID,
		Title:           j.Title,
		Company:         j.Company.String,
		Location:        j.Location.String,
		Description:     j.Description,
		Requirements:    j.Requirements.String,
		RequiredSkills:  j.RequiredSkills,
		PreferredSkills: j.PreferredSkills,
		JobType:         j.JobType.String,
		SalaryMin:       nullFloatPtr(j.SalaryMin),
		SalaryMax:       nullFloatPtr(j.SalaryMax),
		SalaryCurrency:  j.SalaryCurrency.String,
		ExternalURL:     j.ExternalURL.String,
	}, nil
}

func nullFloatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

// PersistenceAdapter satisfies careerengine.Persistence over Queries.
type PersistenceAdapter struct{ Q *Queries }

func (a PersistenceAdapter) InsertProcessingRun(ctx context.Context, id, resumeID, jobID uuid.UUID, llmModelID, embeddingModelID, codeVersion, taxonomySnapshotID string) error {
	return a.Q.InsertProcessingRun(ctx, ProcessingRunRow{
		ID:                 id,
		ResumeID:           resumeID,
		JobID:              jobID,
		LLMModelID:         llmModelID,
		EmbeddingModelID:   embeddingModelID,
		CodeVersion:        codeVersion,
		TaxonomySnapshotID: taxonomySnapshotID,
	})
}

func (a PersistenceAdapter) UpdateProcessingRunConfig(ctx context.Context, id uuid.UUID, effectiveConfigJSON []byte) error {
	return a.Q.UpdateProcessingRunConfig(ctx, id, effectiveConfigJSON)
}

func (a PersistenceAdapter) InsertGapAnalysisResult(ctx context.Context, userID uuid.UUID, result models.GapAnalysisResult) error {
	analysisJSON, err := json.Marshal(result)
	if err != nil {
		return err
	}
	matchedJSON, _ := json.Marshal(result.MatchedSkills)
	missingJSON, _ := json.Marshal(result.MissingSkills)
	resumeJSON, _ := json.Marshal(result.ResumeSkills)

	var weak []models.MatchedSkill
	for _, m := range result.MatchedSkills {
		if m.Status == models.StatusUnderqualified {
			weak = append(weak, m)
		}
	}
	weakJSON, _ := json.Marshal(weak)

	row := GapAnalysisRow{
		ID:                uuid.New(),
		ResumeID:          result.Context.ResumeID,
		JobID:             result.Context.JobID,
		ProcessingRunID:   result.Context.ProcessingRunID,
		UserID:            userID,
		Score:             result.Metrics.Score,
		MatchedSkillsJSON: matchedJSON,
		MissingSkillsJSON: missingJSON,
		WeakSkillsJSON:    weakJSON,
		ResumeSkillsJSON:  resumeJSON,
		AnalysisJSON:      analysisJSON,
		AnalysisVersion:   result.Version,
		ReportMarkdown:    sql.NullString{String: result.ReportMarkdown, Valid: result.ReportMarkdown != ""},
	}

	// Retried like the teacher's CreateOrUpdateAnalysesResults write: transient
	// serialization failures under concurrent writers should not fail the run.
	_, err = retry.Do(3, func() (any, error) {
		return nil, a.Q.InsertGapAnalysisResult(ctx, row)
	})
	return err
}

func (a PersistenceAdapter) UpsertReportStatusGenerating(ctx context.Context, userID, jobID uuid.UUID) error {
	return a.Q.UpsertReportStatus(ctx, userID, jobID, ReportStatusGenerating)
}

func (a PersistenceAdapter) UpsertReportStatusReady(ctx context.Context, userID, jobID uuid.UUID) error {
	return a.Q.UpsertReportStatus(ctx, userID, jobID, ReportStatusReady)
}

func (a PersistenceAdapter) ClearReportStatus(ctx context.Context, userID, jobID uuid.UUID) error {
	return a.Q.ClearReportStatus(ctx, userID, jobID)
}
