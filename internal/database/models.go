// Package database holds hand-written, sqlc-style query accessors over
// Postgres (database/sql + github.com/lib/pq), in the same shape the
// teacher's internal/database package used for resumes and sessions:
// a const SQL string per query, a typed Params struct where needed, and a
// (*Queries) method doing the scan.
package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Queries wraps a *sql.DB, mirroring database.New(db) in the teacher.
type Queries struct {
	db *sql.DB
}

// New constructs Queries over db.
func New(db *sql.DB) *Queries {
	return &Queries{db: db}
}

// Resume is the row shape the core reads from the resume store (spec §6a).
type Resume struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	RawText         string
	ProcessingRunID uuid.UUID
	IsDefault       bool
	CreatedAt       time.Time
}

// Job is the row shape the core reads from the job store (spec §6b),
// carrying the enrichment fields original_source/career_engine.py folds into
// job_text.
type Job struct {
	ID              uuid.UUID
	Title           string
	Company         sql.NullString
	Location        sql.NullString
	Description     string
	Requirements    sql.NullString
	RequiredSkills  []string
	PreferredSkills []string
	JobType         sql.NullString
	SalaryMin       sql.NullFloat64
	SalaryMax       sql.NullFloat64
	SalaryCurrency  sql.NullString
	ExternalURL     sql.NullString
}

// ExtractionCacheStatus is the ExtractionCache row's lifecycle state (spec §3).
type ExtractionCacheStatus string

const (
	ExtractionCacheRunning ExtractionCacheStatus = "running"
	ExtractionCacheReady   ExtractionCacheStatus = "ready"
	ExtractionCacheFailed  ExtractionCacheStatus = "failed"
)

// ExtractionCacheRow is the persisted ExtractionCache entity (spec §3, §4.4).
type ExtractionCacheRow struct {
	ID               uuid.UUID
	DocType          string // "resume" or "jd"
	TextSHA256       string
	ExtractorVersion string
	ModelID          string
	PromptVersion    string
	Status           ExtractionCacheStatus
	ResultJSON       []byte
	Diagnostics      []byte
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ProcessingRunRow is the persisted ProcessingRun entity (spec §3).
type ProcessingRunRow struct {
	ID                  uuid.UUID
	ResumeID            uuid.UUID
	JobID               uuid.UUID
	EffectiveConfigJSON []byte
	LLMModelID          string
	EmbeddingModelID    string
	CodeVersion         string
	TaxonomySnapshotID  string
	CreatedAt           time.Time
}

// GapAnalysisRow is the persisted GapAnalysisResult entity, dual-format per
// spec §6e: legacy list columns alongside the canonical analysis_json.
type GapAnalysisRow struct {
	ID                uuid.UUID
	ResumeID          uuid.UUID
	JobID             uuid.UUID
	ProcessingRunID   uuid.UUID
	UserID            uuid.UUID
	Score             float64
	MatchedSkillsJSON []byte
	MissingSkillsJSON []byte
	WeakSkillsJSON    []byte
	ResumeSkillsJSON  []byte
	AnalysisJSON      []byte
	AnalysisVersion   string
	ReportMarkdown    sql.NullString
	CreatedAt         time.Time
}

// ReportStatusValue is the per (user, job) report lifecycle flag (spec §3).
type ReportStatusValue string

const (
	ReportStatusGenerating ReportStatusValue = "generating"
	ReportStatusReady      ReportStatusValue = "ready"
)

// ReportStatusRow is the persisted ReportStatus entity.
type ReportStatusRow struct {
	UserID    uuid.UUID
	JobID     uuid.UUID
	Status    ReportStatusValue
	UpdatedAt time.Time
}
