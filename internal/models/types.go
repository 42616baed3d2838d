// Package models defines the transient and persisted data shapes that flow
// through the CareerEngine pipeline: extracted skills, taxonomy mappings,
// and the canonical gap-analysis result.
package models

import (
	"time"

	"github.com/google/uuid"
)

// SkillType discriminates taxonomy nodes and mapped entries between actual
// skills and O*NET tasks. Tasks are mapped for diagnostics but excluded from
// coverage scoring.
type SkillType string

const (
	SkillTypeSkill SkillType = "skill"
	SkillTypeTask  SkillType = "task"
)

// Framework identifies which taxonomy a Skill node belongs to.
type Framework string

const (
	FrameworkCustom Framework = "custom"
	FrameworkONET   Framework = "onet"
	FrameworkESCO   Framework = "esco"
)

// Level is the ordered proficiency label vocabulary the extractor and mapper
// share. Ordering matters: higher index means higher proficiency.
type Level string

const (
	LevelNone       Level = "none"
	LevelBasic      Level = "basic"
	LevelWorking    Level = "working"
	LevelProficient Level = "proficient"
	LevelAdvanced   Level = "advanced"
)

// levelScores gives the canonical numeric anchor for each label, per spec §3.
var levelScores = map[Level]float64{
	LevelNone:       0.0,
	LevelBasic:      1.0,
	LevelWorking:    2.0,
	LevelProficient: 3.0,
	LevelAdvanced:   4.0,
}

// DefaultScoreForLevel returns the canonical numeric anchor for a label, or
// the "working" anchor if the label is not recognized.
func DefaultScoreForLevel(l Level) float64 {
	if s, ok := levelScores[l]; ok {
		return s
	}
	return levelScores[LevelWorking]
}

// DefaultLevel is the extractor's fallback proficiency snapshot when the
// model omits a level, per spec §4.3.
func DefaultLevel() LevelSnapshot {
	return LevelSnapshot{
		Label:      LevelWorking,
		Score:      2.0,
		Confidence: 0.5,
	}
}

// LevelSnapshot is a proficiency observation: an ordered label, a numeric
// score in [0,4], optional years of experience, a confidence in [0,1], and
// optional supporting signal strings. A zero-value LevelSnapshot with an
// empty Label represents "Unknown" and callers must substitute DefaultLevel.
type LevelSnapshot struct {
	Label      Level    `json:"label,omitempty"`
	Score      float64  `json:"score"`
	Years      *float64 `json:"years,omitempty"`
	Confidence float64  `json:"confidence"`
	Evidence   []string `json:"evidence,omitempty"`
	Signals    []string `json:"signals,omitempty"`
}

// Known reports whether this snapshot carries an actual label rather than
// being the zero value.
func (l LevelSnapshot) Known() bool {
	return l.Label != ""
}

// OrDefault returns l if it is Known, otherwise the spec §4.3 default.
func (l LevelSnapshot) OrDefault() LevelSnapshot {
	if l.Known() {
		return l
	}
	return DefaultLevel()
}

// EvidenceSpan is a validated character offset range into the source text.
type EvidenceSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Skill is a canonical taxonomy node (an O*NET skill or task entry, or a
// custom-framework node). It is referenced, never owned, by the core.
type Skill struct {
	ID              string    `json:"skill_id"`
	Name            string    `json:"name"`
	TaxonomyPath    string    `json:"taxonomy_path,omitempty"`
	Framework       Framework `json:"framework"`
	ExternalID      string    `json:"external_id,omitempty"`
	HotTech         bool      `json:"hot_tech"`
	InDemand        bool      `json:"in_demand"`
	SkillType       SkillType `json:"skill_type"`
	EmbeddingHandle string    `json:"embedding_handle,omitempty"`
	Aliases         []string  `json:"aliases,omitempty"`
}

// ExtractedSkill is a single skill or responsibility token detected in free
// text by the Extractor, before taxonomy mapping.
type ExtractedSkill struct {
	Name          string         `json:"name"`
	Level         LevelSnapshot  `json:"level"`
	NiceToHave    bool           `json:"nice_to_have"`
	EvidenceSpans []EvidenceSpan `json:"evidence_spans,omitempty"`
	EvidenceTexts []string       `json:"evidence_texts,omitempty"`
}

// ExtractionOutput is the Extractor's full result for one document.
type ExtractionOutput struct {
	Skills           []ExtractedSkill `json:"skills"`
	Responsibilities []string         `json:"responsibilities"`
}

// MappedSkill is the Mapper's output: a taxonomy Skill paired with the
// surface token that produced it, a similarity score, and whichever side's
// level snapshot applies.
type MappedSkill struct {
	Token           string         `json:"token"`
	Match           Skill          `json:"match"`
	Score           float64        `json:"score"`
	IsRequired      bool           `json:"is_required"`
	CandidateLevel  *LevelSnapshot `json:"candidate_level,omitempty"`
	RequiredLevel   *LevelSnapshot `json:"required_level,omitempty"`
	IsTaskMapping   bool           `json:"is_task_mapping"`
	SourceText      string         `json:"source_text,omitempty"`
}

// MatchStatus discriminates a matched skill's qualification state.
type MatchStatus string

const (
	StatusMeetsOrExceeds  MatchStatus = "meets_or_exceeds"
	StatusUnderqualified  MatchStatus = "underqualified"
	StatusMissing         MatchStatus = "missing"
	StatusResumeOnly      MatchStatus = "resume_only"
)

// MatchedSkill is a job-required skill present on both sides of the
// comparison, per spec §3.
type MatchedSkill struct {
	Skill          Skill         `json:"skill"`
	Token          string        `json:"token"`
	CandidateLevel LevelSnapshot `json:"candidate_level"`
	RequiredLevel  LevelSnapshot `json:"required_level"`
	LevelDelta     float64       `json:"level_delta"`
	Status         MatchStatus   `json:"status"`
	IsRequired     bool          `json:"is_required"`
}

// MissingSkill is a required job skill absent from the resume side.
type MissingSkill struct {
	Skill      Skill       `json:"skill"`
	Token      string      `json:"token"`
	HotTech    bool        `json:"hot_tech"`
	InDemand   bool        `json:"in_demand"`
	IsRequired bool        `json:"is_required"`
	Status     MatchStatus `json:"status"`
}

// ResumeSkill is any resume-detected skill, the superset reported alongside
// matched/missing.
type ResumeSkill struct {
	Skill          Skill         `json:"skill"`
	Token          string        `json:"token"`
	CandidateLevel LevelSnapshot `json:"candidate_level"`
	Status         MatchStatus   `json:"status"`
}

// GapMetrics is the summary numeric view of a GapAnalysisResult.
type GapMetrics struct {
	Score                   float64 `json:"score"`
	MatchedSkillCount       int     `json:"matched_skill_count"`
	MissingSkillCount       int     `json:"missing_skill_count"`
	UnderqualifiedCount     int     `json:"underqualified_skill_count"`
	ResumeSkillCount        int     `json:"resume_skill_count"`
}

// AnalysisContext carries the request context and effective configuration
// snapshot attached to a persisted result.
type AnalysisContext struct {
	ResumeID             uuid.UUID      `json:"resume_id"`
	JobID                uuid.UUID      `json:"job_id"`
	ProcessingRunID      uuid.UUID      `json:"processing_run_id"`
	JobTitle             string         `json:"job_title,omitempty"`
	Company              string         `json:"company,omitempty"`
	TaxonomySnapshotTag  string         `json:"taxonomy_snapshot_tag,omitempty"`
	ConfigSnapshot       map[string]any `json:"config_snapshot,omitempty"`
	GeneratedAt          time.Time      `json:"generated_at"`
}

// AnalysisSchemaVersion is the canonical GapAnalysisResult schema version,
// per spec §4.6 step 7.
const AnalysisSchemaVersion = "1.0.0"

// GapAnalysisResult is the canonical, versioned, persisted output of one
// analysis run (spec §3).
type GapAnalysisResult struct {
	Version        string          `json:"version"`
	Context        AnalysisContext `json:"context"`
	Metrics        GapMetrics      `json:"metrics"`
	MatchedSkills  []MatchedSkill  `json:"matched_skills"`
	MissingSkills  []MissingSkill  `json:"missing_skills"`
	ResumeSkills   []ResumeSkill   `json:"resume_skills"`
	Diagnostics    map[string]any  `json:"diagnostics,omitempty"`
	Extras         map[string]any  `json:"extras,omitempty"`
	ReportMarkdown string          `json:"report_markdown,omitempty"`
}

// Resume is the narrow view of a candidate resume record the core reads,
// per spec §6a.
type Resume struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	RawText         string
	ProcessingRunID uuid.UUID
}

// JobRecord is the narrow view of a target job record the core reads, per
// spec §6b, enriched with the optional fields the original enrichment block
// (original_source/career_engine.py) also folds in.
type JobRecord struct {
	ID              uuid.UUID
	Title           string
	Company         string
	Location        string
	Description     string
	Requirements    string
	RequiredSkills  []string
	PreferredSkills []string
	JobType         string
	SalaryMin       *float64
	SalaryMax       *float64
	SalaryCurrency  string
	ExternalURL     string
}
