// Package careerengine implements the CareerEngine pipeline controller and
// its three-step Orchestrator, tying resume/job resolution to the
// extract → map → compare → render pipeline. Grounded on the teacher's
// callAgent/worker control flow (consume.go), generalized from "analyze one
// session of resumes against a job" to the staged pipeline this spec
// describes.
package careerengine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jobmatch/careerengine/internal/analyzer"
	"github.com/jobmatch/careerengine/internal/cache"
	"github.com/jobmatch/careerengine/internal/config"
	"github.com/jobmatch/careerengine/internal/extractor"
	"github.com/jobmatch/careerengine/internal/mapper"
	"github.com/jobmatch/careerengine/internal/models"
	"github.com/jobmatch/careerengine/internal/renderer"
	"github.com/jobmatch/careerengine/internal/vectorindex"
)

// CodeVersion is stamped onto every ProcessingRun row.
const CodeVersion = "careerengine-1.0.0"

// Engine is the pipeline controller implementing CareerEngine.analyze (spec
// §4.2).
type Engine struct {
	resumes ResumeStore
	jobs    JobStore
	persist Persistence

	extractor      extractor.Extractor
	extractorModel string
	cache          *cache.ExtractionCache
	index          vectorindex.Index
	globalConfig   config.CareerEngineConfig

	extractorVersion string
	promptVersion    string
	embeddingModelID string
	taxonomySnapshot string
}

// Config bundles an Engine's fixed dependencies.
type Config struct {
	ResumeStore      ResumeStore
	JobStore         JobStore
	Persistence      Persistence
	Extractor        extractor.Extractor
	Cache            *cache.ExtractionCache
	VectorIndex      vectorindex.Index
	GlobalConfig     config.CareerEngineConfig
	ExtractorVersion string
	PromptVersion    string
	EmbeddingModelID string
	TaxonomySnapshot string
}

// New constructs an Engine.
func New(c Config) *Engine {
	return &Engine{
		resumes:          c.ResumeStore,
		jobs:             c.JobStore,
		persist:          c.Persistence,
		extractor:        c.Extractor,
		extractorModel:   c.GlobalConfig.Extraction.ExtractorModel,
		cache:            c.Cache,
		index:            c.VectorIndex,
		globalConfig:     c.GlobalConfig,
		extractorVersion: c.ExtractorVersion,
		promptVersion:    c.PromptVersion,
		embeddingModelID: c.EmbeddingModelID,
		taxonomySnapshot: c.TaxonomySnapshot,
	}
}

// Analyze implements spec §4.2's analyze(resume_id, job_id, policy_overrides?).
func (e *Engine) Analyze(ctx context.Context, userID, resumeID, jobID uuid.UUID, overrides map[string]any) (models.GapAnalysisResult, error) {
	processingRunID := uuid.New()

	result, err := e.run(ctx, processingRunID, userID, resumeID, jobID, overrides)
	if err != nil {
		// Failure semantics (spec §4.2 step 8 / §7): ProcessingRun row
		// remains; ReportStatus is cleared so clients can retry.
		if clearErr := e.persist.ClearReportStatus(ctx, userID, jobID); clearErr != nil {
			return models.GapAnalysisResult{}, fmt.Errorf("%w (original error: %v)", clearErr, err)
		}
		return models.GapAnalysisResult{}, err
	}
	return result, nil
}

func (e *Engine) run(ctx context.Context, processingRunID, userID, resumeID, jobID uuid.UUID, overrides map[string]any) (models.GapAnalysisResult, error) {
	if err := e.persist.UpsertReportStatusGenerating(ctx, userID, jobID); err != nil {
		return models.GapAnalysisResult{}, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	// Step 1: load resume, extract raw text.
	resume, err := e.resumes.GetResumeByID(ctx, resumeID)
	if err != nil {
		return models.GapAnalysisResult{}, err
	}
	if strings.TrimSpace(resume.RawText) == "" {
		return models.GapAnalysisResult{}, ErrResumeMissing
	}

	// Step 2: load job, build the enriched job text.
	job, err := e.jobs.GetJob(ctx, jobID)
	if err != nil {
		return models.GapAnalysisResult{}, err
	}
	jobText := buildJobText(job)

	// Step 3: effective configuration = global config + overrides.
	effectiveConfig, err := e.globalConfig.WithOverrides(overrides)
	if err != nil {
		return models.GapAnalysisResult{}, fmt.Errorf("%w: %v", ErrInvalidOverride, err)
	}

	if err := e.persist.InsertProcessingRun(ctx, processingRunID, resumeID, jobID,
		e.extractorModel, e.embeddingModelID, CodeVersion, e.taxonomySnapshot); err != nil {
		return models.GapAnalysisResult{}, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	// Step 4: extract, through the extraction cache.
	resumeExtraction, err := e.extractCached(ctx, "resume", resume.RawText, false)
	if err != nil {
		return models.GapAnalysisResult{}, err
	}
	jobExtraction, err := e.extractCached(ctx, "jd", jobText, true)
	if err != nil {
		return models.GapAnalysisResult{}, err
	}

	// Step 5: map both sides through the adaptive confidence gate.
	mapStart := time.Now()
	m := mapper.New(e.index, effectiveConfig)
	resumeMapped := mapWithLevels(ctx, m, resumeExtraction, "resume", resume.RawText, false, false)
	jobMapped := mapWithLevels(ctx, m, jobExtraction, "jd", jobText, true, effectiveConfig.Extraction.ParseNiceToHave, effectiveConfig.Extraction.CapNiceToHave)
	mapElapsed := time.Since(mapStart)

	configJSON, _ := json.Marshal(effectiveConfig.ToMap())
	if err := e.persist.UpdateProcessingRunConfig(ctx, processingRunID, configJSON); err != nil {
		return models.GapAnalysisResult{}, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	// Step 6: compare.
	a := analyzer.New(effectiveConfig.ScoreWeights)
	analysisCtx := models.AnalysisContext{
		ResumeID:            resumeID,
		JobID:               jobID,
		ProcessingRunID:     processingRunID,
		JobTitle:            job.Title,
		Company:             job.Company,
		TaxonomySnapshotTag: e.taxonomySnapshot,
		ConfigSnapshot:      effectiveConfig.ToMap(),
	}
	result := a.Compare(resumeMapped, jobMapped, analysisCtx)

	// Step 6 (cont'd): populate diagnostics with mapping gate trail and
	// timing, per spec §4.6 step 6.
	result.Diagnostics = map[string]any{
		"mapping":        m.GetLastMappingDiagnostics(),
		"mapping_millis": mapElapsed.Milliseconds(),
		"strategy":       effectiveConfig.MatchStrategy.Strategy,
	}

	// Step 7: render.
	result.ReportMarkdown = renderer.Render(result)

	// Step 8: persist, then flip ReportStatus to ready.
	if err := e.persist.InsertGapAnalysisResult(ctx, userID, result); err != nil {
		return models.GapAnalysisResult{}, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	if err := e.persist.UpsertReportStatusReady(ctx, userID, jobID); err != nil {
		return models.GapAnalysisResult{}, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	return result, nil
}

// buildJobText concatenates description, requirements, and the enrichment
// block (title, required/preferred skills, company, location), per spec
// §4.2 step 2 — essential for mapping quality.
func buildJobText(job models.JobRecord) string {
	var b strings.Builder
	b.WriteString(job.Description)
	if job.Requirements != "" {
		b.WriteString("\n\n")
		b.WriteString(job.Requirements)
	}
	b.WriteString("\n\nTitle: " + job.Title)
	if job.Company != "" {
		b.WriteString("\nCompany: " + job.Company)
	}
	if job.Location != "" {
		b.WriteString("\nLocation: " + job.Location)
	}
	if len(job.RequiredSkills) > 0 {
		b.WriteString("\nRequired skills: " + strings.Join(job.RequiredSkills, ", "))
	}
	if len(job.PreferredSkills) > 0 {
		b.WriteString("\nPreferred skills: " + strings.Join(job.PreferredSkills, ", "))
	}
	return b.String()
}

func (e *Engine) extractCached(ctx context.Context, docType, text string, isJD bool) (extractor.ExtractionOutput, error) {
	key := cache.Key{
		DocType:          docType,
		Text:             text,
		ExtractorVersion: e.extractorVersion,
		ModelID:          e.extractorModel,
		PromptVersion:    e.promptVersion,
	}

	raw, err := e.cache.GetOrCompute(ctx, key, func(ctx context.Context) (json.RawMessage, map[string]any, error) {
		out, err := e.extractor.Extract(ctx, text, isJD)
		if err != nil {
			return nil, nil, err
		}
		payload, marshalErr := json.Marshal(out)
		if marshalErr != nil {
			return nil, nil, marshalErr
		}
		return payload, map[string]any{"doc_type": docType}, nil
	})
	if err != nil {
		if errors.Is(err, cache.ErrExtractionPending) {
			return extractor.ExtractionOutput{}, ErrExtractionPending
		}
		return extractor.ExtractionOutput{}, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	var out extractor.ExtractionOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return extractor.ExtractionOutput{}, fmt.Errorf("%w: cached payload unmarshal: %v", ErrExtractionFailed, err)
	}
	return out, nil
}

// mapWithLevels runs the mapper over the extracted skills and tasks, then
// attaches each extracted skill's LevelSnapshot and is_required/nice_to_have
// determination to its mapped counterpart, per original_source's
// _map_with_levels.
func mapWithLevels(ctx context.Context, m *mapper.Mapper, extraction extractor.ExtractionOutput, sourceType, sourceText string, isJD, parseNiceToHave bool, capNiceToHave ...bool) []models.MappedSkill {
	cap := len(capNiceToHave) > 0 && capNiceToHave[0]
	var niceSkills map[string]bool
	if isJD && parseNiceToHave {
		niceSkills = extractor.DetectNiceToHaveSection(sourceText)
	}

	tokens := make([]string, len(extraction.Skills))
	levelByToken := map[string]models.LevelSnapshot{}
	requiredByToken := map[string]bool{}
	for i, s := range extraction.Skills {
		tokens[i] = s.Name
		level := toModelLevel(s.Level)
		flaggedOptional := s.NiceToHave
		isRequired := isJD && !niceSkills[strings.ToLower(s.Name)] && !flaggedOptional

		if isJD && flaggedOptional && cap && s.Level.Years == nil {
			score := level.Score
			if score > 2.0 {
				score = 2.0
			}
			label := level.Label
			if label == models.LevelProficient || label == models.LevelAdvanced {
				label = models.LevelWorking
			}
			level = models.LevelSnapshot{Label: label, Score: score, Confidence: level.Confidence}
		}

		levelByToken[s.Name] = level
		requiredByToken[s.Name] = isRequired
	}

	mapped := m.MapTokens(ctx, tokens, sourceType, sourceText)
	for i := range mapped {
		level := levelByToken[mapped[i].Token]
		required := requiredByToken[mapped[i].Token]
		mapped[i].IsRequired = required
		if isJD {
			mapped[i].RequiredLevel = &level
		} else {
			mapped[i].CandidateLevel = &level
		}
	}

	taskTexts := extraction.Responsibilities
	mappedTasks := m.MapTasks(ctx, taskTexts, sourceText)
	return append(mapped, mappedTasks...)
}

func toModelLevel(l extractor.Level) models.LevelSnapshot {
	return models.LevelSnapshot{
		Label:      models.Level(l.Label),
		Score:      l.Score,
		Years:      l.Years,
		Confidence: l.Confidence,
		Signals:    l.Signals,
	}
}

