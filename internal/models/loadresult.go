package models

import "encoding/json"

// PersistedGapAnalysisRow is the narrow view of a stored gap-analysis row
// LoadGapAnalysisResult needs: the canonical columns plus the legacy list
// columns kept alongside them for backward compatibility (spec §6e).
type PersistedGapAnalysisRow struct {
	AnalysisJSON      []byte
	AnalysisVersion   string
	MatchedSkillsJSON []byte
	MissingSkillsJSON []byte
	ResumeSkillsJSON  []byte
	Score             float64
}

// LoadGapAnalysisResult reconstructs a GapAnalysisResult from a persisted
// row, preferring the canonical analysis_json column and falling back to the
// legacy matched/missing/resume list columns when analysis_json is absent or
// unparseable, mirroring schemas.py's load_analysis_from_storage.
func LoadGapAnalysisResult(row PersistedGapAnalysisRow) (GapAnalysisResult, error) {
	if len(row.AnalysisJSON) > 0 {
		var result GapAnalysisResult
		if err := json.Unmarshal(row.AnalysisJSON, &result); err == nil {
			return result, nil
		}
	}

	result := GapAnalysisResult{
		Version: row.AnalysisVersion,
		Metrics: GapMetrics{Score: row.Score},
	}
	if len(row.MatchedSkillsJSON) > 0 {
		if err := json.Unmarshal(row.MatchedSkillsJSON, &result.MatchedSkills); err != nil {
			return GapAnalysisResult{}, err
		}
	}
	if len(row.MissingSkillsJSON) > 0 {
		if err := json.Unmarshal(row.MissingSkillsJSON, &result.MissingSkills); err != nil {
			return GapAnalysisResult{}, err
		}
	}
	if len(row.ResumeSkillsJSON) > 0 {
		if err := json.Unmarshal(row.ResumeSkillsJSON, &result.ResumeSkills); err != nil {
			return GapAnalysisResult{}, err
		}
	}
	result.Metrics.MatchedSkillCount = len(result.MatchedSkills)
	result.Metrics.MissingSkillCount = len(result.MissingSkills)
	result.Metrics.ResumeSkillCount = len(result.ResumeSkills)
	for _, m := range result.MatchedSkills {
		if m.Status == StatusUnderqualified {
			result.Metrics.UnderqualifiedCount++
		}
	}
	return result, nil
}
