package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadGapAnalysisResult_PrefersCanonicalJSON covers property P8: when
// analysis_json is present and parses, it wins outright and legacy columns
// are ignored even if they disagree.
func TestLoadGapAnalysisResult_PrefersCanonicalJSON(t *testing.T) {
	canonical := GapAnalysisResult{
		Version: AnalysisSchemaVersion,
		Metrics: GapMetrics{Score: 7.5, MatchedSkillCount: 3},
		MatchedSkills: []MatchedSkill{
			{Token: "python", Status: StatusMeetsOrExceeds},
		},
	}
	raw, err := json.Marshal(canonical)
	require.NoError(t, err)

	row := PersistedGapAnalysisRow{
		AnalysisJSON:      raw,
		AnalysisVersion:   "0.0.1", // deliberately disagrees with canonical
		Score:             0,
		MatchedSkillsJSON: []byte(`[]`),
	}

	got, err := LoadGapAnalysisResult(row)
	require.NoError(t, err)
	assert.Equal(t, canonical, got)
}

// TestLoadGapAnalysisResult_FallsBackWhenCanonicalJSONAbsent covers the
// legacy-column reconstruction path, including recomputed summary counts.
func TestLoadGapAnalysisResult_FallsBackWhenCanonicalJSONAbsent(t *testing.T) {
	matched := []MatchedSkill{
		{Token: "python", Status: StatusMeetsOrExceeds},
		{Token: "sql", Status: StatusUnderqualified},
	}
	missing := []MissingSkill{
		{Token: "kubernetes", Status: StatusMissing},
	}
	resumeSkills := []ResumeSkill{
		{Token: "python", Status: StatusMeetsOrExceeds},
		{Token: "sql", Status: StatusUnderqualified},
		{Token: "go", Status: StatusResumeOnly},
	}

	matchedJSON, err := json.Marshal(matched)
	require.NoError(t, err)
	missingJSON, err := json.Marshal(missing)
	require.NoError(t, err)
	resumeJSON, err := json.Marshal(resumeSkills)
	require.NoError(t, err)

	row := PersistedGapAnalysisRow{
		AnalysisVersion:   "1.0.0-legacy",
		Score:             6.25,
		MatchedSkillsJSON: matchedJSON,
		MissingSkillsJSON: missingJSON,
		ResumeSkillsJSON:  resumeJSON,
	}

	got, err := LoadGapAnalysisResult(row)
	require.NoError(t, err)

	assert.Equal(t, "1.0.0-legacy", got.Version)
	assert.Equal(t, 6.25, got.Metrics.Score)
	assert.Equal(t, 2, got.Metrics.MatchedSkillCount)
	assert.Equal(t, 1, got.Metrics.MissingSkillCount)
	assert.Equal(t, 3, got.Metrics.ResumeSkillCount)
	assert.Equal(t, 1, got.Metrics.UnderqualifiedCount)
	assert.Equal(t, matched, got.MatchedSkills)
	assert.Equal(t, missing, got.MissingSkills)
	assert.Equal(t, resumeSkills, got.ResumeSkills)
}

// TestLoadGapAnalysisResult_FallsBackOnUnparseableCanonicalJSON covers the
// corrupt-row edge case: analysis_json is present but garbage, so the legacy
// columns are still used rather than erroring outright.
func TestLoadGapAnalysisResult_FallsBackOnUnparseableCanonicalJSON(t *testing.T) {
	row := PersistedGapAnalysisRow{
		AnalysisJSON:      []byte(`{not valid json`),
		AnalysisVersion:   "1.0.0-legacy",
		Score:             4.0,
		MatchedSkillsJSON: []byte(`[]`),
	}

	got, err := LoadGapAnalysisResult(row)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0-legacy", got.Version)
	assert.Equal(t, 4.0, got.Metrics.Score)
	assert.Equal(t, 0, got.Metrics.MatchedSkillCount)
}

// TestLoadGapAnalysisResult_EmptyRowYieldsZeroedResult covers the case where
// neither canonical nor legacy columns carry any payload.
func TestLoadGapAnalysisResult_EmptyRowYieldsZeroedResult(t *testing.T) {
	row := PersistedGapAnalysisRow{AnalysisVersion: "1.0.0", Score: 0}
	got, err := LoadGapAnalysisResult(row)
	require.NoError(t, err)
	assert.Empty(t, got.MatchedSkills)
	assert.Empty(t, got.MissingSkills)
	assert.Empty(t, got.ResumeSkills)
	assert.Equal(t, 0, got.Metrics.UnderqualifiedCount)
}

// TestLoadGapAnalysisResult_MalformedLegacyColumnErrors covers a malformed
// legacy list column producing an error instead of a silently empty result.
func TestLoadGapAnalysisResult_MalformedLegacyColumnErrors(t *testing.T) {
	row := PersistedGapAnalysisRow{
		AnalysisVersion:   "1.0.0",
		MatchedSkillsJSON: []byte(`{not a list`),
	}
	_, err := LoadGapAnalysisResult(row)
	require.Error(t, err)
}
