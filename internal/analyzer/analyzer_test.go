package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobmatch/careerengine/internal/config"
	"github.com/jobmatch/careerengine/internal/models"
)

func weights() config.ScoreWeights {
	return config.ScoreWeights{
		Miss:       0.20,
		Hot:        0.70,
		InDemand:   0.30,
		Level:      0.15,
		LevelGrace: 0.25,
	}
}

func level(l models.Level, score float64) *models.LevelSnapshot {
	return &models.LevelSnapshot{Label: l, Score: score, Confidence: 0.8}
}

func jobSkill(id, name string, required *models.LevelSnapshot, isRequired bool) models.MappedSkill {
	return models.MappedSkill{
		Token:         name,
		Match:         models.Skill{ID: id, Name: name},
		RequiredLevel: required,
		IsRequired:    isRequired,
	}
}

func resumeSkill(id, name string, candidate *models.LevelSnapshot) models.MappedSkill {
	return models.MappedSkill{
		Token:          name,
		Match:          models.Skill{ID: id, Name: name},
		CandidateLevel: candidate,
	}
}

func TestCompare_ExactMatchScoresTen(t *testing.T) {
	resume := []models.MappedSkill{resumeSkill("go", "Go", level(models.LevelAdvanced, 4.0))}
	job := []models.MappedSkill{jobSkill("go", "Go", level(models.LevelAdvanced, 4.0), true)}

	a := New(weights())
	result := a.Compare(resume, job, models.AnalysisContext{})

	require.Len(t, result.MatchedSkills, 1)
	assert.Empty(t, result.MissingSkills)
	assert.Equal(t, models.StatusMeetsOrExceeds, result.MatchedSkills[0].Status)
	assert.Equal(t, 10.0, result.Metrics.Score)
}

func TestCompare_MissingHotTechSkill(t *testing.T) {
	resume := []models.MappedSkill{resumeSkill("go", "Go", level(models.LevelAdvanced, 4.0))}
	job := []models.MappedSkill{
		jobSkill("go", "Go", level(models.LevelAdvanced, 4.0), true),
		{
			Token:         "Kubernetes",
			Match:         models.Skill{ID: "k8s", Name: "Kubernetes", HotTech: true},
			RequiredLevel: level(models.LevelWorking, 2.0),
			IsRequired:    true,
		},
	}

	a := New(weights())
	result := a.Compare(resume, job, models.AnalysisContext{})

	require.Len(t, result.MatchedSkills, 1)
	require.Len(t, result.MissingSkills, 1)
	assert.Equal(t, "k8s", result.MissingSkills[0].Skill.ID)
	assert.True(t, result.MissingSkills[0].HotTech)
	assert.Equal(t, 5.0, result.Metrics.Score)

	components, ok := result.Extras["score_components"].(ScoreComponents)
	require.True(t, ok)
	assert.InDelta(t, weights().Miss+weights().Hot, components.MissingPenalty, 0.001)
}

func TestCompare_UnderqualifiedWhenLevelDeltaExceedsGrace(t *testing.T) {
	resume := []models.MappedSkill{resumeSkill("go", "Go", level(models.LevelBasic, 1.0))}
	job := []models.MappedSkill{jobSkill("go", "Go", level(models.LevelAdvanced, 4.0), true)}

	a := New(weights())
	result := a.Compare(resume, job, models.AnalysisContext{})

	require.Len(t, result.MatchedSkills, 1)
	m := result.MatchedSkills[0]
	assert.Equal(t, models.StatusUnderqualified, m.Status)
	assert.Equal(t, 3.0, m.LevelDelta)
	assert.Equal(t, 1, result.Metrics.UnderqualifiedCount)
}

func TestCompare_LevelDeltaNeverNegative(t *testing.T) {
	// Candidate exceeds the required level; the delta clamps to zero rather
	// than rewarding overqualification with a negative gap.
	resume := []models.MappedSkill{resumeSkill("go", "Go", level(models.LevelAdvanced, 4.0))}
	job := []models.MappedSkill{jobSkill("go", "Go", level(models.LevelBasic, 1.0), true)}

	a := New(weights())
	result := a.Compare(resume, job, models.AnalysisContext{})

	require.Len(t, result.MatchedSkills, 1)
	assert.Equal(t, 0.0, result.MatchedSkills[0].LevelDelta)
	assert.Equal(t, models.StatusMeetsOrExceeds, result.MatchedSkills[0].Status)
}

func TestCompare_EmptyResumeAllMissingScoreZero(t *testing.T) {
	job := []models.MappedSkill{
		jobSkill("go", "Go", level(models.LevelWorking, 2.0), true),
		jobSkill("py", "Python", level(models.LevelWorking, 2.0), true),
	}

	a := New(weights())
	result := a.Compare(nil, job, models.AnalysisContext{})

	assert.Empty(t, result.MatchedSkills)
	require.Len(t, result.MissingSkills, 2)
	assert.Equal(t, 0.0, result.Metrics.Score)
}

func TestCompare_EmptyJobScoresZero(t *testing.T) {
	resume := []models.MappedSkill{resumeSkill("go", "Go", level(models.LevelAdvanced, 4.0))}

	a := New(weights())
	result := a.Compare(resume, nil, models.AnalysisContext{})

	assert.Empty(t, result.MatchedSkills)
	assert.Empty(t, result.MissingSkills)
	require.Len(t, result.ResumeSkills, 1)
	assert.Equal(t, 0.0, result.Metrics.Score)
}

func TestCompare_TaskMappingsExcludedFromScoring(t *testing.T) {
	resume := []models.MappedSkill{resumeSkill("go", "Go", level(models.LevelAdvanced, 4.0))}
	job := []models.MappedSkill{
		jobSkill("go", "Go", level(models.LevelAdvanced, 4.0), true),
		{
			Token:         "managed a team",
			Match:         models.Skill{ID: "leadership", Name: "Leadership"},
			RequiredLevel: level(models.LevelWorking, 2.0),
			IsTaskMapping: true,
		},
	}

	a := New(weights())
	result := a.Compare(resume, job, models.AnalysisContext{})

	require.Len(t, result.MatchedSkills, 1)
	assert.Empty(t, result.MissingSkills)
	assert.Equal(t, 10.0, result.Metrics.Score)
}

func TestCompare_MatchedSortsUnderqualifiedFirst(t *testing.T) {
	resume := []models.MappedSkill{
		resumeSkill("go", "Go", level(models.LevelBasic, 1.0)),
		resumeSkill("py", "Python", level(models.LevelAdvanced, 4.0)),
	}
	job := []models.MappedSkill{
		jobSkill("py", "Python", level(models.LevelAdvanced, 4.0), true),
		jobSkill("go", "Go", level(models.LevelAdvanced, 4.0), true),
	}

	a := New(weights())
	result := a.Compare(resume, job, models.AnalysisContext{})

	require.Len(t, result.MatchedSkills, 2)
	assert.Equal(t, models.StatusUnderqualified, result.MatchedSkills[0].Status)
	assert.Equal(t, "go", result.MatchedSkills[0].Skill.ID)
}

func TestCompare_MissingSortsHotTechFirst(t *testing.T) {
	job := []models.MappedSkill{
		jobSkill("plain", "Plain Skill", level(models.LevelWorking, 2.0), true),
		{
			Token:         "Rust",
			Match:         models.Skill{ID: "rust", Name: "Rust", HotTech: true},
			RequiredLevel: level(models.LevelWorking, 2.0),
			IsRequired:    true,
		},
	}

	a := New(weights())
	result := a.Compare(nil, job, models.AnalysisContext{})

	require.Len(t, result.MissingSkills, 2)
	assert.Equal(t, "rust", result.MissingSkills[0].Skill.ID)
}

func TestCompare_SetsVersionAndGeneratedAt(t *testing.T) {
	a := New(weights())
	result := a.Compare(nil, nil, models.AnalysisContext{})

	assert.Equal(t, models.AnalysisSchemaVersion, result.Version)
	assert.False(t, result.Context.GeneratedAt.IsZero())
}
