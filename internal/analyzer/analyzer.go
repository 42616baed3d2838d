// Package analyzer implements the Analyzer: it compares a resume's mapped
// skills against a job's mapped skills and produces the canonical
// GapAnalysisResult, grounded on original_source/gap_analyzer.py's coverage
// scoring and matched/missing/resume_only partitioning.
package analyzer

import (
	"sort"
	"time"

	"github.com/jobmatch/careerengine/internal/config"
	"github.com/jobmatch/careerengine/internal/models"
)

// ScoreComponents are the weighted penalty terms the original scorer
// computes but never applies to metrics.score, carried forward per spec §4.6
// step 4's explicit allowance: "An implementer MAY attach weighted
// components under extras.score_components without changing metrics.score."
type ScoreComponents struct {
	MissingPenalty float64 `json:"missing_penalty"`
	LevelPenalty   float64 `json:"level_penalty"`
}

// Analyzer produces a GapAnalysisResult from two MappedSkill lists.
type Analyzer struct {
	weights config.ScoreWeights
}

// New constructs an Analyzer using the given score weights (spec §4.6
// step 4's commented-out penalty components, surfaced but unapplied).
func New(weights config.ScoreWeights) *Analyzer {
	return &Analyzer{weights: weights}
}

// Compare implements the compare operation of spec §4.6.
func (a *Analyzer) Compare(resumeMapped, jobMapped []models.MappedSkill, ctx models.AnalysisContext) models.GapAnalysisResult {
	resumeSkills := filterSkillType(resumeMapped)
	jobSkills := filterSkillType(jobMapped)

	resumeByID := map[string]models.MappedSkill{}
	for _, s := range resumeSkills {
		resumeByID[s.Match.ID] = s
	}

	var matched []models.MatchedSkill
	var missing []models.MissingSkill
	underqualifiedCount := 0

	for _, job := range jobSkills {
		required := job.RequiredLevel.OrDefault()
		if cand, ok := resumeByID[job.Match.ID]; ok {
			candidate := cand.CandidateLevel.OrDefault()
			levelDelta := required.Score - candidate.Score
			if levelDelta < 0 {
				levelDelta = 0
			}
			status := models.StatusMeetsOrExceeds
			if levelDelta > a.weights.LevelGrace {
				status = models.StatusUnderqualified
				underqualifiedCount++
			}
			matched = append(matched, models.MatchedSkill{
				Skill:          job.Match,
				Token:          job.Token,
				CandidateLevel: candidate,
				RequiredLevel:  required,
				LevelDelta:     levelDelta,
				Status:         status,
				IsRequired:     job.IsRequired,
			})
		} else {
			missing = append(missing, models.MissingSkill{
				Skill:      job.Match,
				Token:      job.Token,
				HotTech:    job.Match.HotTech,
				InDemand:   job.Match.InDemand,
				IsRequired: job.IsRequired,
				Status:     models.StatusMissing,
			})
		}
	}

	var resumeOnly []models.ResumeSkill
	for _, r := range resumeSkills {
		resumeOnly = append(resumeOnly, models.ResumeSkill{
			Skill:          r.Match,
			Token:          r.Token,
			CandidateLevel: r.CandidateLevel.OrDefault(),
			Status:         models.StatusResumeOnly,
		})
	}

	sortMatched(matched)
	sortMissing(missing)

	total := len(matched) + len(missing)
	if total < 1 {
		total = 1
	}
	coverage := (float64(len(matched)) / float64(total)) * 10
	score := round2(clamp(coverage, 0, 10))

	components := a.scoreComponents(matched, missing)

	ctx.GeneratedAt = timeNow()
	return models.GapAnalysisResult{
		Version: models.AnalysisSchemaVersion,
		Context: ctx,
		Metrics: models.GapMetrics{
			Score:               score,
			MatchedSkillCount:   len(matched),
			MissingSkillCount:   len(missing),
			UnderqualifiedCount: underqualifiedCount,
			ResumeSkillCount:    len(resumeOnly),
		},
		MatchedSkills: matched,
		MissingSkills: missing,
		ResumeSkills:  resumeOnly,
		Extras: map[string]any{
			"score_components": components,
		},
	}
}

// scoreComponents computes the weighted penalty terms the base score never
// applies, per spec §9's Open Question resolution: expose them, don't use
// them.
func (a *Analyzer) scoreComponents(matched []models.MatchedSkill, missing []models.MissingSkill) ScoreComponents {
	var missingPenalty float64
	for _, m := range missing {
		p := a.weights.Miss
		if m.HotTech {
			p += a.weights.Hot
		}
		if m.InDemand {
			p += a.weights.InDemand
		}
		missingPenalty += p
	}

	var levelPenalty float64
	for _, m := range matched {
		if m.Status == models.StatusUnderqualified {
			levelPenalty += m.LevelDelta * a.weights.Level
		}
	}

	return ScoreComponents{MissingPenalty: round2(missingPenalty), LevelPenalty: round2(levelPenalty)}
}

func filterSkillType(in []models.MappedSkill) []models.MappedSkill {
	var out []models.MappedSkill
	for _, m := range in {
		if !m.IsTaskMapping {
			out = append(out, m)
		}
	}
	return out
}

// sortMatched orders: underqualified first, then by level_delta descending,
// then hot_tech/in_demand true first, then name lexicographically, per spec
// §4.6 tie-break rules.
func sortMatched(matched []models.MatchedSkill) {
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if (a.Status == models.StatusUnderqualified) != (b.Status == models.StatusUnderqualified) {
			return a.Status == models.StatusUnderqualified
		}
		if a.LevelDelta != b.LevelDelta {
			return a.LevelDelta > b.LevelDelta
		}
		if a.Skill.HotTech != b.Skill.HotTech {
			return a.Skill.HotTech
		}
		if a.Skill.InDemand != b.Skill.InDemand {
			return a.Skill.InDemand
		}
		return a.Skill.Name < b.Skill.Name
	})
}

// sortMissing orders: hot_tech true first, then in_demand true first, then
// name, per spec §4.6 tie-break rules.
func sortMissing(missing []models.MissingSkill) {
	sort.SliceStable(missing, func(i, j int) bool {
		a, b := missing[i], missing[j]
		if a.HotTech != b.HotTech {
			return a.HotTech
		}
		if a.InDemand != b.InDemand {
			return a.InDemand
		}
		return a.Skill.Name < b.Skill.Name
	})
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

// timeNow is a thin seam tests can replace to stamp GeneratedAt
// deterministically; Compare always overwrites the context's GeneratedAt with
// its value.
var timeNow = func() time.Time { return time.Now().UTC() }
