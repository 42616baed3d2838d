package mapper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobmatch/careerengine/internal/config"
	"github.com/jobmatch/careerengine/internal/models"
	"github.com/jobmatch/careerengine/internal/vectorindex"
)

// fakeIndex is a scripted vectorindex.Index: each call to Search consumes
// the next entry in calls (or repeats the last one if exhausted), letting
// tests assert exactly how many queries the gate issued and drive specific
// gate transitions deterministically.
type fakeIndex struct {
	calls   [][]vectorindex.Hit
	queries int
}

func (f *fakeIndex) Search(_ context.Context, _ string, _ int, _ models.SkillType) ([]vectorindex.Hit, error) {
	idx := f.queries
	if idx >= len(f.calls) {
		idx = len(f.calls) - 1
	}
	f.queries++
	return f.calls[idx], nil
}

func skill(id, name string) models.Skill {
	return models.Skill{ID: id, Name: name, SkillType: models.SkillTypeSkill}
}

func baseConfig() config.CareerEngineConfig {
	return config.CareerEngineConfig{
		MatchStrategy: config.MatchStrategy{
			Strategy:    "static",
			TopK:        10,
			JDFloor:     0.40,
			ResumeFloor: 0.30,
			TaskFloor:   0.40,
			StaticThreshold: 0.55,
			LexicalGuard: true,
		},
		CRAG: config.CRAGGate{
			MinHits:           2,
			MinMargin:         0.08,
			MaxRetries:        3,
			MaxTopK:           20,
			BumpTopKBy:        4,
			AllowRecipeSwitch: true,
		},
	}
}

func TestMapTokens_LiteralGuardRejectsPhantomMatch(t *testing.T) {
	// The extractor handed us the abbreviation "JS", which never appears
	// verbatim in the source text — only its expansion "JavaScript" does.
	// The nearest-neighbor search also returns "Java" as a neighbor: its name
	// only occurs as a substring of "JavaScript" (no word boundary), so
	// neither the token nor the match name clears the guard for it.
	idx := &fakeIndex{calls: [][]vectorindex.Hit{
		{
			{Skill: skill("javascript", "JavaScript"), Score: 0.90},
			{Skill: skill("java", "Java"), Score: 0.72},
		},
	}}
	cfg := baseConfig()
	m := New(idx, cfg)

	mapped := m.MapTokens(context.Background(), []string{"JS"}, "resume", "I have 3 years of JavaScript experience.")

	require.Len(t, mapped, 1)
	assert.Equal(t, "javascript", mapped[0].Match.ID)
}

func TestMapTokens_LiteralGuardMonotone(t *testing.T) {
	// Enabling the guard can only shrink, never grow, the set of tokens that
	// end up mapped. A single candidate whose name never appears in the
	// source text is dropped with the guard on but kept with it off.
	hits := []vectorindex.Hit{{Skill: skill("cobol", "COBOL"), Score: 0.90}}
	text := "Looking for a software engineer with strong analytical skills."

	cfg := baseConfig()
	cfg.CRAG.MinHits = 1

	guardOn := cfg
	guardOn.MatchStrategy.LexicalGuard = true
	mappedOn := New(&fakeIndex{calls: [][]vectorindex.Hit{hits}}, guardOn).
		MapTokens(context.Background(), []string{"COBOL"}, "resume", text)

	guardOff := cfg
	guardOff.MatchStrategy.LexicalGuard = false
	mappedOff := New(&fakeIndex{calls: [][]vectorindex.Hit{hits}}, guardOff).
		MapTokens(context.Background(), []string{"COBOL"}, "resume", text)

	assert.Less(t, len(mappedOn), len(mappedOff))
}

func TestMapTokens_GateBumpsTopKOnInsufficientHits(t *testing.T) {
	// First query returns only 1 hit above floor; the gate should bump topk
	// and reissue until min_hits is satisfied or retries exhaust.
	idx := &fakeIndex{calls: [][]vectorindex.Hit{
		{{Skill: skill("rare", "Obscure Skill"), Score: 0.60}},
		{
			{Skill: skill("rare", "Obscure Skill"), Score: 0.60},
			{Skill: skill("rare2", "Another Skill"), Score: 0.58},
			{Skill: skill("rare3", "Third Skill"), Score: 0.56},
		},
	}}
	cfg := baseConfig()
	cfg.MatchStrategy.LexicalGuard = false

	m := New(idx, cfg)
	mapped := m.MapTokens(context.Background(), []string{"Obscure Skill"}, "jd", "requires Obscure Skill and Another Skill and Third Skill")

	require.Len(t, mapped, 1)
	diag := m.GetLastMappingDiagnostics()
	tokenDiag := diag.SkillDiagnostics["Obscure Skill"]
	assert.Contains(t, tokenDiag.GateActions, "bump_topk")
	assert.GreaterOrEqual(t, idx.queries, 2)
}

func TestMapTokens_GateBoundedWork(t *testing.T) {
	// For any single token, the mapper issues at most max_retries + 1 vector
	// queries, even when every retry signal keeps firing.
	always := []vectorindex.Hit{{Skill: skill("x", "X"), Score: 1.0}}
	idx := &fakeIndex{calls: [][]vectorindex.Hit{always}}
	cfg := baseConfig()
	// Force the "insufficient hits" branch forever by requiring more hits
	// than a single result can ever satisfy.
	cfg.CRAG.MinHits = 99
	cfg.MatchStrategy.LexicalGuard = false

	m := New(idx, cfg)
	m.MapTokens(context.Background(), []string{"X"}, "jd", "X appears here")

	assert.LessOrEqual(t, idx.queries, cfg.CRAG.MaxRetries+1)
}

func TestMapTokens_ConservativeFallbackOnExhaustion(t *testing.T) {
	// The first query's top hit passes the literal guard and clears the
	// floor, but min_hits is never satisfied. Every retry after that
	// returns only a phantom hit the literal guard rejects, so the gate
	// exhausts its retries without a fresh accepted hit — the conservative
	// fallback should recall the earlier top-1 rather than give up.
	weakHit := []vectorindex.Hit{{Skill: skill("weak", "Weak Match"), Score: 0.60}}
	phantomHit := []vectorindex.Hit{{Skill: skill("phantom", "Phantom Skill"), Score: 0.70}}
	idx := &fakeIndex{calls: [][]vectorindex.Hit{weakHit, phantomHit}}

	cfg := baseConfig()
	cfg.MatchStrategy.Strategy = "static"
	cfg.MatchStrategy.StaticThreshold = 0.50
	cfg.MatchStrategy.JDFloor = 0.40
	cfg.CRAG.MinHits = 2 // never satisfied by a single hit
	cfg.CRAG.AllowRecipeSwitch = false
	cfg.MatchStrategy.LexicalGuard = true

	m := New(idx, cfg)
	mapped := m.MapTokens(context.Background(), []string{"Weak Match"}, "jd", "Weak Match required")

	require.Len(t, mapped, 1)
	assert.Equal(t, "weak", mapped[0].Match.ID)
	diag := m.GetLastMappingDiagnostics().SkillDiagnostics["Weak Match"]
	assert.Contains(t, diag.GateActions, "conservative_fallback")
}

func TestMapTokens_UnmappedWhenBelowFloor(t *testing.T) {
	hits := []vectorindex.Hit{{Skill: skill("low", "Low Score"), Score: 0.10}}
	idx := &fakeIndex{calls: [][]vectorindex.Hit{hits}}
	cfg := baseConfig()
	cfg.MatchStrategy.LexicalGuard = false

	m := New(idx, cfg)
	mapped := m.MapTokens(context.Background(), []string{"Low Score"}, "jd", "Low Score required")

	assert.Empty(t, mapped)
	diag := m.GetLastMappingDiagnostics().SkillDiagnostics["Low Score"]
	assert.False(t, diag.Mapped)
}
