// Package mapper implements the taxonomy mapper's adaptive confidence gate
// (the "CRAG-style gate"): vector nearest-neighbor retrieval, a configurable
// cutoff strategy, a literal-text guard against phantom semantic matches,
// and a bounded retry loop that can bump topk, switch retrieval recipe, or
// nudge the floor before giving up. Grounded on
// original_source/onet_mapper.py's _filter_hits/_passes_literal_text_guard,
// with the retry/gate loop itself authored fresh per the gate table this
// package's caller (internal/careerengine) drives it against.
package mapper

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/jobmatch/careerengine/internal/config"
	"github.com/jobmatch/careerengine/internal/models"
	"github.com/jobmatch/careerengine/internal/vectorindex"
)

// Diagnostics reports gate and filter outcomes, per spec §4.5 step 8: the
// per-token maps hold the most recent MapTokens and MapTasks call, while
// GateSummary accumulates over every call made on the Mapper.
type Diagnostics struct {
	SkillDiagnostics map[string]TokenDiagnostics `json:"skill_diagnostics"`
	TaskDiagnostics  map[string]TokenDiagnostics `json:"task_diagnostics"`
	GateSummary      GateSummary                 `json:"gate_summary"`
}

// TokenDiagnostics records the filter/gate trail for a single token.
type TokenDiagnostics struct {
	TotalHits           int      `json:"total_hits"`
	AcceptedCount       int      `json:"accepted_count"`
	DroppedCount        int      `json:"dropped_count"`
	CutoffUsed          float64  `json:"cutoff_used"`
	Strategy            string   `json:"strategy"`
	TopScores           []float64 `json:"top_scores,omitempty"`
	GateActions         []string `json:"gate_actions,omitempty"`
	Retries             int      `json:"retries"`
	LiteralTextRejected int      `json:"literal_text_rejected,omitempty"`
	Mapped              bool     `json:"mapped"`
}

// GateSummary is the aggregate view over the tokens processed: per call in
// mapAll, and accumulated across calls in the Mapper's last summary.
type GateSummary struct {
	TotalTokens       int `json:"total_tokens"`
	TotalAccepted     int `json:"total_accepted"`
	TotalDropped      int `json:"total_dropped"`
	TopkBumps         int `json:"topk_bumps"`
	RecipeSwitches    int `json:"recipe_switches"`
	FloorNudges       int `json:"floor_nudges"`
	ConservativeFalls int `json:"conservative_fallbacks"`
	Unmapped          int `json:"unmapped"`
}

// Mapper maps extracted tokens to taxonomy entries via the vector index
// under the adaptive confidence gate.
type Mapper struct {
	index vectorindex.Index
	cfg   config.CareerEngineConfig

	lastSkillDiag map[string]TokenDiagnostics
	lastTaskDiag  map[string]TokenDiagnostics
	lastSummary   GateSummary
}

// New constructs a Mapper over index using cfg's match-strategy and CRAG
// gate settings.
func New(index vectorindex.Index, cfg config.CareerEngineConfig) *Mapper {
	return &Mapper{index: index, cfg: cfg}
}

var tokenBoundary = regexp.MustCompile(`[^a-z0-9]+`)

func normalizeTokens(tokens []string) []string {
	var out []string
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// MapTokens implements map_tokens: map extracted skill tokens to taxonomy
// skill nodes, per spec §4.5.
func (m *Mapper) MapTokens(ctx context.Context, tokens []string, sourceType, sourceText string) []models.MappedSkill {
	return m.mapAll(ctx, normalizeTokens(tokens), sourceType, sourceText, models.SkillTypeSkill, false)
}

// MapTasks implements map_tasks: map responsibility text to taxonomy skill
// nodes for diagnostic coverage, flagged IsTaskMapping so the Analyzer
// excludes them from scoring (spec §4.6 step 1).
func (m *Mapper) MapTasks(ctx context.Context, taskTexts []string, sourceText string) []models.MappedSkill {
	return m.mapAll(ctx, normalizeTokens(taskTexts), "task", sourceText, models.SkillTypeSkill, true)
}

func (m *Mapper) mapAll(ctx context.Context, tokens []string, sourceType, sourceText string, skillType models.SkillType, isTask bool) []models.MappedSkill {
	seen := map[string]bool{}
	var out []models.MappedSkill
	diag := map[string]TokenDiagnostics{}

	for _, token := range tokens {
		hits, tokenDiag := m.resolveToken(ctx, token, sourceType, sourceText, skillType)
		diag[token] = tokenDiag
		for _, h := range hits {
			if seen[h.Skill.ID] {
				continue
			}
			seen[h.Skill.ID] = true
			out = append(out, models.MappedSkill{
				Token:         token,
				Match:         h.Skill,
				Score:         h.Score,
				IsTaskMapping: isTask,
				SourceText:    sourceText,
			})
		}
	}

	summary := GateSummary{TotalTokens: len(tokens)}
	for _, d := range diag {
		summary.TotalAccepted += d.AcceptedCount
		summary.TotalDropped += d.DroppedCount
		if !d.Mapped {
			summary.Unmapped++
		}
		for _, action := range d.GateActions {
			switch action {
			case "bump_topk":
				summary.TopkBumps++
			case "recipe_switch":
				summary.RecipeSwitches++
			case "floor_nudge":
				summary.FloorNudges++
			case "conservative_fallback":
				summary.ConservativeFalls++
			}
		}
	}

	if isTask {
		m.lastTaskDiag = diag
	} else {
		m.lastSkillDiag = diag
	}
	m.lastSummary = mergeSummary(m.lastSummary, summary, isTask)

	return out
}

func mergeSummary(prev, next GateSummary, isTask bool) GateSummary {
	// The summary accumulates over every MapTokens and MapTasks call made on
	// this Mapper (the engine maps the resume side and the job side through
	// the same Mapper, so both are counted).
	prev.TotalTokens += next.TotalTokens
	prev.TotalAccepted += next.TotalAccepted
	prev.TotalDropped += next.TotalDropped
	prev.TopkBumps += next.TopkBumps
	prev.RecipeSwitches += next.RecipeSwitches
	prev.FloorNudges += next.FloorNudges
	prev.ConservativeFalls += next.ConservativeFalls
	prev.Unmapped += next.Unmapped
	return prev
}

// GetLastMappingDiagnostics implements get_last_mapping_diagnostics.
func (m *Mapper) GetLastMappingDiagnostics() Diagnostics {
	return Diagnostics{
		SkillDiagnostics: m.lastSkillDiag,
		TaskDiagnostics:  m.lastTaskDiag,
		GateSummary:      m.lastSummary,
	}
}

// hit is the package-local view of a vector index result: a skill and its
// score only. toHits orders hits by score alone; hits with equal scores keep
// the order the index returned them in, with no name-distance or id tie-break.
type hit struct {
	Skill models.Skill
	Score float64
}

// resolveToken runs the full per-token algorithm of spec §4.5: retrieve,
// filter by cutoff, apply the literal-text guard, evaluate the CRAG gate,
// and retry (bounded by max_retries) before falling back or giving up.
func (m *Mapper) resolveToken(ctx context.Context, token, sourceType, sourceText string, skillType models.SkillType) ([]hit, TokenDiagnostics) {
	gate := m.cfg.CRAG
	strategy := m.cfg.MatchStrategy

	topk := strategy.TopK
	floor := strategy.FloorForSourceType(sourceType)
	recipeSwitched := false
	floorNudged := false

	diag := TokenDiagnostics{Strategy: strategy.Strategy}
	var bestTop1 *hit
	var bestTop1Score float64

	for retry := 0; retry <= gate.MaxRetries; retry++ {
		searchType := skillType
		if recipeSwitched {
			searchType = models.SkillTypeTask
		}

		rawHits, err := m.index.Search(ctx, token, topk, searchType)
		if err != nil {
			diag.GateActions = append(diag.GateActions, "index_error")
			break
		}
		hits := toHits(rawHits)
		diag.TotalHits = len(hits)

		cutoff := cutoffFor(strategy, floor, hits, sourceType)
		accepted, dropped := filterByCutoff(hits, cutoff)
		if strategy.Strategy == "margin" && len(accepted) > 0 {
			// Margin strategy: only the top-1 hit is kept, and only when it
			// leads top-2 by at least strategy.Margin; otherwise the token is
			// ambiguous and nothing is accepted.
			if len(hits) >= 2 && hits[0].Score-hits[1].Score < strategy.Margin {
				dropped = append(dropped, accepted...)
				accepted = nil
			} else {
				dropped = append(dropped, accepted[1:]...)
				accepted = accepted[:1]
			}
		}
		diag.CutoffUsed = cutoff
		diag.TopScores = topScores(hits, 3)

		literalRejected := 0
		var literalAccepted []hit
		for _, h := range accepted {
			if passesLiteralTextGuard(strategy.LexicalGuard, h.Skill, sourceText) {
				literalAccepted = append(literalAccepted, h)
			} else {
				literalRejected++
			}
		}
		diag.LiteralTextRejected = literalRejected
		diag.AcceptedCount = len(literalAccepted)
		diag.DroppedCount = len(dropped) + literalRejected
		diag.Retries = retry

		if len(literalAccepted) > 0 {
			top1 := literalAccepted[0]
			bestTop1 = &top1
			bestTop1Score = top1.Score
		}

		margin := 0.0
		if len(hits) >= 2 {
			margin = hits[0].Score - hits[1].Score
		}
		literalRejectRate := 0.0
		if len(accepted) > 0 {
			literalRejectRate = float64(literalRejected) / float64(len(accepted))
		}

		switch {
		case len(literalAccepted) < gate.MinHits && topk < gate.MaxTopK && retry < gate.MaxRetries:
			topk += gate.BumpTopKBy
			if topk > gate.MaxTopK {
				topk = gate.MaxTopK
			}
			diag.GateActions = append(diag.GateActions, "bump_topk")
			continue
		case margin < gate.MinMargin && gate.AllowRecipeSwitch && !recipeSwitched && retry < gate.MaxRetries:
			recipeSwitched = true
			diag.GateActions = append(diag.GateActions, "recipe_switch")
			continue
		case literalRejectRate > 0.5 && !floorNudged && retry < gate.MaxRetries:
			floor = nudgeFloor(floor)
			floorNudged = true
			diag.GateActions = append(diag.GateActions, "floor_nudge")
			continue
		default:
			if len(literalAccepted) > 0 {
				diag.Mapped = true
				return []hit{literalAccepted[0]}, diag
			}
			// Exhausted the gate without an accepted hit this iteration;
			// fall through to the conservative fallback check below.
		}
		break
	}

	if bestTop1 != nil && bestTop1Score >= floor {
		diag.GateActions = append(diag.GateActions, "conservative_fallback")
		diag.Mapped = true
		return []hit{*bestTop1}, diag
	}
	diag.Mapped = false
	return nil, diag
}

func toHits(in []vectorindex.Hit) []hit {
	out := make([]hit, len(in))
	for i, h := range in {
		out[i] = hit{Skill: h.Skill, Score: h.Score}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func topScores(hits []hit, n int) []float64 {
	if len(hits) < n {
		n = len(hits)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = hits[i].Score
	}
	return out
}

func filterByCutoff(hits []hit, cutoff float64) (accepted, dropped []hit) {
	for _, h := range hits {
		if h.Score >= cutoff {
			accepted = append(accepted, h)
		} else {
			dropped = append(dropped, h)
		}
	}
	return accepted, dropped
}

// cutoffFor computes the cutoff score for the configured strategy: static
// uses the fixed threshold; margin uses min_score (the top-1/top-2 margin
// test itself happens in resolveToken, not here); quantile takes the max of the floor
// and the q-th quantile of returned scores.
func cutoffFor(strategy config.MatchStrategy, floor float64, hits []hit, sourceType string) float64 {
	switch strategy.Strategy {
	case "static":
		return strategy.StaticThreshold
	case "margin":
		return strategy.MinScore
	default: // quantile
		if len(hits) == 0 {
			return floor
		}
		scores := make([]float64, len(hits))
		for i, h := range hits {
			scores[i] = h.Score
		}
		q := quantile(scores, strategy.QuantileForSourceType(sourceType))
		if q > floor {
			return q
		}
		return floor
	}
}

// quantile computes the q-th quantile (0..1) of a score slice using linear
// interpolation between closest ranks, matching numpy.quantile's default.
func quantile(scores []float64, q float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func nudgeFloor(floor float64) float64 {
	return floor + 0.05
}

// passesLiteralTextGuard rejects a candidate whose canonical name (and no
// alias) does not appear as a token-bounded, case-insensitive substring of
// source_text, to suppress phantom matches driven by semantic neighborhood
// alone (spec §4.5 step 4). Deliberately ignores the query token itself —
// the token is drawn from source_text by construction, so checking it would
// make the guard a no-op for every semantic near-miss.
func passesLiteralTextGuard(enabled bool, skill models.Skill, sourceText string) bool {
	if !enabled || sourceText == "" {
		return true
	}
	if containsTokenBounded(sourceText, skill.Name) {
		return true
	}
	for _, alias := range skill.Aliases {
		if containsTokenBounded(sourceText, alias) {
			return true
		}
	}
	return false
}

// containsTokenBounded reports whether needle appears in haystack as a
// case-insensitive substring bounded by non-alphanumeric characters (or the
// string edges) on both sides, so "Java" does not spuriously match inside
// "JavaScript".
func containsTokenBounded(haystack, needle string) bool {
	needle = strings.TrimSpace(needle)
	if needle == "" {
		return false
	}
	pattern := `(?i)(^|[^a-zA-Z0-9])` + regexp.QuoteMeta(needle) + `([^a-zA-Z0-9]|$)`
	matched, err := regexp.MatchString(pattern, haystack)
	return err == nil && matched
}
