// Package config holds the CareerEngine's global configuration and the
// request-scoped override machinery described in spec §6 and §9: an
// immutable record plus a WithOverrides function that returns a new record,
// modeled on the teacher's typed-struct-from-os.Getenv convention
// (jobmatchworker's R2Config/WorkerConfig) generalized to deep-copy-then-merge.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// MatchStrategy controls the Mapper's nearest-neighbor cutoff behavior.
type MatchStrategy struct {
	Strategy      string  // "static", "quantile", or "margin" (original_source legacy third option)
	TopK          int
	JDQuantile    float64
	ResumeQuantile float64
	TaskQuantile  float64
	JDFloor       float64
	ResumeFloor   float64
	TaskFloor     float64
	MinScore      float64 // used by the "margin" strategy
	Margin        float64 // used by the "margin" strategy
	StaticThreshold float64
	LexicalGuard  bool
}

// FloorForSourceType returns the minimum acceptance threshold for the given
// source type ("resume", "jd", or "task"), per spec §4.5 step 2.
func (m MatchStrategy) FloorForSourceType(sourceType string) float64 {
	switch sourceType {
	case "resume":
		return m.ResumeFloor
	case "task":
		return m.TaskFloor
	default:
		return m.JDFloor
	}
}

// QuantileForSourceType returns the quantile parameter for the given source
// type, per spec §4.5 step 2.
func (m MatchStrategy) QuantileForSourceType(sourceType string) float64 {
	switch sourceType {
	case "resume":
		return m.ResumeQuantile
	case "task":
		return m.TaskQuantile
	default:
		return m.JDQuantile
	}
}

// CRAGGate controls the bounded-retry gate loop inside the Mapper (spec §4.5
// step 6).
type CRAGGate struct {
	MinHits          int
	MinMargin        float64
	MaxRetries       int
	MaxTopK          int
	BumpTopKBy       int
	AllowRecipeSwitch bool
}

// ScoreWeights controls gap-analysis scoring, including the penalty
// components that are computed but not applied to metrics.score by default
// (spec §4.6 step 4, §9 Open Questions).
type ScoreWeights struct {
	Miss       float64
	Hot        float64
	InDemand   float64
	Level      float64
	LevelGrace float64
}

// ExtractionConfig controls the Extractor (spec §4.3).
type ExtractionConfig struct {
	Mode             string // "all_in_one" or "current"
	ExtractorModel   string
	TestMode         bool
	ParseNiceToHave  bool
	CapNiceToHave    bool
	MaxSpansPerSkill int
}

// CareerEngineConfig is the complete, immutable engine configuration. The
// only way to produce a modified copy is WithOverrides, which never mutates
// the receiver (spec §5 "Global configuration... per-request overrides
// produce a local copy and never mutate the global", property P5).
type CareerEngineConfig struct {
	MatchStrategy MatchStrategy
	CRAG          CRAGGate
	ScoreWeights  ScoreWeights
	Extraction    ExtractionConfig
}

// Default builds the global configuration from environment variables,
// following the teacher's os.Getenv-with-fallback convention, using the
// original_source/career_engine/config.py defaults as the numeric anchors.
func Default() CareerEngineConfig {
	return CareerEngineConfig{
		MatchStrategy: MatchStrategy{
			Strategy:        getEnvString("ONET_MATCH_STRATEGY", "quantile"),
			TopK:            getEnvInt("ONET_TOPK", 10),
			JDQuantile:      getEnvFloat("ONET_JD_Q", 0.85),
			ResumeQuantile:  getEnvFloat("ONET_RESUME_Q", 0.85),
			TaskQuantile:    getEnvFloat("ONET_TASK_Q", 0.85),
			JDFloor:         getEnvFloat("ONET_JD_FLOOR", 0.40),
			ResumeFloor:     getEnvFloat("ONET_RESUME_FLOOR", 0.30),
			TaskFloor:       getEnvFloat("ONET_TASK_FLOOR", 0.40),
			MinScore:        getEnvFloat("ONET_MIN_SCORE", 0.50),
			Margin:          getEnvFloat("ONET_MARGIN", 0.15),
			StaticThreshold: getEnvFloat("ONET_MATCH_THRESHOLD", 0.55),
			LexicalGuard:    getEnvBool("ONET_LEXICAL_GUARD", true),
		},
		CRAG: CRAGGate{
			MinHits:           getEnvInt("CRAG_MIN_HITS", 2),
			MinMargin:         getEnvFloat("CRAG_MIN_MARGIN", 0.08),
			MaxRetries:        getEnvInt("CRAG_MAX_RETRIES", 3),
			MaxTopK:           getEnvInt("CRAG_MAX_TOPK", 20),
			BumpTopKBy:        getEnvInt("CRAG_BUMP_TOPK_BY", 4),
			AllowRecipeSwitch: getEnvBool("CRAG_ALLOW_RECIPE_SWITCH", true),
		},
		ScoreWeights: ScoreWeights{
			Miss:       getEnvFloat("GE_MISS_W", 0.20),
			Hot:        getEnvFloat("GE_HOT_W", 0.70),
			InDemand:   getEnvFloat("GE_IN_W", 0.40),
			Level:      getEnvFloat("GE_LEVEL_W", 0.90),
			LevelGrace: getEnvFloat("GE_LEVEL_GRACE", 0.25),
		},
		Extraction: ExtractionConfig{
			Mode:             getEnvString("EXTRACTION_MODE", "all_in_one"),
			ExtractorModel:   getEnvString("EXTRACTOR_MODEL", "gemini-2.5-pro"),
			TestMode:         getEnvBool("SKILL_EXTRACTOR_TEST", false),
			ParseNiceToHave:  getEnvBool("PARSE_NICE_TO_HAVE", true),
			CapNiceToHave:    getEnvBool("CAP_NICE_TO_HAVE", true),
			MaxSpansPerSkill: getEnvInt("MAX_SPANS_PER_SKILL", 2),
		},
	}
}

// ErrInvalidOverride is returned when an override value's type does not
// match the field it targets, per spec §6 "Type-mismatched values raise
// InvalidOverride."
type ErrInvalidOverride struct {
	Key   string
	Value any
}

func (e *ErrInvalidOverride) Error() string {
	return fmt.Sprintf("invalid override for %q: %v", e.Key, e.Value)
}

// WithOverrides returns a new CareerEngineConfig built by deep-copying c and
// applying the recognized keys from overrides (spec §6's configuration
// surface table). Unknown keys are ignored silently; c is never mutated.
func (c CareerEngineConfig) WithOverrides(overrides map[string]any) (CareerEngineConfig, error) {
	out := c // CareerEngineConfig is all value types, so this is already a deep copy.

	for key, value := range overrides {
		var err error
		switch key {
		case "match_strategy.strategy":
			out.MatchStrategy.Strategy, err = asString(key, value)
		case "match_strategy.topk":
			out.MatchStrategy.TopK, err = asInt(key, value)
		case "match_strategy.jd_q":
			out.MatchStrategy.JDQuantile, err = asFloat(key, value)
		case "match_strategy.resume_q":
			out.MatchStrategy.ResumeQuantile, err = asFloat(key, value)
		case "match_strategy.task_q":
			out.MatchStrategy.TaskQuantile, err = asFloat(key, value)
		case "match_strategy.jd_floor":
			out.MatchStrategy.JDFloor, err = asFloat(key, value)
		case "match_strategy.resume_floor":
			out.MatchStrategy.ResumeFloor, err = asFloat(key, value)
		case "match_strategy.task_floor":
			out.MatchStrategy.TaskFloor, err = asFloat(key, value)
		case "match_strategy.lexical_guard":
			out.MatchStrategy.LexicalGuard, err = asBool(key, value)
		case "crag.min_hits":
			out.CRAG.MinHits, err = asInt(key, value)
		case "crag.min_margin":
			out.CRAG.MinMargin, err = asFloat(key, value)
		case "crag.max_retries":
			out.CRAG.MaxRetries, err = asInt(key, value)
		case "crag.max_topk":
			out.CRAG.MaxTopK, err = asInt(key, value)
		case "crag.bump_topk_by":
			out.CRAG.BumpTopKBy, err = asInt(key, value)
		case "crag.allow_recipe_switch":
			out.CRAG.AllowRecipeSwitch, err = asBool(key, value)
		case "score_weights.level_grace":
			out.ScoreWeights.LevelGrace, err = asFloat(key, value)
		case "extraction.mode":
			out.Extraction.Mode, err = asString(key, value)
		case "extraction.extractor_model":
			out.Extraction.ExtractorModel, err = asString(key, value)
		case "extraction.cap_nice_to_have":
			out.Extraction.CapNiceToHave, err = asBool(key, value)
		default:
			// Unknown keys are ignored silently, per spec §6.
			continue
		}
		if err != nil {
			return c, err
		}
	}

	if out.MatchStrategy.TopK > out.CRAG.MaxTopK {
		out.MatchStrategy.TopK = out.CRAG.MaxTopK
	}

	return out, nil
}

// ToMap renders the effective configuration as the snapshot persisted onto a
// ProcessingRun, mirroring original_source/config.py's to_dict().
func (c CareerEngineConfig) ToMap() map[string]any {
	return map[string]any{
		"match_strategy": map[string]any{
			"strategy":      c.MatchStrategy.Strategy,
			"topk":          c.MatchStrategy.TopK,
			"jd_q":          c.MatchStrategy.JDQuantile,
			"resume_q":      c.MatchStrategy.ResumeQuantile,
			"task_q":        c.MatchStrategy.TaskQuantile,
			"jd_floor":      c.MatchStrategy.JDFloor,
			"resume_floor":  c.MatchStrategy.ResumeFloor,
			"task_floor":    c.MatchStrategy.TaskFloor,
			"lexical_guard": c.MatchStrategy.LexicalGuard,
		},
		"crag": map[string]any{
			"min_hits":            c.CRAG.MinHits,
			"min_margin":          c.CRAG.MinMargin,
			"max_retries":         c.CRAG.MaxRetries,
			"max_topk":            c.CRAG.MaxTopK,
			"bump_topk_by":        c.CRAG.BumpTopKBy,
			"allow_recipe_switch": c.CRAG.AllowRecipeSwitch,
		},
		"score_weights": map[string]any{
			"level_grace": c.ScoreWeights.LevelGrace,
		},
		"extraction": map[string]any{
			"mode":             c.Extraction.Mode,
			"extractor_model":  c.Extraction.ExtractorModel,
			"cap_nice_to_have": c.Extraction.CapNiceToHave,
		},
	}
}

func asString(key string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", &ErrInvalidOverride{Key: key, Value: v}
	}
	return s, nil
}

func asBool(key string, v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, &ErrInvalidOverride{Key: key, Value: v}
	}
	return b, nil
}

func asFloat(key string, v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	default:
		return 0, &ErrInvalidOverride{Key: key, Value: v}
	}
}

func asInt(key string, v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		// JSON-decoded overrides arrive as float64; accept whole numbers only.
		if n == float64(int(n)) {
			return int(n), nil
		}
		return 0, &ErrInvalidOverride{Key: key, Value: v}
	default:
		return 0, &ErrInvalidOverride{Key: key, Value: v}
	}
}

func getEnvString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v == "1" || v == "true"
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return n
}
