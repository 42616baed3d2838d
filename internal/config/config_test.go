package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWithOverrides_DoesNotMutateReceiver covers property P5: overrides
// produce a local copy and the global config is untouched.
func TestWithOverrides_DoesNotMutateReceiver(t *testing.T) {
	global := Default()
	before := global

	out, err := global.WithOverrides(map[string]any{
		"match_strategy.strategy": "static",
		"crag.min_hits":           5,
	})
	require.NoError(t, err)

	assert.Equal(t, before, global, "WithOverrides must not mutate the receiver")
	assert.Equal(t, "static", out.MatchStrategy.Strategy)
	assert.Equal(t, 5, out.CRAG.MinHits)
	assert.NotEqual(t, out.MatchStrategy.Strategy, global.MatchStrategy.Strategy)
}

func TestWithOverrides_UnknownKeysAreIgnoredSilently(t *testing.T) {
	global := Default()
	out, err := global.WithOverrides(map[string]any{
		"nonexistent.field": "whatever",
	})
	require.NoError(t, err)
	assert.Equal(t, global, out)
}

func TestWithOverrides_TypeMismatchReturnsInvalidOverride(t *testing.T) {
	global := Default()
	_, err := global.WithOverrides(map[string]any{
		"match_strategy.strategy": 42, // wants a string
	})
	require.Error(t, err)
	var invalidErr *ErrInvalidOverride
	require.ErrorAs(t, err, &invalidErr)
	assert.Equal(t, "match_strategy.strategy", invalidErr.Key)
}

func TestWithOverrides_OnErrorReturnsUnmodifiedOriginal(t *testing.T) {
	global := Default()
	out, err := global.WithOverrides(map[string]any{
		"crag.min_hits": "not a number",
	})
	require.Error(t, err)
	assert.Equal(t, global, out, "a failed override must return the original config unchanged")
}

// TestWithOverrides_AsIntAcceptsJSONFloats covers overrides arriving from a
// JSON-decoded request body, where all numbers decode as float64.
func TestWithOverrides_AsIntAcceptsJSONFloats(t *testing.T) {
	global := Default()
	out, err := global.WithOverrides(map[string]any{
		"match_strategy.topk": float64(7),
	})
	require.NoError(t, err)
	assert.Equal(t, 7, out.MatchStrategy.TopK)
}

func TestWithOverrides_AsIntRejectsNonWholeFloat(t *testing.T) {
	global := Default()
	_, err := global.WithOverrides(map[string]any{
		"match_strategy.topk": 7.5,
	})
	require.Error(t, err)
}

// TestWithOverrides_TopKClampedToMaxTopK covers the post-merge invariant:
// topk never exceeds crag.max_topk, even when the override sets topk alone.
func TestWithOverrides_TopKClampedToMaxTopK(t *testing.T) {
	global := Default()
	out, err := global.WithOverrides(map[string]any{
		"match_strategy.topk": 100,
	})
	require.NoError(t, err)
	assert.Equal(t, out.CRAG.MaxTopK, out.MatchStrategy.TopK)
}

func TestWithOverrides_TopKClampAppliesWhenMaxTopKLoweredToo(t *testing.T) {
	global := Default()
	out, err := global.WithOverrides(map[string]any{
		"match_strategy.topk": 15,
		"crag.max_topk":       10,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, out.MatchStrategy.TopK)
}

func TestToMap_ReflectsOverriddenValues(t *testing.T) {
	global := Default()
	out, err := global.WithOverrides(map[string]any{
		"extraction.mode": "current",
	})
	require.NoError(t, err)

	m := out.ToMap()
	extraction, ok := m["extraction"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "current", extraction["mode"])
}

func TestDefault_AppliesFallbacksWithoutEnv(t *testing.T) {
	c := Default()
	assert.Equal(t, "quantile", c.MatchStrategy.Strategy)
	assert.Equal(t, 10, c.MatchStrategy.TopK)
	assert.True(t, c.MatchStrategy.LexicalGuard)
	assert.Equal(t, "all_in_one", c.Extraction.Mode)
}

func TestMatchStrategy_FloorForSourceType(t *testing.T) {
	m := MatchStrategy{ResumeFloor: 0.3, JDFloor: 0.4, TaskFloor: 0.45}
	assert.Equal(t, 0.3, m.FloorForSourceType("resume"))
	assert.Equal(t, 0.45, m.FloorForSourceType("task"))
	assert.Equal(t, 0.4, m.FloorForSourceType("jd"))
}

func TestMatchStrategy_QuantileForSourceType(t *testing.T) {
	m := MatchStrategy{ResumeQuantile: 0.8, JDQuantile: 0.85, TaskQuantile: 0.9}
	assert.Equal(t, 0.8, m.QuantileForSourceType("resume"))
	assert.Equal(t, 0.9, m.QuantileForSourceType("task"))
	assert.Equal(t, 0.85, m.QuantileForSourceType("jd"))
}
