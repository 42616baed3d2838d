// Package extractor turns free text (a resume or a job description) into
// structured skills with proficiency levels and evidence, per the "Extractor"
// responsibility. Two concrete implementations satisfy the same interface:
// an LLM-backed one built on google.golang.org/adk + google.golang.org/genai
// (grounded on the teacher's agents.go/prompt.go/consume.go), and a
// deterministic keyword-matching test-mode extractor selected explicitly at
// engine construction rather than as a runtime fallback.
package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Extractor converts free text into structured skills and responsibilities.
type Extractor interface {
	Extract(ctx context.Context, text string, isJobDescription bool) (ExtractionOutput, error)
}

// Level mirrors models.LevelSnapshot but stays local to the extraction
// wire format so normalization (clamping, default substitution) happens
// once, at the package boundary, before models types are ever touched.
type Level struct {
	Label      string   `json:"label"`
	Score      float64  `json:"score"`
	Years      *float64 `json:"years,omitempty"`
	Confidence float64  `json:"confidence"`
	Signals    []string `json:"signals,omitempty"`
}

// EvidenceSpan is a raw, not-yet-clamped character offset pair as returned
// by the model.
type EvidenceSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Skill is one extracted skill entry, pre-normalization.
type Skill struct {
	Name          string         `json:"name"`
	NiceToHave    bool           `json:"nice_to_have"`
	EvidenceSpans []EvidenceSpan `json:"evidence_spans,omitempty"`
	EvidenceTexts []string       `json:"evidence_texts,omitempty"`
	Level         Level          `json:"level"`
}

// Section is a document region the model believes contains skills.
type Section struct {
	Name  string `json:"name"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// ExtractionOutput is the Extractor's full result for one document.
type ExtractionOutput struct {
	Sections         []Section `json:"sections"`
	Skills           []Skill   `json:"skills"`
	Responsibilities []string  `json:"responsibilities"`
}

var (
	validLabels = map[string]bool{
		"none": true, "basic": true, "working": true, "proficient": true, "advanced": true,
	}
	defaultScores = map[string]float64{
		"none": 0.0, "basic": 1.0, "working": 2.0, "proficient": 3.0, "advanced": 4.0,
	}
)

const maxEvidenceFragmentLen = 200

// normalize clamps spans into [0, len(text)], truncates evidence text
// fragments, and validates/defaults level fields, matching the
// all-in-one postprocessing pass the extractor is grounded on.
func normalize(raw ExtractionOutput, text string, maxSpansPerSkill int) ExtractionOutput {
	out := ExtractionOutput{Sections: raw.Sections, Responsibilities: raw.Responsibilities}
	for _, s := range raw.Skills {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			continue
		}

		spans := s.EvidenceSpans
		if maxSpansPerSkill >= 0 && len(spans) > maxSpansPerSkill {
			spans = spans[:maxSpansPerSkill]
		}
		var clampedSpans []EvidenceSpan
		var evidenceTexts []string
		for _, sp := range spans {
			start := clamp(sp.Start, 0, len(text))
			end := clamp(sp.End, start, len(text))
			frag := text[start:end]
			if len(frag) > maxEvidenceFragmentLen {
				frag = frag[:maxEvidenceFragmentLen]
			}
			if strings.TrimSpace(frag) == "" {
				continue
			}
			clampedSpans = append(clampedSpans, EvidenceSpan{Start: start, End: end})
			evidenceTexts = append(evidenceTexts, frag)
		}

		label := strings.ToLower(strings.TrimSpace(s.Level.Label))
		if !validLabels[label] {
			label = "working"
		}
		score := s.Level.Score
		if score == 0 && s.Level.Label == "" {
			score = defaultScores[label]
		}
		score = clampFloat(score, 0, 4)
		confidence := s.Level.Confidence
		if confidence == 0 {
			// Spec §4.3's omitted-level default is {working, 2.0, confidence 0.5}.
			confidence = 0.5
		}
		confidence = clampFloat(confidence, 0, 1)

		out.Skills = append(out.Skills, Skill{
			Name:          name,
			NiceToHave:    s.NiceToHave,
			EvidenceSpans: clampedSpans,
			EvidenceTexts: evidenceTexts,
			Level: Level{
				Label:      label,
				Score:      score,
				Years:      s.Level.Years,
				Confidence: confidence,
				Signals:    s.Level.Signals,
			},
		})
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// cleanJSON strips markdown code fences a model sometimes wraps its JSON
// response in, mirroring the teacher's CleanJson helper.
func cleanJSON(input string) string {
	clean := strings.TrimSpace(input)
	switch {
	case strings.HasPrefix(clean, "```json"):
		clean = strings.TrimPrefix(clean, "```json")
	case strings.HasPrefix(clean, "```"):
		clean = strings.TrimPrefix(clean, "```")
	}
	clean = strings.TrimLeft(clean, "\r\n")
	clean = strings.TrimSuffix(clean, "```")
	return strings.TrimSpace(clean)
}

func parseJSON(raw string) (ExtractionOutput, error) {
	var out ExtractionOutput
	cleaned := cleanJSON(raw)
	if cleaned == "" {
		return out, fmt.Errorf("extractor: empty model response")
	}
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return out, fmt.Errorf("extractor: malformed json: %w", err)
	}
	return out, nil
}
