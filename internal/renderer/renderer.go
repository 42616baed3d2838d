// Package renderer emits a stable markdown report from a GapAnalysisResult.
// It is pure: no I/O, deterministic given its input, grounded on
// original_source/report_renderer.py's section ordering and hot-tech glyph
// convention.
package renderer

import (
	"fmt"
	"strings"

	"github.com/jobmatch/careerengine/internal/models"
)

const hotTechGlyph = " 🔥"

// Render implements the Renderer responsibility of spec §4.7: title +
// overall match line, missing required skills, underqualified required
// skills, skills meeting requirements, and the full resume skill list, each
// section omitted when empty.
func Render(result models.GapAnalysisResult) string {
	var b strings.Builder

	b.WriteString("# Career Gap Analysis\n\n")
	fmt.Fprintf(&b, "Overall Match: %.2f / 10\n\n", result.Metrics.Score)

	var requiredMissing []models.MissingSkill
	for _, m := range result.MissingSkills {
		if m.IsRequired {
			requiredMissing = append(requiredMissing, m)
		}
	}
	renderMissingSection(&b, "Missing Skills (Required)", requiredMissing)

	var underqualified, meetsOrExceeds []models.MatchedSkill
	for _, m := range result.MatchedSkills {
		switch m.Status {
		case models.StatusUnderqualified:
			underqualified = append(underqualified, m)
		case models.StatusMeetsOrExceeds:
			meetsOrExceeds = append(meetsOrExceeds, m)
		}
	}
	renderMatchedSection(&b, "Underqualified Required Skills", underqualified, true)
	renderMatchedSection(&b, "Skills Meeting Requirements", meetsOrExceeds, true)

	renderResumeSection(&b, "Resume Skills (All Detected)", result.ResumeSkills)

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func renderMissingSection(b *strings.Builder, title string, items []models.MissingSkill) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	for _, item := range items {
		line := "- " + item.Skill.Name
		if item.HotTech {
			line += hotTechGlyph
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
}

func renderMatchedSection(b *strings.Builder, title string, items []models.MatchedSkill, showLevels bool) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	for _, item := range items {
		line := "- " + item.Skill.Name
		if item.Skill.HotTech {
			line += hotTechGlyph
		}
		b.WriteString(line + "\n")
		if showLevels {
			fmt.Fprintf(b, "  Candidate Level: %s (%.1f/4.0)\n", item.CandidateLevel.Label, item.CandidateLevel.Score)
			fmt.Fprintf(b, "  Required Level: %s (%.1f/4.0)\n", item.RequiredLevel.Label, item.RequiredLevel.Score)
			if item.LevelDelta > 0.25 {
				fmt.Fprintf(b, "  Level Gap: %.1f points below required\n", item.LevelDelta)
			}
		}
	}
	b.WriteString("\n")
}

func renderResumeSection(b *strings.Builder, title string, items []models.ResumeSkill) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s — %s (%.1f/4.0)\n", item.Skill.Name, item.CandidateLevel.Label, item.CandidateLevel.Score)
	}
	b.WriteString("\n")
}
