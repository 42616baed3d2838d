package extractor

import (
	"regexp"
	"strings"
)

// niceSectionPattern locates a "nice to have"/"preferred"/"bonus"/"optional"
// section and captures the text up to the next blank line or capitalized
// line start, mirroring career_engine.py's _extract_nice_section.
var niceSectionPattern = regexp.MustCompile(`(?is)(?:nice\s+to\s+have|preferred|bonus|optional)[\s:]*([^.]*?)(?:\n\n|\n[A-Z]|$)`)

var niceCandidatePattern = regexp.MustCompile(`[A-Za-z][A-Za-z0-9.+/ ]*`)

var niceStopwords = map[string]bool{
	"the": true, "and": true, "or": true, "with": true, "for": true,
	"in": true, "on": true, "at": true, "to": true, "of": true, "a": true, "an": true,
}

// DetectNiceToHaveSection finds a job description's optional-requirements
// section, if any, and returns the lowercased skill-like tokens mentioned in
// it. Callers use this to flag skills parsed elsewhere as nice_to_have
// rather than required, per spec §4.3's supplemented nice-to-have handling.
func DetectNiceToHaveSection(text string) map[string]bool {
	match := niceSectionPattern.FindStringSubmatch(text)
	if match == nil {
		return nil
	}
	niceText := match[1]

	found := map[string]bool{}
	for _, candidate := range niceCandidatePattern.FindAllString(niceText, -1) {
		token := strings.ToLower(strings.TrimSpace(candidate))
		if len(token) <= 1 || niceStopwords[token] {
			continue
		}
		found[token] = true
	}
	return found
}
