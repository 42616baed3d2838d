package extractor

import (
	"context"
	"regexp"
	"strings"
)

// TestModeExtractor is the deterministic keyword matcher the engine selects
// explicitly at construction when Extraction.TestMode (SKILL_EXTRACTOR_TEST)
// is set, per spec
// §4.3: "a deliberate selection", not a runtime fallback. Output always
// carries confidence <= 0.5 and no evidence spans.
type TestModeExtractor struct{}

// NewTestModeExtractor constructs the deterministic extractor.
func NewTestModeExtractor() *TestModeExtractor {
	return &TestModeExtractor{}
}

type keywordRule struct {
	needle string
	name   string
}

var keywordVocabulary = []keywordRule{
	{"python", "Python"},
	{"javascript", "JavaScript"},
	{"java", "Java"},
	{"typescript", "TypeScript"},
	{"react", "React.js"},
	{"angular", "Angular"},
	{"vue", "Vue.js"},
	{"node", "Node.js"},
	{"aws", "AWS"},
	{"azure", "Azure"},
	{"google cloud", "Google Cloud"},
	{"gcp", "Google Cloud"},
	{"docker", "Docker"},
	{"kubernetes", "Kubernetes"},
	{"k8s", "Kubernetes"},
	{"jenkins", "Jenkins"},
	{"sql", "SQL"},
	{"postgres", "PostgreSQL"},
	{"postgresql", "PostgreSQL"},
	{"mysql", "MySQL"},
	{"mongodb", "MongoDB"},
	{"mongo", "MongoDB"},
	{"git", "Git"},
	{"rest", "REST APIs"},
	{"graphql", "REST APIs"},
}

var responsibilityRules = []struct {
	needle string
	text   string
}{
	{"application", "Develop web applications"},
	{"api", "Design RESTful APIs"},
	{"database", "Database design and management"},
	{"cloud", "Cloud infrastructure management"},
}

var acronymPattern = regexp.MustCompile(`\b[A-Z]{2,}\b`)

// Extract implements Extractor with simple substring matching against a
// small built-in vocabulary, mirroring llm_extractor.py's test-mode branch.
func (t *TestModeExtractor) Extract(_ context.Context, text string, isJobDescription bool) (ExtractionOutput, error) {
	lower := strings.ToLower(text)

	seen := map[string]bool{}
	var skills []Skill
	add := func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		skills = append(skills, Skill{
			Name:       name,
			NiceToHave: false,
			Level: Level{
				Label:      "working",
				Score:      2.0,
				Confidence: 0.5,
			},
		})
	}

	for _, rule := range keywordVocabulary {
		if strings.Contains(lower, rule.needle) {
			add(rule.name)
		}
	}
	for _, acro := range acronymPattern.FindAllString(text, -1) {
		switch strings.ToLower(acro) {
		case "ec2", "s3", "lambda":
			add("AWS")
		case "ci", "cd", "cicd":
			add("Git")
		case "nosql":
			add("SQL")
		}
	}

	var responsibilities []string
	for _, rule := range responsibilityRules {
		if strings.Contains(lower, rule.needle) {
			responsibilities = append(responsibilities, rule.text)
		}
	}

	if isJobDescription {
		nice := DetectNiceToHaveSection(text)
		for i := range skills {
			if nice[strings.ToLower(skills[i].Name)] {
				skills[i].NiceToHave = true
			}
		}
	}

	return ExtractionOutput{Skills: skills, Responsibilities: responsibilities}, nil
}
