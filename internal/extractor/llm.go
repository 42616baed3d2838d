package extractor

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jobmatch/careerengine/internal/retry"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"
)

// ErrExtractionFailed is raised when the extractor exhausts its reask
// retries without producing parseable JSON.
var ErrExtractionFailed = errors.New("extractor: extraction failed")

const maxReaskAttempts = 3

// LLMExtractor is the production Extractor, backed by a genai model wrapped
// in an adk llmagent and driven through an adk runner, grounded on the
// teacher's GetAgent/callAgent pattern (agents.go, consume.go).
type LLMExtractor struct {
	runner           *runner.Runner
	sessionService   session.Service
	appName          string
	model            string
	maxSpansPerSkill int
}

// NewLLMExtractor builds the genai model, wraps it in an llmagent, and
// constructs the runner + in-memory session service the teacher's main.go
// wires up once at startup.
func NewLLMExtractor(ctx context.Context, apiKey, model string, maxSpansPerSkill int) (*LLMExtractor, error) {
	genModel, err := gemini.NewModel(ctx, model, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("extractor: create model: %w", err)
	}

	agentName := "skill extractor"
	llmAgent, err := llmagent.New(llmagent.Config{
		Name:        agentName,
		Model:       genModel,
		Description: "Extract structured skills and proficiency levels from resumes and job descriptions",
		Instruction: resumePrompt(),
	})
	if err != nil {
		return nil, fmt.Errorf("extractor: create agent: %w", err)
	}

	sessionService := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        llmAgent.Name(),
		Agent:          llmAgent,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("extractor: create runner: %w", err)
	}

	return &LLMExtractor{
		runner:           r,
		sessionService:   sessionService,
		appName:          agentName,
		model:            model,
		maxSpansPerSkill: maxSpansPerSkill,
	}, nil
}

// Extract implements Extractor. Each attempt runs the agent through
// retry.Do (up to two runs if a run errors), reasking with an explicit
// correction whenever the response fails to parse as JSON, up to
// maxReaskAttempts attempts, per spec §4.3 failure semantics.
func (e *LLMExtractor) Extract(ctx context.Context, text string, isJobDescription bool) (ExtractionOutput, error) {
	basePrompt := resumePrompt()
	if isJobDescription {
		basePrompt = jdPrompt()
	}

	sess, err := e.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   e.appName,
		UserID:    uuid.New().String(),
		SessionID: uuid.New().String(),
	})
	if err != nil {
		return ExtractionOutput{}, fmt.Errorf("%w: create session: %v", ErrExtractionFailed, err)
	}
	defer e.sessionService.Delete(ctx, &session.DeleteRequest{
		AppName:   sess.Session.AppName(),
		UserID:    sess.Session.UserID(),
		SessionID: sess.Session.ID(),
	})

	var lastErr error
	prompt := basePrompt
	for attempt := 0; attempt < maxReaskAttempts; attempt++ {
		msg := prompt + "\n\nDocument text:\n" + text

		raw, err := retry.Do(2, func() (string, error) {
			return e.runOnce(ctx, sess.Session.UserID(), sess.Session.ID(), msg)
		})
		if err != nil {
			lastErr = err
			continue
		}

		out, err := parseJSON(raw)
		if err != nil {
			lastErr = err
			prompt = reaskPrompt(basePrompt, err.Error())
			continue
		}
		return normalize(out, text, e.maxSpansPerSkill), nil
	}
	return ExtractionOutput{}, fmt.Errorf("%w: after %d attempts: %v", ErrExtractionFailed, maxReaskAttempts, lastErr)
}

func (e *LLMExtractor) runOnce(ctx context.Context, userID, sessionID, msg string) (string, error) {
	stream := e.runner.Run(ctx, userID, sessionID, &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{{Text: msg}},
	}, agent.RunConfig{})

	var output string
	for event, err := range stream {
		if err != nil {
			return "", err
		}
		if event != nil && event.IsFinalResponse() && len(event.Content.Parts) > 0 {
			output = event.Content.Parts[0].Text
		}
	}
	if output == "" {
		return "", fmt.Errorf("extractor: empty agent response")
	}
	return output, nil
}
