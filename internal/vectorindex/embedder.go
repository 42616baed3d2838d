package vectorindex

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"google.golang.org/genai"
)

// GenAIEmbedder is the production Embedder, backed by the same
// google.golang.org/genai client the teacher's agents.go uses for
// completions — here driving its embedding endpoint instead.
type GenAIEmbedder struct {
	client *genai.Client
	model  string
}

// NewGenAIEmbedder builds a genai client scoped to apiKey and model (e.g.
// "text-embedding-004").
func NewGenAIEmbedder(ctx context.Context, apiKey, model string) (*GenAIEmbedder, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("vectorindex: create genai client: %w", err)
	}
	return &GenAIEmbedder{client: client, model: model}, nil
}

// Embed implements Embedder.
func (g *GenAIEmbedder) Embed(ctx context.Context, text string) (pgvector.Vector, error) {
	resp, err := g.client.Models.EmbedContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}}, nil)
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("vectorindex: embed content: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return pgvector.Vector{}, fmt.Errorf("vectorindex: empty embedding response")
	}
	return pgvector.NewVector(resp.Embeddings[0].Values), nil
}
