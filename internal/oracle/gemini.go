package oracle

import (
	"context"
	"fmt"

	genai "google.golang.org/genai"

	"twentyq/internal/game"
)

// GeminiClient is a thin wrapper around the official genai client.
// Cross-cutting concerns (retries, rate limiting, logging) are applied
// via Middleware.
type GeminiClient struct {
	cli         *genai.Client
	model       string
	temperature float32
	maxTokens   int32
}

// NewGeminiClient creates a Gemini-backed oracle. The genai client reads
// GEMINI_API_KEY from the environment. Temperature and the output cap
// bias the model toward terse, deterministic-shaped output; the rest of
// the pipeline never assumes the model honors either.
func NewGeminiClient(ctx context.Context, model string, temperature float32, maxTokens int32) (*GeminiClient, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	if maxTokens <= 0 {
		maxTokens = 300
	}
	return &GeminiClient{cli: cli, model: model, temperature: temperature, maxTokens: maxTokens}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }
func (g *GeminiClient) Close() error { return nil }

func (g *GeminiClient) Consult(ctx context.Context, transcript game.Transcript, instructions string) (string, error) {
	contents := make([]*genai.Content, 0, len(transcript)+1)
	for _, m := range BuildMessages(transcript) {
		role := genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	if len(contents) == 0 {
		// The API rejects empty content lists; the opening turn carries
		// a minimal kickoff message.
		contents = append(contents, &genai.Content{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: "I'm thinking of something. Ask your first question."}},
		})
	}

	resp, err := g.cli.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: instructions}}},
		ResponseMIMEType:  "application/json",
		Temperature:       genai.Ptr(g.temperature),
		MaxOutputTokens:   g.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		// An empty candidate is malformed output, not an outage; the
		// parser downgrades it to the neutral fallback question.
		return "", nil
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
