package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"twentyq/internal/game"
)

// GroqClient calls the Groq Chat Completions API (OpenAI-compatible).
// See: https://console.groq.com/docs/api-reference
type GroqClient struct {
	http        *http.Client
	apiKey      string
	model       string
	baseURL     string
	temperature float32
	maxTokens   int
}

// NewGroqClient creates a Groq client. If apiKey is empty, it falls back
// to the GROQ_API_KEY env var.
func NewGroqClient(apiKey, model string, temperature float32, maxTokens int) *GroqClient {
	if apiKey == "" {
		apiKey = os.Getenv("GROQ_API_KEY")
	}
	if maxTokens <= 0 {
		maxTokens = 300
	}
	return &GroqClient{
		http:        &http.Client{Timeout: 60 * time.Second},
		apiKey:      apiKey,
		model:       model,
		baseURL:     "https://api.groq.com/openai/v1/chat/completions",
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

func (g *GroqClient) Name() string { return "Groq:" + g.model }
func (g *GroqClient) Close() error { return nil }

type groqChatReq struct {
	Model          string            `json:"model"`
	Messages       []Message         `json:"messages"`
	Temperature    float32           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type groqChatResp struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (g *GroqClient) Consult(ctx context.Context, transcript game.Transcript, instructions string) (string, error) {
	msgs := append([]Message{{Role: RoleSystem, Content: instructions}}, BuildMessages(transcript)...)

	reqBody := groqChatReq{
		Model:          g.model,
		Messages:       msgs,
		Temperature:    g.temperature,
		MaxTokens:      g.maxTokens,
		ResponseFormat: map[string]string{"type": "json_object"},
	}
	b, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: unexpected status %s", ErrUnavailable, resp.Status)
	}
	var out groqChatResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(out.Choices) == 0 {
		return "", nil
	}
	// Passthrough: the content may or may not be the requested JSON;
	// the parser copes either way.
	return out.Choices[0].Message.Content, nil
}
