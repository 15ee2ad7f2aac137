package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Vinayak1844/Statathon-Project/internal/observability"
)

const (
	geminiEndpoint     = "https://generativelanguage.googleapis.com/v1beta/models"
	defaultGeminiModel = "gemini-2.5-flash"
)

// GeminiClient completes prompts with the Gemini generateContent API.
type GeminiClient struct {
	apiKey   string
	model    string
	endpoint string
	t        *transport
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewGeminiClient creates a client. cfg.BaseURL overrides the models endpoint.
func NewGeminiClient(cfg Config, logger *observability.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, ConfigError("Gemini client", ErrMissingAPIKey)
	}
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	endpoint := geminiEndpoint
	if cfg.BaseURL != "" {
		endpoint = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &GeminiClient{
		apiKey:   cfg.APIKey,
		model:    model,
		endpoint: endpoint,
		t:        newTransport(ProviderGemini, cfg, logger),
	}, nil
}

// Complete returns the text of the first candidate part.
func (g *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/%s:generateContent", g.endpoint, g.model)
	req := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{{Text: prompt}},
		}},
	}

	body, err := g.t.post(ctx, url, map[string]string{"x-goog-api-key": g.apiKey}, req)
	if err != nil {
		return "", err
	}

	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", ResponseError(ProviderGemini, "Failed to parse response", err)
	}
	if resp.Error != nil {
		return "", APIError(ProviderGemini, resp.Error.Code, resp.Error.Message, nil)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ResponseError(ProviderGemini, "empty response", nil)
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String(), nil
}
