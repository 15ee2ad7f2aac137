package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/Vinayak1844/Statathon-Project/internal/observability"
)

const (
	openRouterURL          = "https://openrouter.ai/api/v1/chat/completions"
	defaultOpenRouterModel = "google/gemini-2.5-flash"
)

// OpenRouterClient completes prompts through the OpenRouter chat API.
type OpenRouterClient struct {
	apiKey string
	model  string
	url    string
	t      *transport
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewOpenRouterClient creates a client. cfg.BaseURL overrides the endpoint.
func NewOpenRouterClient(cfg Config, logger *observability.Logger) (*OpenRouterClient, error) {
	if cfg.APIKey == "" {
		return nil, ConfigError("OpenRouter client", ErrMissingAPIKey)
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenRouterModel
	}
	url := openRouterURL
	if cfg.BaseURL != "" {
		url = strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions"
	}
	return &OpenRouterClient{
		apiKey: cfg.APIKey,
		model:  model,
		url:    url,
		t:      newTransport(ProviderOpenRouter, cfg, logger),
	}, nil
}

// Complete sends prompt as a single user message and returns the first choice.
func (c *OpenRouterClient) Complete(ctx context.Context, prompt string) (string, error) {
	req := chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}
	headers := map[string]string{
		"Authorization": "Bearer " + c.apiKey,
		"HTTP-Referer":  "https://github.com/Vinayak1844/Statathon-Project",
		"X-Title":       "Statathon Survey Filters",
	}

	body, err := c.t.post(ctx, c.url, headers, req)
	if err != nil {
		return "", err
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", ResponseError(ProviderOpenRouter, "Failed to parse response", err)
	}
	if resp.Error != nil {
		return "", APIError(ProviderOpenRouter, resp.Error.Code, resp.Error.Message, nil)
	}
	if len(resp.Choices) == 0 {
		return "", ResponseError(ProviderOpenRouter, "empty response", nil)
	}
	return resp.Choices[0].Message.Content, nil
}
