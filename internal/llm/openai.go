package llm

import (
	"context"
	"fmt"
	"strings"
)

const (
	openAIBaseURL      = "https://api.openai.com"
	openAIDefaultModel = "gpt-4o-mini"
)

// OpenAIClient talks to the OpenAI Responses API.
type OpenAIClient struct {
	apiKey  string
	model   string
	baseURL string
	t       *transport
}

func NewOpenAIClient(cfg Config, apiKey string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	model := cfg.Model
	if model == "" {
		model = openAIDefaultModel
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = openAIBaseURL
	}
	return &OpenAIClient{apiKey: apiKey, model: model, baseURL: baseURL, t: newTransport(cfg)}, nil
}

type responsesInput struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesRequest struct {
	Model           string           `json:"model"`
	Instructions    string           `json:"instructions,omitempty"`
	Input           []responsesInput `json:"input"`
	MaxOutputTokens int              `json:"max_output_tokens,omitempty"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
	Refusal string `json:"refusal,omitempty"`
}

func extractOutputText(resp responsesResponse) string {
	var out strings.Builder
	for _, item := range resp.Output {
		if item.Type == "message" && item.Role == "assistant" {
			for _, c := range item.Content {
				if c.Type == "output_text" && c.Text != "" {
					out.WriteString(c.Text)
				}
			}
		}
	}
	return out.String()
}

// Complete sends the system prompt as instructions and returns the assistant's output text.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	body := responsesRequest{
		Model:           c.model,
		Instructions:    req.System,
		Input:           []responsesInput{{Role: "user", Content: req.User}},
		MaxOutputTokens: req.MaxTokens,
	}
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}

	var resp responsesResponse
	if err := c.t.postJSON(ctx, c.baseURL+"/v1/responses", headers, body, &resp); err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if resp.Refusal != "" {
		return "", fmt.Errorf("openai: model refused: %s", resp.Refusal)
	}

	text := extractOutputText(resp)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
