package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/predictos/predictbot/internal/domain"
	"github.com/predictos/predictbot/internal/resilience"
)

// Default endpoints and models for the two supported backends. Both speak
// the same chat-completions dialect and differ only in host and model.
const (
	GrokAPIURL   = "https://api.x.ai/v1/chat/completions"
	OpenAIAPIURL = "https://api.openai.com/v1/chat/completions"

	DefaultGrokModel   = "grok-beta"
	DefaultOpenAIModel = "gpt-4o-mini"

	inferTimeout = 120 * time.Second
)

// ChatClient is a chat-completions inference provider. The model is asked
// for a JSON object and its content is parsed into the shared Analysis
// shape.
type ChatClient struct {
	name       string
	apiURL     string
	model      string
	apiKey     string
	httpClient *http.Client
}

// NewGrok creates the Grok provider. model may be empty to use the default.
func NewGrok(apiKey, model string) *ChatClient {
	if model == "" {
		model = DefaultGrokModel
	}
	return newChatClient("grok", GrokAPIURL, model, apiKey)
}

// NewOpenAI creates the OpenAI provider. model may be empty to use the
// default.
func NewOpenAI(apiKey, model string) *ChatClient {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return newChatClient("openai", OpenAIAPIURL, model, apiKey)
}

func newChatClient(name, apiURL, model, apiKey string) *ChatClient {
	return &ChatClient{
		name:   name,
		apiURL: apiURL,
		model:  model,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: inferTimeout,
		},
	}
}

// Name returns the provider identifier used in logs and attempt history.
func (c *ChatClient) Name() string { return c.name }

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
	Temperature    float64        `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Infer sends one inference request and parses the structured
// recommendation out of the model's JSON reply. A reply that is not valid
// JSON or carries an unknown recommendation is a fatal decode failure, not
// something a retry can fix.
func (c *ChatClient) Infer(ctx context.Context, prompt string) (domain.Analysis, error) {
	reqBody := chatRequest{
		Model:          c.model,
		Messages:       []chatMessage{{Role: "user", Content: prompt}},
		ResponseFormat: responseFormat{Type: "json_object"},
		Temperature:    0.7,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("ai/%s: marshal request: %w", c.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(jsonBody))
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("ai/%s: create request: %w", c.name, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("ai/%s: http request: %w", c.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("ai/%s: read response: %w", c.name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.Analysis{}, fmt.Errorf("ai/%s: %w",
			c.name, &resilience.HTTPError{StatusCode: resp.StatusCode, Body: string(body)})
	}

	var chat chatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		return domain.Analysis{}, fmt.Errorf("ai/%s: decode response: %w", c.name, err)
	}
	if len(chat.Choices) == 0 {
		return domain.Analysis{}, fmt.Errorf("ai/%s: no choices in response", c.name)
	}

	var analysis domain.Analysis
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &analysis); err != nil {
		return domain.Analysis{}, fmt.Errorf("ai/%s: parse analysis: %w", c.name, err)
	}
	if err := validateAnalysis(analysis); err != nil {
		return domain.Analysis{}, fmt.Errorf("ai/%s: %w", c.name, err)
	}

	return analysis, nil
}

func validateAnalysis(a domain.Analysis) error {
	switch a.Recommendation {
	case domain.RecommendBuyYes, domain.RecommendBuyNo, domain.RecommendNoTrade:
	default:
		return fmt.Errorf("unknown recommendation %q", a.Recommendation)
	}
	if a.Confidence < 0 || a.Confidence > 1 {
		return fmt.Errorf("confidence %.3f outside [0, 1]", a.Confidence)
	}
	return nil
}
