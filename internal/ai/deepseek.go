package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/yama-lei/plantodo/internal"
)

const deepSeekBaseURL = "https://api.deepseek.com"

// DeepSeekClient calls the DeepSeek chat-completions API.
type DeepSeekClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     internal.Logger
}

func NewDeepSeekClient(apiKey string, timeout time.Duration, logger internal.Logger) *DeepSeekClient {
	return &DeepSeekClient{
		apiKey:     apiKey,
		baseURL:    deepSeekBaseURL,
		model:      "deepseek-chat",
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *DeepSeekClient) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	if c.apiKey == "" {
		return "", internal.UpstreamError("deepseek api key not configured", nil)
	}

	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return "", internal.UpstreamError("failed to encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		c.logger.Errorf("failed to create deepseek request: %v", err)
		return "", internal.UpstreamError("failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Errorf("deepseek call failed: %v", err)
		return "", internal.UpstreamError("deepseek call failed", err)
	}
	defer resp.Body.Close()

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.logger.Errorf("failed to decode deepseek response: %v", err)
		return "", internal.UpstreamError("failed to decode response", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("deepseek returned %d", resp.StatusCode)
		if out.Error != nil {
			msg += ": " + out.Error.Message
		}
		c.logger.Errorf("%s", msg)
		return "", internal.UpstreamError(msg, nil)
	}
	if len(out.Choices) == 0 {
		return "", internal.UpstreamError("deepseek returned no choices", errors.New("empty choices"))
	}
	return out.Choices[0].Message.Content, nil
}

var _ TextGenerator = (*DeepSeekClient)(nil)
