package ai

import (
	"context"

	"google.golang.org/genai"

	"github.com/yama-lei/plantodo/internal"
)

// GeminiClient generates text through Google's Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
	logger internal.Logger
}

func NewGeminiClient(apiKey, model string, logger internal.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, internal.ValidationError("gemini api key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, internal.UpstreamError("failed to create gemini client", err)
	}
	return &GeminiClient{client: client, model: model, logger: logger}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if opts.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(opts.Temperature))
	}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
	if err != nil {
		c.logger.Errorf("gemini call failed: %v", err)
		return "", internal.UpstreamError("gemini call failed", err)
	}

	text := result.Text()
	if text == "" {
		return "", internal.UpstreamError("gemini returned no text", nil)
	}
	return text, nil
}

var _ TextGenerator = (*GeminiClient)(nil)
