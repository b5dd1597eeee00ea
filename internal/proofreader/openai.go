package proofreader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
)

type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int64
	MaxRetries  int
	HTTPClient  *http.Client
}

// OpenAICompleter calls OpenAI's Responses API.
type OpenAICompleter struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int64
}

func NewOpenAICompleter(cfg OpenAIConfig) (*OpenAICompleter, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("api key is empty")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("model is empty")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &OpenAICompleter{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

func (c *OpenAICompleter) Complete(
	ctx context.Context,
	instructions string,
	prompt string,
) (string, error) {
	resp, err := c.client.Responses.New(ctx, responses.ResponseNewParams{
		Model:           shared.ResponsesModel(c.model),
		Temperature:     openai.Float(c.temperature),
		MaxOutputTokens: openai.Int(c.maxTokens),
		Instructions:    openai.String(instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}

	if resp.Status == "incomplete" {
		return "", fmt.Errorf(
			"response is incomplete (reason = %s, maxOutputTokens = %d)",
			resp.IncompleteDetails.Reason,
			c.maxTokens,
		)
	}

	output := strings.TrimSpace(resp.OutputText())
	if output == "" {
		return "", fmt.Errorf("output text is missing (status = %s)", resp.Status)
	}

	return output, nil
}
