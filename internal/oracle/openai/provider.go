// Package openai scores candidates through any OpenAI-compatible chat
// completion endpoint: OpenAI itself, Ollama and vLLM.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kiranshivaraju/hirepipe/internal/config"
	"github.com/kiranshivaraju/hirepipe/internal/oracle"
	"github.com/kiranshivaraju/hirepipe/pkg/models"
	goopenai "github.com/sashabaranov/go-openai"
)

// Provider implements models.ScoringOracle using go-openai.
type Provider struct {
	name   string
	model  string
	client *goopenai.Client
}

// NewProvider talks to api.openai.com.
func NewProvider(cfg config.OpenAIConfig) *Provider {
	return newProvider("openai", goopenai.DefaultConfig(cfg.APIKey), cfg.Model)
}

// NewOllamaProvider talks to Ollama's OpenAI-compatible endpoint.
func NewOllamaProvider(cfg config.OllamaConfig) *Provider {
	return newProvider("ollama", compatConfig("ollama", cfg.BaseURL), cfg.Model)
}

// NewVLLMProvider talks to a vLLM server.
func NewVLLMProvider(cfg config.VLLMConfig) *Provider {
	return newProvider("vllm", compatConfig("EMPTY", cfg.BaseURL), cfg.Model)
}

func compatConfig(apiKey, baseURL string) goopenai.ClientConfig {
	c := goopenai.DefaultConfig(apiKey)
	c.BaseURL = strings.TrimSuffix(baseURL, "/") + "/v1"
	return c
}

func newProvider(name string, cfg goopenai.ClientConfig, model string) *Provider {
	return &Provider{name: name, model: model, client: goopenai.NewClientWithConfig(cfg)}
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) Score(ctx context.Context, req models.ScoreRequest) (models.ScoreResult, error) {
	prompt, err := oracle.BuildPrompt(req)
	if err != nil {
		return models.ScoreResult{}, err
	}

	slog.Debug("chat completion score request",
		"provider", p.name,
		"model", p.model,
		"candidate_id", req.Candidate.ID,
		"job_id", req.Job.ID,
	)

	resp, err := p.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: p.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: oracle.SystemInstruction},
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.2,
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return models.ScoreResult{}, classify(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return models.ScoreResult{}, fmt.Errorf("%w: no choices", oracle.ErrInvalidResponse)
	}

	model := resp.Model
	if model == "" {
		model = p.model
	}
	return oracle.ParseScore(resp.Choices[0].Message.Content, model)
}

func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", oracle.ErrInferenceTimeout, err)
	}
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: status %d: %s", oracle.ErrProviderUnavailable, apiErr.HTTPStatusCode, apiErr.Message)
	}
	return fmt.Errorf("%w: %v", oracle.ErrProviderUnavailable, err)
}

// Compile-time check that Provider implements ScoringOracle.
var _ models.ScoringOracle = (*Provider)(nil)
