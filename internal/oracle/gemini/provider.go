// Package gemini scores candidates with Google's Gemini models, either through
// the Gemini API or through Vertex AI.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kiranshivaraju/hirepipe/internal/config"
	"github.com/kiranshivaraju/hirepipe/internal/oracle"
	"github.com/kiranshivaraju/hirepipe/pkg/models"
	"google.golang.org/genai"
)

const defaultModel = "gemini-2.5-flash"

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Provider implements models.ScoringOracle on top of google.golang.org/genai.
type Provider struct {
	name      string
	model     string
	generator contentGenerator
}

// NewProvider connects to the Gemini API with an API key.
func NewProvider(ctx context.Context, cfg config.GeminiConfig) (*Provider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	model := modelOrDefault(cfg.Model)
	return &Provider{name: "gemini", model: model, generator: newGenaiGenerator(client, model)}, nil
}

// NewVertexProvider connects to Vertex AI using application default credentials.
func NewVertexProvider(ctx context.Context, cfg config.VertexConfig) (*Provider, error) {
	if strings.TrimSpace(cfg.Project) == "" {
		return nil, errors.New("vertex project is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  cfg.Project,
		Location: cfg.Location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("create vertex genai client: %w", err)
	}
	model := modelOrDefault(cfg.Model)
	return &Provider{name: "vertex", model: model, generator: newGenaiGenerator(client, model)}, nil
}

func modelOrDefault(model string) string {
	if model = strings.TrimSpace(model); model == "" {
		return defaultModel
	}
	return model
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) Score(ctx context.Context, req models.ScoreRequest) (models.ScoreResult, error) {
	prompt, err := oracle.BuildPrompt(req)
	if err != nil {
		return models.ScoreResult{}, err
	}

	slog.Debug("gemini score request",
		"provider", p.name,
		"model", p.model,
		"candidate_id", req.Candidate.ID,
		"job_id", req.Job.ID,
		"prompt_length", len(prompt),
	)

	raw, err := p.generator.GenerateContent(ctx, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return models.ScoreResult{}, fmt.Errorf("%w: %v", oracle.ErrInferenceTimeout, err)
		}
		if errors.Is(err, oracle.ErrInvalidResponse) {
			return models.ScoreResult{}, err
		}
		return models.ScoreResult{}, fmt.Errorf("%w: %v", oracle.ErrProviderUnavailable, err)
	}

	return oracle.ParseScore(raw, p.model)
}

type genaiGenerator struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

func newGenaiGenerator(client *genai.Client, model string) *genaiGenerator {
	return &genaiGenerator{
		client: client,
		model:  model,
		config: &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: oracle.SystemInstruction}}},
			Temperature:       genai.Ptr[float32](0.2),
			ResponseMIMEType:  "application/json",
		},
	}
}

// GenerateContent sends the prompt and joins the text parts of every candidate.
func (g *genaiGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), g.config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", fmt.Errorf("%w: empty response", oracle.ErrInvalidResponse)
	}
	return output, nil
}

// Compile-time check that Provider implements ScoringOracle.
var _ models.ScoringOracle = (*Provider)(nil)
