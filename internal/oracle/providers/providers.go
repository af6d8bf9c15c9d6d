// Package providers builds the configured scoring oracle.
package providers

import (
	"context"
	"fmt"

	"github.com/kiranshivaraju/hirepipe/internal/config"
	"github.com/kiranshivaraju/hirepipe/internal/oracle/gemini"
	"github.com/kiranshivaraju/hirepipe/internal/oracle/mock"
	"github.com/kiranshivaraju/hirepipe/internal/oracle/openai"
	"github.com/kiranshivaraju/hirepipe/pkg/models"
)

// New constructs the appropriate scoring oracle based on config.
// Called once at server startup.
func New(ctx context.Context, cfg config.OracleConfig) (models.ScoringOracle, error) {
	switch cfg.Provider {
	case "gemini":
		p, err := gemini.NewProvider(ctx, cfg.Gemini)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "vertex":
		p, err := gemini.NewVertexProvider(ctx, cfg.Vertex)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "openai":
		return openai.NewProvider(cfg.OpenAI), nil
	case "ollama":
		return openai.NewOllamaProvider(cfg.Ollama), nil
	case "vllm":
		return openai.NewVLLMProvider(cfg.VLLM), nil
	case "mock":
		return mock.NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown oracle provider %q: must be one of gemini, vertex, openai, ollama, vllm, mock", cfg.Provider)
	}
}
