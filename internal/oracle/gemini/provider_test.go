package gemini

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/hirepipe/internal/config"
	"github.com/kiranshivaraju/hirepipe/internal/oracle"
	"github.com/kiranshivaraju/hirepipe/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	prompt string
	fn     func(ctx context.Context) (string, error)
}

func (s *stubGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.fn(ctx)
}

func sampleRequest() models.ScoreRequest {
	return models.ScoreRequest{
		Candidate: models.CandidateProfile{ID: uuid.New(), Name: "Ana", Skills: []string{"go", "kafka"}},
		Job:       models.JobPosting{ID: uuid.New(), Title: "Platform Engineer"},
	}
}

func TestScore_ParsesResponse(t *testing.T) {
	gen := &stubGenerator{fn: func(context.Context) (string, error) {
		return "```json\n{\"score\": 78, \"justification\": \"kafka experience\"}\n```", nil
	}}
	p := &Provider{name: "gemini", model: "gemini-test", generator: gen}

	res, err := p.Score(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, 78.0, res.Score)
	assert.Equal(t, "kafka experience", res.Justification)
	assert.Equal(t, "gemini-test", res.Model)
	assert.Contains(t, gen.prompt, "Platform Engineer")
}

func TestScore_Timeout(t *testing.T) {
	gen := &stubGenerator{fn: func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	p := &Provider{name: "gemini", model: "m", generator: gen}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.Score(ctx, sampleRequest())
	assert.ErrorIs(t, err, oracle.ErrInferenceTimeout)
}

func TestScore_TransportErrorIsUnavailable(t *testing.T) {
	gen := &stubGenerator{fn: func(context.Context) (string, error) {
		return "", errors.New("503 service unavailable")
	}}
	p := &Provider{name: "vertex", model: "m", generator: gen}

	_, err := p.Score(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, oracle.ErrProviderUnavailable)
}

func TestScore_GarbageIsInvalid(t *testing.T) {
	gen := &stubGenerator{fn: func(context.Context) (string, error) { return "I think 7/10", nil }}
	p := &Provider{name: "gemini", model: "m", generator: gen}

	_, err := p.Score(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, oracle.ErrInvalidResponse)
}

func TestNewProvider_RequiresKey(t *testing.T) {
	_, err := NewProvider(context.Background(), config.GeminiConfig{APIKey: "  "})
	assert.Error(t, err)
}

func TestNewVertexProvider_RequiresProject(t *testing.T) {
	_, err := NewVertexProvider(context.Background(), config.VertexConfig{Location: "us-central1"})
	assert.Error(t, err)
}

func TestModelOrDefault(t *testing.T) {
	assert.Equal(t, defaultModel, modelOrDefault(""))
	assert.Equal(t, "gemini-2.5-pro", modelOrDefault(" gemini-2.5-pro "))
}
