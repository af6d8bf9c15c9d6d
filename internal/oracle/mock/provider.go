package mock

import (
	"context"
	"sync/atomic"

	"github.com/kiranshivaraju/hirepipe/internal/oracle"
	"github.com/kiranshivaraju/hirepipe/pkg/models"
)

// MockProvider satisfies models.ScoringOracle for tests and local runs.
type MockProvider struct {
	Name_     string
	ScoreFunc func(ctx context.Context, req models.ScoreRequest) (models.ScoreResult, error)

	calls atomic.Int64
}

func (m *MockProvider) Name() string { return m.Name_ }

func (m *MockProvider) Score(ctx context.Context, req models.ScoreRequest) (models.ScoreResult, error) {
	m.calls.Add(1)
	if m.ScoreFunc != nil {
		return m.ScoreFunc(ctx, req)
	}
	return models.ScoreResult{}, nil
}

// Calls reports how many times Score was invoked.
func (m *MockProvider) Calls() int64 { return m.calls.Load() }

// NewMockProvider returns a MockProvider that derives a stable score from the
// candidate's skill count, so local runs produce plausible numbers.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock",
		ScoreFunc: func(_ context.Context, req models.ScoreRequest) (models.ScoreResult, error) {
			score := 50 + 10*len(req.Candidate.Skills)
			if score > 100 {
				score = 100
			}
			return models.ScoreResult{
				Score:         float64(score),
				Justification: "Simulated score from mock provider",
				Model:         "mock-v1",
			}, nil
		},
	}
}

// NewFixedProvider returns a MockProvider that always scores the given value.
func NewFixedProvider(score float64) *MockProvider {
	return &MockProvider{
		Name_: "mock-fixed",
		ScoreFunc: func(_ context.Context, _ models.ScoreRequest) (models.ScoreResult, error) {
			return models.ScoreResult{Score: score, Justification: "fixed", Model: "mock-v1"}, nil
		},
	}
}

// NewFailingProvider returns a MockProvider that always returns the given error.
func NewFailingProvider(err error) *MockProvider {
	return &MockProvider{
		Name_: "mock-failing",
		ScoreFunc: func(_ context.Context, _ models.ScoreRequest) (models.ScoreResult, error) {
			return models.ScoreResult{}, err
		},
	}
}

// NewTimeoutProvider returns a MockProvider that blocks until context is cancelled.
func NewTimeoutProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock-timeout",
		ScoreFunc: func(ctx context.Context, _ models.ScoreRequest) (models.ScoreResult, error) {
			<-ctx.Done()
			return models.ScoreResult{}, oracle.ErrInferenceTimeout
		},
	}
}

// Compile-time check that MockProvider implements ScoringOracle.
var _ models.ScoringOracle = (*MockProvider)(nil)
