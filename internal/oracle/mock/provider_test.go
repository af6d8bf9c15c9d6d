package mock_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kiranshivaraju/hirepipe/internal/oracle"
	"github.com/kiranshivaraju/hirepipe/internal/oracle/mock"
	"github.com/kiranshivaraju/hirepipe/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRequest(skills ...string) models.ScoreRequest {
	return models.ScoreRequest{
		Candidate: models.CandidateProfile{Name: "Ana", Skills: skills},
		Job:       models.JobPosting{Title: "Engineer"},
	}
}

// --- NewMockProvider ---

func TestNewMockProvider_Name(t *testing.T) {
	p := mock.NewMockProvider()
	assert.Equal(t, "mock", p.Name())
}

func TestNewMockProvider_ScoreFromSkills(t *testing.T) {
	p := mock.NewMockProvider()

	res, err := p.Score(context.Background(), sampleRequest("go", "sql"))
	require.NoError(t, err)
	assert.Equal(t, 70.0, res.Score)
	assert.Equal(t, "mock-v1", res.Model)
	assert.NotEmpty(t, res.Justification)

	res, err = p.Score(context.Background(), sampleRequest("a", "b", "c", "d", "e", "f", "g"))
	require.NoError(t, err)
	assert.Equal(t, 100.0, res.Score)
	assert.Equal(t, int64(2), p.Calls())
}

func TestNewFixedProvider(t *testing.T) {
	p := mock.NewFixedProvider(33)
	res, err := p.Score(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, 33.0, res.Score)
}

// --- NewFailingProvider ---

func TestNewFailingProvider(t *testing.T) {
	p := mock.NewFailingProvider(oracle.ErrProviderUnavailable)
	assert.Equal(t, "mock-failing", p.Name())

	_, err := p.Score(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, oracle.ErrProviderUnavailable)
}

func TestNewFailingProvider_CustomError(t *testing.T) {
	customErr := errors.New("custom oracle error")
	p := mock.NewFailingProvider(customErr)

	_, err := p.Score(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, customErr)
}

// --- NewTimeoutProvider ---

func TestNewTimeoutProvider(t *testing.T) {
	p := mock.NewTimeoutProvider()
	assert.Equal(t, "mock-timeout", p.Name())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Score(ctx, sampleRequest())
	assert.ErrorIs(t, err, oracle.ErrInferenceTimeout)
}

// --- Sentinel errors ---

func TestSentinelErrors(t *testing.T) {
	assert.NotEqual(t, oracle.ErrProviderUnavailable, oracle.ErrInferenceTimeout)
	assert.NotEqual(t, oracle.ErrInferenceTimeout, oracle.ErrInvalidResponse)
}

// --- Zero-value MockProvider ---

func TestMockProvider_NilFunc(t *testing.T) {
	p := &mock.MockProvider{Name_: "bare"}

	res, err := p.Score(context.Background(), sampleRequest())
	assert.NoError(t, err)
	assert.Equal(t, models.ScoreResult{}, res)
}
