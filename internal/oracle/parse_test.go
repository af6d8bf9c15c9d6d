package oracle

import (
	"strings"
	"testing"

	"github.com/kiranshivaraju/hirepipe/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScore(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		score float64
		just  string
	}{
		{"plain", `{"score": 82, "justification": "solid match"}`, 82, "solid match"},
		{"fenced", "```json\n{\"score\": 40, \"justification\": \"junior\"}\n```", 40, "junior"},
		{"string score", `{"score": "67.4", "justification": "ok"}`, 67, "ok"},
		{"percent", `{"score": "90%", "reason": "fallback field"}`, 90, "fallback field"},
		{"clamped high", `{"score": 140}`, 100, ""},
		{"clamped low", `{"score": -3}`, 0, ""},
		{"prose around", `Here you go: {"score": 55, "justification": "fine"} thanks`, 55, "fine"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ParseScore(tt.raw, "m1")
			require.NoError(t, err)
			assert.Equal(t, tt.score, res.Score)
			assert.Equal(t, tt.just, res.Justification)
			assert.Equal(t, "m1", res.Model)
		})
	}
}

func TestParseScore_Invalid(t *testing.T) {
	for _, raw := range []string{"", "not json", `{"justification": "no score"}`, `{"score": "high"}`} {
		_, err := ParseScore(raw, "m1")
		assert.ErrorIs(t, err, ErrInvalidResponse, raw)
	}
}

func TestParseScore_TruncatesJustification(t *testing.T) {
	long := strings.Repeat("é", maxJustificationBytes)
	res, err := ParseScore(`{"score": 1, "justification": "`+long+`"}`, "m")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(res.Justification), maxJustificationBytes)
}

func TestBuildPrompt(t *testing.T) {
	prompt, err := BuildPrompt(models.ScoreRequest{
		Candidate: models.CandidateProfile{Name: "Ana", Skills: []string{"go"}, ExperienceYears: 5},
		Job:       models.JobPosting{Title: "Backend Engineer", Location: "Remote"},
	})
	require.NoError(t, err)
	assert.Contains(t, prompt, `"name": "Ana"`)
	assert.Contains(t, prompt, `"title": "Backend Engineer"`)
	assert.NotContains(t, prompt, "{{CANDIDATE_JSON}}")
	assert.NotContains(t, prompt, "{{JOB_JSON}}")
}
