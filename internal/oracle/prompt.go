// Package oracle holds what every scoring provider shares: the prompt, the
// response parser and the error taxonomy. Providers live in subpackages.
package oracle

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kiranshivaraju/hirepipe/pkg/models"
)

//go:embed prompt.md
var promptTemplate string

// SystemInstruction is sent as the system role by providers that support one.
const SystemInstruction = "You score candidate and job compatibility. Reply with JSON only."

type candidatePayload struct {
	Name            string   `json:"name"`
	Headline        string   `json:"headline,omitempty"`
	Summary         string   `json:"summary,omitempty"`
	Skills          []string `json:"skills,omitempty"`
	ExperienceYears int      `json:"experience_years"`
}

type jobPayload struct {
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	Requirements string `json:"requirements,omitempty"`
	Location     string `json:"location,omitempty"`
}

// BuildPrompt renders the scoring prompt for one (candidate, job) pair.
func BuildPrompt(req models.ScoreRequest) (string, error) {
	candidateJSON, err := json.MarshalIndent(candidatePayload{
		Name:            req.Candidate.Name,
		Headline:        req.Candidate.Headline,
		Summary:         req.Candidate.Summary,
		Skills:          req.Candidate.Skills,
		ExperienceYears: req.Candidate.ExperienceYears,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal candidate payload: %w", err)
	}

	jobJSON, err := json.MarshalIndent(jobPayload{
		Title:        req.Job.Title,
		Description:  req.Job.Description,
		Requirements: req.Job.Requirements,
		Location:     req.Job.Location,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal job payload: %w", err)
	}

	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Candidate:\n{{CANDIDATE_JSON}}\n\nJob posting:\n{{JOB_JSON}}\n\nJSON Response:"
	}
	prompt := strings.ReplaceAll(template, "{{CANDIDATE_JSON}}", string(candidateJSON))
	prompt = strings.ReplaceAll(prompt, "{{JOB_JSON}}", string(jobJSON))
	return prompt, nil
}
