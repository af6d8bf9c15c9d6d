package oracle

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/kiranshivaraju/hirepipe/pkg/models"
)

const maxJustificationBytes = 2000

// ParseScore turns raw model output into a ScoreResult. The score is rounded
// to an integer and clamped to [0, 100]; a missing or non-numeric score is an
// ErrInvalidResponse.
func ParseScore(raw, model string) (models.ScoreResult, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return models.ScoreResult{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	score := coerceFloat(data["score"])
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return models.ScoreResult{}, fmt.Errorf("%w: missing numeric score", ErrInvalidResponse)
	}

	justification := coerceString(data["justification"])
	if justification == "" {
		justification = coerceString(data["reason"])
	}

	return models.ScoreResult{
		Score:         clampScore(score),
		Justification: truncateString(justification, maxJustificationBytes),
		Model:         model,
	}, nil
}

func clampScore(v float64) float64 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	raw = strings.TrimSpace(raw)

	// Some models wrap the object in prose.
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start > 0 && end > start {
		raw = raw[start : end+1]
	}
	return raw
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSuffix(strings.TrimSpace(val), "%")
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

// truncateString truncates s to maxBytes without splitting UTF-8 runes.
func truncateString(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
