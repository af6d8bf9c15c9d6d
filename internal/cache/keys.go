package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func ScoreKey(candidateID, jobID uuid.UUID) string {
	return fmt.Sprintf("compat:%s:%s", candidateID, jobID)
}

// CandidateScorePattern matches every cached score of one candidate.
func CandidateScorePattern(candidateID uuid.UUID) string {
	return fmt.Sprintf("compat:%s:*", candidateID)
}

// JobScorePattern matches every cached score of one job.
func JobScorePattern(jobID uuid.UUID) string {
	return fmt.Sprintf("compat:*:%s", jobID)
}

func BatchStatusKey(batchID uuid.UUID) string {
	return fmt.Sprintf("batch:%s", batchID)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}
