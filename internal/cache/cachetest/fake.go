// Package cachetest provides an in-process cache.Cache for tests.
package cachetest

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/hirepipe/internal/cache"
	"github.com/kiranshivaraju/hirepipe/pkg/models"
)

// Fake keeps values in maps and ignores TTLs. Set Err to make every call fail.
type Fake struct {
	mu      sync.Mutex
	scores  map[string]models.CompatibilityScore
	batches map[uuid.UUID]models.BatchStatus
	counts  map[string]int64

	Err error
}

func New() *Fake {
	return &Fake{
		scores:  make(map[string]models.CompatibilityScore),
		batches: make(map[uuid.UUID]models.BatchStatus),
		counts:  make(map[string]int64),
	}
}

func (f *Fake) DeletePattern(_ context.Context, pattern string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return 0, f.Err
	}
	var n int64
	for k := range f.scores {
		if ok, _ := path.Match(pattern, k); ok {
			delete(f.scores, k)
			n++
		}
	}
	return n, nil
}

func (f *Fake) Ping(_ context.Context) error { return f.Err }

func (f *Fake) Close() error { return nil }

func (f *Fake) SetScore(_ context.Context, score *models.CompatibilityScore, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.scores[cache.ScoreKey(score.CandidateID, score.JobID)] = *score
	return nil
}

func (f *Fake) GetScore(_ context.Context, candidateID, jobID uuid.UUID) (*models.CompatibilityScore, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, false, f.Err
	}
	s, ok := f.scores[cache.ScoreKey(candidateID, jobID)]
	if !ok {
		return nil, false, nil
	}
	return &s, true, nil
}

// HasScore reports whether a score is cached for the pair.
func (f *Fake) HasScore(candidateID, jobID uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.scores[cache.ScoreKey(candidateID, jobID)]
	return ok
}

func (f *Fake) SetBatchStatus(_ context.Context, status *models.BatchStatus, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.batches[status.ID] = *status
	return nil
}

func (f *Fake) GetBatchStatus(_ context.Context, batchID uuid.UUID) (*models.BatchStatus, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, false, f.Err
	}
	s, ok := f.batches[batchID]
	if !ok {
		return nil, false, nil
	}
	return &s, true, nil
}

func (f *Fake) IncrWithExpiry(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return 0, f.Err
	}
	f.counts[key]++
	return f.counts[key], nil
}

// Compile-time check that Fake implements cache.Cache.
var _ cache.Cache = (*Fake)(nil)
