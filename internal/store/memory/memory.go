// Package memory is an in-process implementation of store.Store.
//
// Writes are serialized; InTx runs against a private copy of the data that is
// swapped in on success, so a failed transaction leaves no trace. Unique keys
// are checked under the write lock, which gives InsertScore and
// CreateApplication the same insert-or-fail behavior as the Postgres indexes.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/hirepipe/internal/store"
	"github.com/kiranshivaraju/hirepipe/pkg/models"
)

type appKey struct {
	JobID       uuid.UUID
	CandidateID uuid.UUID
}

type state struct {
	scores       map[models.ScoreKey]models.CompatibilityScore
	jobs         map[uuid.UUID]models.JobPosting
	candidates   map[uuid.UUID]models.CandidateProfile
	applications map[uuid.UUID]models.Application
	appsByPair   map[appKey]uuid.UUID
	stages       map[uuid.UUID]models.StageDefinition
	processes    map[uuid.UUID]models.SelectionProcess
	history      map[uuid.UUID][]models.StageHistoryEntry
	apiKeys      map[uuid.UUID]models.APIKey
}

func newState() *state {
	return &state{
		scores:       make(map[models.ScoreKey]models.CompatibilityScore),
		jobs:         make(map[uuid.UUID]models.JobPosting),
		candidates:   make(map[uuid.UUID]models.CandidateProfile),
		applications: make(map[uuid.UUID]models.Application),
		appsByPair:   make(map[appKey]uuid.UUID),
		stages:       make(map[uuid.UUID]models.StageDefinition),
		processes:    make(map[uuid.UUID]models.SelectionProcess),
		history:      make(map[uuid.UUID][]models.StageHistoryEntry),
		apiKeys:      make(map[uuid.UUID]models.APIKey),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.scores {
		c.scores[k] = v
	}
	for k, v := range s.jobs {
		c.jobs[k] = v
	}
	for k, v := range s.candidates {
		c.candidates[k] = v
	}
	for k, v := range s.applications {
		c.applications[k] = v
	}
	for k, v := range s.appsByPair {
		c.appsByPair[k] = v
	}
	for k, v := range s.stages {
		c.stages[k] = v
	}
	for k, v := range s.processes {
		c.processes[k] = v
	}
	for k, v := range s.history {
		c.history[k] = append([]models.StageHistoryEntry(nil), v...)
	}
	for k, v := range s.apiKeys {
		c.apiKeys[k] = v
	}
	return c
}

// Store is safe for concurrent use.
type Store struct {
	writeMu *sync.Mutex // serializes writers, including whole transactions
	mu      *sync.RWMutex
	root    **state
	tx      *state // non-nil for a transaction-bound view
}

// New returns an empty Store.
func New() *Store {
	st := newState()
	return &Store{writeMu: &sync.Mutex{}, mu: &sync.RWMutex{}, root: &st}
}

func (s *Store) Ping(_ context.Context) error { return nil }

// InTx copies the current data, runs fn against the copy and publishes it if
// fn succeeds. Other writers wait until the transaction ends.
func (s *Store) InTx(_ context.Context, fn func(tx store.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	snapshot := (*s.root).clone()
	s.mu.RUnlock()

	txStore := &Store{writeMu: s.writeMu, mu: s.mu, root: s.root, tx: snapshot}
	if err := fn(txStore); err != nil {
		return err
	}

	s.mu.Lock()
	*s.root = snapshot
	s.mu.Unlock()
	return nil
}

func (s *Store) read(fn func(d *state)) {
	if s.tx != nil {
		fn(s.tx)
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(*s.root)
}

func (s *Store) write(fn func(d *state) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(*s.root)
}

// --- Compatibility Scores ---

func (s *Store) GetScore(_ context.Context, candidateID, jobID uuid.UUID) (*models.CompatibilityScore, error) {
	var (
		sc models.CompatibilityScore
		ok bool
	)
	s.read(func(d *state) { sc, ok = d.scores[models.ScoreKey{CandidateID: candidateID, JobID: jobID}] })
	if !ok {
		return nil, store.ErrNotFound
	}
	return &sc, nil
}

func (s *Store) InsertScore(_ context.Context, sc *models.CompatibilityScore) error {
	return s.write(func(d *state) error {
		key := models.ScoreKey{CandidateID: sc.CandidateID, JobID: sc.JobID}
		if _, exists := d.scores[key]; exists {
			return store.ErrDuplicateKey
		}
		d.scores[key] = *sc
		return nil
	})
}

func (s *Store) ScoreExists(_ context.Context, candidateID, jobID uuid.UUID) (bool, error) {
	var ok bool
	s.read(func(d *state) { _, ok = d.scores[models.ScoreKey{CandidateID: candidateID, JobID: jobID}] })
	return ok, nil
}

func (s *Store) DeleteScoresByCandidate(_ context.Context, candidateID uuid.UUID) (int64, error) {
	var n int64
	err := s.write(func(d *state) error {
		for k := range d.scores {
			if k.CandidateID == candidateID {
				delete(d.scores, k)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (s *Store) DeleteScoresByJob(_ context.Context, jobID uuid.UUID) (int64, error) {
	var n int64
	err := s.write(func(d *state) error {
		for k := range d.scores {
			if k.JobID == jobID {
				delete(d.scores, k)
				n++
			}
		}
		return nil
	})
	return n, err
}

// --- Catalog ---

func (s *Store) GetJob(_ context.Context, id uuid.UUID) (*models.JobPosting, error) {
	var (
		j  models.JobPosting
		ok bool
	)
	s.read(func(d *state) { j, ok = d.jobs[id] })
	if !ok {
		return nil, store.ErrNotFound
	}
	return &j, nil
}

func (s *Store) CreateJob(_ context.Context, j *models.JobPosting) error {
	return s.write(func(d *state) error {
		if _, exists := d.jobs[j.ID]; exists {
			return store.ErrDuplicateKey
		}
		d.jobs[j.ID] = *j
		return nil
	})
}

func (s *Store) UpdateJob(_ context.Context, j *models.JobPosting) error {
	return s.write(func(d *state) error {
		old, exists := d.jobs[j.ID]
		if !exists {
			return store.ErrNotFound
		}
		updated := *j
		updated.CreatedAt = old.CreatedAt
		d.jobs[j.ID] = updated
		return nil
	})
}

func (s *Store) GetCandidate(_ context.Context, id uuid.UUID) (*models.CandidateProfile, error) {
	var (
		c  models.CandidateProfile
		ok bool
	)
	s.read(func(d *state) { c, ok = d.candidates[id] })
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *Store) UpsertCandidate(_ context.Context, c *models.CandidateProfile) error {
	return s.write(func(d *state) error {
		updated := *c
		updated.Skills = append([]string(nil), c.Skills...)
		if old, exists := d.candidates[c.ID]; exists {
			updated.CreatedAt = old.CreatedAt
		}
		d.candidates[c.ID] = updated
		return nil
	})
}

func (s *Store) ListJobsMissingScore(_ context.Context, candidateID uuid.UUID) ([]uuid.UUID, error) {
	var jobs []models.JobPosting
	s.read(func(d *state) {
		for _, j := range d.jobs {
			if !j.Open {
				continue
			}
			if _, scored := d.scores[models.ScoreKey{CandidateID: candidateID, JobID: j.ID}]; !scored {
				jobs = append(jobs, j)
			}
		}
	})
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].CreatedAt.Before(jobs[k].CreatedAt) })

	ids := make([]uuid.UUID, 0, len(jobs))
	for _, j := range jobs {
		ids = append(ids, j.ID)
	}
	return ids, nil
}

func (s *Store) ListCandidatesMissingScore(_ context.Context, jobID uuid.UUID) ([]uuid.UUID, error) {
	var cands []models.CandidateProfile
	s.read(func(d *state) {
		for _, c := range d.candidates {
			if _, scored := d.scores[models.ScoreKey{CandidateID: c.ID, JobID: jobID}]; !scored {
				cands = append(cands, c)
			}
		}
	})
	sort.Slice(cands, func(i, k int) bool { return cands[i].CreatedAt.Before(cands[k].CreatedAt) })

	ids := make([]uuid.UUID, 0, len(cands))
	for _, c := range cands {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

// --- Applications ---

func (s *Store) CreateApplication(_ context.Context, a *models.Application) error {
	return s.write(func(d *state) error {
		pair := appKey{JobID: a.JobID, CandidateID: a.CandidateID}
		if _, exists := d.appsByPair[pair]; exists {
			return store.ErrDuplicateKey
		}
		if _, exists := d.applications[a.ID]; exists {
			return store.ErrDuplicateKey
		}
		d.applications[a.ID] = *a
		d.appsByPair[pair] = a.ID
		return nil
	})
}

func (s *Store) GetApplication(_ context.Context, id uuid.UUID) (*models.Application, error) {
	var (
		a  models.Application
		ok bool
	)
	s.read(func(d *state) { a, ok = d.applications[id] })
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (s *Store) ApplicationExists(_ context.Context, jobID, candidateID uuid.UUID) (bool, error) {
	var ok bool
	s.read(func(d *state) { _, ok = d.appsByPair[appKey{JobID: jobID, CandidateID: candidateID}] })
	return ok, nil
}

func (s *Store) UpdateApplicationStatus(_ context.Context, id uuid.UUID, status models.ApplicationStatus) error {
	return s.write(func(d *state) error {
		a, ok := d.applications[id]
		if !ok {
			return store.ErrNotFound
		}
		a.Status = status
		a.UpdatedAt = time.Now().UTC()
		d.applications[id] = a
		return nil
	})
}

// --- Stage Definitions ---

func (s *Store) CreateStages(_ context.Context, stages []models.StageDefinition) error {
	return s.write(func(d *state) error {
		for i, st := range stages {
			if _, exists := d.stages[st.ID]; exists {
				return store.ErrDuplicateKey
			}
			for _, other := range d.stages {
				if other.JobID == st.JobID && other.Order == st.Order {
					return store.ErrDuplicateKey
				}
			}
			for _, other := range stages[:i] {
				if other.JobID == st.JobID && other.Order == st.Order {
					return store.ErrDuplicateKey
				}
			}
		}
		for _, st := range stages {
			d.stages[st.ID] = st
		}
		return nil
	})
}

func (s *Store) ListStagesByJob(_ context.Context, jobID uuid.UUID) ([]models.StageDefinition, error) {
	stages := []models.StageDefinition{}
	s.read(func(d *state) {
		for _, st := range d.stages {
			if st.JobID == jobID {
				stages = append(stages, st)
			}
		}
	})
	models.SortStages(stages)
	return stages, nil
}

func (s *Store) UpdateStageStatus(_ context.Context, st *models.StageDefinition) error {
	return s.write(func(d *state) error {
		cur, ok := d.stages[st.ID]
		if !ok {
			return store.ErrNotFound
		}
		cur.Status = st.Status
		cur.StartedAt = st.StartedAt
		cur.EndedAt = st.EndedAt
		d.stages[st.ID] = cur
		return nil
	})
}

// --- Selection Processes ---

func (s *Store) CreateProcess(_ context.Context, p *models.SelectionProcess) error {
	if p.Version == 0 {
		p.Version = 1
	}
	return s.write(func(d *state) error {
		if _, exists := d.processes[p.ID]; exists {
			return store.ErrDuplicateKey
		}
		for _, other := range d.processes {
			if other.ApplicationID == p.ApplicationID {
				return store.ErrDuplicateKey
			}
		}
		d.processes[p.ID] = *p
		return nil
	})
}

func (s *Store) GetProcess(_ context.Context, id uuid.UUID) (*models.SelectionProcess, error) {
	var (
		p  models.SelectionProcess
		ok bool
	)
	s.read(func(d *state) { p, ok = d.processes[id] })
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) GetProcessByApplication(_ context.Context, applicationID uuid.UUID) (*models.SelectionProcess, error) {
	var (
		p  models.SelectionProcess
		ok bool
	)
	s.read(func(d *state) {
		for _, cand := range d.processes {
			if cand.ApplicationID == applicationID {
				p, ok = cand, true
				return
			}
		}
	})
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) UpdateProcess(_ context.Context, p *models.SelectionProcess) error {
	err := s.write(func(d *state) error {
		cur, ok := d.processes[p.ID]
		if !ok {
			return store.ErrNotFound
		}
		if cur.Version != p.Version {
			return store.ErrStaleVersion
		}
		cur.CurrentStageID = p.CurrentStageID
		cur.FinishedAt = p.FinishedAt
		cur.Version++
		d.processes[p.ID] = cur
		return nil
	})
	if err != nil {
		return err
	}
	p.Version++
	return nil
}

// --- Stage History ---

func (s *Store) AppendHistory(_ context.Context, e *models.StageHistoryEntry) error {
	return s.write(func(d *state) error {
		d.history[e.ProcessID] = append(d.history[e.ProcessID], *e)
		return nil
	})
}

func (s *Store) ListHistory(_ context.Context, processID uuid.UUID) ([]models.StageHistoryEntry, error) {
	entries := []models.StageHistoryEntry{}
	s.read(func(d *state) {
		entries = append(entries, d.history[processID]...)
	})
	// Newest first; insertion order breaks timestamp ties.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })
	return entries, nil
}

// --- API Keys ---

func (s *Store) GetAPIKeyByPrefix(_ context.Context, prefix string) ([]*models.APIKey, error) {
	var keys []*models.APIKey
	s.read(func(d *state) {
		for _, k := range d.apiKeys {
			if k.KeyPrefix == prefix && k.DeletedAt == nil {
				k := k
				keys = append(keys, &k)
			}
		}
	})
	return keys, nil
}

func (s *Store) UpdateAPIKeyLastUsed(_ context.Context, id uuid.UUID) error {
	return s.write(func(d *state) error {
		k, ok := d.apiKeys[id]
		if !ok {
			return nil
		}
		now := time.Now().UTC()
		k.LastUsedAt = &now
		k.UpdatedAt = now
		d.apiKeys[id] = k
		return nil
	})
}

func (s *Store) CreateAPIKey(_ context.Context, key *models.APIKey) error {
	return s.write(func(d *state) error {
		for _, k := range d.apiKeys {
			if k.ID == key.ID || k.KeyHash == key.KeyHash {
				return store.ErrDuplicateKey
			}
		}
		d.apiKeys[key.ID] = *key
		return nil
	})
}

func (s *Store) ListAPIKeys(_ context.Context) ([]*models.APIKey, error) {
	var keys []*models.APIKey
	s.read(func(d *state) {
		for _, k := range d.apiKeys {
			if k.DeletedAt == nil {
				k := k
				keys = append(keys, &k)
			}
		}
	})
	sort.Slice(keys, func(i, j int) bool { return keys[i].CreatedAt.After(keys[j].CreatedAt) })
	return keys, nil
}

func (s *Store) RevokeAPIKey(_ context.Context, id uuid.UUID) error {
	return s.write(func(d *state) error {
		k, ok := d.apiKeys[id]
		if !ok || k.DeletedAt != nil {
			return store.ErrNotFound
		}
		now := time.Now().UTC()
		k.DeletedAt = &now
		k.UpdatedAt = now
		d.apiKeys[id] = k
		return nil
	})
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)
