package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/hirepipe/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// ErrStaleVersion is returned when a versioned update finds the row changed
// since it was read.
var ErrStaleVersion = errors.New("stale version")

// ScoreStore persists compatibility scores. InsertScore is an atomic
// insert-or-fail: a second insert for the same (candidate, job) key returns
// ErrDuplicateKey and leaves the first row untouched.
type ScoreStore interface {
	GetScore(ctx context.Context, candidateID, jobID uuid.UUID) (*models.CompatibilityScore, error)
	InsertScore(ctx context.Context, score *models.CompatibilityScore) error
	ScoreExists(ctx context.Context, candidateID, jobID uuid.UUID) (bool, error)
	DeleteScoresByCandidate(ctx context.Context, candidateID uuid.UUID) (int64, error)
	DeleteScoresByJob(ctx context.Context, jobID uuid.UUID) (int64, error)
}

// CatalogStore gives access to the job postings and candidate profiles that
// feed the scoring oracle.
type CatalogStore interface {
	GetJob(ctx context.Context, id uuid.UUID) (*models.JobPosting, error)
	CreateJob(ctx context.Context, job *models.JobPosting) error
	UpdateJob(ctx context.Context, job *models.JobPosting) error
	GetCandidate(ctx context.Context, id uuid.UUID) (*models.CandidateProfile, error)
	UpsertCandidate(ctx context.Context, c *models.CandidateProfile) error
	// ListJobsMissingScore returns open jobs that have no score for the candidate.
	ListJobsMissingScore(ctx context.Context, candidateID uuid.UUID) ([]uuid.UUID, error)
	// ListCandidatesMissingScore returns candidates that have no score for the job.
	ListCandidatesMissingScore(ctx context.Context, jobID uuid.UUID) ([]uuid.UUID, error)
}

type ApplicationStore interface {
	CreateApplication(ctx context.Context, app *models.Application) error
	GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error)
	ApplicationExists(ctx context.Context, jobID, candidateID uuid.UUID) (bool, error)
	UpdateApplicationStatus(ctx context.Context, id uuid.UUID, status models.ApplicationStatus) error
}

type StageStore interface {
	CreateStages(ctx context.Context, stages []models.StageDefinition) error
	// ListStagesByJob returns the job's stages ordered ascending by Order.
	ListStagesByJob(ctx context.Context, jobID uuid.UUID) ([]models.StageDefinition, error)
	UpdateStageStatus(ctx context.Context, stage *models.StageDefinition) error
}

type ProcessStore interface {
	CreateProcess(ctx context.Context, p *models.SelectionProcess) error
	GetProcess(ctx context.Context, id uuid.UUID) (*models.SelectionProcess, error)
	GetProcessByApplication(ctx context.Context, applicationID uuid.UUID) (*models.SelectionProcess, error)
	// UpdateProcess writes CurrentStageID and FinishedAt only if the stored
	// version still equals p.Version, then increments p.Version.
	UpdateProcess(ctx context.Context, p *models.SelectionProcess) error
}

type HistoryStore interface {
	AppendHistory(ctx context.Context, entry *models.StageHistoryEntry) error
	// ListHistory returns a process's entries, newest first.
	ListHistory(ctx context.Context, processID uuid.UUID) ([]models.StageHistoryEntry, error)
}

type APIKeyStore interface {
	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error
}

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error
	// InTx runs fn inside a single transaction. fn receives a Store bound to the
	// transaction; returning an error rolls everything back.
	InTx(ctx context.Context, fn func(tx Store) error) error

	ScoreStore
	CatalogStore
	ApplicationStore
	StageStore
	ProcessStore
	HistoryStore
	APIKeyStore
}
