package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kiranshivaraju/hirepipe/pkg/models"
)

// --- Applications ---

func (s *PostgresStore) CreateApplication(ctx context.Context, a *models.Application) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO applications (id, job_id, candidate_id, status, applied_at, compatibility_snapshot, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.JobID, a.CandidateID, a.Status, a.AppliedAt, a.CompatibilitySnapshot, a.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	var a models.Application
	err := s.db.QueryRow(ctx,
		`SELECT id, job_id, candidate_id, status, applied_at, compatibility_snapshot, updated_at
		 FROM applications WHERE id = $1`, id,
	).Scan(&a.ID, &a.JobID, &a.CandidateID, &a.Status, &a.AppliedAt, &a.CompatibilitySnapshot, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get application: %w", err)
	}
	return &a, nil
}

func (s *PostgresStore) ApplicationExists(ctx context.Context, jobID, candidateID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM applications WHERE job_id = $1 AND candidate_id = $2)`,
		jobID, candidateID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check application: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) UpdateApplicationStatus(ctx context.Context, id uuid.UUID, status models.ApplicationStatus) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE applications SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Stage Definitions ---

func (s *PostgresStore) CreateStages(ctx context.Context, stages []models.StageDefinition) error {
	batch := &pgx.Batch{}
	for _, st := range stages {
		batch.Queue(
			`INSERT INTO stage_definitions (id, job_id, name, description, type, stage_order, status, started_at, ended_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			st.ID, st.JobID, st.Name, st.Description, st.Type, st.Order, st.Status, st.StartedAt, st.EndedAt)
	}
	br := s.db.SendBatch(ctx, batch)
	defer br.Close()

	for range stages {
		if _, err := br.Exec(); err != nil {
			if isDuplicateKeyError(err) {
				return ErrDuplicateKey
			}
			return fmt.Errorf("create stage: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) ListStagesByJob(ctx context.Context, jobID uuid.UUID) ([]models.StageDefinition, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, job_id, name, description, type, stage_order, status, started_at, ended_at
		 FROM stage_definitions WHERE job_id = $1 ORDER BY stage_order ASC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	defer rows.Close()

	stages := []models.StageDefinition{}
	for rows.Next() {
		var st models.StageDefinition
		if err := rows.Scan(&st.ID, &st.JobID, &st.Name, &st.Description, &st.Type, &st.Order,
			&st.Status, &st.StartedAt, &st.EndedAt); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		stages = append(stages, st)
	}
	return stages, rows.Err()
}

func (s *PostgresStore) UpdateStageStatus(ctx context.Context, st *models.StageDefinition) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE stage_definitions SET status = $2, started_at = $3, ended_at = $4 WHERE id = $1`,
		st.ID, st.Status, st.StartedAt, st.EndedAt)
	if err != nil {
		return fmt.Errorf("update stage status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Selection Processes ---

func (s *PostgresStore) CreateProcess(ctx context.Context, p *models.SelectionProcess) error {
	if p.Version == 0 {
		p.Version = 1
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO selection_processes (id, application_id, current_stage_id, started_at, finished_at, version)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.ApplicationID, p.CurrentStageID, p.StartedAt, p.FinishedAt, p.Version)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create selection process: %w", err)
	}
	return nil
}

// GetProcess locks the row when called inside a transaction, so concurrent
// transitions on one process queue up behind each other.
func (s *PostgresStore) GetProcess(ctx context.Context, id uuid.UUID) (*models.SelectionProcess, error) {
	query := `SELECT id, application_id, current_stage_id, started_at, finished_at, version
		 FROM selection_processes WHERE id = $1`
	if s.inTx {
		query += ` FOR UPDATE`
	}
	return s.scanProcess(s.db.QueryRow(ctx, query, id))
}

func (s *PostgresStore) GetProcessByApplication(ctx context.Context, applicationID uuid.UUID) (*models.SelectionProcess, error) {
	return s.scanProcess(s.db.QueryRow(ctx,
		`SELECT id, application_id, current_stage_id, started_at, finished_at, version
		 FROM selection_processes WHERE application_id = $1`, applicationID))
}

func (s *PostgresStore) scanProcess(row pgx.Row) (*models.SelectionProcess, error) {
	var p models.SelectionProcess
	err := row.Scan(&p.ID, &p.ApplicationID, &p.CurrentStageID, &p.StartedAt, &p.FinishedAt, &p.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get selection process: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) UpdateProcess(ctx context.Context, p *models.SelectionProcess) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE selection_processes SET current_stage_id = $2, finished_at = $3, version = version + 1
		 WHERE id = $1 AND version = $4`,
		p.ID, p.CurrentStageID, p.FinishedAt, p.Version)
	if err != nil {
		return fmt.Errorf("update selection process: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.getProcessUnlocked(ctx, p.ID); errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return ErrStaleVersion
	}
	p.Version++
	return nil
}

func (s *PostgresStore) getProcessUnlocked(ctx context.Context, id uuid.UUID) (*models.SelectionProcess, error) {
	return s.scanProcess(s.db.QueryRow(ctx,
		`SELECT id, application_id, current_stage_id, started_at, finished_at, version
		 FROM selection_processes WHERE id = $1`, id))
}

// --- Stage History ---

func (s *PostgresStore) AppendHistory(ctx context.Context, e *models.StageHistoryEntry) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO stage_history (id, process_id, from_stage_id, to_stage_id, actor_id, feedback, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.ProcessID, e.FromStageID, e.ToStageID, e.ActorID, e.Feedback, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("append stage history: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListHistory(ctx context.Context, processID uuid.UUID) ([]models.StageHistoryEntry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, process_id, from_stage_id, to_stage_id, actor_id, feedback, created_at
		 FROM stage_history WHERE process_id = $1 ORDER BY created_at DESC, id DESC`, processID)
	if err != nil {
		return nil, fmt.Errorf("list stage history: %w", err)
	}
	defer rows.Close()

	entries := []models.StageHistoryEntry{}
	for rows.Next() {
		var e models.StageHistoryEntry
		if err := rows.Scan(&e.ID, &e.ProcessID, &e.FromStageID, &e.ToStageID, &e.ActorID,
			&e.Feedback, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan stage history: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
