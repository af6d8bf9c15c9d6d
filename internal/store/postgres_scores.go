package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kiranshivaraju/hirepipe/pkg/models"
)

// --- Compatibility Scores ---

func (s *PostgresStore) GetScore(ctx context.Context, candidateID, jobID uuid.UUID) (*models.CompatibilityScore, error) {
	var sc models.CompatibilityScore
	err := s.db.QueryRow(ctx,
		`SELECT candidate_id, job_id, score, justification, provider, computed_at
		 FROM compatibility_scores WHERE candidate_id = $1 AND job_id = $2`, candidateID, jobID,
	).Scan(&sc.CandidateID, &sc.JobID, &sc.Score, &sc.Justification, &sc.Provider, &sc.ComputedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get compatibility score: %w", err)
	}
	return &sc, nil
}

// InsertScore relies on the (candidate_id, job_id) primary key: a losing
// concurrent insert gets ErrDuplicateKey.
func (s *PostgresStore) InsertScore(ctx context.Context, sc *models.CompatibilityScore) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO compatibility_scores (candidate_id, job_id, score, justification, provider, computed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		sc.CandidateID, sc.JobID, sc.Score, sc.Justification, sc.Provider, sc.ComputedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert compatibility score: %w", err)
	}
	return nil
}

func (s *PostgresStore) ScoreExists(ctx context.Context, candidateID, jobID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM compatibility_scores WHERE candidate_id = $1 AND job_id = $2)`,
		candidateID, jobID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check compatibility score: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) DeleteScoresByCandidate(ctx context.Context, candidateID uuid.UUID) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM compatibility_scores WHERE candidate_id = $1`, candidateID)
	if err != nil {
		return 0, fmt.Errorf("delete scores by candidate: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) DeleteScoresByJob(ctx context.Context, jobID uuid.UUID) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM compatibility_scores WHERE job_id = $1`, jobID)
	if err != nil {
		return 0, fmt.Errorf("delete scores by job: %w", err)
	}
	return tag.RowsAffected(), nil
}

// --- Catalog ---

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.JobPosting, error) {
	var j models.JobPosting
	err := s.db.QueryRow(ctx,
		`SELECT id, title, description, requirements, location, open, created_at, updated_at
		 FROM job_postings WHERE id = $1`, id,
	).Scan(&j.ID, &j.Title, &j.Description, &j.Requirements, &j.Location, &j.Open, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &j, nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, j *models.JobPosting) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO job_postings (id, title, description, requirements, location, open, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		j.ID, j.Title, j.Description, j.Requirements, j.Location, j.Open, j.CreatedAt, j.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateJob(ctx context.Context, j *models.JobPosting) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE job_postings SET title = $2, description = $3, requirements = $4, location = $5, open = $6, updated_at = $7
		 WHERE id = $1`,
		j.ID, j.Title, j.Description, j.Requirements, j.Location, j.Open, j.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetCandidate(ctx context.Context, id uuid.UUID) (*models.CandidateProfile, error) {
	var c models.CandidateProfile
	err := s.db.QueryRow(ctx,
		`SELECT id, name, headline, summary, skills, experience_years, created_at, updated_at
		 FROM candidate_profiles WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Headline, &c.Summary, &c.Skills, &c.ExperienceYears, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get candidate: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) UpsertCandidate(ctx context.Context, c *models.CandidateProfile) error {
	skills := c.Skills
	if skills == nil {
		skills = []string{}
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO candidate_profiles (id, name, headline, summary, skills, experience_years, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name,
		   headline = EXCLUDED.headline,
		   summary = EXCLUDED.summary,
		   skills = EXCLUDED.skills,
		   experience_years = EXCLUDED.experience_years,
		   updated_at = EXCLUDED.updated_at`,
		c.ID, c.Name, c.Headline, c.Summary, skills, c.ExperienceYears, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert candidate: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListJobsMissingScore(ctx context.Context, candidateID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx,
		`SELECT j.id FROM job_postings j
		 WHERE j.open AND NOT EXISTS (
		   SELECT 1 FROM compatibility_scores s WHERE s.job_id = j.id AND s.candidate_id = $1)
		 ORDER BY j.created_at`, candidateID)
	if err != nil {
		return nil, fmt.Errorf("list jobs missing score: %w", err)
	}
	return collectIDs(rows)
}

func (s *PostgresStore) ListCandidatesMissingScore(ctx context.Context, jobID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx,
		`SELECT c.id FROM candidate_profiles c
		 WHERE NOT EXISTS (
		   SELECT 1 FROM compatibility_scores s WHERE s.candidate_id = c.id AND s.job_id = $1)
		 ORDER BY c.created_at`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list candidates missing score: %w", err)
	}
	return collectIDs(rows)
}

func collectIDs(rows pgx.Rows) ([]uuid.UUID, error) {
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
