// Package workflow drives an application's selection process through its
// job's ordered stages.
//
// Every transition runs in one store transaction: the history entry, the
// process, the application status and stage bookkeeping commit together.
// The process row is version-checked so two racing transitions cannot both
// apply. Notifications go out after commit and never fail a transition.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/hirepipe/internal/apperr"
	"github.com/kiranshivaraju/hirepipe/internal/events"
	"github.com/kiranshivaraju/hirepipe/internal/store"
	"github.com/kiranshivaraju/hirepipe/pkg/models"
)

// ScoreSource supplies the compatibility score snapshotted on new applications.
type ScoreSource interface {
	GetOrCompute(ctx context.Context, candidateID, jobID uuid.UUID) (*models.CompatibilityScore, error)
}

type Service struct {
	store     store.Store
	scores    ScoreSource
	publisher events.Publisher
	notifier  events.Notifier
	now       func() time.Time
}

func NewService(st store.Store, scores ScoreSource, publisher events.Publisher, notifier events.Notifier) *Service {
	return &Service{
		store:     st,
		scores:    scores,
		publisher: publisher,
		notifier:  notifier,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// processState is everything a transition needs, loaded inside its transaction.
type processState struct {
	process *models.SelectionProcess
	app     *models.Application
	stages  []models.StageDefinition
	current int
}

func (ps *processState) last() int { return len(ps.stages) - 1 }

func (ps *processState) indexOf(stageID uuid.UUID) int {
	for i, st := range ps.stages {
		if st.ID == stageID {
			return i
		}
	}
	return -1
}

// AdvanceToNext moves the process to the stage right after the current one.
func (s *Service) AdvanceToNext(ctx context.Context, processID, actorID uuid.UUID, feedback string) (*models.SelectionProcess, error) {
	return s.move(ctx, processID, actorID, feedback, func(ps *processState) (int, error) {
		if ps.current == ps.last() {
			return 0, apperr.Violation("process %s is at the last stage; use finalize instead", processID)
		}
		return ps.current + 1, nil
	})
}

// AdvanceToStage jumps to any other stage of the same job.
func (s *Service) AdvanceToStage(ctx context.Context, processID, targetStageID, actorID uuid.UUID, feedback string) (*models.SelectionProcess, error) {
	return s.move(ctx, processID, actorID, feedback, targetRule(processID, targetStageID))
}

// ReturnToStage sends the process back to an earlier stage. It follows the
// same rules as AdvanceToStage.
func (s *Service) ReturnToStage(ctx context.Context, processID, targetStageID, actorID uuid.UUID, feedback string) (*models.SelectionProcess, error) {
	return s.move(ctx, processID, actorID, feedback, targetRule(processID, targetStageID))
}

func targetRule(processID, targetStageID uuid.UUID) func(ps *processState) (int, error) {
	return func(ps *processState) (int, error) {
		idx := ps.indexOf(targetStageID)
		if idx < 0 {
			return 0, apperr.Violation("stage %s does not belong to job %s", targetStageID, ps.app.JobID)
		}
		if idx == ps.current {
			return 0, apperr.Violation("process %s is already at stage %s", processID, targetStageID)
		}
		return idx, nil
	}
}

func (s *Service) move(ctx context.Context, processID, actorID uuid.UUID, feedback string, pick func(ps *processState) (int, error)) (*models.SelectionProcess, error) {
	var result *models.SelectionProcess
	var appID uuid.UUID

	err := s.store.InTx(ctx, func(tx store.Store) error {
		ps, err := s.loadActive(ctx, tx, processID)
		if err != nil {
			return err
		}
		target, err := pick(ps)
		if err != nil {
			return err
		}

		now := s.now()
		from, to := ps.stages[ps.current], ps.stages[target]

		if to.Status == models.StagePending {
			to.Status = models.StageInProgress
			if to.StartedAt == nil {
				to.StartedAt = &now
			}
			if err := tx.UpdateStageStatus(ctx, &to); err != nil {
				return fmt.Errorf("update stage status: %w", err)
			}
		}

		if err := s.appendHistory(ctx, tx, ps.process.ID, from.ID, to.ID, actorID, feedback, now); err != nil {
			return err
		}

		ps.process.CurrentStageID = to.ID
		if err := s.saveProcess(ctx, tx, ps.process); err != nil {
			return err
		}

		if ps.app.Status == models.ApplicationPending {
			if err := tx.UpdateApplicationStatus(ctx, ps.app.ID, models.ApplicationInProcess); err != nil {
				return fmt.Errorf("update application status: %w", err)
			}
		}

		slog.Info("selection process moved",
			"process_id", processID,
			"from_stage", from.Name,
			"to_stage", to.Name,
			"actor_id", actorID,
		)
		result, appID = ps.process, ps.app.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, appID, models.NotifyAdvanced, feedback)
	return result, nil
}

// Finalize moves the process to the job's last stage, concludes that stage
// and accepts the application. A history entry is written even when the
// process already sits on the last stage.
func (s *Service) Finalize(ctx context.Context, processID, actorID uuid.UUID, feedback string) (*models.SelectionProcess, error) {
	var result *models.SelectionProcess
	var appID uuid.UUID

	err := s.store.InTx(ctx, func(tx store.Store) error {
		ps, err := s.loadActive(ctx, tx, processID)
		if err != nil {
			return err
		}

		now := s.now()
		from, last := ps.stages[ps.current], ps.stages[ps.last()]

		last.Status = models.StageConcluded
		if last.StartedAt == nil {
			last.StartedAt = &now
		}
		last.EndedAt = &now
		if err := tx.UpdateStageStatus(ctx, &last); err != nil {
			return fmt.Errorf("update stage status: %w", err)
		}

		if err := s.appendHistory(ctx, tx, ps.process.ID, from.ID, last.ID, actorID, feedback, now); err != nil {
			return err
		}

		ps.process.CurrentStageID = last.ID
		ps.process.FinishedAt = &now
		if err := s.saveProcess(ctx, tx, ps.process); err != nil {
			return err
		}
		if err := tx.UpdateApplicationStatus(ctx, ps.app.ID, models.ApplicationAccepted); err != nil {
			return fmt.Errorf("update application status: %w", err)
		}

		slog.Info("selection process finalized", "process_id", processID, "actor_id", actorID)
		result, appID = ps.process, ps.app.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, appID, models.NotifyAccepted, feedback)
	return result, nil
}

// Reprove rejects the application where it stands. The stage does not change.
func (s *Service) Reprove(ctx context.Context, processID, actorID uuid.UUID, feedback string) (*models.SelectionProcess, error) {
	var result *models.SelectionProcess
	var appID uuid.UUID

	err := s.store.InTx(ctx, func(tx store.Store) error {
		ps, err := s.loadActive(ctx, tx, processID)
		if err != nil {
			return err
		}

		now := s.now()
		current := ps.stages[ps.current].ID
		if err := s.appendHistory(ctx, tx, ps.process.ID, current, current, actorID, feedback, now); err != nil {
			return err
		}

		ps.process.FinishedAt = &now
		if err := s.saveProcess(ctx, tx, ps.process); err != nil {
			return err
		}
		if err := tx.UpdateApplicationStatus(ctx, ps.app.ID, models.ApplicationRejected); err != nil {
			return fmt.Errorf("update application status: %w", err)
		}

		slog.Info("selection process reproved", "process_id", processID, "actor_id", actorID)
		result, appID = ps.process, ps.app.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, appID, models.NotifyRejected, feedback)
	return result, nil
}

// ListHistory returns a process's transitions, newest first.
func (s *Service) ListHistory(ctx context.Context, processID uuid.UUID) ([]models.StageHistoryEntry, error) {
	if _, err := s.GetProcess(ctx, processID); err != nil {
		return nil, err
	}
	entries, err := s.store.ListHistory(ctx, processID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

func (s *Service) GetProcess(ctx context.Context, processID uuid.UUID) (*models.SelectionProcess, error) {
	p, err := s.store.GetProcess(ctx, processID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("selection process %s", processID)
	}
	if err != nil {
		return nil, fmt.Errorf("get process: %w", err)
	}
	return p, nil
}

func (s *Service) GetProcessByApplication(ctx context.Context, applicationID uuid.UUID) (*models.SelectionProcess, error) {
	p, err := s.store.GetProcessByApplication(ctx, applicationID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("selection process for application %s", applicationID)
	}
	if err != nil {
		return nil, fmt.Errorf("get process by application: %w", err)
	}
	return p, nil
}

// loadActive loads a process that may still change. Finalized processes are
// rejected here, before any rule specific to the transition.
func (s *Service) loadActive(ctx context.Context, tx store.Store, processID uuid.UUID) (*processState, error) {
	p, err := tx.GetProcess(ctx, processID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("selection process %s", processID)
	}
	if err != nil {
		return nil, fmt.Errorf("get process: %w", err)
	}
	if p.IsFinalized() {
		return nil, apperr.Violation("process %s is finalized", processID)
	}

	app, err := tx.GetApplication(ctx, p.ApplicationID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("application %s", p.ApplicationID)
	}
	if err != nil {
		return nil, fmt.Errorf("get application: %w", err)
	}

	stages, err := tx.ListStagesByJob(ctx, app.JobID)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}

	ps := &processState{process: p, app: app, stages: stages}
	ps.current = ps.indexOf(p.CurrentStageID)
	if ps.current < 0 {
		return nil, fmt.Errorf("process %s points at stage %s outside job %s", processID, p.CurrentStageID, app.JobID)
	}
	return ps, nil
}

func (s *Service) appendHistory(ctx context.Context, tx store.Store, processID, from, to, actorID uuid.UUID, feedback string, at time.Time) error {
	entry := &models.StageHistoryEntry{
		ID:          uuid.New(),
		ProcessID:   processID,
		FromStageID: from,
		ToStageID:   to,
		ActorID:     actorID,
		Feedback:    feedback,
		CreatedAt:   at,
	}
	if err := tx.AppendHistory(ctx, entry); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (s *Service) saveProcess(ctx context.Context, tx store.Store, p *models.SelectionProcess) error {
	err := tx.UpdateProcess(ctx, p)
	switch {
	case errors.Is(err, store.ErrStaleVersion):
		return apperr.Conflict("selection process %s was modified concurrently", p.ID)
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("selection process %s", p.ID)
	case err != nil:
		return fmt.Errorf("update process: %w", err)
	}
	return nil
}

func (s *Service) notify(ctx context.Context, applicationID uuid.UUID, kind models.NotificationKind, feedback string) {
	if err := s.notifier.Notify(ctx, applicationID, kind, feedback); err != nil {
		slog.Warn("notification failed", "application_id", applicationID, "kind", kind, "error", err)
	}
}
