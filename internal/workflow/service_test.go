package workflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/hirepipe/internal/apperr"
	"github.com/kiranshivaraju/hirepipe/internal/store"
	"github.com/kiranshivaraju/hirepipe/internal/store/memory"
	"github.com/kiranshivaraju/hirepipe/internal/workflow"
	"github.com/kiranshivaraju/hirepipe/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type stubScores struct {
	score float64
	err   error
	calls int
}

func (s *stubScores) GetOrCompute(_ context.Context, candidateID, jobID uuid.UUID) (*models.CompatibilityScore, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &models.CompatibilityScore{CandidateID: candidateID, JobID: jobID, Score: s.score}, nil
}

type notification struct {
	applicationID uuid.UUID
	kind          models.NotificationKind
	feedback      string
}

type recorder struct {
	mu            sync.Mutex
	created       []models.ApplicationCreated
	notifications []notification
	err           error
}

func (r *recorder) PublishApplicationCreated(_ context.Context, e models.ApplicationCreated) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, e)
	return r.err
}

func (r *recorder) Notify(_ context.Context, applicationID uuid.UUID, kind models.NotificationKind, feedback string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, notification{applicationID, kind, feedback})
	return r.err
}

func (r *recorder) kinds() []models.NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.NotificationKind, 0, len(r.notifications))
	for _, n := range r.notifications {
		out = append(out, n.kind)
	}
	return out
}

// --- fixture ---

type fixture struct {
	svc    *workflow.Service
	store  *memory.Store
	scores *stubScores
	events *recorder
	actor  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New()
	scores := &stubScores{score: 73}
	rec := &recorder{}
	return &fixture{
		svc:    workflow.NewService(st, scores, rec, rec),
		store:  st,
		scores: scores,
		events: rec,
		actor:  uuid.New(),
	}
}

type pipeline struct {
	jobID       uuid.UUID
	candidateID uuid.UUID
	triagem     models.StageDefinition
	entrevista  models.StageDefinition
	proposta    models.StageDefinition
}

// seedPipeline creates an open job with stages Triagem(1), Entrevista(2),
// Proposta(3) and one candidate.
func (f *fixture) seedPipeline(t *testing.T) pipeline {
	t.Helper()
	ctx := context.Background()
	job := &models.JobPosting{ID: uuid.New(), Title: "Desenvolvedor Go", Open: true, CreatedAt: time.Now().UTC()}
	require.NoError(t, f.store.CreateJob(ctx, job))
	cand := &models.CandidateProfile{ID: uuid.New(), Name: "Carla", CreatedAt: time.Now().UTC()}
	require.NoError(t, f.store.UpsertCandidate(ctx, cand))

	mk := func(name string, order int, typ models.StageType) models.StageDefinition {
		return models.StageDefinition{ID: uuid.New(), JobID: job.ID, Name: name, Type: typ, Order: order, Status: models.StagePending}
	}
	p := pipeline{
		jobID:       job.ID,
		candidateID: cand.ID,
		triagem:     mk("Triagem", 1, models.StageScreening),
		entrevista:  mk("Entrevista", 2, models.StageInterview),
		proposta:    mk("Proposta", 3, models.StageOffer),
	}
	// Inserted out of order on purpose.
	require.NoError(t, f.store.CreateStages(ctx, []models.StageDefinition{p.proposta, p.triagem, p.entrevista}))
	return p
}

func (f *fixture) submit(t *testing.T, p pipeline) *workflow.Submission {
	t.Helper()
	sub, err := f.svc.SubmitApplication(context.Background(), p.jobID, p.candidateID)
	require.NoError(t, err)
	return sub
}

func (f *fixture) appStatus(t *testing.T, id uuid.UUID) models.ApplicationStatus {
	t.Helper()
	app, err := f.store.GetApplication(context.Background(), id)
	require.NoError(t, err)
	return app.Status
}

func (f *fixture) history(t *testing.T, processID uuid.UUID) []models.StageHistoryEntry {
	t.Helper()
	entries, err := f.svc.ListHistory(context.Background(), processID)
	require.NoError(t, err)
	return entries
}

// --- submitApplication ---

func TestSubmitApplication_StartsAtFirstStage(t *testing.T) {
	f := newFixture(t)
	p := f.seedPipeline(t)

	sub := f.submit(t, p)

	assert.Equal(t, models.ApplicationPending, sub.Application.Status)
	assert.Equal(t, 73.0, sub.Application.CompatibilitySnapshot)
	assert.Equal(t, p.triagem.ID, sub.Process.CurrentStageID)
	assert.Nil(t, sub.Process.FinishedAt)
	assert.Empty(t, f.history(t, sub.Process.ID))

	require.Len(t, f.events.created, 1)
	assert.Equal(t, sub.Application.ID, f.events.created[0].ApplicationID)
	assert.Equal(t, sub.Process.ID, f.events.created[0].ProcessID)

	byApp, err := f.svc.GetProcessByApplication(context.Background(), sub.Application.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.Process.ID, byApp.ID)
}

func TestSubmitApplication_NoStagesPersistsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := &models.JobPosting{ID: uuid.New(), Open: true}
	require.NoError(t, f.store.CreateJob(ctx, job))
	cand := &models.CandidateProfile{ID: uuid.New()}
	require.NoError(t, f.store.UpsertCandidate(ctx, cand))

	_, err := f.svc.SubmitApplication(ctx, job.ID, cand.ID)
	assert.ErrorIs(t, err, apperr.ErrRuleViolation)

	exists, err := f.store.ApplicationExists(ctx, job.ID, cand.ID)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Empty(t, f.events.created)
}

func TestSubmitApplication_Duplicate(t *testing.T) {
	f := newFixture(t)
	p := f.seedPipeline(t)
	f.submit(t, p)

	_, err := f.svc.SubmitApplication(context.Background(), p.jobID, p.candidateID)
	assert.ErrorIs(t, err, apperr.ErrRuleViolation)
	assert.Equal(t, 1, f.scores.calls, "duplicate is rejected before scoring")
}

func TestSubmitApplication_ClosedJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := &models.JobPosting{ID: uuid.New(), Open: false}
	require.NoError(t, f.store.CreateJob(ctx, job))

	_, err := f.svc.SubmitApplication(ctx, job.ID, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrRuleViolation)
}

func TestSubmitApplication_UnknownJobOrCandidate(t *testing.T) {
	f := newFixture(t)
	p := f.seedPipeline(t)

	_, err := f.svc.SubmitApplication(context.Background(), uuid.New(), p.candidateID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.SubmitApplication(context.Background(), p.jobID, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSubmitApplication_ScoreFailurePersistsNothing(t *testing.T) {
	f := newFixture(t)
	p := f.seedPipeline(t)
	oracleDown := errors.New("oracle down")
	f.scores.err = oracleDown

	_, err := f.svc.SubmitApplication(context.Background(), p.jobID, p.candidateID)
	assert.ErrorIs(t, err, oracleDown)

	exists, err := f.store.ApplicationExists(context.Background(), p.jobID, p.candidateID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSubmitApplication_PublishFailureIsIgnored(t *testing.T) {
	f := newFixture(t)
	p := f.seedPipeline(t)
	f.events.err = errors.New("broker down")

	sub, err := f.svc.SubmitApplication(context.Background(), p.jobID, p.candidateID)
	require.NoError(t, err)
	assert.NotNil(t, sub.Process)
}

// --- advanceToNext ---

func TestAdvanceToNext_WalksThePipeline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedPipeline(t)
	sub := f.submit(t, p)

	proc, err := f.svc.AdvanceToNext(ctx, sub.Process.ID, f.actor, "good screening")
	require.NoError(t, err)
	assert.Equal(t, p.entrevista.ID, proc.CurrentStageID)
	assert.Equal(t, models.ApplicationInProcess, f.appStatus(t, sub.Application.ID))

	entries := f.history(t, sub.Process.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, p.triagem.ID, entries[0].FromStageID)
	assert.Equal(t, p.entrevista.ID, entries[0].ToStageID)
	assert.Equal(t, f.actor, entries[0].ActorID)
	assert.Equal(t, "good screening", entries[0].Feedback)

	stages, err := f.store.ListStagesByJob(ctx, p.jobID)
	require.NoError(t, err)
	assert.Equal(t, models.StageInProgress, stages[1].Status)
	assert.NotNil(t, stages[1].StartedAt)

	_, err = f.svc.AdvanceToNext(ctx, sub.Process.ID, f.actor, "")
	require.NoError(t, err)

	_, err = f.svc.AdvanceToNext(ctx, sub.Process.ID, f.actor, "")
	assert.ErrorIs(t, err, apperr.ErrRuleViolation)

	after, err := f.svc.GetProcess(ctx, sub.Process.ID)
	require.NoError(t, err)
	assert.Equal(t, p.proposta.ID, after.CurrentStageID)
	assert.Len(t, f.history(t, sub.Process.ID), 2)
	assert.Equal(t, []models.NotificationKind{models.NotifyAdvanced, models.NotifyAdvanced}, f.events.kinds())
}

// --- advanceToStage / returnToStage ---

func TestAdvanceToStage_JumpAndReturn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedPipeline(t)
	sub := f.submit(t, p)

	proc, err := f.svc.AdvanceToStage(ctx, sub.Process.ID, p.proposta.ID, f.actor, "fast track")
	require.NoError(t, err)
	assert.Equal(t, p.proposta.ID, proc.CurrentStageID)
	assert.Equal(t, models.ApplicationInProcess, f.appStatus(t, sub.Application.ID))

	proc, err = f.svc.ReturnToStage(ctx, sub.Process.ID, p.entrevista.ID, f.actor, "needs another interview")
	require.NoError(t, err)
	assert.Equal(t, p.entrevista.ID, proc.CurrentStageID)

	entries := f.history(t, sub.Process.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, p.proposta.ID, entries[0].FromStageID, "newest first")
	assert.Equal(t, p.entrevista.ID, entries[0].ToStageID)
}

func TestAdvanceToStage_ForeignStage(t *testing.T) {
	f := newFixture(t)
	p := f.seedPipeline(t)
	other := f.seedPipeline(t)
	sub := f.submit(t, p)

	_, err := f.svc.AdvanceToStage(context.Background(), sub.Process.ID, other.entrevista.ID, f.actor, "")
	assert.ErrorIs(t, err, apperr.ErrRuleViolation)

	_, err = f.svc.ReturnToStage(context.Background(), sub.Process.ID, uuid.New(), f.actor, "")
	assert.ErrorIs(t, err, apperr.ErrRuleViolation)
	assert.Empty(t, f.history(t, sub.Process.ID))
}

func TestAdvanceToStage_SameStage(t *testing.T) {
	f := newFixture(t)
	p := f.seedPipeline(t)
	sub := f.submit(t, p)

	_, err := f.svc.AdvanceToStage(context.Background(), sub.Process.ID, p.triagem.ID, f.actor, "")
	assert.ErrorIs(t, err, apperr.ErrRuleViolation)
	assert.Equal(t, models.ApplicationPending, f.appStatus(t, sub.Application.ID))
}

// --- finalize ---

func TestFinalize_FromMiddleStage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedPipeline(t)
	sub := f.submit(t, p)
	_, err := f.svc.AdvanceToNext(ctx, sub.Process.ID, f.actor, "")
	require.NoError(t, err)

	proc, err := f.svc.Finalize(ctx, sub.Process.ID, f.actor, "hired")
	require.NoError(t, err)
	assert.Equal(t, p.proposta.ID, proc.CurrentStageID)
	assert.NotNil(t, proc.FinishedAt)
	assert.Equal(t, models.ApplicationAccepted, f.appStatus(t, sub.Application.ID))

	entries := f.history(t, sub.Process.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, p.entrevista.ID, entries[0].FromStageID)
	assert.Equal(t, p.proposta.ID, entries[0].ToStageID)

	stages, err := f.store.ListStagesByJob(ctx, p.jobID)
	require.NoError(t, err)
	assert.Equal(t, models.StageConcluded, stages[2].Status)
	assert.NotNil(t, stages[2].EndedAt)

	kinds := f.events.kinds()
	assert.Equal(t, models.NotifyAccepted, kinds[len(kinds)-1])
}

func TestFinalize_AtLastStageWritesSelfEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedPipeline(t)
	sub := f.submit(t, p)
	_, err := f.svc.AdvanceToStage(ctx, sub.Process.ID, p.proposta.ID, f.actor, "")
	require.NoError(t, err)

	_, err = f.svc.Finalize(ctx, sub.Process.ID, f.actor, "")
	require.NoError(t, err)

	entries := f.history(t, sub.Process.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, p.proposta.ID, entries[0].FromStageID)
	assert.Equal(t, p.proposta.ID, entries[0].ToStageID)
}

// --- reprove ---

func TestReprove_KeepsCurrentStage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedPipeline(t)
	sub := f.submit(t, p)
	_, err := f.svc.AdvanceToNext(ctx, sub.Process.ID, f.actor, "")
	require.NoError(t, err)

	proc, err := f.svc.Reprove(ctx, sub.Process.ID, f.actor, "not a fit")
	require.NoError(t, err)
	assert.Equal(t, p.entrevista.ID, proc.CurrentStageID)
	assert.NotNil(t, proc.FinishedAt)
	assert.Equal(t, models.ApplicationRejected, f.appStatus(t, sub.Application.ID))

	entries := f.history(t, sub.Process.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, p.entrevista.ID, entries[0].FromStageID)
	assert.Equal(t, p.entrevista.ID, entries[0].ToStageID)
	assert.Equal(t, "not a fit", entries[0].Feedback)

	kinds := f.events.kinds()
	assert.Equal(t, models.NotifyRejected, kinds[len(kinds)-1])
}

func TestReprove_FromFirstStage(t *testing.T) {
	f := newFixture(t)
	p := f.seedPipeline(t)
	sub := f.submit(t, p)

	proc, err := f.svc.Reprove(context.Background(), sub.Process.ID, f.actor, "")
	require.NoError(t, err)
	assert.Equal(t, p.triagem.ID, proc.CurrentStageID)
	assert.Len(t, f.history(t, sub.Process.ID), 1)
}

// --- terminal state ---

func TestFinalizedProcessRejectsEveryTransition(t *testing.T) {
	for _, terminal := range []string{"finalize", "reprove"} {
		t.Run(terminal, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			p := f.seedPipeline(t)
			sub := f.submit(t, p)
			pid := sub.Process.ID

			var err error
			if terminal == "finalize" {
				_, err = f.svc.Finalize(ctx, pid, f.actor, "")
			} else {
				_, err = f.svc.Reprove(ctx, pid, f.actor, "")
			}
			require.NoError(t, err)
			before := len(f.history(t, pid))
			status := f.appStatus(t, sub.Application.ID)

			calls := map[string]func() error{
				"advanceToNext": func() error { _, err := f.svc.AdvanceToNext(ctx, pid, f.actor, ""); return err },
				"advanceToStage": func() error {
					_, err := f.svc.AdvanceToStage(ctx, pid, p.entrevista.ID, f.actor, "")
					return err
				},
				"returnToStage": func() error {
					_, err := f.svc.ReturnToStage(ctx, pid, p.entrevista.ID, f.actor, "")
					return err
				},
				"finalize": func() error { _, err := f.svc.Finalize(ctx, pid, f.actor, ""); return err },
				"reprove":  func() error { _, err := f.svc.Reprove(ctx, pid, f.actor, ""); return err },
			}
			for name, call := range calls {
				assert.ErrorIs(t, call(), apperr.ErrRuleViolation, name)
			}

			assert.Len(t, f.history(t, pid), before)
			assert.Equal(t, status, f.appStatus(t, sub.Application.ID))
		})
	}
}

// --- history / reads ---

func TestListHistory_UnknownProcess(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ListHistory(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestTransitions_UnknownProcess(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AdvanceToNext(context.Background(), uuid.New(), f.actor, "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.svc.GetProcessByApplication(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestNotifierFailureDoesNotFailTransition(t *testing.T) {
	f := newFixture(t)
	p := f.seedPipeline(t)
	sub := f.submit(t, p)
	f.events.err = errors.New("smtp down")

	_, err := f.svc.AdvanceToNext(context.Background(), sub.Process.ID, f.actor, "")
	assert.NoError(t, err)
}

// --- concurrency guard ---

// staleStore hands transactions a process one version behind, as if another
// transition committed between read and write.
type staleStore struct {
	*memory.Store
}

func (s *staleStore) InTx(ctx context.Context, fn func(tx store.Store) error) error {
	return s.Store.InTx(ctx, func(tx store.Store) error {
		return fn(&staleTx{Store: tx})
	})
}

type staleTx struct {
	store.Store
}

func (s *staleTx) GetProcess(ctx context.Context, id uuid.UUID) (*models.SelectionProcess, error) {
	p, err := s.Store.GetProcess(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Version--
	return p, nil
}

func TestStaleProcessVersionIsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedPipeline(t)
	sub := f.submit(t, p)

	stale := workflow.NewService(&staleStore{Store: f.store}, f.scores, f.events, f.events)
	_, err := stale.AdvanceToNext(ctx, sub.Process.ID, f.actor, "")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	assert.Empty(t, f.history(t, sub.Process.ID), "conflicting transition rolled back")
	assert.Equal(t, models.ApplicationPending, f.appStatus(t, sub.Application.ID))
}

func TestConcurrentTransitionsApplyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedPipeline(t)
	sub := f.submit(t, p)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Finalize(ctx, sub.Process.ID, f.actor, "")
		}(i)
	}
	wg.Wait()

	var ok, violations int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, apperr.ErrRuleViolation), errors.Is(err, apperr.ErrConflict):
			violations++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, violations)
	assert.Len(t, f.history(t, sub.Process.ID), 1)
}
