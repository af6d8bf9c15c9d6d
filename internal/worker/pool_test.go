package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kiranshivaraju/hirepipe/internal/worker"
	"github.com/kiranshivaraju/hirepipe/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constUnit(outcome models.ComputeOutcome, err error) worker.Unit {
	return func(context.Context) (models.ComputeOutcome, error) { return outcome, err }
}

func TestRun_TalliesOutcomes(t *testing.T) {
	p := worker.New(4, 1000, 100)
	t.Cleanup(func() { _ = p.Close(context.Background()) })

	units := []worker.Unit{
		constUnit(models.OutcomeComputed, nil),
		constUnit(models.OutcomeComputed, nil),
		constUnit(models.OutcomeDuplicate, nil),
		constUnit(models.OutcomeCached, nil),
		constUnit("", errors.New("oracle down")),
	}

	res := p.Run(context.Background(), "tally", units)
	assert.Equal(t, worker.Result{Total: 5, Succeeded: 2, Duplicates: 2, Failed: 1}, res)
}

func TestRun_PanicIsolated(t *testing.T) {
	p := worker.New(2, 1000, 100)
	t.Cleanup(func() { _ = p.Close(context.Background()) })

	units := []worker.Unit{
		func(context.Context) (models.ComputeOutcome, error) { panic("boom") },
		constUnit(models.OutcomeComputed, nil),
	}

	res := p.Run(context.Background(), "panic", units)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Succeeded)
}

func TestRun_BoundsConcurrency(t *testing.T) {
	const size = 3
	p := worker.New(size, 1000, 100)
	t.Cleanup(func() { _ = p.Close(context.Background()) })

	var inFlight, peak atomic.Int32
	unit := func(context.Context) (models.ComputeOutcome, error) {
		n := inFlight.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return models.OutcomeComputed, nil
	}

	units := make([]worker.Unit, 20)
	for i := range units {
		units[i] = unit
	}

	res := p.Run(context.Background(), "bounded", units)
	assert.Equal(t, 20, res.Succeeded)
	assert.LessOrEqual(t, peak.Load(), int32(size))
}

func TestRun_CancelledContextFailsRemaining(t *testing.T) {
	p := worker.New(1, 1000, 100)
	t.Cleanup(func() { _ = p.Close(context.Background()) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := p.Run(ctx, "cancelled", []worker.Unit{
		constUnit(models.OutcomeComputed, nil),
		constUnit(models.OutcomeComputed, nil),
	})
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, res.Failed)
}

func TestSubmit_RunsDetachedAndReports(t *testing.T) {
	p := worker.New(2, 1000, 100)
	t.Cleanup(func() { _ = p.Close(context.Background()) })

	done := make(chan worker.Result, 1)
	err := p.Submit("detached", []worker.Unit{constUnit(models.OutcomeComputed, nil)}, func(r worker.Result) {
		done <- r
	})
	require.NoError(t, err)

	select {
	case res := <-done:
		assert.Equal(t, 1, res.Succeeded)
	case <-time.After(2 * time.Second):
		t.Fatal("batch did not finish")
	}
}

func TestClose_DrainsInFlightBatches(t *testing.T) {
	p := worker.New(1, 1000, 100)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan worker.Result, 1)
	err := p.Submit("long", []worker.Unit{func(ctx context.Context) (models.ComputeOutcome, error) {
		close(started)
		select {
		case <-release:
			return models.OutcomeComputed, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}}, func(r worker.Result) { done <- r })
	require.NoError(t, err)
	<-started

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.Close(ctx))

	res := <-done
	assert.Equal(t, 1, res.Succeeded, "in-flight unit completes instead of being cancelled")

	err = p.Submit("late", nil, nil)
	assert.ErrorIs(t, err, worker.ErrClosed)
}

func TestClose_CancelsWhenDeadlinePasses(t *testing.T) {
	p := worker.New(1, 1000, 100)

	started := make(chan struct{})
	cancelled := make(chan struct{})
	err := p.Submit("stuck", []worker.Unit{func(ctx context.Context) (models.ComputeOutcome, error) {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return "", ctx.Err()
	}}, nil)
	require.NoError(t, err)
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Close(ctx), context.DeadlineExceeded)

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("unit was not cancelled")
	}
}
