// Package worker runs batches of independent units with bounded concurrency.
//
// All batches share one semaphore and one rate limiter, so the number of
// in-flight oracle calls stays bounded no matter how many batches are queued.
// A unit's failure or panic is counted and never affects its siblings.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kiranshivaraju/hirepipe/pkg/models"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

var ErrClosed = errors.New("worker pool closed")

// Unit is one failure-isolated piece of a batch.
type Unit func(ctx context.Context) (models.ComputeOutcome, error)

// Result tallies a finished batch.
type Result struct {
	Total      int
	Succeeded  int
	Duplicates int
	Failed     int
}

type Pool struct {
	sem     *semaphore.Weighted
	limiter *rate.Limiter

	baseCtx context.Context
	cancel  context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New returns a pool running at most size units at once and starting at most
// ratePerSec units per second (with the given burst).
func New(size int, ratePerSec float64, burst int) *Pool {
	if size < 1 {
		size = 1
	}
	if burst < 1 {
		burst = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		sem:     semaphore.NewWeighted(int64(size)),
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Submit runs units in the background and calls done with the tally. The
// batch runs on the pool's own context, so it outlives the request that
// submitted it.
func (p *Pool) Submit(name string, units []Unit, done func(Result)) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		res := p.Run(p.baseCtx, name, units)
		if done != nil {
			done(res)
		}
	}()
	return nil
}

// Run executes units and blocks until all of them finished. Units that could
// not start because ctx ended are counted as failed.
func (p *Pool) Run(ctx context.Context, name string, units []Unit) Result {
	start := time.Now()
	var (
		mu  sync.Mutex
		res = Result{Total: len(units)}
		g   errgroup.Group
	)
	record := func(outcome models.ComputeOutcome, err error) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case err != nil:
			res.Failed++
		case outcome == models.OutcomeComputed:
			res.Succeeded++
		default:
			res.Duplicates++
		}
	}

	for i, unit := range units {
		if err := p.limiter.Wait(ctx); err != nil {
			record("", err)
			continue
		}
		if err := p.sem.Acquire(ctx, 1); err != nil {
			record("", err)
			continue
		}

		g.Go(func() (err error) {
			defer p.sem.Release(1)
			defer func() {
				if r := recover(); r != nil {
					slog.Error("panic in batch unit", "batch", name, "unit", i, "error", r)
					record("", fmt.Errorf("panic: %v", r))
				}
			}()

			outcome, uerr := unit(ctx)
			if uerr != nil {
				slog.Warn("batch unit failed", "batch", name, "unit", i, "error", uerr)
			}
			record(outcome, uerr)
			return nil
		})
	}
	_ = g.Wait()

	slog.Info("batch finished",
		"batch", name,
		"total", res.Total,
		"succeeded", res.Succeeded,
		"duplicates", res.Duplicates,
		"failed", res.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res
}

// Close stops accepting batches and waits for the ones in flight to finish.
// If ctx ends first, the remaining units are cancelled and ctx's error is
// returned.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	defer p.cancel()

	finished := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
