package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kamala96/email-service/internal/store"
)

// JobExecutor executes one claimed job and records terminal failures.
type JobExecutor interface {
	ExecuteJob(ctx context.Context, jobType string, payload json.RawMessage) error
	HandleJobFailure(ctx context.Context, jobType string, payload json.RawMessage, jobErr error)
}

// WorkerOptions tune the polling loops. Zero values take defaults.
type WorkerOptions struct {
	Concurrency  int
	PollInterval time.Duration
	RetryDelay   time.Duration
}

// Worker polls the job queue and executes claimed jobs. Failed jobs are
// rescheduled with a fixed delay until their attempts run out, then handed
// to the executor's failure path.
type Worker struct {
	jobs         store.SendJobStore
	executor     JobExecutor
	concurrency  int
	pollInterval time.Duration
	retryDelay   time.Duration
}

func NewWorker(jobs store.SendJobStore, executor JobExecutor, opts WorkerOptions) *Worker {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 60 * time.Second
	}

	return &Worker{
		jobs:         jobs,
		executor:     executor,
		concurrency:  concurrency,
		pollInterval: poll,
		retryDelay:   retryDelay,
	}
}

// Run blocks until ctx is cancelled, driving concurrency polling loops.
func (w *Worker) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(ctx)
		}()
	}
	wg.Wait()
}

func (w *Worker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		worked, err := w.ProcessOne(ctx)
		if err != nil {
			slog.Error("send job worker cycle failed", "error", err)
		}
		if worked {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ProcessOne claims and runs at most one job. It reports whether a job was
// claimed, so callers can poll eagerly while the queue is non-empty.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	job, err := w.jobs.ClaimNextSendJob(ctx)
	if err != nil {
		return false, fmt.Errorf("claim send job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	execErr := w.executor.ExecuteJob(ctx, job.JobType, job.Payload)
	if execErr == nil {
		if err := w.jobs.MarkSendJobDone(ctx, job.ID); err != nil {
			return true, fmt.Errorf("mark send job done: %w", err)
		}
		return true, nil
	}

	if IsPermanent(execErr) || job.Attempts >= job.MaxAttempts {
		if err := w.jobs.MarkSendJobFailed(ctx, job.ID, execErr.Error()); err != nil {
			return true, fmt.Errorf("mark send job failed: %w", err)
		}
		w.executor.HandleJobFailure(ctx, job.JobType, job.Payload, execErr)
		return true, nil
	}

	nextRun := time.Now().UTC().Add(w.retryDelay)
	if err := w.jobs.MarkSendJobRetry(ctx, job.ID, nextRun, execErr.Error()); err != nil {
		return true, fmt.Errorf("mark send job retry: %w", err)
	}
	return true, nil
}
