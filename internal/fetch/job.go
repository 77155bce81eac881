// internal/fetch/job.go
package fetch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"bookstore/internal/catalog"
)

// Status reports the outcome of the most recent sync run.
type Status struct {
	Runs      int       `json:"runs"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastAdded int       `json:"last_added"`
	LastError string    `json:"last_error,omitempty"`
}

// Job periodically syncs the external catalog into the store. A run that
// fails is retried a bounded number of times with linear backoff before the
// job waits for the next tick.
type Job struct {
	fetcher  *Fetcher
	catalog  catalog.Service
	interval time.Duration
	retries  int
	backoff  time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	status Status
}

// NewJob creates a sync job. interval is the tick period, retries the number
// of attempts per run.
func NewJob(fetcher *Fetcher, svc catalog.Service, interval time.Duration, retries int, logger *slog.Logger) *Job {
	if retries < 1 {
		retries = 1
	}
	return &Job{
		fetcher:  fetcher,
		catalog:  svc,
		interval: interval,
		retries:  retries,
		backoff:  5 * time.Second,
		logger:   logger,
	}
}

// Run executes the job loop until ctx is cancelled. It runs once immediately.
func (j *Job) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sync run with retries and records its status.
func (j *Job) RunOnce(ctx context.Context) (int, error) {
	var added int
	var err error
	for attempt := 1; attempt <= j.retries; attempt++ {
		added, err = j.sync(ctx)
		if err == nil {
			break
		}
		j.logger.WarnContext(ctx, "book sync attempt failed",
			"attempt", attempt, "retries", j.retries, "error", err)

		if attempt == j.retries || ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(time.Duration(attempt) * j.backoff):
		}
	}

	j.mu.Lock()
	j.status.Runs++
	j.status.LastRun = time.Now().UTC()
	j.status.LastAdded = added
	j.status.LastError = ""
	if err != nil {
		j.status.LastError = err.Error()
	}
	j.mu.Unlock()

	return added, err
}

func (j *Job) sync(ctx context.Context) (int, error) {
	books, err := j.fetcher.Fetch(ctx)
	if err != nil {
		return 0, err
	}
	if len(books) == 0 {
		j.logger.WarnContext(ctx, "external API returned no books")
		return 0, nil
	}

	added, err := j.catalog.ImportBooks(ctx, books)
	if err != nil {
		return 0, err
	}
	if added == 0 {
		j.logger.DebugContext(ctx, "no new books to add")
	}
	return added, nil
}

// Status returns a copy of the current job status.
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}
