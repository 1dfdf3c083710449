// Package worker contains the background pipeline that follows up every saved
// assessment: it writes the counsellor briefing and emails the student their
// summary. It is decoupled from the HTTP layer: the api package holds a
// worker.Enqueuer and calls Enqueue; it never imports the concrete Runner.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nyashahama/counselling-portal-backend/internal/db"
)

// ─── ENQUEUER INTERFACE ───────────────────────────────────────────────────────

// Enqueuer is the narrow interface the api package uses to hand off work
// after an assessment is saved. The concrete implementation is *Runner.
type Enqueuer interface {
	Enqueue(ctx context.Context, assessmentID uuid.UUID) error
}

// Processor runs the follow-up for one assessment. *Job implements it.
type Processor interface {
	Run(ctx context.Context, assessmentID uuid.UUID) error
}

// pendingLister is the one query the poller needs.
type pendingLister interface {
	ListPendingFollowUps(ctx context.Context, limit int32) ([]db.Assessment, error)
}

// ─── RUNNER ───────────────────────────────────────────────────────────────────

// RunnerConfig holds tuning parameters for the Runner. Zero fields take the
// values from DefaultRunnerConfig.
type RunnerConfig struct {
	// Workers is the number of concurrent job goroutines. Default: 2.
	Workers int

	// PollInterval is how often the fallback poller looks for pending
	// follow-ups that missed the in-process channel (e.g. after a restart).
	// Default: 30s.
	PollInterval time.Duration

	// PollBatch caps how many pending rows one poll picks up. Default: 50.
	PollBatch int32

	// JobTimeout is the per-job context deadline. Default: 2 minutes.
	JobTimeout time.Duration

	// MaxRetries is the number of attempts before the follow-up is marked
	// as permanently failed. Default: 3.
	MaxRetries int

	// BaseBackoff is the wait after the first failed attempt; it doubles on
	// each retry. Default: 2s.
	BaseBackoff time.Duration
}

// DefaultRunnerConfig returns production defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Workers:      2,
		PollInterval: 30 * time.Second,
		PollBatch:    50,
		JobTimeout:   2 * time.Minute,
		MaxRetries:   3,
		BaseBackoff:  2 * time.Second,
	}
}

func (c RunnerConfig) withDefaults() RunnerConfig {
	d := DefaultRunnerConfig()
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.PollBatch <= 0 {
		c.PollBatch = d.PollBatch
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = d.JobTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = d.BaseBackoff
	}
	return c
}

// Runner manages a pool of worker goroutines. It accepts jobs via an
// in-process channel (fast path, right after a save) and also polls the
// database for follow-ups still pending from before a restart.
type Runner struct {
	job    Processor
	store  FollowUpStore
	q      pendingLister
	cfg    RunnerConfig
	logger *slog.Logger

	queue chan uuid.UUID

	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}

	wg sync.WaitGroup
}

// NewRunner constructs a Runner. Call Start to begin processing.
func NewRunner(job Processor, st FollowUpStore, q pendingLister, cfg RunnerConfig, logger *slog.Logger) *Runner {
	cfg = cfg.withDefaults()
	return &Runner{
		job:      job,
		store:    st,
		q:        q,
		cfg:      cfg,
		logger:   logger,
		queue:    make(chan uuid.UUID, cfg.Workers*4),
		inFlight: make(map[uuid.UUID]struct{}),
	}
}

// Enqueue pushes an assessment id onto the in-process channel. If the channel
// is full it returns an error rather than blocking the HTTP response; the
// poller will pick the row up later.
func (r *Runner) Enqueue(_ context.Context, assessmentID uuid.UUID) error {
	if !r.claim(assessmentID) {
		return nil
	}
	select {
	case r.queue <- assessmentID:
		r.logger.Info("worker: enqueued follow-up", "assessment_id", assessmentID)
		return nil
	default:
		r.release(assessmentID)
		return errors.New("worker: queue is full, follow-up will be picked up by poller")
	}
}

// claim marks id as queued. It returns false if it already is, so the poller
// and the fast path never run the same follow-up concurrently.
func (r *Runner) claim(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inFlight[id]; ok {
		return false
	}
	r.inFlight[id] = struct{}{}
	return true
}

func (r *Runner) release(id uuid.UUID) {
	r.mu.Lock()
	delete(r.inFlight, id)
	r.mu.Unlock()
}

// Start launches the worker pool and the fallback poller. It blocks until ctx
// is cancelled:
//
//	go runner.Start(ctx)
func (r *Runner) Start(ctx context.Context) {
	r.logger.Info("worker: starting", "workers", r.cfg.Workers, "poll_interval", r.cfg.PollInterval)

	for i := range r.cfg.Workers {
		r.wg.Add(1)
		go r.work(ctx, i)
	}

	r.wg.Add(1)
	go r.poll(ctx)

	r.wg.Wait()
	r.logger.Info("worker: stopped")
}

func (r *Runner) work(ctx context.Context, id int) {
	defer r.wg.Done()
	log := r.logger.With("worker_id", id)

	for {
		select {
		case <-ctx.Done():
			return
		case assessmentID := <-r.queue:
			r.runWithRetry(ctx, assessmentID, log)
			r.release(assessmentID)
		}
	}
}

func (r *Runner) poll(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	// Once immediately to pick up anything from before a restart.
	r.pollOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.pollOnce(ctx)
		}
	}
}

func (r *Runner) pollOnce(ctx context.Context) {
	rows, err := r.q.ListPendingFollowUps(ctx, r.cfg.PollBatch)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Error("worker: poll failed", "error", err)
		}
		return
	}
	for _, row := range rows {
		if !r.claim(row.ID) {
			continue
		}
		select {
		case r.queue <- row.ID:
			r.logger.Debug("worker: poller enqueued follow-up", "assessment_id", row.ID)
		default:
			// Queue full; next poll cycle.
			r.release(row.ID)
			return
		}
	}
}

// runWithRetry executes the job up to MaxRetries times, then marks the
// follow-up failed so the poller stops picking it up.
func (r *Runner) runWithRetry(ctx context.Context, assessmentID uuid.UUID, log *slog.Logger) {
	var lastErr error

	for attempt := 1; attempt <= r.cfg.MaxRetries; attempt++ {
		jobCtx, cancel := context.WithTimeout(ctx, r.cfg.JobTimeout)
		lastErr = r.job.Run(jobCtx, assessmentID)
		cancel()

		if lastErr == nil {
			log.Info("worker: job completed", "assessment_id", assessmentID, "attempt", attempt)
			return
		}

		log.Warn("worker: job attempt failed",
			"assessment_id", assessmentID,
			"attempt", attempt,
			"max", r.cfg.MaxRetries,
			"error", lastErr,
		)

		if attempt < r.cfg.MaxRetries {
			// 2s, 4s, 8s … with the default base.
			backoff := r.cfg.BaseBackoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
		}
	}

	if ctx.Err() != nil {
		return
	}

	log.Error("worker: job permanently failed", "assessment_id", assessmentID, "error", lastErr)
	failCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := r.store.MarkFollowUpFailed(failCtx, assessmentID, lastErr); err != nil {
		log.Error("worker: failed to mark follow-up as failed", "assessment_id", assessmentID, "error", err)
	}
}
