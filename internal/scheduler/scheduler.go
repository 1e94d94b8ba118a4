// Package scheduler is the periodic trigger of the image pipeline. Each tick
// recovers stranded jobs and runs at most one job from the queue.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"brandpost/internal/domain"
	"brandpost/internal/infra"
	"brandpost/internal/queue"
)

const defaultSweepLimit = 100

// Sweeper is the recovery part of the job store.
type Sweeper interface {
	Sweep(ctx context.Context, now, leaseCutoff time.Time, maxAttempts int, limit int) (domain.SweepResult, error)
}

type Config struct {
	LeaseTimeout time.Duration
	MaxAttempts  int
	SweepLimit   int
	Logger       *infra.Logger
	Now          func() time.Time
}

type Scheduler struct {
	jobs   Sweeper
	queue  *queue.Queue
	cfg    Config
	logger infra.Logger
}

// TickResult summarizes one tick for logs and the cron endpoint.
type TickResult struct {
	Swept     domain.SweepResult `json:"-"`
	Pushed    int                `json:"pushed"`
	Processed bool               `json:"processed"`
}

func New(jobs Sweeper, q *queue.Queue, cfg Config) *Scheduler {
	if cfg.LeaseTimeout <= 0 {
		cfg.LeaseTimeout = 10 * time.Minute
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = domain.DefaultMaxAttempts
	}
	if cfg.SweepLimit <= 0 {
		cfg.SweepLimit = defaultSweepLimit
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = infra.Component(*cfg.Logger, "scheduler")
	}
	return &Scheduler{jobs: jobs, queue: q, cfg: cfg, logger: logger}
}

// Tick sweeps, re-pushes the swept ids, and processes one queued job. Inline
// queues have nothing to recover or pop.
func (s *Scheduler) Tick(ctx context.Context) (TickResult, error) {
	var res TickResult
	if !s.queue.Durable() {
		return res, nil
	}

	now := s.cfg.Now()
	swept, err := s.jobs.Sweep(ctx, now, now.Add(-s.cfg.LeaseTimeout), s.cfg.MaxAttempts, s.cfg.SweepLimit)
	if err != nil {
		return res, fmt.Errorf("scheduler: sweep: %w", err)
	}
	res.Swept = swept
	countSwept(swept)

	for _, id := range swept.Pushable() {
		// Orphan candidates may just be waiting behind a backlog; ids already
		// in the list are left where they are.
		pushed, err := s.queue.EnqueueIfAbsent(ctx, id)
		if err != nil {
			// The job stays QUEUED and the orphan sweep lists it again later.
			s.logger.Error().Err(err).Str("job_id", id).Msg("scheduler: re-push failed")
			continue
		}
		if pushed {
			res.Pushed++
		}
	}
	if len(swept.Failed) > 0 {
		s.logger.Warn().Strs("job_ids", swept.Failed).Msg("scheduler: stale jobs failed")
	}

	processed, err := s.queue.ProcessOne(ctx)
	res.Processed = processed
	if err != nil {
		return res, fmt.Errorf("scheduler: process: %w", err)
	}
	if res.Pushed > 0 || processed {
		s.logger.Info().Int("pushed", res.Pushed).Bool("processed", processed).Msg("scheduler: tick")
	}
	return res, nil
}

// Run ticks every interval until ctx is cancelled. Tick errors are logged and
// never stop the loop. A tick that has started is finished before Run returns,
// so a popped job is never abandoned mid-flight on shutdown.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	s.logger.Info().Dur("interval", interval).Msg("scheduler: started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	tickCtx := context.WithoutCancel(ctx)
	for {
		if _, err := s.Tick(tickCtx); err != nil {
			s.logger.Error().Err(err).Msg("scheduler: tick failed")
		}
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler: stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func countSwept(res domain.SweepResult) {
	infra.JobsSwept.WithLabelValues("retry_due").Add(float64(len(res.Due)))
	infra.JobsSwept.WithLabelValues("orphaned").Add(float64(len(res.Orphaned)))
	infra.JobsSwept.WithLabelValues("lease_expired").Add(float64(len(res.Requeued)))
	infra.JobsSwept.WithLabelValues("lease_exhausted").Add(float64(len(res.Failed)))
}
