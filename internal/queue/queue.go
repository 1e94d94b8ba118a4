// Package queue hands image job ids to the worker, either through a durable
// FIFO list or inline when no backend is configured.
package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"brandpost/internal/infra"
)

// Mode reports how enqueued jobs reach the worker.
type Mode string

const (
	// ModeDurable pushes ids onto the backend; a scheduler pops them later.
	ModeDurable Mode = "durable"
	// ModeInline runs the worker synchronously inside Enqueue.
	ModeInline Mode = "inline"
)

// Backend is a FIFO list of opaque ids.
type Backend interface {
	Push(ctx context.Context, value string) error
	// Pop removes the head without blocking. ok is false when the list is empty.
	Pop(ctx context.Context) (value string, ok bool, err error)
	Len(ctx context.Context) (int64, error)
	// Contains reports whether value is waiting anywhere in the list.
	Contains(ctx context.Context, value string) (bool, error)
}

// Processor runs one job to completion.
type Processor interface {
	Process(ctx context.Context, jobID string) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, jobID string) error

func (f ProcessorFunc) Process(ctx context.Context, jobID string) error { return f(ctx, jobID) }

// Config is built once at process start. A nil Backend selects inline mode.
type Config struct {
	Backend Backend
	Logger  *infra.Logger
}

var ErrEmptyJobID = errors.New("queue: job id is required")

type Queue struct {
	backend   Backend
	processor Processor
	logger    infra.Logger
}

func New(cfg Config, processor Processor) *Queue {
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = infra.Component(*cfg.Logger, "queue")
	}
	q := &Queue{backend: cfg.Backend, processor: processor, logger: logger}
	q.logger.Info().Str("mode", string(q.Mode())).Msg("queue: configured")
	return q
}

func (q *Queue) Mode() Mode {
	if q.backend == nil {
		return ModeInline
	}
	return ModeDurable
}

// Durable reports whether jobs survive the enqueuing process.
func (q *Queue) Durable() bool {
	return q.Mode() == ModeDurable
}

// Enqueue appends jobID to the tail of the queue. In inline mode it runs the
// job before returning and reports the processor's error.
func (q *Queue) Enqueue(ctx context.Context, jobID string) error {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return ErrEmptyJobID
	}
	infra.JobsEnqueued.WithLabelValues(string(q.Mode())).Inc()
	if !q.Durable() {
		q.logger.Debug().Str("job_id", jobID).Msg("queue: processing inline")
		return q.processor.Process(ctx, jobID)
	}
	if err := q.backend.Push(ctx, jobID); err != nil {
		return fmt.Errorf("queue: push %s: %w", jobID, err)
	}
	q.logger.Debug().Str("job_id", jobID).Msg("queue: pushed")
	return nil
}

// EnqueueIfAbsent pushes jobID unless it is already waiting in the queue and
// reports whether it pushed. Inline queues behave like Enqueue. The check and
// the push are not atomic; a rare duplicate is absorbed by the claim.
func (q *Queue) EnqueueIfAbsent(ctx context.Context, jobID string) (bool, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return false, ErrEmptyJobID
	}
	if q.Durable() {
		waiting, err := q.backend.Contains(ctx, jobID)
		if err != nil {
			return false, fmt.Errorf("queue: lookup %s: %w", jobID, err)
		}
		if waiting {
			q.logger.Debug().Str("job_id", jobID).Msg("queue: already waiting")
			return false, nil
		}
	}
	if err := q.Enqueue(ctx, jobID); err != nil {
		return false, err
	}
	return true, nil
}

// ProcessOne pops the head of the queue and runs it. It returns false without
// blocking when the queue is empty or inline.
func (q *Queue) ProcessOne(ctx context.Context) (bool, error) {
	if !q.Durable() {
		return false, nil
	}
	jobID, ok, err := q.backend.Pop(ctx)
	if err != nil {
		return false, fmt.Errorf("queue: pop: %w", err)
	}
	if !ok {
		return false, nil
	}
	q.logger.Debug().Str("job_id", jobID).Msg("queue: popped")
	return true, q.processor.Process(ctx, jobID)
}

// Depth returns the number of waiting ids; inline queues are always empty.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	if !q.Durable() {
		return 0, nil
	}
	return q.backend.Len(ctx)
}
