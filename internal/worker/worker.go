// Package worker drives one image job from QUEUED to a terminal or retryable
// state and mirrors the outcome onto the content record.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"brandpost/internal/domain"
	"brandpost/internal/imagegen"
	"brandpost/internal/infra"
	"brandpost/internal/providers/genai"
	"brandpost/internal/providers/image"
	"brandpost/internal/storage"
)

const (
	outcomeSucceeded = "succeeded"
	outcomeRetried   = "retried"
	outcomeFailed    = "failed"
	outcomeSkipped   = "skipped"
)

type Config struct {
	MaxAttempts       int
	BackoffBase       time.Duration
	BackoffMax        time.Duration
	GenerationTimeout time.Duration
	// UploadTimeout bounds the storage write. Together with GenerationTimeout
	// it must stay below the lease timeout of the recovery sweep.
	UploadTimeout time.Duration
	ErrorMaxLen   int
	// DeferRetries persists a retry_after delay for the scheduler sweep. When
	// false (inline queue) a failed attempt is retried at once in-process.
	DeferRetries bool
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = domain.DefaultMaxAttempts
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 5 * time.Second
	}
	if c.BackoffMax < c.BackoffBase {
		c.BackoffMax = c.BackoffBase
	}
	if c.GenerationTimeout <= 0 {
		c.GenerationTimeout = 90 * time.Second
	}
	if c.UploadTimeout <= 0 {
		c.UploadTimeout = 60 * time.Second
	}
	if c.ErrorMaxLen <= 0 {
		c.ErrorMaxLen = 500
	}
	return c
}

type Deps struct {
	Jobs      domain.ImageJobRepository
	Contents  domain.ContentRepository
	Generator image.Generator
	Uploader  storage.Uploader
}

type Option func(*Worker)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(w *Worker) { w.now = now }
}

// WithIDGenerator overrides the media asset id source.
func WithIDGenerator(fn func() string) Option {
	return func(w *Worker) { w.newID = fn }
}

func WithLogger(logger infra.Logger) Option {
	return func(w *Worker) { w.logger = infra.Component(logger, "worker") }
}

type Worker struct {
	jobs      domain.ImageJobRepository
	contents  domain.ContentRepository
	generator image.Generator
	uploader  storage.Uploader
	cfg       Config
	logger    infra.Logger
	now       func() time.Time
	newID     func() string
}

func New(deps Deps, cfg Config, opts ...Option) *Worker {
	w := &Worker{
		jobs:      deps.Jobs,
		contents:  deps.Contents,
		generator: deps.Generator,
		uploader:  deps.Uploader,
		cfg:       cfg.withDefaults(),
		logger:    zerolog.Nop(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Worker) Config() Config {
	return w.cfg
}

// Process runs the job once, or until it settles when retries are not deferred.
// Failures of the job itself never escape; only Job Store errors are returned.
//
// A dispatched job runs to completion: cancelling ctx (shutdown, a client going
// away) does not interrupt it. Each generation and upload keeps its own deadline.
func (w *Worker) Process(ctx context.Context, jobID string) error {
	ctx = context.WithoutCancel(ctx)
	for {
		retryNow, err := w.processOnce(ctx, jobID)
		if err != nil || !retryNow {
			return err
		}
		w.logger.Debug().Str("job_id", jobID).Msg("worker: retrying inline")
	}
}

func (w *Worker) processOnce(ctx context.Context, jobID string) (bool, error) {
	log := w.logger.With().Str("job_id", jobID).Logger()

	job, err := w.jobs.GetByID(ctx, jobID)
	if errors.Is(err, domain.ErrNotFound) {
		return w.skip(log, "job not found")
	}
	if err != nil {
		return false, fmt.Errorf("load job: %w", err)
	}
	if job.Status.Terminal() {
		return w.skip(log, "job already "+string(job.Status))
	}
	if job.Exhausted(w.cfg.MaxAttempts) {
		return w.skip(log, "attempts exhausted")
	}

	bundle, err := w.contents.GetBundle(ctx, job.GeneratedContentID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return w.skip(log, "content not found")
	case errors.Is(err, domain.ErrInvalidPayload):
		return false, w.rejectInvalid(ctx, log, job, err)
	case err != nil:
		return false, fmt.Errorf("load content: %w", err)
	}
	if _, _, ok := bundle.Graphic(); !ok {
		return w.skip(log, "content type "+string(bundle.Request.ContentType)+" takes no image")
	}

	claimed, err := w.jobs.Claim(ctx, job.ID, w.cfg.MaxAttempts, w.now())
	if errors.Is(err, domain.ErrNotClaimed) {
		return w.skip(log, "job not claimable")
	}
	if err != nil {
		return false, fmt.Errorf("claim job: %w", err)
	}
	log = log.With().Int("attempt", claimed.Attempts).Logger()
	log.Info().Str("content_id", claimed.GeneratedContentID).Msg("worker: job claimed")

	start := w.now()
	done, attemptErr := w.attempt(ctx, claimed, bundle)
	infra.JobDuration.Observe(w.now().Sub(start).Seconds())

	if attemptErr == nil {
		err := w.jobs.Complete(ctx, *done)
		if errors.Is(err, domain.ErrNotClaimed) {
			log.Warn().Msg("worker: lease lost before completion")
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("complete job: %w", err)
		}
		infra.JobsProcessed.WithLabelValues(outcomeSucceeded).Inc()
		log.Info().Str("image_url", done.Asset.URL).Str("model", done.Model).Msg("worker: job succeeded")
		return false, nil
	}
	return w.handleFailure(ctx, log, claimed, attemptErr)
}

// attempt builds the prompt, generates, and uploads. Panics become errors.
func (w *Worker) attempt(ctx context.Context, job *domain.ImageJob, bundle *domain.ContentBundle) (done *domain.CompletedImage, err error) {
	defer func() {
		if r := recover(); r != nil {
			done, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()

	dir, out, _ := bundle.Graphic()
	prompt := imagegen.BuildPrompt(imagegen.PromptInput{Brand: bundle.Brand, Output: *out, Direction: *dir})

	genCtx, cancel := context.WithTimeout(ctx, w.cfg.GenerationTimeout)
	defer cancel()
	res, err := w.generator.Generate(genCtx, image.GenerateRequest{
		Prompt:      prompt,
		AspectRatio: dir.AspectRatio,
		RequestID:   job.ID,
		References:  dir.References,
	})
	if err != nil {
		return nil, fmt.Errorf("generate image: %w", err)
	}
	if res == nil || len(res.Data) == 0 {
		return nil, errors.New("generate image: empty result")
	}

	accountID := bundle.Content.AccountID
	upCtx, cancelUpload := context.WithTimeout(ctx, w.cfg.UploadTimeout)
	defer cancelUpload()
	up, err := w.uploader.Upload(upCtx, storage.UploadInput{
		Folder:   storage.GeneratedFolder(accountID),
		Data:     res.Data,
		MIMEType: res.MIMEType,
	})
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}

	contentID := bundle.Content.ID
	return &domain.CompletedImage{
		JobID:     job.ID,
		ContentID: contentID,
		Model:     res.Model,
		Prompt:    prompt,
		Asset: domain.MediaAsset{
			ID:                 w.newID(),
			AccountID:          accountID,
			Kind:               domain.AssetKindImage,
			StorageKey:         up.Key,
			URL:                up.URL,
			MIMEType:           res.MIMEType,
			Bytes:              up.Bytes,
			Source:             domain.AssetSourceGenerated,
			GeneratedContentID: &contentID,
		},
	}, nil
}

func (w *Worker) handleFailure(ctx context.Context, log zerolog.Logger, job *domain.ImageJob, cause error) (bool, error) {
	lastError := domain.Truncate(cause.Error(), w.cfg.ErrorMaxLen)

	if job.Attempts < w.cfg.MaxAttempts {
		var retryAfter *time.Time
		if w.cfg.DeferRetries {
			at := w.now().Add(Backoff(job.Attempts, w.cfg.BackoffBase, w.cfg.BackoffMax))
			retryAfter = &at
		}
		err := w.jobs.Requeue(ctx, job.ID, job.GeneratedContentID, lastError, retryAfter)
		if errors.Is(err, domain.ErrNotClaimed) {
			log.Warn().Msg("worker: lease lost before requeue")
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("requeue job: %w", err)
		}
		infra.JobsProcessed.WithLabelValues(outcomeRetried).Inc()
		ev := log.Warn().Err(cause).Bool("provider_failure", errors.Is(cause, domain.ErrProviderFailure))
		if retryAfter != nil {
			ev = ev.Time("retry_after", *retryAfter)
		}
		ev.Msg("worker: attempt failed; retry scheduled")
		return retryAfter == nil, nil
	}

	imageError := domain.Truncate(userMessage(cause), w.cfg.ErrorMaxLen)
	err := w.jobs.Fail(ctx, job.ID, job.GeneratedContentID, lastError, imageError)
	if errors.Is(err, domain.ErrNotClaimed) {
		log.Warn().Msg("worker: lease lost before failing job")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("fail job: %w", err)
	}
	infra.JobsProcessed.WithLabelValues(outcomeFailed).Inc()
	log.Error().Err(cause).Msg("worker: job failed permanently")
	return false, nil
}

// rejectInvalid fails a job whose content blobs cannot be decoded; retrying
// would read the same payload again.
func (w *Worker) rejectInvalid(ctx context.Context, log zerolog.Logger, job *domain.ImageJob, cause error) error {
	claimed, err := w.jobs.Claim(ctx, job.ID, w.cfg.MaxAttempts, w.now())
	if errors.Is(err, domain.ErrNotClaimed) {
		_, _ = w.skip(log, "job not claimable")
		return nil
	}
	if err != nil {
		return fmt.Errorf("claim job: %w", err)
	}
	lastError := domain.Truncate(cause.Error(), w.cfg.ErrorMaxLen)
	err = w.jobs.Fail(ctx, claimed.ID, claimed.GeneratedContentID, lastError, "This post could not be read for image generation.")
	if err != nil && !errors.Is(err, domain.ErrNotClaimed) {
		return fmt.Errorf("fail job: %w", err)
	}
	infra.JobsProcessed.WithLabelValues(outcomeFailed).Inc()
	log.Error().Err(cause).Msg("worker: invalid content payload")
	return nil
}

func (w *Worker) skip(log zerolog.Logger, reason string) (bool, error) {
	infra.JobsProcessed.WithLabelValues(outcomeSkipped).Inc()
	log.Debug().Str("reason", reason).Msg("worker: skipped")
	return false, nil
}

// userMessage is the text shown on the content once retries are exhausted.
func userMessage(err error) string {
	var apiErr *genai.APIError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "Image generation timed out. Please try again."
	case errors.Is(err, genai.ErrBlocked):
		return "The image request was blocked by the safety filter. Try rewording the post."
	case errors.As(err, &apiErr) && apiErr.StatusCode == 429:
		return "The image service is busy right now. Please try again later."
	default:
		return "Image generation failed: " + err.Error()
	}
}
