package domain

import (
	"context"
	"time"
)

// ImageJobRepository persists image jobs together with the image projection on
// their content record. Every state change that touches both happens in one
// transaction.
type ImageJobRepository interface {
	GetByID(ctx context.Context, jobID string) (*ImageJob, error)
	LatestForContent(ctx context.Context, contentID string) (*ImageJob, error)
	// CreateForContent inserts a QUEUED job and marks the content generating.
	// It returns ErrActiveJob when a QUEUED or RUNNING job already exists.
	CreateForContent(ctx context.Context, jobID, contentID string) (*ImageJob, error)
	// Claim moves a due QUEUED job to RUNNING and bumps attempts. It returns
	// ErrNotClaimed when the job is not claimable.
	Claim(ctx context.Context, jobID string, maxAttempts int, now time.Time) (*ImageJob, error)
	Complete(ctx context.Context, done CompletedImage) error
	Requeue(ctx context.Context, jobID, contentID, lastError string, retryAfter *time.Time) error
	Fail(ctx context.Context, jobID, contentID, lastError, imageError string) error
	Sweep(ctx context.Context, now, leaseCutoff time.Time, maxAttempts int, limit int) (SweepResult, error)
}

// ContentRepository reads the content side of the pipeline.
type ContentRepository interface {
	GetBundle(ctx context.Context, contentID string) (*ContentBundle, error)
	GetImageState(ctx context.Context, contentID string) (*ContentImageState, error)
}
