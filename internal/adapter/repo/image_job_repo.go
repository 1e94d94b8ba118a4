package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"brandpost/internal/domain"
	"brandpost/internal/infra"
	"brandpost/internal/sqlinline"
)

const (
	leaseExpiredMessage   = "worker lease expired"
	leaseExhaustedMessage = "Image generation timed out. Please try again."
	pgUniqueViolation     = "23505"
)

// ImageJobRepositoryPG implements domain.ImageJobRepository.
type ImageJobRepositoryPG struct {
	sql infra.Transactor
}

// NewImageJobRepository creates a job repository over the given runner.
func NewImageJobRepository(sql infra.Transactor) *ImageJobRepositoryPG {
	return &ImageJobRepositoryPG{sql: sql}
}

// GetByID fetches a job by its identifier.
func (r *ImageJobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.ImageJob, error) {
	job, err := scanJob(r.sql.QueryRow(ctx, sqlinline.QSelectImageJobByID, jobID))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get image job: %w", err)
	}
	return job, nil
}

// LatestForContent returns the newest job for a content item.
func (r *ImageJobRepositoryPG) LatestForContent(ctx context.Context, contentID string) (*domain.ImageJob, error) {
	job, err := scanJob(r.sql.QueryRow(ctx, sqlinline.QSelectLatestImageJobForContent, contentID))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("latest image job: %w", err)
	}
	return job, nil
}

// CreateForContent inserts a QUEUED job and marks the content generating.
func (r *ImageJobRepositoryPG) CreateForContent(ctx context.Context, jobID, contentID string) (*domain.ImageJob, error) {
	job, err := scanJob(r.sql.QueryRow(ctx, sqlinline.QInsertImageJob, jobID, contentID))
	if err != nil {
		var pgErr *pgconn.PgError
		if infra.IsNoRows(err) || (errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation) {
			return nil, domain.ErrActiveJob
		}
		return nil, fmt.Errorf("create image job: %w", err)
	}
	return job, nil
}

// Claim performs the QUEUED to RUNNING compare-and-set.
func (r *ImageJobRepositoryPG) Claim(ctx context.Context, jobID string, maxAttempts int, now time.Time) (*domain.ImageJob, error) {
	job, err := scanJob(r.sql.QueryRow(ctx, sqlinline.QClaimImageJob, jobID, maxAttempts, now))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotClaimed
		}
		return nil, fmt.Errorf("claim image job: %w", err)
	}
	return job, nil
}

// Complete stores the asset and flips job and content to their success states.
func (r *ImageJobRepositoryPG) Complete(ctx context.Context, done domain.CompletedImage) error {
	return r.sql.InTx(ctx, func(tx infra.SQLExecutor) error {
		if err := execOwned(ctx, tx, sqlinline.QMarkImageJobSucceeded, done.JobID); err != nil {
			return err
		}
		a := done.Asset
		kind := a.Kind
		if kind == "" {
			kind = domain.AssetKindImage
		}
		source := a.Source
		if source == "" {
			source = domain.AssetSourceGenerated
		}
		if _, err := tx.Exec(ctx, sqlinline.QInsertGeneratedAsset,
			a.ID,
			a.AccountID,
			string(kind),
			a.StorageKey,
			a.URL,
			a.MIMEType,
			a.Bytes,
			string(source),
			done.ContentID,
		); err != nil {
			return fmt.Errorf("insert media asset: %w", err)
		}
		if _, err := tx.Exec(ctx, sqlinline.QMarkContentImageReady,
			done.ContentID,
			a.URL,
			done.Model,
			done.Prompt,
			a.ID,
		); err != nil {
			return fmt.Errorf("mark content ready: %w", err)
		}
		return nil
	})
}

// Requeue returns a RUNNING job to QUEUED. A nil retryAfter makes it due at once.
func (r *ImageJobRepositoryPG) Requeue(ctx context.Context, jobID, contentID, lastError string, retryAfter *time.Time) error {
	return r.sql.InTx(ctx, func(tx infra.SQLExecutor) error {
		if err := execOwned(ctx, tx, sqlinline.QRequeueImageJob, jobID, lastError, retryAfter); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, sqlinline.QMarkContentImageGenerating, contentID); err != nil {
			return fmt.Errorf("mark content generating: %w", err)
		}
		return nil
	})
}

// Fail marks the job FAILED and surfaces imageError on the content.
func (r *ImageJobRepositoryPG) Fail(ctx context.Context, jobID, contentID, lastError, imageError string) error {
	return r.sql.InTx(ctx, func(tx infra.SQLExecutor) error {
		if err := execOwned(ctx, tx, sqlinline.QMarkImageJobFailed, jobID, lastError); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, sqlinline.QMarkContentImageFailed, contentID, imageError); err != nil {
			return fmt.Errorf("mark content failed: %w", err)
		}
		return nil
	})
}

// Sweep releases due retries, re-lists idle QUEUED jobs, and recovers RUNNING
// jobs whose worker went away.
func (r *ImageJobRepositoryPG) Sweep(ctx context.Context, now, leaseCutoff time.Time, maxAttempts int, limit int) (domain.SweepResult, error) {
	var res domain.SweepResult
	var err error
	if res.Due, err = r.collectIDs(ctx, sqlinline.QSweepDueRetries, now, limit); err != nil {
		return res, fmt.Errorf("sweep due retries: %w", err)
	}
	if res.Orphaned, err = r.collectIDs(ctx, sqlinline.QSweepOrphanedJobs, leaseCutoff, limit); err != nil {
		return res, fmt.Errorf("sweep orphaned jobs: %w", err)
	}
	if res.Requeued, err = r.collectIDs(ctx, sqlinline.QSweepExpiredLeases, leaseCutoff, maxAttempts, leaseExpiredMessage, limit); err != nil {
		return res, fmt.Errorf("sweep expired leases: %w", err)
	}
	if res.Failed, err = r.collectIDs(ctx, sqlinline.QSweepExhaustedLeases, leaseCutoff, maxAttempts, leaseExpiredMessage, leaseExhaustedMessage, limit); err != nil {
		return res, fmt.Errorf("sweep exhausted leases: %w", err)
	}
	return res, nil
}

func (r *ImageJobRepositoryPG) collectIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.sql.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// execOwned runs a job update guarded on RUNNING and reports ErrNotClaimed when
// the job is no longer held by this worker.
func execOwned(ctx context.Context, tx infra.SQLExecutor, query, jobID string, args ...any) error {
	tag, err := tx.Exec(ctx, query, append([]any{jobID}, args...)...)
	if err != nil {
		return fmt.Errorf("update image job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotClaimed
	}
	return nil
}

func scanJob(row pgx.Row) (*domain.ImageJob, error) {
	var (
		job    domain.ImageJob
		status string
	)
	if err := row.Scan(
		&job.ID,
		&job.GeneratedContentID,
		&status,
		&job.Attempts,
		&job.LastError,
		&job.RetryAfter,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	job.Status = domain.JobStatus(status)
	return &job, nil
}

var _ domain.ImageJobRepository = (*ImageJobRepositoryPG)(nil)
