// Package app wires the image pipeline from configuration. Both the API and
// the worker process build the same pipeline.
package app

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"brandpost/internal/adapter/repo"
	"brandpost/internal/infra"
	"brandpost/internal/infra/credentials"
	"brandpost/internal/providers/genai"
	"brandpost/internal/providers/image"
	"brandpost/internal/queue"
	"brandpost/internal/scheduler"
	"brandpost/internal/storage"
	"brandpost/internal/worker"
)

type Pipeline struct {
	Pool      *pgxpool.Pool
	Redis     *redis.Client
	Jobs      *repo.ImageJobRepositoryPG
	Contents  *repo.ContentRepositoryPG
	Worker    *worker.Worker
	Queue     *queue.Queue
	Scheduler *scheduler.Scheduler
	// StaticDir is the filesystem storage root, empty when assets go to S3.
	StaticDir string
}

func New(ctx context.Context, cfg *infra.Config, logger infra.Logger) (*Pipeline, error) {
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	p := &Pipeline{Pool: pool}

	runner := infra.NewSQLRunner(pool, logger)
	p.Jobs = repo.NewImageJobRepository(runner)
	p.Contents = repo.NewContentRepository(runner, p.Jobs)

	uploader, staticDir, err := NewUploader(ctx, cfg)
	if err != nil {
		p.Close()
		return nil, err
	}
	p.StaticDir = staticDir

	apiKey, err := credentials.ResolveGeminiAPIKey(ctx, cfg.GeminiAPIKey, credentials.NewStore(runner))
	if err != nil {
		logger.Warn().Err(err).Msg("app: failed to load gemini api key from store")
	}
	client := genai.NewClient(genai.Options{
		APIKey:  apiKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
		// The worker bounds each call with GenerationTimeout; this is a backstop.
		HTTPClient: &http.Client{Timeout: cfg.GenerationTimeout + cfg.GenerationTimeout/2},
		Logger:     &logger,
	})
	if client.Synthetic() {
		logger.Warn().Str("model", client.Model()).Msg("app: gemini api key missing, using synthetic image generation")
	}

	p.Redis, err = infra.NewRedisClient(ctx, cfg)
	if err != nil {
		p.Close()
		return nil, err
	}

	p.Worker = worker.New(worker.Deps{
		Jobs:      p.Jobs,
		Contents:  p.Contents,
		Generator: image.NewGeminiGenerator(client),
		Uploader:  uploader,
	}, worker.Config{
		MaxAttempts:       cfg.JobMaxAttempts,
		BackoffBase:       cfg.BackoffBase,
		BackoffMax:        cfg.BackoffMax,
		GenerationTimeout: cfg.GenerationTimeout,
		UploadTimeout:     cfg.UploadTimeout,
		ErrorMaxLen:       cfg.ImageErrorMaxLen,
		DeferRetries:      p.Redis != nil,
	}, worker.WithLogger(logger))

	var backend queue.Backend
	if p.Redis != nil {
		backend = queue.NewRedisBackend(p.Redis, cfg.QueueKey)
	}
	p.Queue = queue.New(queue.Config{Backend: backend, Logger: &logger}, p.Worker)
	p.Scheduler = scheduler.New(p.Jobs, p.Queue, scheduler.Config{
		LeaseTimeout: cfg.JobLeaseTimeout,
		MaxAttempts:  cfg.JobMaxAttempts,
		Logger:       &logger,
	})
	return p, nil
}

func (p *Pipeline) Close() {
	if p.Redis != nil {
		_ = p.Redis.Close()
	}
	if p.Pool != nil {
		p.Pool.Close()
	}
}

// NewUploader picks S3 when a bucket is configured and local files otherwise.
// The returned directory is non-empty only for local files.
func NewUploader(ctx context.Context, cfg *infra.Config) (storage.Uploader, string, error) {
	if cfg.S3Bucket != "" {
		s3Store, err := storage.NewS3Store(ctx, storage.S3Options{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.S3PublicBaseURL,
			UsePathStyle:  cfg.S3UsePathStyle,
		})
		if err != nil {
			return nil, "", fmt.Errorf("configure s3 storage: %w", err)
		}
		return s3Store, "", nil
	}

	path := cfg.StoragePath
	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	fileStore, err := storage.NewFileStore(path, cfg.StorageBaseURL)
	if err != nil {
		return nil, "", fmt.Errorf("configure file storage: %w", err)
	}
	return fileStore, fileStore.BasePath(), nil
}
