package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"brandpost/internal/app"
	"brandpost/internal/http/handlers"
	httpapi "brandpost/internal/http/httpapi"
	"brandpost/internal/infra"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipeline, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to build pipeline")
	}
	defer pipeline.Close()

	handlerApp := handlers.NewApp(pipeline.Jobs, pipeline.Contents, pipeline.Queue, pipeline.Scheduler, &logger)
	router := httpapi.NewRouter(handlerApp, httpapi.Options{
		Logger:     logger,
		CronSecret: cfg.CronSecret,
		StaticDir:  pipeline.StaticDir,
	})

	if !pipeline.Queue.Durable() {
		// Inline jobs run inside the request; the write deadline must cover every attempt.
		if floor := (cfg.GenerationTimeout+cfg.UploadTimeout)*time.Duration(cfg.JobMaxAttempts) + 10*time.Second; cfg.HTTPWriteTimeout < floor {
			cfg.HTTPWriteTimeout = floor
		}
	}
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("port", cfg.Port).Str("queue", string(pipeline.Queue.Mode())).Msg("api: listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("api: http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: failed to shutdown server")
	}
	logger.Info().Msg("api: stopped")
}
