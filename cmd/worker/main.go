package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"brandpost/internal/app"
	"brandpost/internal/infra"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to build pipeline")
	}
	defer pipeline.Close()

	if !pipeline.Queue.Durable() {
		logger.Warn().Msg("worker: REDIS_URL not set; jobs run inline in the api and this process has nothing to do")
	}

	if err := pipeline.Scheduler.Run(ctx, cfg.SchedulerInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("worker: stopped with error")
		return
	}
	logger.Info().Msg("worker: stopped")
}
