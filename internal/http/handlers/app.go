package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"brandpost/internal/domain"
	"brandpost/internal/infra"
	"brandpost/internal/scheduler"
)

// Enqueuer is the part of the work queue the handlers use.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobID string) error
	Durable() bool
}

// Ticker runs one scheduler tick.
type Ticker interface {
	Tick(ctx context.Context) (scheduler.TickResult, error)
}

type App struct {
	Jobs      domain.ImageJobRepository
	Contents  domain.ContentRepository
	Queue     Enqueuer
	Scheduler Ticker
	Logger    infra.Logger
	NewID     func() string
}

func NewApp(jobs domain.ImageJobRepository, contents domain.ContentRepository, q Enqueuer, sched Ticker, logger *infra.Logger) *App {
	l := zerolog.Nop()
	if logger != nil {
		l = infra.Component(*logger, "http")
	}
	return &App{
		Jobs:      jobs,
		Contents:  contents,
		Queue:     q,
		Scheduler: sched,
		Logger:    l,
		NewID:     uuid.NewString,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, msg string) {
	a.json(w, code, map[string]string{"error": errCode, "message": msg})
}
