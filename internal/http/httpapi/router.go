package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"brandpost/internal/http/handlers"
	"brandpost/internal/infra"
	"brandpost/internal/middleware"
)

type Options struct {
	Logger     infra.Logger
	CronSecret string
	// StaticDir is served under /static when set (filesystem storage).
	StaticDir string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RequestID,
		middleware.EchoRequestID,
		chimw.RealIP,
		middleware.Logger(opts.Logger),
		chimw.Recoverer,
	)

	r.Get("/v1/healthz", app.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/contents/{content_id}", func(r chi.Router) {
		r.Post("/image-jobs", app.CreateImageJob)
		r.Get("/image", app.ImageState)
	})

	r.With(middleware.RequireBearer(opts.CronSecret)).Post("/v1/cron/image-jobs", app.CronImageJobs)

	if opts.StaticDir != "" {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir)))
		r.Handle("/static/*", fs)
	}

	return r
}
