package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"brandpost/internal/infra"
	"brandpost/internal/poller"
)

// imagewatch polls the API until every given content id has a settled image.
//
//	imagewatch -api http://localhost:8080 <content-id>...
func main() {
	_ = godotenv.Load()

	var (
		apiURL   = flag.String("api", envOr("API_BASE_URL", "http://localhost:8080"), "API base URL")
		token    = flag.String("token", os.Getenv("API_TOKEN"), "bearer token sent with each request")
		fast     = flag.Duration("fast", poller.DefaultFastInterval, "interval for the first ticks")
		slow     = flag.Duration("slow", poller.DefaultSlowInterval, "interval after the fast phase")
		fastN    = flag.Int("fast-ticks", poller.DefaultFastTicks, "number of fast ticks")
		maxTicks = flag.Int("max-ticks", poller.DefaultMaxTicks, "total tick cap")
	)
	flag.Parse()
	ids := flag.Args()
	if len(ids) == 0 {
		fmt.Fprintln(os.Stderr, "usage: imagewatch [flags] <content-id>...")
		os.Exit(2)
	}

	logger := infra.NewLogger(envOr("APP_ENV", "development")).With().Str("cmd", "imagewatch").Logger()

	fetcher := poller.NewHTTPFetcher(*apiURL)
	fetcher.Token = *token

	p := poller.New(fetcher, poller.Config{
		FastInterval: *fast,
		SlowInterval: *slow,
		FastTicks:    *fastN,
		MaxTicks:     *maxTicks,
		Logger:       &logger,
		OnUpdate: func(st poller.Status) {
			ev := logger.Info().Str("content_id", st.ContentID).Str("image_status", string(st.ImageStatus))
			if st.ImageURL != nil {
				ev = ev.Str("image_url", *st.ImageURL)
			}
			if st.ImageError != nil {
				ev = ev.Str("image_error", *st.ImageError)
			}
			ev.Msg("imagewatch: settled")
		},
	})
	p.Track(ids...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := p.Run(ctx); err != nil {
		logger.Warn().Err(err).Msg("imagewatch: interrupted")
	}
	if pending := p.Pending(); len(pending) > 0 {
		logger.Warn().Strs("content_ids", pending).Int("ticks", p.Ticks()).Msg("imagewatch: still generating; refresh manually")
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
