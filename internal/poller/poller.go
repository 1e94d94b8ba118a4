// Package poller watches content items whose image is still generating and
// reports each one once it settles.
package poller

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"brandpost/internal/domain"
	"brandpost/internal/infra"
)

const (
	DefaultFastInterval = 3 * time.Second
	DefaultSlowInterval = 10 * time.Second
	DefaultFastTicks    = 10
	DefaultMaxTicks     = 60
	defaultParallelism  = 4
)

// Status is the image state of one content item as served by the API.
type Status struct {
	ContentID   string             `json:"content_id"`
	ImageStatus domain.ImageStatus `json:"image_status"`
	ImageURL    *string            `json:"image_url"`
	ImageModel  *string            `json:"image_model"`
	ImageError  *string            `json:"image_error"`
}

type Fetcher interface {
	Fetch(ctx context.Context, contentID string) (*Status, error)
}

type FetcherFunc func(ctx context.Context, contentID string) (*Status, error)

func (f FetcherFunc) Fetch(ctx context.Context, contentID string) (*Status, error) {
	return f(ctx, contentID)
}

type Config struct {
	FastInterval time.Duration
	SlowInterval time.Duration
	// FastTicks ticks run at FastInterval, the rest at SlowInterval. Zero
	// selects the default; a negative value skips the fast phase.
	FastTicks int
	// MaxTicks caps the total number of ticks; polling then stops silently.
	MaxTicks    int
	Parallelism int
	// OnUpdate receives every settled item exactly once. It may be called from
	// several goroutines.
	OnUpdate func(Status)
	Logger   *infra.Logger
}

func (c Config) withDefaults() Config {
	if c.FastInterval <= 0 {
		c.FastInterval = DefaultFastInterval
	}
	if c.SlowInterval <= 0 {
		c.SlowInterval = DefaultSlowInterval
	}
	if c.FastTicks < 0 {
		c.FastTicks = 0
	} else if c.FastTicks == 0 {
		c.FastTicks = DefaultFastTicks
	}
	if c.MaxTicks <= 0 {
		c.MaxTicks = DefaultMaxTicks
	}
	if c.Parallelism <= 0 {
		c.Parallelism = defaultParallelism
	}
	if c.OnUpdate == nil {
		c.OnUpdate = func(Status) {}
	}
	return c
}

type Poller struct {
	fetcher Fetcher
	cfg     Config
	logger  infra.Logger

	mu      sync.Mutex
	pending map[string]struct{}
	ticks   int

	stopOnce sync.Once
	stop     chan struct{}
}

func New(fetcher Fetcher, cfg Config) *Poller {
	cfg = cfg.withDefaults()
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = infra.Component(*cfg.Logger, "poller")
	}
	return &Poller{
		fetcher: fetcher,
		cfg:     cfg,
		logger:  logger,
		pending: map[string]struct{}{},
		stop:    make(chan struct{}),
	}
}

// Track adds content ids whose local status is generating.
func (p *Poller) Track(contentIDs ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range contentIDs {
		if id != "" {
			p.pending[id] = struct{}{}
		}
	}
}

// Pending returns the ids still being watched, sorted.
func (p *Poller) Pending() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.pending))
	for id := range p.pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Ticks returns how many ticks have run.
func (p *Poller) Ticks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ticks
}

// Tick fetches every pending item once. A failed fetch keeps the item pending
// for the next tick and never affects the others. It returns the number of
// items still pending.
func (p *Poller) Tick(ctx context.Context) int {
	ids := p.Pending()
	p.mu.Lock()
	p.ticks++
	tick := p.ticks
	p.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Parallelism)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			p.poll(gctx, tick, id)
			return nil
		})
	}
	_ = g.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

func (p *Poller) poll(ctx context.Context, tick int, id string) {
	st, err := p.fetcher.Fetch(ctx, id)
	if err != nil {
		p.logger.Debug().Err(err).Int("tick", tick).Str("content_id", id).Msg("poller: fetch failed")
		return
	}
	if st == nil || !st.ImageStatus.Settled() {
		return
	}
	if st.ContentID == "" {
		st.ContentID = id
	}
	p.mu.Lock()
	_, still := p.pending[id]
	delete(p.pending, id)
	p.mu.Unlock()
	if still {
		p.cfg.OnUpdate(*st)
	}
}

// interval is the wait before tick n+1 after n ticks ran.
func (p *Poller) interval(n int) time.Duration {
	if n < p.cfg.FastTicks {
		return p.cfg.FastInterval
	}
	return p.cfg.SlowInterval
}

// Run ticks on the adaptive cadence until nothing is pending, MaxTicks is
// reached, Stop is called, or ctx is done. Only cancellation of ctx is
// reported as an error.
func (p *Poller) Run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	go func() {
		select {
		case <-p.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	timer := time.NewTimer(p.interval(p.Ticks()))
	defer timer.Stop()
	for {
		p.mu.Lock()
		idle := len(p.pending) == 0
		capped := p.ticks >= p.cfg.MaxTicks
		left := len(p.pending)
		p.mu.Unlock()
		if idle || capped {
			if capped && !idle {
				p.logger.Info().Int("pending", left).Msg("poller: tick cap reached")
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return parent.Err()
		case <-timer.C:
		}

		p.Tick(ctx)
		if ctx.Err() != nil {
			return parent.Err()
		}
		timer.Reset(p.interval(p.Ticks()))
	}
}

// Stop ends Run at once, cancelling its pending timer and in-flight fetches.
// It is safe to call more than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}
