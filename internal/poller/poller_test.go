package poller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brandpost/internal/domain"
)

// scripted answers each content id from a list of statuses, one per call; the
// last entry repeats. A nil entry is a fetch error.
type scripted struct {
	mu      sync.Mutex
	answers map[string][]*Status
	calls   map[string]int
}

func newScripted(answers map[string][]*Status) *scripted {
	return &scripted{answers: answers, calls: map[string]int{}}
}

func (s *scripted) Fetch(ctx context.Context, id string) (*Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.calls[id]
	s.calls[id]++
	list := s.answers[id]
	if n >= len(list) {
		n = len(list) - 1
	}
	if list[n] == nil {
		return nil, errors.New("network unreachable")
	}
	st := *list[n]
	return &st, nil
}

func (s *scripted) Calls(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[id]
}

type updates struct {
	mu  sync.Mutex
	got map[string]Status
}

func (u *updates) record(st Status) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.got == nil {
		u.got = map[string]Status{}
	}
	u.got[st.ContentID] = st
}

func (u *updates) get(id string) (Status, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	st, ok := u.got[id]
	return st, ok
}

func generating(id string) *Status {
	return &Status{ContentID: id, ImageStatus: domain.ImageStatusGenerating}
}

func ready(id, url string) *Status {
	return &Status{ContentID: id, ImageStatus: domain.ImageStatusReady, ImageURL: &url}
}

func TestScenarioDStopsAfterReady(t *testing.T) {
	f := newScripted(map[string][]*Status{
		"content-1": {generating("content-1"), ready("content-1", "https://cdn.example/a.png")},
	})
	var u updates
	p := New(f, Config{OnUpdate: u.record})
	p.Track("content-1")
	ctx := context.Background()

	assert.Equal(t, 1, p.Tick(ctx))
	_, ok := u.get("content-1")
	assert.False(t, ok)

	assert.Equal(t, 0, p.Tick(ctx))
	st, ok := u.get("content-1")
	require.True(t, ok)
	require.NotNil(t, st.ImageURL)
	assert.Equal(t, "https://cdn.example/a.png", *st.ImageURL)

	p.Tick(ctx)
	assert.Equal(t, 2, f.Calls("content-1"), "settled items are not fetched again")
}

func TestScenarioEIsolatesFetchErrors(t *testing.T) {
	f := newScripted(map[string][]*Status{
		"a": {ready("a", "https://cdn.example/a.png")},
		"b": {nil, ready("b", "https://cdn.example/b.png")},
		"c": {{ContentID: "c", ImageStatus: domain.ImageStatusFailed}},
	})
	var u updates
	p := New(f, Config{OnUpdate: u.record})
	p.Track("a", "b", "c")
	ctx := context.Background()

	assert.Equal(t, 1, p.Tick(ctx))
	_, okA := u.get("a")
	stC, okC := u.get("c")
	assert.True(t, okA)
	require.True(t, okC)
	assert.Equal(t, domain.ImageStatusFailed, stC.ImageStatus)
	assert.Equal(t, []string{"b"}, p.Pending())

	assert.Equal(t, 0, p.Tick(ctx))
	_, okB := u.get("b")
	assert.True(t, okB)
	assert.Equal(t, 2, f.Calls("b"))
}

func TestRunStopsAtTickCap(t *testing.T) {
	f := newScripted(map[string][]*Status{"x": {generating("x")}})
	p := New(f, Config{FastInterval: time.Millisecond, SlowInterval: 2 * time.Millisecond, FastTicks: 2, MaxTicks: 5})
	p.Track("x")

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, 5, p.Ticks())
	assert.Equal(t, 5, f.Calls("x"))
	assert.Equal(t, []string{"x"}, p.Pending(), "capped items stay pending for a manual refresh")
}

func TestRunStopsWhenSettled(t *testing.T) {
	f := newScripted(map[string][]*Status{"x": {generating("x"), ready("x", "u")}})
	p := New(f, Config{FastInterval: time.Millisecond, MaxTicks: 50})
	p.Track("x")

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, 2, p.Ticks())
}

func TestRunWithNothingTracked(t *testing.T) {
	p := New(newScripted(nil), Config{FastInterval: time.Hour})
	require.NoError(t, p.Run(context.Background()))
	assert.Zero(t, p.Ticks())
}

func TestCadence(t *testing.T) {
	p := New(newScripted(nil), Config{FastInterval: time.Second, SlowInterval: 5 * time.Second, FastTicks: 3})
	for n, want := range []time.Duration{time.Second, time.Second, time.Second, 5 * time.Second, 5 * time.Second} {
		assert.Equal(t, want, p.interval(n), "after %d ticks", n)
	}

	none := New(newScripted(nil), Config{FastInterval: time.Second, SlowInterval: 5 * time.Second, FastTicks: -1})
	assert.Equal(t, 5*time.Second, none.interval(0))
}

func TestStopCancelsPendingTimer(t *testing.T) {
	var calls atomic.Int32
	p := New(FetcherFunc(func(context.Context, string) (*Status, error) {
		calls.Add(1)
		return generating("x"), nil
	}), Config{FastInterval: time.Hour})
	p.Track("x")

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()
	time.Sleep(10 * time.Millisecond)
	p.Stop()
	p.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Stop did not end Run")
	}
	assert.Zero(t, calls.Load())
}

func TestStopCancelsInFlightFetch(t *testing.T) {
	started := make(chan struct{})
	var once sync.Once
	p := New(FetcherFunc(func(ctx context.Context, id string) (*Status, error) {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return nil, ctx.Err()
	}), Config{FastInterval: time.Millisecond})
	p.Track("x")

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()
	<-started
	p.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("in-flight fetch was not cancelled")
	}
	assert.Equal(t, 1, p.Ticks())
}

func TestRunReturnsContextError(t *testing.T) {
	p := New(newScripted(map[string][]*Status{"x": {generating("x")}}), Config{FastInterval: time.Hour})
	p.Track("x")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Run(ctx), context.Canceled)
}

func TestTickBoundsParallelism(t *testing.T) {
	var inFlight, peak atomic.Int32
	p := New(FetcherFunc(func(ctx context.Context, id string) (*Status, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return generating(id), nil
	}), Config{Parallelism: 2})
	p.Track("a", "b", "c", "d", "e", "f")

	assert.Equal(t, 6, p.Tick(context.Background()))
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		switch r.URL.EscapedPath() {
		case "/v1/contents/content-1/image":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"content_id":"content-1","image_status":"ready","image_url":"https://cdn.example/a.png","image_model":"m","image_error":null}`))
		case "/v1/contents/a%2Fb/image":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"not_found","message":"content not found"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL + "/")
	f.Token = "tok"

	st, err := f.Fetch(context.Background(), "content-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ImageStatusReady, st.ImageStatus)
	require.NotNil(t, st.ImageURL)
	assert.Equal(t, "https://cdn.example/a.png", *st.ImageURL)
	assert.Nil(t, st.ImageError)

	_, err = f.Fetch(context.Background(), "a/b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
