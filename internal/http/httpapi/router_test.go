package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brandpost/internal/adapter/memory"
	"brandpost/internal/domain"
	"brandpost/internal/domain/jsoncfg"
	"brandpost/internal/http/handlers"
	"brandpost/internal/providers/image"
	"brandpost/internal/queue"
	"brandpost/internal/scheduler"
	"brandpost/internal/storage"
	"brandpost/internal/worker"
)

const (
	graphicID = "8a1f0c2e-4b7d-4e52-9c1a-3f6d2b8e9a10"
	storyID   = "1c9e6a4d-7f2b-4d3a-8e51-0b6c9d2f7a34"
	missingID = "5e7d1b3a-9c4f-4a62-b8d0-2f1e6c3a9b57"
	secret    = "cron-s3cret"
)

type uploader struct{}

func (uploader) Upload(ctx context.Context, in storage.UploadInput) (*storage.UploadResult, error) {
	key := in.Folder + "/img.png"
	return &storage.UploadResult{Key: key, URL: "https://cdn.example/" + key, Bytes: int64(len(in.Data))}, nil
}

type env struct {
	store  *memory.Store
	mr     *miniredis.Miniredis
	server *httptest.Server
	fail   atomic.Bool
}

func newEnv(t *testing.T, durable bool, staticDir string) *env {
	t.Helper()
	e := &env{store: memory.NewStore(time.Now)}
	e.store.SeedContent(domain.ContentBundle{
		Content: domain.GeneratedContent{ID: graphicID, AccountID: "acct-1", ImageStatus: domain.ImageStatusNone},
		Request: domain.ContentRequest{ContentType: jsoncfg.ContentTypeGraphic},
	})
	e.store.SeedContent(domain.ContentBundle{
		Content: domain.GeneratedContent{ID: storyID, AccountID: "acct-1", ImageStatus: domain.ImageStatusNone},
		Request: domain.ContentRequest{ContentType: jsoncfg.ContentTypeStory},
	})

	gen := image.GeneratorFunc(func(ctx context.Context, req image.GenerateRequest) (*image.Result, error) {
		if e.fail.Load() {
			return nil, errors.New("upstream 500")
		}
		return &image.Result{Data: []byte("png"), MIMEType: "image/png", Model: "gemini-2.5-flash-image"}, nil
	})
	w := worker.New(worker.Deps{Jobs: e.store, Contents: e.store, Generator: gen, Uploader: uploader{}},
		worker.Config{MaxAttempts: 2, DeferRetries: durable})

	var backend queue.Backend
	if durable {
		e.mr = miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: e.mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		backend = queue.NewRedisBackend(client, "image-jobs:queue")
	}
	q := queue.New(queue.Config{Backend: backend}, w)
	sched := scheduler.New(e.store, q, scheduler.Config{MaxAttempts: 2})

	app := handlers.NewApp(e.store, e.store, q, sched, nil)
	var seq atomic.Int32
	app.NewID = func() string { return fmt.Sprintf("job-%d", seq.Add(1)) }

	e.server = httptest.NewServer(NewRouter(app, Options{Logger: zerolog.Nop(), CronSecret: secret, StaticDir: staticDir}))
	t.Cleanup(e.server.Close)
	return e
}

func (e *env) do(t *testing.T, method, path, token string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	}
	return resp, body
}

func TestHealth(t *testing.T) {
	e := newEnv(t, false, "")
	resp, body := e.do(t, http.MethodGet, "/v1/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "inline", body["queue"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestCreateImageJobInline(t *testing.T) {
	e := newEnv(t, false, "")

	resp, body := e.do(t, http.MethodPost, "/v1/contents/"+graphicID+"/image-jobs", "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "job-1", body["job_id"])
	assert.Equal(t, "SUCCEEDED", body["status"], "inline queue processes within the request")
	assert.Equal(t, "ready", body["image_status"])

	resp, body = e.do(t, http.MethodGet, "/v1/contents/"+graphicID+"/image", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, graphicID, body["content_id"])
	assert.Equal(t, "ready", body["image_status"])
	assert.Equal(t, "https://cdn.example/generated/acct-1/img.png", body["image_url"])
	assert.NotNil(t, body["primary_image_asset_id"])
	job, ok := body["job"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "job-1", job["id"])
	assert.Equal(t, float64(1), job["attempts"])
}

func TestCreateImageJobDurable(t *testing.T) {
	e := newEnv(t, true, "")

	resp, body := e.do(t, http.MethodPost, "/v1/contents/"+graphicID+"/image-jobs", "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "QUEUED", body["status"])
	assert.Equal(t, "generating", body["image_status"])

	list, err := e.mr.List("image-jobs:queue")
	require.NoError(t, err)
	assert.Equal(t, []string{"job-1"}, list)

	resp, body = e.do(t, http.MethodPost, "/v1/contents/"+graphicID+"/image-jobs", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "job_active", body["error"])

	resp, body = e.do(t, http.MethodGet, "/v1/contents/"+graphicID+"/image", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "generating", body["image_status"])
	assert.Nil(t, body["image_url"])
}

func TestCreateImageJobRejections(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		failOn  error
		status  int
		errCode string
	}{
		{name: "bad id", path: "/v1/contents/not-a-uuid/image-jobs", status: http.StatusBadRequest, errCode: "bad_request"},
		{name: "unknown content", path: "/v1/contents/" + missingID + "/image-jobs", status: http.StatusNotFound, errCode: "not_found"},
		{name: "non graphic", path: "/v1/contents/" + storyID + "/image-jobs", status: http.StatusNotFound, errCode: "not_found"},
		{name: "invalid payload", path: "/v1/contents/" + graphicID + "/image-jobs", failOn: domain.ErrInvalidPayload, status: http.StatusUnprocessableEntity, errCode: "invalid_content"},
		{name: "store down", path: "/v1/contents/" + graphicID + "/image-jobs", failOn: errors.New("conn refused"), status: http.StatusInternalServerError, errCode: "internal"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t, false, "")
			if tc.failOn != nil {
				e.store.FailOn["GetBundle"] = tc.failOn
			}
			resp, body := e.do(t, http.MethodPost, tc.path, "")
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.errCode, body["error"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestManualRetryAfterFailure(t *testing.T) {
	e := newEnv(t, false, "")
	e.fail.Store(true)

	resp, body := e.do(t, http.MethodPost, "/v1/contents/"+graphicID+"/image-jobs", "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "FAILED", body["status"])
	assert.Equal(t, "failed", body["image_status"])

	_, body = e.do(t, http.MethodGet, "/v1/contents/"+graphicID+"/image", "")
	assert.NotEmpty(t, body["image_error"])

	e.fail.Store(false)
	resp, body = e.do(t, http.MethodPost, "/v1/contents/"+graphicID+"/image-jobs", "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "job-2", body["job_id"])
	assert.Equal(t, "ready", body["image_status"])

	_, body = e.do(t, http.MethodGet, "/v1/contents/"+graphicID+"/image", "")
	assert.Nil(t, body["image_error"])
}

func TestImageStateNotFound(t *testing.T) {
	e := newEnv(t, false, "")
	resp, body := e.do(t, http.MethodGet, "/v1/contents/"+missingID+"/image", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["error"])
}

func TestCronTick(t *testing.T) {
	e := newEnv(t, true, "")
	resp, _ := e.do(t, http.MethodPost, "/v1/contents/"+graphicID+"/image-jobs", "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPost, "/v1/cron/image-jobs", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = e.do(t, http.MethodPost, "/v1/cron/image-jobs", "wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := e.do(t, http.MethodPost, "/v1/cron/image-jobs", secret)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["processed"])

	_, body = e.do(t, http.MethodGet, "/v1/contents/"+graphicID+"/image", "")
	assert.Equal(t, "ready", body["image_status"])
}

func TestCronSweepError(t *testing.T) {
	e := newEnv(t, true, "")
	e.store.FailOn["Sweep"] = errors.New("deadlock")
	resp, body := e.do(t, http.MethodPost, "/v1/cron/image-jobs", secret)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "internal", body["error"])
}

func TestMetricsAndStatic(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "generated", "acct-1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "generated", "acct-1", "a.png"), []byte("png-bytes"), 0o644))
	e := newEnv(t, false, dir)

	resp, _ := e.do(t, http.MethodPost, "/v1/contents/"+graphicID+"/image-jobs", "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	res, err := http.Get(e.server.URL + "/metrics")
	require.NoError(t, err)
	raw, _ := io.ReadAll(res.Body)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(raw), "image_jobs_enqueued_total")

	res, err = http.Get(e.server.URL + "/static/generated/acct-1/a.png")
	require.NoError(t, err)
	raw, _ = io.ReadAll(res.Body)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "png-bytes", string(raw))
}
