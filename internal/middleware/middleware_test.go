package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("ok"))
	})
}

func TestRequireBearer(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		header string
		want   int
	}{
		{name: "disabled", secret: "", header: "Bearer anything", want: http.StatusNotFound},
		{name: "missing header", secret: "s3cret", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", secret: "s3cret", header: "Basic s3cret", want: http.StatusUnauthorized},
		{name: "wrong token", secret: "s3cret", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "ok", secret: "s3cret", header: "bearer  s3cret ", want: http.StatusAccepted},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/cron/image-jobs", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			RequireBearer(tc.secret)(okHandler()).ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("status = %d, want %d", rr.Code, tc.want)
			}
			if tc.want != http.StatusAccepted {
				var body map[string]string
				if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
					t.Fatalf("decode error body: %v", err)
				}
				if body["error"] == "" || body["message"] == "" {
					t.Fatalf("unexpected error envelope: %v", body)
				}
			}
		})
	}
}

func TestLoggerRecordsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	h := chimw.RequestID(EchoRequestID(Logger(logger)(okHandler())))

	req := httptest.NewRequest(http.MethodGet, "/v1/contents/x/image", nil)
	req.Header.Set(chimw.RequestIDHeader, "rid-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Request-ID"); got != "rid-123" {
		t.Fatalf("X-Request-ID = %q", got)
	}
	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if line["request_id"] != "rid-123" || line["path"] != "/v1/contents/x/image" {
		t.Fatalf("unexpected log line: %v", line)
	}
	if line["status"] != float64(http.StatusAccepted) || line["bytes"] != float64(2) {
		t.Fatalf("unexpected status/bytes: %v", line)
	}
	if line["level"] != "info" {
		t.Fatalf("level = %v", line["level"])
	}
}

func TestLoggerDemotesProbes(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.InfoLevel)
	h := Logger(logger)(okHandler())

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	if strings.TrimSpace(buf.String()) != "" {
		t.Fatalf("expected health probe below info level, got %q", buf.String())
	}
}
