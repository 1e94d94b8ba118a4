package middleware

import (
	"context"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// EchoRequestID returns the id assigned by chi's RequestID middleware in the
// X-Request-ID response header.
func EchoRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rid := chimw.GetReqID(r.Context()); rid != "" {
			w.Header().Set(chimw.RequestIDHeader, rid)
		}
		next.ServeHTTP(w, r)
	})
}

func RequestIDFromContext(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}
