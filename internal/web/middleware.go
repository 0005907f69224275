package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/logctx"
)

// WithRequestContext assigns each request an id and stashes request data on
// the context so log records carry it.
func WithRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logctx.WithRequestData(r.Context(), &logctx.RequestData{
			RequestID: uuid.NewString(),
			Method:    r.Method,
			Path:      r.URL.Path,
			ClientIP:  ClientIP(r),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithRequestLogging wraps an http.Handler and logs each request with its
// status and duration.
func WithRequestLogging(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		lrw := &loggingResponseWriter{
			ResponseWriter: w,
			status:         http.StatusOK,
		}

		next.ServeHTTP(lrw, r)

		log.InfoContext(r.Context(), "http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", lrw.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

type loggingResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *loggingResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *loggingResponseWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
