package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// errorRecorder is implemented by response writers that keep the internal
// error behind a failed response for the access log.
type errorRecorder interface {
	RecordError(message string)
}

// recordError notes message on w when the access log wrapped it.
func recordError(w http.ResponseWriter, message string) {
	if rec, ok := w.(errorRecorder); ok {
		rec.RecordError(message)
	}
}

type accessRecorder struct {
	middleware.WrapResponseWriter
	failure string
}

func (w *accessRecorder) RecordError(message string) { w.failure = message }

func (w *accessRecorder) Flush() {
	if f, ok := w.WrapResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// status reports 200 for handlers that wrote a body without a header.
func (w *accessRecorder) status() int {
	if code := w.Status(); code != 0 {
		return code
	}
	return http.StatusOK
}

// requestLoggingMiddleware writes one line per request. The session id is
// read back from the response header the session middleware sets.
func requestLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			began := time.Now()
			rec := &accessRecorder{WrapResponseWriter: middleware.NewWrapResponseWriter(w, r.ProtoMajor)}
			next.ServeHTTP(rec, r)

			code := rec.status()
			attrs := append(requestAttrs(r),
				slog.String("session", rec.Header().Get(sessionHeader)),
				slog.Int("status", code),
				slog.Int("bytes", rec.BytesWritten()),
				slog.Int64("duration_ms", time.Since(began).Milliseconds()),
			)
			if rec.failure != "" {
				attrs = append(attrs, slog.String("error_message", rec.failure))
			}
			logger.LogAttrs(r.Context(), levelForStatus(code), "http request completed", attrs...)
		})
	}
}

func levelForStatus(code int) slog.Level {
	switch {
	case code >= http.StatusInternalServerError:
		return slog.LevelError
	case code >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// recoveryLoggingMiddleware turns a handler panic into a logged 500. Nothing
// is written when the handler already sent a status.
func recoveryLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				logPanic(r.Context(), logger, r, recovered)
				if sw, ok := w.(interface{ Status() int }); ok && sw.Status() != 0 {
					return
				}
				writeError(w, r, http.StatusInternalServerError, "internal server error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func logPanic(ctx context.Context, logger *slog.Logger, r *http.Request, recovered any) {
	attrs := append(requestAttrs(r),
		slog.String("panic", fmt.Sprint(recovered)),
		slog.String("stack", string(debug.Stack())),
	)
	logger.LogAttrs(ctx, slog.LevelError, "panic recovered", attrs...)
}

func requestAttrs(r *http.Request) []slog.Attr {
	route := ""
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		route = rctx.RoutePattern()
	}
	return []slog.Attr{
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("route", route),
		slog.String("query", r.URL.RawQuery),
		slog.String("remote_ip", r.RemoteAddr),
		slog.String("user_agent", r.UserAgent()),
	}
}
