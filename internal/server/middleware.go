package server

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"stock-analyst/internal/logger"
	"stock-analyst/internal/trace"
)

func applyMiddleware(h http.Handler) http.Handler {
	h = corsMiddleware(h)
	h = loggingMiddleware(h)
	h = recoveryMiddleware(h)
	return h
}

// responseWriter records the status code and body size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// Hijack lets websocket upgrades through the wrapper
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error(r.Context(), "Panic recovered in HTTP handler",
					"panic", fmt.Sprintf("%v", rec), "path", r.URL.Path)
				WriteError(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware times every request inside a server span. Panics are
// logged as failures and re-raised for recoveryMiddleware.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := trace.StartSpan(r.Context(), r.Method+" "+r.URL.Path,
			oteltrace.WithSpanKind(oteltrace.SpanKindServer),
			oteltrace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
			))
		defer span.End()

		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		defer func() {
			if rec := recover(); rec != nil {
				elapsed := time.Since(start).Seconds()
				msg := fmt.Sprintf("%s %s failed in %.3fs", r.Method, r.URL.Path, elapsed)
				logger.Error(ctx, msg, "panic", fmt.Sprintf("%v", rec))
				span.SetStatus(codes.Error, "panic")
				panic(rec)
			}
		}()

		next.ServeHTTP(rw, r.WithContext(ctx))

		elapsed := time.Since(start).Seconds()
		span.SetAttributes(attribute.Int("http.status_code", rw.statusCode))
		msg := fmt.Sprintf("%s %s %d completed in %.3fs", r.Method, r.URL.Path, rw.statusCode, elapsed)
		fields := []any{"method", r.Method, "path", r.URL.Path, "status", rw.statusCode, "bytes", rw.bytesWritten}
		switch {
		case rw.statusCode >= 500:
			span.SetStatus(codes.Error, http.StatusText(rw.statusCode))
			logger.Error(ctx, msg, fields...)
		case rw.statusCode >= 400:
			logger.Warn(ctx, msg, fields...)
		default:
			logger.Info(ctx, msg, fields...)
		}
	})
}
