// Package middleware holds the HTTP middleware used by the dev server.
package middleware

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/salvo/internal/logger"
)

// RequestIDHeader carries the request ID back to the caller.
const RequestIDHeader = "X-Request-Id"

// Logger tags each request with an ID and logs its method, path, status and
// duration. Bodies are logged at debug level, except for WebSocket upgrades.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := logger.NewRequestID()
		r = r.WithContext(logger.WithRequestID(r.Context(), requestID))
		w.Header().Set(RequestIDHeader, requestID)

		l := log.Logger.With().
			Str("requestId", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()

		upgrade := r.Header.Get("Upgrade") != ""
		if r.Body != nil && !upgrade {
			body, err := io.ReadAll(r.Body)
			if err == nil {
				logger.LogBody(l, "request", body)
				r.Body = io.NopCloser(bytes.NewReader(body))
			}
		}

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK, capture: !upgrade}
		next.ServeHTTP(rw, r)

		logger.LogBody(l, "response", rw.buf.Bytes())
		l.Info().
			Int("status", rw.status).
			Dur("durationMs", time.Since(start)).
			Msg("Request completed")
	})
}

// CORS adds Cross-Origin Resource Sharing headers.
func CORS(allowedOrigins string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// JSON sets the Content-Type header to application/json for all responses.
func JSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Chain applies middleware in order (first applied = outermost).
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// responseWriter records the status and, when capture is set, the body.
type responseWriter struct {
	http.ResponseWriter
	buf     bytes.Buffer
	status  int
	capture bool
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if w.capture {
		w.buf.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets WebSocket upgrades pass through the logging middleware.
func (w *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hj, ok := w.ResponseWriter.(http.Hijacker); ok {
		w.status = http.StatusSwitchingProtocols
		return hj.Hijack()
	}
	return nil, nil, fmt.Errorf("underlying ResponseWriter does not implement http.Hijacker")
}

// Flush forwards to the underlying writer when it supports flushing.
func (w *responseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
