// Package trace tags every request with an ID and keeps lightweight
// in-process request counters. Request logging lives with the HTTP layer.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestIDHeader is echoed back to the client on every response.
const RequestIDHeader = "X-Request-ID"

// Metrics accumulates request counters since process start.
type Metrics struct {
	mu            sync.Mutex
	requests      int64
	errors        int64
	totalDuration time.Duration
}

func (m *Metrics) record(status int, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests++
	if status >= 500 {
		m.errors++
	}
	m.totalDuration += d
}

// Snapshot returns the counters at a point in time.
func (m *Metrics) Snapshot() (requests, errors int64, avg time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	requests, errors = m.requests, m.errors
	if m.requests > 0 {
		avg = m.totalDuration / time.Duration(m.requests)
	}
	return requests, errors, avg
}

// Middleware assigns request IDs and records per-request metrics.
type Middleware struct {
	metrics *Metrics
}

func New() *Middleware {
	return &Middleware{metrics: &Metrics{}}
}

func (m *Middleware) Metrics() *Metrics {
	return m.metrics
}

func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = GenerateRequestID()
		}
		w.Header().Set(RequestIDHeader, requestID)
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r.WithContext(ctx))

		m.metrics.record(rw.status, time.Since(start))
	})
}

// RequestIDFromContext returns the request ID set by Wrap, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// GenerateRequestID returns a random 16-hex-char identifier.
func GenerateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b)
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}
