// Package http serves the JSON API: transaction writes, the dashboard,
// account balances and the monthly income statement.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"fluxo/internal/config"
	applog "fluxo/internal/log"
	"fluxo/internal/middleware/trace"
	"fluxo/internal/services"
	"fluxo/internal/sheets"
)

type Server struct {
	httpServer   *http.Server
	handler      http.Handler
	transactions *services.TransactionService
	reports      *services.ReportService
	rateLimiter  *rateLimiter
	trace        *trace.Middleware
	logger       *applog.Logger
	now          func() time.Time
	shutdownOnce sync.Once
}

func NewServer(cfg *config.Config, transactions *services.TransactionService, reports *services.ReportService) *Server {
	s := &Server{
		transactions: transactions,
		reports:      reports,
		rateLimiter:  newRateLimiter(),
		trace:        trace.New(),
		now:          time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/api/transactions", s.withSecurityHeaders(s.handleTransactions))
	mux.HandleFunc("/api/transactions/", s.withSecurityHeaders(s.handleTransactionByID))
	mux.HandleFunc("/api/dashboard", s.withSecurityHeaders(s.handleDashboard))
	mux.HandleFunc("/api/balances", s.withSecurityHeaders(s.handleBalances))
	mux.HandleFunc("/api/reports/dre", s.withSecurityHeaders(s.handleDRE))
	mux.HandleFunc("/api/reports/trend", s.withSecurityHeaders(s.handleTrend))
	mux.HandleFunc("/api/reference", s.withSecurityHeaders(s.handleReference))

	// trace assigns the request ID, the log middlewares bind a request
	// scoped logger to the context, then the request is logged start/end.
	base := applog.New(applog.Config{Component: applog.ComponentHTTP})
	s.logger = base
	var handler http.Handler = s.withRequestLogging(mux)
	handler = applog.RequestIDMiddleware(func(r *http.Request) string {
		return trace.RequestIDFromContext(r.Context())
	})(handler)
	handler = applog.Middleware(base)(handler)
	s.handler = s.trace.Wrap(handler)
	s.httpServer = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		err = s.httpServer.Shutdown(ctx)
	})
	return err
}

// withRequestLogging logs the start and outcome of every request using the
// context logger bound by the log middlewares.
func (s *Server) withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		sl := applog.NewStructuredLogger(applog.FromContext(r.Context()))
		sl.LogHTTPStart(r.Context(), r, clientIP)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		sl.LogHTTPEnd(r.Context(), r, rec.status, time.Since(start).Milliseconds(), clientIP)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// withSecurityHeaders sets response hardening headers and rate limits
// mutating requests per client IP.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")

		if r.Method == http.MethodPost || r.Method == http.MethodDelete {
			clientIP := extractClientIP(r)
			if !s.rateLimiter.allow(clientIP) {
				applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
					applog.FieldClientIP, clientIP, applog.FieldPath, r.URL.Path)
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
		}
		next(w, r)
	}
}

// serverError logs the failure with its operation and answers 500 with a
// generic message; internals never leak to the client.
func (s *Server) serverError(w http.ResponseWriter, r *http.Request, op, msg string, err error) {
	sl := applog.NewStructuredLogger(applog.FromContext(r.Context()))
	sl.LogError(r.Context(), msg, err, applog.ComponentHTTP, op, applog.NewFields())
	writeError(w, http.StatusInternalServerError, msg)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports ready only when the reference tables can be loaded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if _, err := s.reports.Reference(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "backend not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	tx, err := parseTransactionRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.transactions.CreateTransaction(r.Context(), tx)
	if err != nil {
		s.serverError(w, r, applog.OpCreate, "failed to save transaction", err)
		return
	}

	sl := applog.NewStructuredLogger(applog.FromContext(r.Context()))
	sl.LogTransactionCreated(r.Context(), created.ID, string(created.Kind), created.Amount.Cents, created.CategoryID)
	writeJSON(w, http.StatusCreated, buildTransactionResponse(created))
}

func (s *Server) handleTransactionByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	if err := s.transactions.DeleteTransaction(r.Context(), id); err != nil {
		if errors.Is(err, sheets.ErrNotFound) {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		s.serverError(w, r, applog.OpDelete, "failed to delete transaction", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	summary, err := s.reports.Dashboard(r.Context())
	if err != nil {
		s.serverError(w, r, applog.OpRead, "failed to build dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, buildDashboardResponse(summary))
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	asOf, err := parseAsOf(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	balances, err := s.reports.Balances(r.Context(), asOf)
	if err != nil {
		s.serverError(w, r, applog.OpRead, "failed to compute balances", err)
		return
	}
	writeJSON(w, http.StatusOK, buildBalancesResponse(balances, asOf))
}

func (s *Server) handleDRE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	month, year, err := parseYearMonth(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := s.reports.MonthlyReport(r.Context(), month, year)
	if err != nil {
		s.serverError(w, r, applog.OpRead, "failed to build report", err)
		return
	}
	writeJSON(w, http.StatusOK, buildReportResponse(rep))
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	month, year, err := parseYearMonth(q, s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	months, err := parseTrendLength(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reports, err := s.reports.Trend(r.Context(), month, year, months)
	if err != nil {
		s.serverError(w, r, applog.OpList, "failed to build trend", err)
		return
	}
	out := make([]reportDTO, 0, len(reports))
	for _, rep := range reports {
		out = append(out, buildReportResponse(rep))
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": out})
}

func (s *Server) handleReference(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ref, err := s.reports.Reference(r.Context())
	if err != nil {
		s.serverError(w, r, applog.OpList, "failed to load reference tables", err)
		return
	}
	writeJSON(w, http.StatusOK, buildReferenceResponse(ref))
}
