// Package http serves the profit ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"farmprofit/internal/i18n"
	"farmprofit/internal/ledger"
	"farmprofit/internal/log"
)

// Deps are the collaborators the API serves.
type Deps struct {
	Ledger          *ledger.Store
	Translations    *i18n.Loader
	DefaultLanguage string
	LinesPerPage    int
	// Ready reports backend health for /readyz; nil means always ready.
	Ready     func(ctx context.Context) error
	RateLimit int // POST requests per client per minute
	Logger    *log.Logger
}

type Server struct {
	http.Server
	ledger       *ledger.Store
	translations *i18n.Loader
	defaultLang  string
	perPage      int
	ready        func(ctx context.Context) error

	logger      *log.Logger
	reqLogger   *log.StructuredLogger
	rateLimiter *rateLimiter
	metrics     securityMetrics

	stop         context.CancelFunc
	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}
	translations := deps.Translations
	if translations == nil {
		translations = i18n.NewLoader(i18n.Options{Logger: logger})
	}
	lang := deps.DefaultLanguage
	if lang == "" {
		lang = i18n.DefaultLanguage
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ledger:       deps.Ledger,
		translations: translations,
		defaultLang:  lang,
		perPage:      deps.LinesPerPage,
		ready:        deps.Ready,
		logger:       logger.WithComponent(log.ComponentHTTP),
		reqLogger:    log.NewStructuredLogger(logger),
		rateLimiter:  newRateLimiter(deps.RateLimit, time.Minute),
	}

	ctx, stop := context.WithCancel(context.Background())
	s.stop = stop
	go s.rateLimiter.run(ctx)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("POST /api/accounts", s.handleCreateAccount)
	mux.HandleFunc("GET /api/accounts/{id}", s.handleGetAccount)
	mux.HandleFunc("DELETE /api/accounts/{id}", s.handleDeleteAccount)

	mux.HandleFunc("POST /api/accounts/{id}/transactions", s.handleAddTransaction)
	mux.HandleFunc("PUT /api/accounts/{id}/transactions/{txID}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/accounts/{id}/transactions/{txID}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/charts", s.handleCharts)
	mux.HandleFunc("GET /api/report", s.handleReport)
	mux.HandleFunc("GET /api/translations/{lang}", s.handleTranslations)

	s.Handler = log.Middleware(logger)(s.withSecurityHeaders(mux))
	return s
}

// Shutdown stops background work and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// SecurityStats returns the rate limit and probing counters.
func (s *Server) SecurityStats() SecurityStats {
	return s.metrics.snapshot()
}

// withSecurityHeaders adds security headers, rate limits POST requests and
// logs every request.
func (s *Server) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		logger := log.FromContext(r.Context()).With(log.FieldRequestID, requestID)
		ctx := log.NewContext(r.Context(), logger)
		r = r.WithContext(ctx)
		s.reqLogger.LogHTTPStart(ctx, r, clientIP)

		if reason := suspiciousReason(r); reason != "" {
			atomic.AddInt64(&s.metrics.suspiciousRequests, 1)
			logger.WarnContext(ctx, "Suspicious request",
				log.FieldClientIP, clientIP,
				log.FieldPath, r.URL.Path,
				"reason", reason)
		}

		w.Header().Set("X-Request-ID", requestID)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP, &s.metrics) {
			logger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldPath, r.URL.Path)
			rw.Header().Set("Retry-After", "60")
			writeJSON(rw, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded, try again later"})
		} else {
			next.ServeHTTP(rw, r)
		}

		s.reqLogger.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	})
}

// responseWriter captures the status code for logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err.Error())
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
