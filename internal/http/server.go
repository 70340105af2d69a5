package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	applog "github.com/GeniusFinance/house-gerencer/internal/log"
	"github.com/GeniusFinance/house-gerencer/internal/services"
)

type Server struct {
	http.Server
	reconcile *services.ReconcileService
	payments  *services.PaymentService
	proofs    services.ProofSaver

	rateLimiter  *rateLimiter
	metrics      securityMetrics
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server. proofDir, when non-empty, is served read-only under
// proofBaseURL so returned proof URLs resolve.
func NewServer(addr string, reconcile *services.ReconcileService, payments *services.PaymentService, proofs services.ProofSaver, proofDir, proofBaseURL string) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		reconcile:   reconcile,
		payments:    payments,
		proofs:      proofs,
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/api/charges", s.withMiddleware(s.handleCharges))
	mux.HandleFunc("/api/charges/unlinked", s.withMiddleware(s.handleUnlinkedCharges))
	mux.HandleFunc("/api/balance", s.withMiddleware(s.handleBalance))
	mux.HandleFunc("/api/payments", s.withMiddleware(s.handlePayments))
	mux.HandleFunc("/api/settle", s.withMiddleware(s.handleSettle))
	mux.HandleFunc("/api/proofs", s.withMiddleware(s.handleProofUpload))

	if proofDir != "" && proofBaseURL != "" {
		prefix := proofBaseURL + "/"
		files := http.StripPrefix(prefix, http.FileServer(http.Dir(proofDir)))
		mux.Handle(prefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "private, max-age=3600")
			files.ServeHTTP(w, r)
		}))
	}

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withMiddleware adds security headers, rate limiting and request logging.
// The request-scoped logger carries the request ID, so handlers and the
// services under them inherit it through the context.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		logger := applog.FromContext(r.Context()).With(applog.FieldRequestID, generateRequestID())
		ctx := applog.NewContext(r.Context(), logger)
		r = r.WithContext(ctx)

		sl := applog.NewStructuredLogger(logger)
		sl.LogHTTPStart(ctx, r, clientIP)

		// Mutations append to the ledger; rate limit them per client.
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP, &s.metrics) {
			logger.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				"rate_limit_hits", atomic.LoadInt64(&s.metrics.rateLimitHits))
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		sl.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
