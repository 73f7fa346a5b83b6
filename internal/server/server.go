// Package server implements the HTTP server that exposes the chat service,
// the contact form, and the static site assets.
// The server is started by the `sitechat serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quillhaven/sitechat/internal/logging"
	"github.com/quillhaven/sitechat/internal/mailer"
)

// New constructs a Server from the provided chat service, mailer, and config.
// The mailer may be nil; POST /contact then responds 503.
func New(svc answerer, m mailer.Mailer, cfg *Config) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("server: chat service must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// WriteTimeout must cover the slowest generation.
		cfg.WriteTimeout = 2 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.ChatTimeout == 0 {
		cfg.ChatTimeout = 90 * time.Second
	}
	if cfg.ContactTimeout == 0 {
		cfg.ContactTimeout = 15 * time.Second
	}
	if cfg.StaticDir == "" {
		cfg.StaticDir = "./web"
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.MetricsRegistry == nil {
		cfg.MetricsRegistry = prometheus.DefaultRegisterer
	}
	if cfg.MetricsGatherer == nil {
		cfg.MetricsGatherer = prometheus.DefaultGatherer
	}

	log := cfg.Logger
	if log == nil {
		log = logging.New()
	}
	if cfg.APIKey == "" {
		log.Info("server: API authentication disabled")
	}

	s := &Server{
		answerer: svc,
		mailer:   m,
		cfg:      cfg,
		log:      log,
		pingers:  cfg.Pingers,
		metrics:  newServerMetrics(cfg.MetricsRegistry),
	}

	rl, stopRL := newRateLimiter(cfg.RateLimit, cfg.RateBurst, log)
	s.stopRL = stopRL

	// Rate limiting and auth apply to the API endpoints only; static assets,
	// probes, and metrics stay open.
	api := func(name string, h http.HandlerFunc) http.Handler {
		return s.metrics.instrument(name, authMiddleware(cfg.APIKey, rl.middleware(h)))
	}

	mux := http.NewServeMux()
	mux.Handle("POST /chat", api("chat", s.handleChat))
	mux.Handle("POST /contact", api("contact", s.handleContact))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.MetricsGatherer, promhttp.HandlerOpts{}))
	mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(log, mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server listening", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.stopRL()
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		s.stopRL()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleChat handles POST /chat. It validates the request, invokes the chat
// service, and relays the generated answer verbatim.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message is required"})
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = clientIP(r)
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ChatTimeout)
	defer cancel()

	start := time.Now()
	answer, err := s.answerer.Answer(ctx, sessionID, req.Message)
	elapsed := time.Since(start)

	if err != nil {
		outcome := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = "timeout"
		}
		s.metrics.chatRequestsTotal.WithLabelValues(outcome).Inc()
		s.metrics.chatDurationSeconds.WithLabelValues(outcome).Observe(elapsed.Seconds())
		log.Error("chat: generation failed", slog.Any("error", err))
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "failed to generate a response"})
		return
	}

	s.metrics.chatRequestsTotal.WithLabelValues("ok").Inc()
	s.metrics.chatDurationSeconds.WithLabelValues("ok").Observe(elapsed.Seconds())
	writeJSON(w, http.StatusOK, chatResponse{Response: answer})
}

// handleContact handles POST /contact. Valid submissions are delivered by the
// configured mailer; delivery failures surface as 502.
func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	if s.mailer == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "contact form is not configured"})
		return
	}

	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	sub := &mailer.Submission{Name: req.Name, Email: req.Email, Message: req.Message}
	if err := sub.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ContactTimeout)
	defer cancel()

	if err := s.mailer.Send(ctx, sub); err != nil {
		s.metrics.contactRequestsTotal.WithLabelValues("error").Inc()
		log.Error("contact: delivery failed", slog.Any("error", err))
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "failed to send message"})
		return
	}

	s.metrics.contactRequestsTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusAccepted, contactResponse{Status: "sent"})
}

// handleHealth handles GET /healthz for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON encodes v as the response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
