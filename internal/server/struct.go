package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/quillhaven/sitechat/internal/mailer"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 0.0.0.0).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// ChatTimeout bounds the whole /chat request, retrieval plus generation.
	// Defaults to 90s.
	ChatTimeout time.Duration
	// ContactTimeout bounds a /contact delivery. Defaults to 15s.
	ContactTimeout time.Duration
	// StaticDir is the directory served at "/" (default: ./web).
	StaticDir string
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /readyz.
	// If empty, /readyz returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on POST /chat and POST /contact.
	// If empty, authentication is disabled (the usual mode for a public site).
	APIKey string
	// MetricsRegistry receives the server's Prometheus metrics. Defaults to
	// prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// answerer is the interface handleChat calls to produce a reply.
// *chat.Service satisfies it; tests inject a fake.
type answerer interface {
	// Answer generates a reply to the visitor's message within the session.
	Answer(ctx context.Context, sessionID, message string) (string, error)
}

// Server is the HTTP server that fronts the chat service.
type Server struct {
	// answerer produces chat replies; set to the chat service in production,
	// overridden by a fake in tests.
	answerer answerer
	// mailer delivers contact-form submissions. Nil disables POST /contact.
	mailer mailer.Mailer
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /readyz.
	pingers []Pinger
	// metrics holds the Prometheus instruments owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// chatRequest is the JSON body for POST /chat.
type chatRequest struct {
	// Message is the visitor's question.
	Message string `json:"message"`
	// SessionID ties turns of a conversation together. Optional; the client
	// IP is used when absent.
	SessionID string `json:"sessionId,omitempty"`
}

// chatResponse is the JSON body returned by POST /chat on success.
type chatResponse struct {
	// Response is the generated answer, relayed verbatim.
	Response string `json:"response"`
}

// errorResponse is the JSON body returned on request failures.
type errorResponse struct {
	// Error is a human-readable failure description.
	Error string `json:"error"`
}

// contactRequest is the JSON body for POST /contact.
type contactRequest struct {
	// Name is the sender's display name.
	Name string `json:"name"`
	// Email is the sender's reply address.
	Email string `json:"email"`
	// Message is the body of the enquiry.
	Message string `json:"message"`
}

// contactResponse is the JSON body returned by POST /contact on success.
type contactResponse struct {
	// Status is "sent" once the submission has been delivered.
	Status string `json:"status"`
}
