package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/quillhaven/sitechat/internal/logging"
)

// probeTimeout bounds each dependency probe on /readyz. Short enough that a
// hung dependency makes the probe fail rather than the endpoint stall.
const probeTimeout = 5 * time.Second

// Pinger reports the reachability of one external dependency (the generation
// backend, the embedding backend, the SMTP server). Implementations must be
// safe for concurrent use.
type Pinger interface {
	// Ping returns nil when the dependency is reachable within ctx, and a
	// descriptive error otherwise.
	Ping(ctx context.Context) error

	// Name is the short label used in readiness responses (e.g. "gemini").
	Name() string
}

// readyCheck is one dependency's result within a readiness response.
type readyCheck struct {
	// Name is the dependency label.
	Name string `json:"name"`
	// OK reports whether the probe succeeded.
	OK bool `json:"ok"`
	// Error carries the failure reason when OK is false.
	Error string `json:"error,omitempty"`
}

// readyResponse is the JSON body of GET /readyz.
type readyResponse struct {
	// Ready is true only when every probe succeeded.
	Ready bool `json:"ready"`
	// Checks lists each dependency's result in registration order.
	Checks []readyCheck `json:"checks"`
}

// handleReady probes every registered Pinger and answers 200 when all pass,
// 503 when any fails. With no pingers registered it degrades to a liveness
// check. /healthz stays 200 through dependency outages; this endpoint is the
// one that tells a load balancer to stop routing chat traffic.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	resp := readyResponse{Ready: true}

	for _, p := range s.pingers {
		probeCtx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		err := p.Ping(probeCtx)
		cancel()

		check := readyCheck{Name: p.Name(), OK: err == nil}
		if err != nil {
			check.Error = err.Error()
			resp.Ready = false
			log.Warn("readiness probe failed",
				slog.String("dependency", p.Name()),
				slog.Any("error", err),
			)
		}
		resp.Checks = append(resp.Checks, check)
	}

	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error("ready encode error", slog.Any("error", err))
	}
}
