package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/quillhaven/sitechat/internal/logging"
)

// defaultRateLimit is the sustained requests-per-second allowance per visitor
// IP on /chat and /contact. Generation is the expensive path, so the default
// is deliberately low for a public site.
const defaultRateLimit = 10

// defaultRateBurst is the per-IP burst capacity. A visitor clicking send a
// few times in quick succession should not be rejected.
const defaultRateBurst = 20

// visitorIdleTTL is how long an IP's bucket survives without traffic before
// the sweeper reclaims it.
const visitorIdleTTL = 5 * time.Minute

// visitor pairs a token bucket with its last-activity timestamp so idle
// entries can be reclaimed.
type visitor struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// rateLimiter enforces a per-IP token-bucket limit on the endpoints it wraps.
// A background sweeper bounds the visitor map on long-running servers.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
	log      *slog.Logger
}

// newRateLimiter constructs a rateLimiter and starts its sweeper goroutine.
// The returned stop function terminates the sweeper; call it on shutdown.
func newRateLimiter(rps float64, burst int, log *slog.Logger) (*rateLimiter, func()) {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
		log:      log,
	}

	done := make(chan struct{})
	go rl.sweepLoop(done)

	return rl, func() { close(done) }
}

// bucketFor returns the token bucket for ip, creating it on first sight and
// refreshing its last-seen timestamp.
func (rl *rateLimiter) bucketFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{bucket: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.bucket
}

// sweepLoop reclaims idle visitor entries once a minute until done is closed.
func (rl *rateLimiter) sweepLoop(done <-chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

// sweep drops every visitor not seen within visitorIdleTTL.
func (rl *rateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-visitorIdleTTL)
	for ip, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, ip)
		}
	}
}

// middleware wraps next with the per-IP limit. Rejected requests get 429
// with a Retry-After header and a WARN log entry.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !rl.bucketFor(ip).Allow() {
			logging.FromContext(r.Context()).Warn("rate limit exceeded",
				slog.String("ip", ip),
				slog.String("path", r.URL.Path),
			)
			w.Header().Set("Retry-After", "1")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP returns the request's remote IP with the port stripped. The
// X-Forwarded-For header is ignored: it is client-controlled, and trusting it
// would let anyone mint fresh rate-limit buckets per request.
func clientIP(r *http.Request) string {
	addr := r.RemoteAddr
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i]
		}
	}
	return addr
}
