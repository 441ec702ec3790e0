package server

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/54b3r/docqa-go/internal/logging"
)

const (
	// defaultRateLimit is the sustained requests/second allowed per client
	// IP when no explicit limit is configured. Query and upload handlers
	// both fan out to model backends, so the default is conservative.
	defaultRateLimit = 10

	// defaultRateBurst absorbs short spikes (a client uploading a handful
	// of documents back to back) without rejections.
	defaultRateBurst = 20

	// evictInterval is how often stale per-IP buckets are swept.
	evictInterval = time.Minute

	// evictAfter is how long an IP may stay idle before its bucket is
	// dropped. Bounds the limiter map for long-running servers.
	evictAfter = 5 * time.Minute
)

// ipLimiter pairs a token bucket with the last time its IP made a request.
type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter enforces a per-IP token-bucket limit on the API endpoints.
// One instance is shared by all rate-limited routes of a Server.
type rateLimiter struct {
	// mu protects the limiters map.
	mu sync.Mutex
	// limiters maps client IP to its bucket state.
	limiters map[string]*ipLimiter
	// rps is the sustained per-IP rate.
	rps rate.Limit
	// burst is the per-IP bucket capacity.
	burst int
	// log records rejected requests.
	log *slog.Logger
}

// newRateLimiter builds a rateLimiter and starts its eviction sweeper.
// Calling the returned stop function ends the sweeper goroutine; the
// Server does this on shutdown.
func newRateLimiter(rps float64, burst int, log *slog.Logger) (*rateLimiter, func()) {
	rl := &rateLimiter{
		limiters: make(map[string]*ipLimiter),
		rps:      rate.Limit(rps),
		burst:    burst,
		log:      log,
	}

	stopCh := make(chan struct{})
	go func() {
		ticker := time.NewTicker(evictInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				rl.evict()
			}
		}
	}()

	return rl, func() { close(stopCh) }
}

// getLimiter returns the bucket for ip, creating it on first sight and
// refreshing its lastSeen either way.
func (rl *rateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.limiters[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

// evict drops buckets for IPs idle longer than evictAfter.
func (rl *rateLimiter) evict() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-evictAfter)
	for ip, entry := range rl.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.limiters, ip)
		}
	}
}

// middleware wraps next with the rate limit. Rejected requests get
// 429 with a Retry-After hint and a WARN log entry.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !rl.getLimiter(ip).Allow() {
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

// clientIP strips the port from RemoteAddr. X-Forwarded-For is ignored;
// the server binds to localhost and the direct peer is the client.
func clientIP(r *http.Request) string {
	addr := r.RemoteAddr
	if i := strings.LastIndexByte(addr, ':'); i >= 0 {
		return addr[:i]
	}
	return addr
}
