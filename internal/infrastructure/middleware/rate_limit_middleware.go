package middleware

import (
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/pkg/config"
)

// clientLimiters hands out one token bucket per client IP. Buckets are never
// evicted; the relay's API surface is small and operator-facing, so the map
// stays bounded by the number of distinct callers.
type clientLimiters struct {
	mu    sync.RWMutex
	byKey map[string]*rate.Limiter
	limit rate.Limit
	burst int
}

func newClientLimiters(limit rate.Limit, burst int) *clientLimiters {
	return &clientLimiters{
		byKey: make(map[string]*rate.Limiter),
		limit: limit,
		burst: burst,
	}
}

func (l *clientLimiters) get(key string) *rate.Limiter {
	l.mu.RLock()
	limiter, ok := l.byKey[key]
	l.mu.RUnlock()
	if ok {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, ok := l.byKey[key]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(l.limit, l.burst)
	l.byKey[key] = limiter
	return limiter
}

// clientIP prefers X-Forwarded-For so limits apply to the original caller
// behind a proxy, but only when the header parses as a single address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := net.ParseIP(xff); ip != nil {
			return ip.String()
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// NewHTTPRateLimitMiddleware throttles the API per client IP, with an
// optional global cap on in-flight requests.
func NewHTTPRateLimitMiddleware(cfg *config.Config) gin.HandlerFunc {
	if !cfg.RateLimiting.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	limiters := newClientLimiters(
		rate.Limit(cfg.RateLimiting.HTTP.RequestsPerSecond),
		cfg.RateLimiting.HTTP.Burst,
	)

	var inflight chan struct{}
	if cfg.RateLimiting.HTTP.MaxConcurrent > 0 {
		inflight = make(chan struct{}, cfg.RateLimiting.HTTP.MaxConcurrent)
	}

	return func(c *gin.Context) {
		if inflight != nil {
			select {
			case inflight <- struct{}{}:
				defer func() { <-inflight }()
			default:
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
					"error": "too many concurrent requests",
				})
				return
			}
		}

		if !limiters.get(clientIP(c.Request)).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": 1,
			})
			return
		}
		c.Next()
	}
}
