package web

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/sstent/activity-lookup/internal/logger"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RequestID tags each request with the caller's X-Request-ID or a new UUID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestLogger logs one line per request once the handler chain is done.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()

		var event *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			event = logger.Log.Error()
		case status >= http.StatusBadRequest:
			event = logger.Log.Warn()
		default:
			event = logger.Log.Info()
		}

		event.
			Str("request_id", c.GetString(requestIDKey)).
			Str("client_ip", c.ClientIP()).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client key. Idle buckets are
// dropped during lookups instead of by a background goroutine.
type RateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	perMinute int
	rate      rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewRateLimiter(requestsPerMinute int, burst int) *RateLimiter {
	return &RateLimiter{
		visitors:  make(map[string]*visitor),
		perMinute: requestsPerMinute,
		rate:      rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:     burst,
		idle:      10 * time.Minute,
		now:       time.Now,
	}
}

// GetLimiter returns the bucket for key, creating it on first use.
func (rl *RateLimiter) GetLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.idle {
		rl.sweep(now)
	}

	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now

	return v.limiter
}

func (rl *RateLimiter) sweep(now time.Time) {
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) >= rl.idle {
			delete(rl.visitors, key)
		}
	}
	rl.lastSweep = now
}

func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

// Middleware rejects clients that ran out of tokens with 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter := rl.GetLimiter(c.ClientIP())

		if !limiter.Allow() {
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(limiter)))
			abortWithError(c, http.StatusTooManyRequests, "rate_limited",
				fmt.Sprintf("too many requests, limit is %d per minute", rl.perMinute))
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
		c.Next()
	}
}

func retryAfterSeconds(l *rate.Limiter) int {
	if l.Limit() <= 0 {
		return 60
	}
	secs := int((1 - l.Tokens()) / float64(l.Limit()))
	if secs < 1 {
		secs = 1
	}
	return secs
}
