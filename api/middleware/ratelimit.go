package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/propscrape/config"
	"github.com/use-agent/propscrape/models"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL      = time.Hour
	limiterSweepEvery   = 5 * time.Minute
	rateLimitedResponse = "rate limit exceeded, please slow down"
)

// clientLimiters holds one token bucket per client IP.
type clientLimiters struct {
	mu      sync.Mutex
	rps     rate.Limit
	burst   int
	buckets map[string]*bucket
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiters(cfg config.RateLimitConfig) *clientLimiters {
	return &clientLimiters{
		rps:     rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
		buckets: make(map[string]*bucket),
	}
}

func (l *clientLimiters) get(ip string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[ip]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.buckets[ip] = b
	}
	b.lastSeen = now
	return b.limiter
}

// evict drops buckets not used since cutoff and reports how many remain.
func (l *clientLimiters) evict(cutoff time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, ip)
		}
	}
	return len(l.buckets)
}

// retryAfter is the whole number of seconds until one token is available.
func (l *clientLimiters) retryAfter() int {
	if l.rps <= 0 {
		return 1
	}
	return int(math.Ceil(1 / float64(l.rps)))
}

// RateLimit returns per-client-IP token-bucket rate limiting middleware.
//
// Buckets idle for an hour are swept every 5 minutes.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	limiters := newClientLimiters(cfg)

	go func() {
		ticker := time.NewTicker(limiterSweepEvery)
		defer ticker.Stop()
		for now := range ticker.C {
			limiters.evict(now.Add(-limiterIdleTTL))
		}
	}()

	return func(c *gin.Context) {
		if limiters.get(c.ClientIP(), time.Now()).Allow() {
			c.Next()
			return
		}
		c.Header("Retry-After", strconv.Itoa(limiters.retryAfter()))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ScrapeErrorResponse{
			Error: rateLimitedResponse,
			Code:  models.ErrCodeRateLimited,
		})
	}
}
