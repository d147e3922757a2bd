package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles each client IP to maxRequests per window.
type RateLimiter struct {
	mu          sync.Mutex
	visitors    map[string]*visitor
	limit       rate.Limit
	maxRequests int
	window      time.Duration
	skip        map[string]bool
	now         func() time.Time
}

// NewRateLimiter creates a limiter. Requests to skipPaths are never counted.
func NewRateLimiter(maxRequests int, window time.Duration, skipPaths ...string) *RateLimiter {
	if maxRequests < 1 {
		maxRequests = 1
	}
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}
	return &RateLimiter{
		visitors:    make(map[string]*visitor),
		limit:       rate.Every(window / time.Duration(maxRequests)),
		maxRequests: maxRequests,
		window:      window,
		skip:        skip,
		now:         time.Now,
	}
}

func (rl *RateLimiter) visitor(ip string) *visitor {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.maxRequests)}
		rl.visitors[ip] = v
	}
	v.lastSeen = rl.now()
	return v
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	retryAfter := strconv.Itoa(int(math.Ceil(rl.window.Seconds())))
	limit := strconv.Itoa(rl.maxRequests)

	return func(c *gin.Context) {
		if rl.skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		v := rl.visitor(c.ClientIP())
		allowed := v.limiter.AllowN(rl.now(), 1)
		remaining := int(math.Max(0, math.Floor(v.limiter.TokensAt(rl.now()))))

		c.Header("X-RateLimit-Limit", limit)
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"message": "Rate limit exceeded. Please try again later.",
				"code":    "rate_limited",
			})
			return
		}
		c.Next()
	}
}

// Sweep forgets clients idle for longer than three windows, and at least a
// minute.
func (rl *RateLimiter) Sweep() {
	expiry := rl.window * 3
	if expiry < time.Minute {
		expiry = time.Minute
	}
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > expiry {
			delete(rl.visitors, ip)
		}
	}
}

// RunJanitor sweeps every minute until ctx is done.
func (rl *RateLimiter) RunJanitor(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Sweep()
		}
	}
}

func (rl *RateLimiter) clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}
