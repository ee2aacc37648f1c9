package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/cppla/healthtracker/utils"
)

const limiterIdleTTL = 5 * time.Minute

type rateLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

// limiterSet holds one token bucket per client key.
type limiterSet struct {
	mu       sync.Mutex
	limiters map[string]*rateLimiter
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
}

// RateLimit allows maxRequests per window and client IP using a token bucket:
// the bucket starts full and refills evenly over the window.
func RateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	if maxRequests < 1 {
		maxRequests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	set := &limiterSet{
		limiters: map[string]*rateLimiter{},
		limit:    rate.Every(window / time.Duration(maxRequests)),
		burst:    maxRequests,
		idleTTL:  maxDuration(window, limiterIdleTTL),
	}

	return func(ctx *gin.Context) {
		limiter := set.get(ctx.ClientIP())
		reservation := limiter.Reserve()
		if delay := reservation.Delay(); delay > 0 {
			reservation.Cancel()
			ctx.Header("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			ctx.Header("RateLimit-Limit", strconv.Itoa(maxRequests))
			ctx.Header("RateLimit-Remaining", "0")
			utils.Error(ctx, http.StatusTooManyRequests, "Too many requests, please try again later.")
			ctx.Abort()
			return
		}
		ctx.Header("RateLimit-Limit", strconv.Itoa(maxRequests))
		ctx.Header("RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
		ctx.Next()
	}
}

func (s *limiterSet) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cleanupExpiredLocked()

	if rl, ok := s.limiters[key]; ok {
		rl.expires = time.Now().Add(s.idleTTL)
		return rl.limiter
	}
	rl := &rateLimiter{
		limiter: rate.NewLimiter(s.limit, s.burst),
		expires: time.Now().Add(s.idleTTL),
	}
	s.limiters[key] = rl
	return rl.limiter
}

func (s *limiterSet) cleanupExpiredLocked() {
	now := time.Now()
	for key, rl := range s.limiters {
		if now.After(rl.expires) {
			delete(s.limiters, key)
		}
	}
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
