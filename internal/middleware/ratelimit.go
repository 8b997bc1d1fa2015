package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"degentalk-backend/internal/models"
	"degentalk-backend/internal/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	// Entries idle for this long are dropped so the per-key map does not
	// grow for the life of the process.
	limiterIdleTTL    = 10 * time.Minute
	limiterSweepEvery = time.Minute
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles requests per user (falling back to client IP for
// anonymous callers). This is transport-level protection for the economy
// endpoints; the domain-level cooldowns and daily caps live in the rate
// guard service.
type RateLimiter struct {
	entries   map[string]*limiterEntry
	mu        sync.Mutex
	rate      rate.Limit
	burst     int
	lastSweep time.Time
}

func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		entries:   make(map[string]*limiterEntry),
		rate:      rate.Limit(requestsPerSecond),
		burst:     burst,
		lastSweep: time.Now(),
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastSweep) >= limiterSweepEvery {
		for k, e := range rl.entries {
			if now.Sub(e.lastSeen) >= limiterIdleTTL {
				delete(rl.entries, k)
			}
		}
		rl.lastSweep = now
	}

	entry, exists := rl.entries[key]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.entries[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// Handler is the gin middleware.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if u, exists := c.Get("user"); exists {
			if user, ok := u.(models.User); ok {
				key = "user:" + strconv.FormatUint(uint64(user.ID), 10)
			}
		}

		if !rl.getLimiter(key).Allow() {
			c.JSON(http.StatusTooManyRequests,
				utils.NewErrorResponse(http.StatusTooManyRequests, "Too many requests, slow down"))
			c.Abort()
			return
		}

		c.Next()
	}
}
