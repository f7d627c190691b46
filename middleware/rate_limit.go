package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/menfessboard/menfess/utils"
)

const limiterIdleTTL = 5 * time.Minute

type ipLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

type limiterSet struct {
	mu    sync.Mutex
	limit rate.Limit
	burst int
	byIP  map[string]*ipLimiter
}

// RateLimitMiddleware applies a per-IP token bucket allowing perMinute
// requests a minute with a burst of half that.
func RateLimitMiddleware(perMinute int) gin.HandlerFunc {
	set := &limiterSet{
		limit: rate.Every(time.Minute / time.Duration(max(perMinute, 1))),
		burst: max(perMinute/2, 1),
		byIP:  map[string]*ipLimiter{},
	}

	return func(ctx *gin.Context) {
		if !set.get(ctx.ClientIP()).Allow() {
			utils.Error(ctx, http.StatusTooManyRequests, 42901, "rate limit exceeded")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

func (s *limiterSet) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for k, l := range s.byIP {
		if now.After(l.expires) {
			delete(s.byIP, k)
		}
	}

	if l, ok := s.byIP[key]; ok {
		l.expires = now.Add(limiterIdleTTL)
		return l.limiter
	}
	l := &ipLimiter{limiter: rate.NewLimiter(s.limit, s.burst), expires: now.Add(limiterIdleTTL)}
	s.byIP[key] = l
	return l.limiter
}
