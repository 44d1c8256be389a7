package middleware

import (
	"net/http"
	"sync"
	"time"

	"compost-be/internal/auth"
	"compost-be/internal/utils"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles per caller. Authenticated requests are keyed by
// user id, anonymous ones by remote IP. Admins get a higher tier since
// dashboards poll aggressively.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor

	anonRate  rate.Limit
	anonBurst int
	userRate  rate.Limit
	userBurst int
}

func NewRateLimiter() *RateLimiter {
	rl := &RateLimiter{
		visitors:  make(map[string]*visitor),
		anonRate:  rate.Limit(5),
		anonBurst: 10,
		userRate:  rate.Limit(20),
		userBurst: 40,
	}
	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) getLimiter(key string, r rate.Limit, burst int) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(r, burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

func (rl *RateLimiter) cleanup() {
	for {
		time.Sleep(3 * time.Minute)
		rl.mu.Lock()
		for key, v := range rl.visitors {
			if time.Since(v.lastSeen) > 10*time.Minute {
				delete(rl.visitors, key)
			}
		}
		rl.mu.Unlock()
	}
}

func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := "ip:" + c.RealIP()
			limit, burst := rl.anonRate, rl.anonBurst

			if claims, ok := utils.ClaimsFromContext(c.Request().Context()); ok {
				key = "user:" + claims.UserID.String()
				limit, burst = rl.userRate, rl.userBurst
				if claims.Role == auth.RoleAdmin {
					limit, burst = limit*2, burst*2
				}
			}

			if !rl.getLimiter(key, limit, burst).Allow() {
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
