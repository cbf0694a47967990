package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	apperrors "github.com/allisson/esign/internal/errors"
	"github.com/allisson/esign/internal/httputil"
)

const (
	limiterSweepInterval = 5 * time.Minute
	limiterIdleTTL       = time.Hour
)

// limiterStore keeps one token bucket per key. Idle buckets are swept lazily on access.
type limiterStore[K comparable] struct {
	mu        sync.Mutex
	limiters  map[K]*limiterEntry
	rps       float64
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

func newLimiterStore[K comparable](rps float64, burst int) *limiterStore[K] {
	return &limiterStore[K]{
		limiters:  make(map[K]*limiterEntry),
		rps:       rps,
		burst:     burst,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (s *limiterStore[K]) get(key K) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= limiterSweepInterval {
		for k, e := range s.limiters {
			if now.Sub(e.lastAccess) > limiterIdleTTL {
				delete(s.limiters, k)
			}
		}
		s.lastSweep = now
	}

	entry, ok := s.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(s.rps), s.burst)}
		s.limiters[key] = entry
	}
	entry.lastAccess = now
	return entry.limiter
}

func (s *limiterStore[K]) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// allowOrReject answers 429 with a Retry-After header when the limiter is exhausted.
func allowOrReject(c *gin.Context, limiter *rate.Limiter, message string) bool {
	if limiter.Allow() {
		return true
	}

	reservation := limiter.Reserve()
	retryAfter := int(reservation.Delay().Seconds())
	reservation.Cancel()
	if retryAfter < 1 {
		retryAfter = 1
	}

	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.JSON(http.StatusTooManyRequests, gin.H{
		"error":   "rate_limit_exceeded",
		"message": message,
	})
	c.Abort()
	return false
}

// RateLimitMiddleware limits requests per authenticated owner. It must run after
// AuthenticationMiddleware.
func RateLimitMiddleware(rps float64, burst int, logger *slog.Logger) gin.HandlerFunc {
	store := newLimiterStore[uuid.UUID](rps, burst)

	return func(c *gin.Context) {
		owner, ok := GetOwner(c.Request.Context())
		if !ok {
			logger.Error("rate limit middleware: no authenticated owner in context")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		if !allowOrReject(c, store.get(owner.ID), "Too many requests. Please retry after the specified delay.") {
			logger.Debug("rate limit exceeded", slog.String("owner_id", owner.ID.String()))
			return
		}
		c.Next()
	}
}

// IPRateLimitMiddleware limits requests per client IP. It guards the unauthenticated
// surfaces: token issuance and signing links.
func IPRateLimitMiddleware(rps float64, burst int, logger *slog.Logger) gin.HandlerFunc {
	store := newLimiterStore[string](rps, burst)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !allowOrReject(c, store.get(ip), "Too many requests from this IP. Please retry after the specified delay.") {
			logger.Debug("ip rate limit exceeded", slog.String("client_ip", ip))
			return
		}
		c.Next()
	}
}
