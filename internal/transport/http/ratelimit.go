package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// SlidingWindowStore is a middleware.RateLimiterStore that allows at most
// limit requests per identifier within any window-long interval.
type SlidingWindowStore struct {
	mu        sync.Mutex
	window    time.Duration
	limit     int
	hits      map[string][]time.Time
	lastSweep time.Time
	now       func() time.Time
}

// NewSlidingWindowStore creates a store with the given window and ceiling.
func NewSlidingWindowStore(window time.Duration, limit int) *SlidingWindowStore {
	return &SlidingWindowStore{
		window: window,
		limit:  limit,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow implements middleware.RateLimiterStore.
func (s *SlidingWindowStore) Allow(identifier string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cutoff := now.Add(-s.window)
	if now.Sub(s.lastSweep) >= s.window {
		s.sweep(cutoff)
		s.lastSweep = now
	}

	hits := prune(s.hits[identifier], cutoff)
	if len(hits) >= s.limit {
		s.hits[identifier] = hits
		return false, nil
	}
	s.hits[identifier] = append(hits, now)
	return true, nil
}

// sweep drops identifiers with no hits inside the window.
func (s *SlidingWindowStore) sweep(cutoff time.Time) {
	for id, hits := range s.hits {
		if hits = prune(hits, cutoff); len(hits) == 0 {
			delete(s.hits, id)
		} else {
			s.hits[id] = hits
		}
	}
}

// prune drops timestamps at or before cutoff. hits is in ascending order.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}

// NewRateLimiter returns echo's rate limiter middleware backed by a
// SlidingWindowStore keyed by client address.
func NewRateLimiter(window time.Duration, limit int, rejected prometheus.Counter) echo.MiddlewareFunc {
	return newRateLimiter(NewSlidingWindowStore(window, limit), rejected)
}

func newRateLimiter(store middleware.RateLimiterStore, rejected prometheus.Counter) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, map[string]interface{}{
				"success": false,
				"error":   "unable to identify caller",
			})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			if rejected != nil {
				rejected.Inc()
			}
			return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
				"success": false,
				"error":   "too many requests, please try again later",
			})
		},
	})
}
