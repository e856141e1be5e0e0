package middleware

import (
	"net/http"
	"roomtrack/pkg/logger"
	"sync"
	"time"
)

// BadgeExtractor pulls the badge identifier a request should be limited by.
type BadgeExtractor func(r *http.Request) string

// BadgeRateLimiter caps how many admission requests a single badge may make
// within a sliding window. Requests without a badge identifier bypass the
// limiter entirely.
type BadgeRateLimiter struct {
	mu             sync.RWMutex
	requests       map[string][]time.Time
	limit          int
	window         time.Duration
	badgeExtractor BadgeExtractor
	log            *logger.Logger
	stopCh         chan struct{}
}

func NewBadgeRateLimiter(limit int, window time.Duration, extractor BadgeExtractor, log *logger.Logger) *BadgeRateLimiter {
	limiter := &BadgeRateLimiter{
		requests:       make(map[string][]time.Time),
		limit:          limit,
		window:         window,
		badgeExtractor: extractor,
		log:            log,
		stopCh:         make(chan struct{}),
	}

	go limiter.cleanup()

	return limiter
}

func (rl *BadgeRateLimiter) cleanup() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			for badge, timestamps := range rl.requests {
				if len(timestamps) == 0 || time.Since(timestamps[len(timestamps)-1]) > rl.window {
					delete(rl.requests, badge)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *BadgeRateLimiter) Stop() {
	close(rl.stopCh)
}

func (rl *BadgeRateLimiter) Allow(badge string) bool {
	if badge == "" {
		return true
	}

	now := time.Now()

	rl.mu.RLock()
	timestamps := rl.requests[badge]
	rl.mu.RUnlock()

	validTimestamps := make([]time.Time, 0)
	for _, ts := range timestamps {
		if now.Sub(ts) < rl.window {
			validTimestamps = append(validTimestamps, ts)
		}
	}

	if len(validTimestamps) >= rl.limit {
		return false
	}

	validTimestamps = append(validTimestamps, now)

	rl.mu.Lock()
	rl.requests[badge] = validTimestamps
	rl.mu.Unlock()

	return true
}

func BadgeRateLimit(limiter *BadgeRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			badge := extractBadge(r, limiter.badgeExtractor)

			if badge == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !limiter.Allow(badge) {
				rejectRateLimited(w, limiter.log, r, badge)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func extractBadge(r *http.Request, extractor BadgeExtractor) string {
	if extractor == nil {
		return r.Header.Get("X-Badge-Id")
	}
	return extractor(r)
}

func rejectRateLimited(w http.ResponseWriter, log *logger.Logger, r *http.Request, badge string) {
	log.Warn("Rate limit exceeded",
		"request_id", requestIDFromContext(r.Context()),
		"badge", badge,
		"path", r.URL.Path,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`{"error":"Rate limit exceeded"}`))
}

func DefaultBadgeExtractor(r *http.Request) string {
	return r.Header.Get("X-Badge-Id")
}
