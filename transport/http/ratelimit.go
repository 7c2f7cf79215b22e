package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is a fixed-window request throttle keyed by account id when
// the request is authenticated and by client IP otherwise.
//
// Counters are per-process. Running multiple gateway instances divides
// each budget across them instead of sharing it; this deployment is
// explicitly non-clustered.
type RateLimiter struct {
	window         time.Duration
	max            int
	skipSuccessful bool

	mu        sync.Mutex
	windows   map[string]*rateWindow
	lastSweep time.Time
}

type rateWindow struct {
	start time.Time
	count int
}

// NewRateLimiter creates a limiter allowing max requests per window.
func NewRateLimiter(window time.Duration, max int) *RateLimiter {
	return &RateLimiter{
		window:    window,
		max:       max,
		windows:   make(map[string]*rateWindow),
		lastSweep: time.Now(),
	}
}

// SkipSuccessful makes only failed requests (status >= 400) consume
// budget. Used on credential endpoints so normal logins are never
// throttled while brute force attempts are.
func (l *RateLimiter) SkipSuccessful() *RateLimiter {
	l.skipSuccessful = true
	return l
}

// Middleware enforces the budget on every request.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return l.MiddlewareFor()
}

// MiddlewareFor enforces the budget only for the given methods; with no
// methods every request is counted.
func (l *RateLimiter) MiddlewareFor(methods ...string) gin.HandlerFunc {
	methodSet := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		methodSet[m] = struct{}{}
	}

	return func(c *gin.Context) {
		if len(methodSet) > 0 {
			if _, ok := methodSet[c.Request.Method]; !ok {
				c.Next()
				return
			}
		}

		key := l.keyFor(c)
		windowStart, ok := l.take(key)
		if !ok {
			// Already over budget: reject without further counting.
			respondError(c, http.StatusTooManyRequests, CodeRateLimited,
				"Too many requests, please try again later")
			return
		}

		c.Next()

		if l.skipSuccessful && c.Writer.Status() < http.StatusBadRequest {
			l.refund(key, windowStart)
		}
	}
}

func (l *RateLimiter) keyFor(c *gin.Context) string {
	if identity := Identity(c); identity != nil {
		return "account:" + identity.AccountID
	}
	return "ip:" + c.ClientIP()
}

// take consumes one unit of budget for the key, returning the start of
// the window it was charged to and false when the key is over budget.
// Expired windows are reset lazily on access and the whole map is swept
// once per window so it cannot grow unbounded.
func (l *RateLimiter) take(key string) (time.Time, bool) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.window {
		for k, w := range l.windows {
			if now.Sub(w.start) >= l.window {
				delete(l.windows, k)
			}
		}
		l.lastSweep = now
	}

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.window {
		l.windows[key] = &rateWindow{start: now, count: 1}
		return now, true
	}

	if w.count >= l.max {
		return time.Time{}, false
	}
	w.count++
	return w.start, true
}

// refund returns one unit of budget, but only to the window the unit was
// taken from: a refund for a window that has since rolled over must not
// debit the fresh one.
func (l *RateLimiter) refund(key string, windowStart time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if w, ok := l.windows[key]; ok && w.start.Equal(windowStart) && w.count > 0 {
		w.count--
	}
}
