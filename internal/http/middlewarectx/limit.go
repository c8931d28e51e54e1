package middlewarectx

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/article-insights/internal/http/response"
)

const (
	limiterIdleTTL = 10 * time.Minute
	maxLimiters    = 10000
)

type visitor struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter ограничивает частоту запросов отдельно для каждой учётной записи.
// Анонимные запросы ограничиваются по адресу клиента.
// Ограничители, не использовавшиеся дольше limiterIdleTTL, удаляются.
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*visitor
	rps       rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter создаёт RateLimiter с rps запросами в секунду и запасом burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters:  make(map[string]*visitor),
		rps:       rate.Limit(rps),
		burst:     burst,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (l *RateLimiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= limiterIdleTTL {
		l.sweep(now)
	}

	v, ok := l.limiters[key]
	if !ok {
		if len(l.limiters) >= maxLimiters {
			l.sweep(now)
			if len(l.limiters) >= maxLimiters {
				l.evictOldest()
			}
		}
		v = &visitor{lim: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[key] = v
	}
	v.lastSeen = now
	return v.lim
}

func (l *RateLimiter) sweep(now time.Time) {
	for key, v := range l.limiters {
		if now.Sub(v.lastSeen) >= limiterIdleTTL {
			delete(l.limiters, key)
		}
	}
	l.lastSweep = now
}

func (l *RateLimiter) evictOldest() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for key, v := range l.limiters {
		if oldestKey == "" || v.lastSeen.Before(oldest) {
			oldestKey, oldest = key, v.lastSeen
		}
	}
	delete(l.limiters, oldestKey)
}

// Middleware возвращает HTTP middleware ограничения частоты.
func (l *RateLimiter) Middleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := AccountIDFrom(r.Context())
			if !ok {
				key = clientAddr(r)
			}
			if !l.limiter(key).Allow() {
				log.Warn("too many requests", slog.String("key", key))
				resp := response.Error("RATE_LIMITED")
				resp.Message = "too many requests"
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, resp)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
