package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

type ctxKey struct{}

func userFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(ctxKey{}).(int64)
	return id
}

// authed requires a valid bearer token and stores its user in the request context.
func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		user, err := s.deps.Tokens.Verify(token)
		if err != nil {
			s.log.Debug("token rejected", "err", err)
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, user)))
	}
}

// operator additionally requires the token's user to be logged in.
func (s *Server) operator(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.deps.Gate.IsAuthenticated(userFrom(r.Context())) {
			writeError(w, http.StatusForbidden, "not logged in")
			return
		}
		next(w, r)
	}
}

// limited applies the per-user message rate.
func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiters.allow(strconv.FormatInt(userFrom(r.Context()), 10)) {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "too many messages")
			return
		}
		next(w, r)
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.log.Debug("request", "method", r.Method, "path", r.URL.Path, "status", sw.status, "took", time.Since(start))
	})
}

// ── Rate limiting ──

// limiters keeps one token bucket per key. Buckets of idle keys expire.
type limiters struct {
	limit rate.Limit
	burst int
	mu    sync.Mutex
	cache *cache.Cache
}

func newLimiters(perSecond float64, burst int) *limiters {
	if burst < 1 {
		burst = 1
	}
	return &limiters{
		limit: rate.Limit(perSecond),
		burst: burst,
		cache: cache.New(10*time.Minute, 20*time.Minute),
	}
}

func (l *limiters) allow(key string) bool {
	if l.limit <= 0 {
		return true
	}
	l.mu.Lock()
	v, ok := l.cache.Get(key)
	if !ok {
		v = rate.NewLimiter(l.limit, l.burst)
	}
	l.cache.Set(key, v, cache.DefaultExpiration)
	l.mu.Unlock()
	return v.(*rate.Limiter).Allow()
}
