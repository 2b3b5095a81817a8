package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mandadito/backend/internal/handlers"
)

// RateLimiter allows limit requests per client IP in each fixed window.
func RateLimiter(limit int, window time.Duration, log *slog.Logger) func(http.Handler) http.Handler {
	type bucket struct {
		count int
		start time.Time
	}

	var (
		mu      sync.Mutex
		buckets = make(map[string]*bucket)
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			key := clientIP(r)

			mu.Lock()
			b, ok := buckets[key]
			if !ok || now.Sub(b.start) > window {
				b = &bucket{start: now}
				buckets[key] = b
			}

			if b.count >= limit {
				mu.Unlock()
				w.Header().Set("Retry-After", retryAfter(b.start.Add(window).Sub(now)))
				handlers.WriteJSON(w, http.StatusTooManyRequests, map[string]map[string]string{
					"error": {"kind": "rate_limited", "message": "rate limit exceeded"},
				})
				if log != nil {
					log.Warn("rate limit exceeded", "ip", key, "path", r.URL.Path)
				}
				return
			}

			b.count++
			mu.Unlock()

			next.ServeHTTP(w, r)
		})
	}
}

func retryAfter(d time.Duration) string {
	secs := int(d.Seconds()) + 1
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// clientIP prefers the first X-Forwarded-For hop, then RemoteAddr.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
