package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/vinaykumargajjela/care-link-appointments/pkg/types"
)

type contextKey string

const sessionKey contextKey = "session_claims"

// sessionFromContext returns the claims stored by requireSession
func sessionFromContext(ctx context.Context) (*types.SessionClaims, bool) {
	claims, ok := ctx.Value(sessionKey).(*types.SessionClaims)
	return claims, ok
}

// corsMiddleware handles CORS headers
func (s *Service) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", "86400")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// securityHeadersMiddleware adds security headers
func (s *Service) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// recoveryMiddleware turns a panicking handler into a 500 response
func (s *Service) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				err := fmt.Errorf("panic: %v", rec)
				s.logger.WithContext(r.Context()).WithError(err).WithField("path", r.URL.Path).Error("Recovered from handler panic")
				if s.metrics != nil {
					s.metrics.RecordSystemError("panic", "api")
				}
				s.writeInternalError(w, err)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware applies per-client rate limiting. Health checks and
// metrics scrapes are exempt.
func (s *Service) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.rateLimiter == nil || !s.config.RateLimit.Enabled ||
			r.URL.Path == "/api/health" || r.URL.Path == s.config.Monitoring.MetricsPath {
			next.ServeHTTP(w, r)
			return
		}

		key := s.clientIP(r)
		if !s.rateLimiter.Allow(key) {
			_, limit := s.rateLimiter.Remaining(key)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			s.logger.WithContext(r.Context()).WithField("client_ip", key).Warn("Rate limit exceeded")
			s.writeError(w, http.StatusTooManyRequests, "Too many requests, please try again later")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requireSession validates the bearer token and stores its claims in the
// request context
func (s *Service) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			s.writeError(w, http.StatusUnauthorized, "Missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			s.writeError(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := s.tokens.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			s.logger.WithContext(r.Context()).WithError(err).Debug("Token validation failed")
			s.writeError(w, http.StatusUnauthorized, types.ErrUnauthorized.Message)
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), sessionKey, claims)))
	}
}

// clientIP returns the address the rate limiter keys on. X-Forwarded-For is
// only read when the peer is a trusted proxy; the client is then the
// right-most hop that is not itself a trusted proxy.
func (s *Service) clientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	if !s.trusted(peer) {
		return peer
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !s.trusted(hop) {
			return hop
		}
		peer = hop
	}
	return peer
}

func (s *Service) trusted(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, network := range s.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
