package httpapi

import (
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/gevengood/red-esperanza-backend/internal/service"
	"github.com/gevengood/red-esperanza-backend/internal/store"

	"go.uber.org/zap"
)

// Middleware wraps a handler.
type Middleware func(next http.Handler) http.Handler

// Chain applies mws so that the first one is outermost.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// statusRecorder captures the status code for request logs.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// Recover turns a handler panic into a 500 envelope.
func Recover(logger *zap.Logger, production bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("Panic recovered",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()),
				)
				res := Fail("Error interno del servidor")
				if !production {
					res.Detail = fmt.Sprint(rec)
				}
				writeJSON(w, http.StatusInternalServerError, res)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RealIP replaces RemoteAddr with the address reported by the fronting
// proxy. Only install it when the server is reachable solely through that
// proxy; otherwise X-Forwarded-For is attacker-controlled.
func RealIP() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ip := forwardedFor(r); ip != "" {
				r.RemoteAddr = net.JoinHostPort(ip, "0")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger logs one line per request.
func RequestLogger(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			if rec.status == 0 {
				rec.status = http.StatusOK
			}
			logger.Info("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Int("bytes", rec.bytes),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_ip", clientIP(r)),
			)
		})
	}
}

// CORS allows the configured front-end origin with credentials.
func CORS(origin string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
				h.Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit is a fixed-window counter per client IP on /api/ paths, kept in
// kv so that every instance shares the same windows. A kv failure lets the
// request through.
func RateLimit(kv store.KV, window time.Duration, max int, logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		if max <= 0 || window <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				next.ServeHTTP(w, r)
				return
			}

			now := time.Now()
			windowStart := now.Truncate(window)
			key := fmt.Sprintf("ratelimit:%s:%d", clientIP(r), windowStart.Unix())
			n, err := kv.Incr(r.Context(), key, window)
			if err != nil {
				logger.Warn("Rate limit counter unavailable", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			remaining := int64(max) - n
			if remaining < 0 {
				remaining = 0
			}
			reset := windowStart.Add(window).Sub(now)
			w.Header().Set("RateLimit-Limit", strconv.Itoa(max))
			w.Header().Set("RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			w.Header().Set("RateLimit-Reset", strconv.Itoa(int(reset.Seconds())))

			if n > int64(max) {
				w.Header().Set("Retry-After", strconv.Itoa(int(reset.Seconds())+1))
				writeJSON(w, http.StatusTooManyRequests, Fail(service.MsgTooManyRequests))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
