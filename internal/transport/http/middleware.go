package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"meldish/internal/platform/config"
	"meldish/internal/ratelimit"
	dErrors "meldish/pkg/domain-errors"
	"meldish/pkg/httputil"
	"meldish/pkg/requestcontext"
)

// requestID assigns each request an ID, honoring one supplied by an
// upstream proxy.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(requestcontext.WithRequestID(r.Context(), reqID)))
	})
}

// requestTime pins one timestamp for the whole request so every expiry
// check and audit entry agrees on "now".
func requestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), requestcontext.Now(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientMetadata extracts client IP, User-Agent, and a readable device
// label into the context.
func clientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := r.Header.Get("User-Agent")
		ctx := requestcontext.WithClientMetadata(r.Context(), clientIPFromRequest(r), ua)
		ctx = requestcontext.WithDeviceLabel(ctx, deviceLabel(ua))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// deviceLabel turns a raw User-Agent into "Chrome on Linux" for audit
// entries and session listings.
func deviceLabel(rawUA string) string {
	if rawUA == "" {
		return "unknown device"
	}
	parsed := useragent.New(rawUA)
	browser, _ := parsed.Browser()
	os := parsed.OS()
	switch {
	case browser != "" && os != "":
		return fmt.Sprintf("%s on %s", browser, os)
	case browser != "":
		return browser
	case os != "":
		return os
	default:
		return "unknown device"
	}
}

// clientIPFromRequest extracts the real client IP, handling proxies.
func clientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}
	return "unknown"
}

// rateLimitByIP throttles a route group per client IP.
func rateLimitByIP(limiter *ratelimit.Limiter, scope string, cfg config.RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := requestcontext.ClientIP(r.Context())
			res := limiter.Allow(r.Context(), scope, ip, cfg.RegistrationLimit, cfg.Window)
			if !res.Allowed {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(res.RetryAfter.Seconds())))
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests, slow down"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
