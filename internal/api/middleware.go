package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

// exchange is the request-scoped state shared between the handlers and
// the access log.
type exchange struct {
	// site is set once the Site header names a configured site
	site string

	// messages are the reasons collected while handling the request
	messages []string
}

type exchangeKey struct{}

func exchangeFrom(ctx context.Context) *exchange {
	if ex, ok := ctx.Value(exchangeKey{}).(*exchange); ok {
		return ex
	}
	return &exchange{}
}

func (e *exchange) note(format string, args ...any) {
	e.messages = append(e.messages, fmt.Sprintf(format, args...))
}

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rr *statusRecorder) WriteHeader(status int) {
	rr.status = status
	rr.ResponseWriter.WriteHeader(status)
}

// instrument records metrics and writes the access log around next.
func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ex := &exchange{}
		r = r.WithContext(context.WithValue(r.Context(), exchangeKey{}, ex))
		rr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		start := time.Now()
		next.ServeHTTP(rr, r)
		duration := time.Since(start)

		// The mux stores the matched pattern on the request it was given
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		if h.metrics != nil {
			h.metrics.RecordRequest(route, r.Method, rr.status, duration)
		}
		if route != RouteHealth {
			h.accessLog.Write(ex.site, r, rr.status, ex.messages)
		}
	})
}

// rateLimit rejects clients that exceed their token bucket with 429.
func (h *Handler) rateLimit(next http.Handler) http.Handler {
	if !h.limiter.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" && !h.limiter.Allow(clientIP(r.RemoteAddr)) {
			exchangeFrom(r.Context()).note("Rate limit exceeded for %s", clientIP(r.RemoteAddr))
			if h.metrics != nil {
				h.metrics.RecordRateLimited()
			}
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "Too many requests", "Rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limitBody caps the request body size.
func (h *Handler) limitBody(next http.Handler) http.Handler {
	if h.maxBodyBytes <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
		next.ServeHTTP(w, r)
	})
}

func clientIP(remoteAddr string) string {
	if remoteAddr == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
