// Package api implements the FileBrowse HTTP API on top of the per-site
// browser services.
//
// Routes:
//
//	GET  /api/v1/GetFiles                       list a directory
//	GET  /api/v1/GetFiles/{sessionId}/{offset}  resume a paging session
//	POST /api/v1/PostFiles                      upload a batch of files
//	GET  /healthz                               liveness probe
//
// Every API request is authenticated with a static token and names its site
// in the Site header. One access log line is written per request.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/marmos91/filebrowse/internal/ratelimiter"
	"github.com/marmos91/filebrowse/pkg/browser"
)

// Route patterns.
const (
	RouteGetFiles       = "GET /api/v1/GetFiles"
	RouteResumeGetFiles = "GET /api/v1/GetFiles/{sessionId}/{offset}"
	RoutePostFiles      = "POST /api/v1/PostFiles"
	RouteHealth         = "GET /healthz"
)

// Sites resolves the Site request header to a browser service.
type Sites interface {
	Get(name string) (*browser.Service, bool)
}

// Metrics receives per-request events. Implementations must be safe for
// concurrent use.
type Metrics interface {
	RecordRequest(route, method string, code int, duration time.Duration)
	RecordRateLimited()
}

// Options configures a Handler.
type Options struct {
	Sites Sites `validate:"required"`

	// TokenType and AccessToken form the expected Authorization header
	// value "<TokenType> <AccessToken>".
	TokenType   string `validate:"required"`
	AccessToken string `validate:"required"`

	// MaxBodyBytes caps request bodies (0 = unlimited).
	MaxBodyBytes int64 `validate:"gte=0"`

	// RateLimiter throttles clients by IP. nil disables throttling.
	RateLimiter *ratelimiter.Keyed

	// AccessLog receives one entry per API request. nil logs through the
	// process logger.
	AccessLog *AccessLog

	Metrics Metrics
}

// Handler serves the API.
//
// Thread Safety: Safe for concurrent use.
type Handler struct {
	sites         Sites
	authorization string
	maxBodyBytes  int64
	limiter       *ratelimiter.Keyed
	accessLog     *AccessLog
	metrics       Metrics
	handler       http.Handler
}

// New creates a Handler.
func New(opts Options) (*Handler, error) {
	if err := validator.New().Struct(opts); err != nil {
		return nil, fmt.Errorf("api options: %w", err)
	}
	if opts.AccessLog == nil {
		opts.AccessLog = NewAccessLog("", nil)
	}

	h := &Handler{
		sites:         opts.Sites,
		authorization: opts.TokenType + " " + opts.AccessToken,
		maxBodyBytes:  opts.MaxBodyBytes,
		limiter:       opts.RateLimiter,
		accessLog:     opts.AccessLog,
		metrics:       opts.Metrics,
	}

	mux := http.NewServeMux()
	mux.HandleFunc(RouteGetFiles, h.handleGetFiles)
	mux.HandleFunc(RouteResumeGetFiles, h.handleGetFiles)
	mux.HandleFunc(RoutePostFiles, h.handlePostFiles)
	mux.HandleFunc(RouteHealth, h.handleHealth)

	h.handler = h.instrument(h.rateLimit(h.limitBody(mux)))
	return h, nil
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}
