/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/vasayxtx/go-glob"

	"github.com/inspecta/inspecta/log"
	"github.com/inspecta/inspecta/restapi"
)

// RateLimiter decides whether a request with the given key may proceed.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (allow bool, retryAfter time.Duration, err error)
}

// RateLimitOpts represents options for the RateLimit middleware.
type RateLimitOpts struct {
	// ExcludedKeys are glob patterns of keys that are never limited.
	ExcludedKeys []string
}

type rateLimitHandler struct {
	next         http.Handler
	limiter      RateLimiter
	errDomain    string
	excludedKeys []func(string) bool
}

// RateLimit is a middleware that limits the rate of requests per acting user.
// Requests without a user (see Session) are limited by the client IP address.
// Rejected requests get 429 with the Retry-After header.
func RateLimit(limiter RateLimiter, errDomain string, opts RateLimitOpts) func(next http.Handler) http.Handler {
	excluded := make([]func(string) bool, 0, len(opts.ExcludedKeys))
	for _, pattern := range opts.ExcludedKeys {
		excluded = append(excluded, glob.Compile(pattern))
	}
	return func(next http.Handler) http.Handler {
		return &rateLimitHandler{next: next, limiter: limiter, errDomain: errDomain, excludedKeys: excluded}
	}
}

func (h *rateLimitHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	key := rateLimitKey(r)
	for _, match := range h.excludedKeys {
		if match(key) {
			h.next.ServeHTTP(rw, r)
			return
		}
	}

	logger := GetLoggerFromContext(r.Context())
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	allow, retryAfter, err := h.limiter.Allow(r.Context(), key)
	if err != nil {
		logger.Error("rate limiting failed", log.String("rate_limit_key", key), log.Error(err))
		restapi.RespondInternalError(rw, h.errDomain, logger)
		return
	}
	if !allow {
		rw.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
		apiErr := restapi.NewError(h.errDomain, restapi.ErrCodeTooManyRequests, restapi.ErrMessageTooManyRequests)
		restapi.RespondError(rw, http.StatusTooManyRequests, apiErr, logger.With(log.String("rate_limit_key", key)))
		return
	}
	h.next.ServeHTTP(rw, r)
}

func rateLimitKey(r *http.Request) string {
	if actor := GetActorFromContext(r.Context()); actor != "" {
		return actor
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
