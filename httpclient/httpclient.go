/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package httpclient builds the http.Client used for outgoing calls to the INSPECTA backend.
// The transport is a chain of round trippers: API key auth, request id propagation,
// user agent, rate limiting, metrics and logging.
package httpclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/inspecta/inspecta/log"
)

// DefaultRequestType is used in logs and metrics when neither options nor the request context define a type.
const DefaultRequestType = "backend"

// Opts provides options for NewWithOpts and MustWithOpts functions.
type Opts struct {
	// APIKey authenticates every request (see APIKeyRoundTripper). Empty means no auth headers.
	APIKey string
	// UserAgent is a user agent string.
	UserAgent string
	// RequestType is a type of request used in logs and metrics.
	RequestType string
	// Delegate is the last RoundTripper in the chain. A clone of http.DefaultTransport is used by default.
	Delegate http.RoundTripper
	// LoggerProvider is a function that provides a context-specific logger.
	LoggerProvider func(ctx context.Context) log.FieldLogger
	// RequestIDProvider is a function that provides a request ID.
	RequestIDProvider func(ctx context.Context) string
	// Collector is a metrics collector. Metrics are not collected if it's nil.
	Collector MetricsCollector
}

// New creates an http.Client configured by cfg.
func New(cfg *Config) (*http.Client, error) {
	return NewWithOpts(cfg, Opts{})
}

// NewWithOpts creates an http.Client configured by cfg and opts.
func NewWithOpts(cfg *Config, opts Opts) (*http.Client, error) {
	reqType := opts.RequestType
	if reqType == "" {
		reqType = DefaultRequestType
	}

	delegate := opts.Delegate
	if delegate == nil {
		delegate = http.DefaultTransport.(*http.Transport).Clone()
	}

	if cfg.Logger.Enabled {
		logOpts := cfg.Logger.TransportOpts()
		logOpts.LoggerProvider = opts.LoggerProvider
		delegate = NewLoggingRoundTripperWithOpts(delegate, reqType, logOpts)
	}
	if cfg.Metrics.Enabled && opts.Collector != nil {
		delegate = NewMetricsRoundTripper(delegate, reqType, opts.Collector)
	}
	if cfg.RateLimits.Enabled {
		var err error
		if delegate, err = NewRateLimitingRoundTripperWithOpts(
			delegate, cfg.RateLimits.Limit, cfg.RateLimits.TransportOpts(),
		); err != nil {
			return nil, fmt.Errorf("create rate limiting round tripper: %w", err)
		}
	}
	if opts.UserAgent != "" {
		delegate = NewUserAgentRoundTripper(delegate, opts.UserAgent)
	}
	delegate = NewRequestIDRoundTripperWithOpts(delegate, RequestIDRoundTripperOpts{
		RequestIDProvider: opts.RequestIDProvider,
	})
	if opts.APIKey != "" {
		delegate = NewAPIKeyRoundTripper(delegate, opts.APIKey)
	}

	return &http.Client{Transport: delegate, Timeout: cfg.Timeout}, nil
}

// MustWithOpts is like NewWithOpts but panics if any error occurs.
func MustWithOpts(cfg *Config, opts Opts) *http.Client {
	client, err := NewWithOpts(cfg, opts)
	if err != nil {
		panic(err)
	}
	return client
}
