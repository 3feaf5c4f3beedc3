/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	httpRequestMetricsLabelMethod       = "method"
	httpRequestMetricsLabelRoutePattern = "route_pattern"
	httpRequestMetricsLabelStatusCode   = "status_code"
)

// DefaultHTTPRequestDurationBuckets is default buckets into which observations of serving HTTP requests are counted.
var DefaultHTTPRequestDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// RoutePatternGetterFunc returns the route pattern (e.g. "/records/{kind}/{id}") of the request.
type RoutePatternGetterFunc func(r *http.Request) string

// HTTPRequestPrometheusMetrics represents collector of metrics for incoming HTTP requests.
type HTTPRequestPrometheusMetrics struct {
	Durations *prometheus.HistogramVec
	InFlight  prometheus.Gauge
}

// NewHTTPRequestPrometheusMetrics creates a new metrics collector.
func NewHTTPRequestPrometheusMetrics(namespace string) *HTTPRequestPrometheusMetrics {
	return &HTTPRequestPrometheusMetrics{
		Durations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "A histogram of the HTTP request durations.",
				Buckets:   DefaultHTTPRequestDurationBuckets,
			},
			[]string{httpRequestMetricsLabelMethod, httpRequestMetricsLabelRoutePattern, httpRequestMetricsLabelStatusCode},
		),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current number of HTTP requests being served.",
		}),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *HTTPRequestPrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.Durations, pm.InFlight)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *HTTPRequestPrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.Durations)
	prometheus.Unregister(pm.InFlight)
}

type httpRequestMetricsHandler struct {
	next              http.Handler
	collector         *HTTPRequestPrometheusMetrics
	getRoutePattern   RoutePatternGetterFunc
	excludedEndpoints []string
}

// HTTPRequestMetrics is a middleware that collects metrics for incoming HTTP requests.
// The route pattern is resolved after the request is served, when the router has matched it.
func HTTPRequestMetrics(
	collector *HTTPRequestPrometheusMetrics, getRoutePattern RoutePatternGetterFunc, excludedEndpoints []string,
) func(next http.Handler) http.Handler {
	if getRoutePattern == nil {
		panic("function for getting route pattern cannot be nil")
	}
	return func(next http.Handler) http.Handler {
		return &httpRequestMetricsHandler{
			next: next, collector: collector, getRoutePattern: getRoutePattern, excludedEndpoints: excludedEndpoints,
		}
	}
}

func (h *httpRequestMetricsHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	for i := range h.excludedEndpoints {
		if r.URL.Path == h.excludedEndpoints[i] {
			h.next.ServeHTTP(rw, r)
			return
		}
	}

	startTime := GetRequestStartTimeFromContext(r.Context())
	if startTime.IsZero() {
		startTime = time.Now()
		r = r.WithContext(NewContextWithRequestStartTime(r.Context(), startTime))
	}

	h.collector.InFlight.Inc()
	defer h.collector.InFlight.Dec()

	wrw := chimw.NewWrapResponseWriter(rw, r.ProtoMajor)
	defer func() {
		status := wrw.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if p := recover(); p != nil {
			if p != http.ErrAbortHandler {
				h.observe(r, http.StatusInternalServerError, startTime)
			}
			panic(p)
		}
		h.observe(r, status, startTime)
	}()

	h.next.ServeHTTP(wrw, r)
}

func (h *httpRequestMetricsHandler) observe(r *http.Request, status int, startTime time.Time) {
	h.collector.Durations.With(prometheus.Labels{
		httpRequestMetricsLabelMethod:       r.Method,
		httpRequestMetricsLabelRoutePattern: h.getRoutePattern(r),
		httpRequestMetricsLabelStatusCode:   strconv.Itoa(status),
	}).Observe(time.Since(startTime).Seconds())
}
