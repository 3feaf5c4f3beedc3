/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsSubsystem                = "restapi"
	metricsLabelResponseErrorDomain = "domain"
	metricsLabelResponseErrorCode   = "code"
)

// ErrorsMetrics counts error responses by domain and code.
type ErrorsMetrics struct {
	ResponseErrors *prometheus.CounterVec
}

var errorsMetrics atomic.Pointer[ErrorsMetrics]

func loadErrorsMetrics() *ErrorsMetrics {
	return errorsMetrics.Load()
}

// NewErrorsMetrics creates a new ErrorsMetrics with the given namespace.
func NewErrorsMetrics(namespace string) *ErrorsMetrics {
	return &ErrorsMetrics{
		ResponseErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: metricsSubsystem,
			Name:      "response_errors_total",
			Help:      "The total number of REST API errors that were responded.",
		}, []string{metricsLabelResponseErrorDomain, metricsLabelResponseErrorCode}),
	}
}

// MustRegister registers the collectors and makes them receive every error passed to RespondError.
// Panic will be raised in case of error.
func (m *ErrorsMetrics) MustRegister() {
	prometheus.MustRegister(m.ResponseErrors)
	errorsMetrics.Store(m)
}

// Unregister stops collecting and unregisters the collectors.
func (m *ErrorsMetrics) Unregister() {
	errorsMetrics.CompareAndSwap(m, nil)
	prometheus.Unregister(m.ResponseErrors)
}
