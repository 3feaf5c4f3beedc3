/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/inspecta/inspecta/httpserver/middleware"
	"github.com/inspecta/inspecta/log"
	"github.com/inspecta/inspecta/restapi"
)

// StatusClientClosedRequest is a special HTTP status code used by Nginx to show that the client
// closed the request before the server could send a response
const StatusClientClosedRequest = 499

// DefaultHealthCheckTimeout bounds the time of one health-check run.
const DefaultHealthCheckTimeout = 5 * time.Second

// HealthChecker checks one component of the service (e.g. the backend).
type HealthChecker func(ctx context.Context) error

type healthCheckResponseData struct {
	Components map[string]bool `json:"components"`
}

// HealthCheckHandler implements http.Handler and does health-check of a service.
// All components are checked concurrently, the response is 503 if any of them fails.
type HealthCheckHandler struct {
	checkers map[string]HealthChecker
	timeout  time.Duration
}

// NewHealthCheckHandler creates a new http.Handler for doing health-check.
func NewHealthCheckHandler(checkers map[string]HealthChecker, timeout time.Duration) *HealthCheckHandler {
	if timeout <= 0 {
		timeout = DefaultHealthCheckTimeout
	}
	return &HealthCheckHandler{checkers: checkers, timeout: timeout}
}

// ServeHTTP serves heath-check HTTP request.
func (h *HealthCheckHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	logger := middleware.GetLoggerFromContext(r.Context())
	if logger == nil {
		logger = log.NewDisabledLogger()
	}

	names := make([]string, 0, len(h.checkers))
	for name := range h.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	errs := make([]error, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, check HealthChecker) {
			defer wg.Done()
			errs[i] = check(ctx)
		}(i, h.checkers[name])
	}
	wg.Wait()

	if errors.Is(r.Context().Err(), context.Canceled) {
		rw.WriteHeader(StatusClientClosedRequest)
		return
	}

	respStatus := http.StatusOK
	respData := healthCheckResponseData{Components: make(map[string]bool, len(names))}
	for i, name := range names {
		respData.Components[name] = errs[i] == nil
		if errs[i] != nil {
			respStatus = http.StatusServiceUnavailable
			logger.Error("health check failed", log.String("component", name), log.Error(errs[i]))
		}
	}
	restapi.RespondCodeAndJSON(rw, respStatus, respData, logger)
}
