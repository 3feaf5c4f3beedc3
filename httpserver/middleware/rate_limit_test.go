/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/inspecta/inspecta/restapi"
)

type countingLimiter struct {
	mu     sync.Mutex
	max    int
	counts map[string]int
	err    error
}

func (l *countingLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	if l.err != nil {
		return false, 0, l.err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[key]++
	if l.counts[key] > l.max {
		return false, 1500 * time.Millisecond, nil
	}
	return true, 0, nil
}

func TestRateLimit(t *testing.T) {
	const errDomain = "Inspecta"

	limiter := &countingLimiter{max: 1, counts: map[string]int{}}
	next := http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) { rw.WriteHeader(http.StatusOK) })
	handler := Session()(RateLimit(limiter, errDomain, RateLimitOpts{ExcludedKeys: []string{"svc-*"}})(next))

	do := func(actor, remoteAddr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/records/sanitation", nil)
		req.RemoteAddr = remoteAddr
		if actor != "" {
			req.Header.Set(HeaderActor, actor)
		}
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		return resp
	}

	require.Equal(t, http.StatusOK, do("qa.inspector", "10.0.0.1:5000").Code)
	resp := do("qa.inspector", "10.0.0.2:5000")
	require.Equal(t, http.StatusTooManyRequests, resp.Code)
	require.Equal(t, "2", resp.Header().Get("Retry-After"))
	require.Contains(t, resp.Body.String(), restapi.ErrCodeTooManyRequests)

	// Anonymous requests are limited by the client address.
	require.Equal(t, http.StatusOK, do("", "10.0.0.1:5000").Code)
	require.Equal(t, http.StatusTooManyRequests, do("", "10.0.0.1:5001").Code)
	require.Equal(t, 2, limiter.counts["qa.inspector"])

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, do("svc-reports", "10.0.0.3:5000").Code)
	}
	require.Zero(t, limiter.counts["svc-reports"])

	limiter.err = errors.New("store is unavailable")
	require.Equal(t, http.StatusInternalServerError, do("plant.manager", "10.0.0.4:5000").Code)
}
