/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inspecta/inspecta/log"
	"github.com/inspecta/inspecta/log/logtest"
)

type panickingHandler struct {
	called     int
	panicValue interface{}
}

func (h *panickingHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	h.called++
	panic(h.panicValue)
}

func TestRecoveryHandler_ServeHTTP(t *testing.T) {
	const errDomain = "Inspecta"
	const wantBody = `{"error":{"domain":"Inspecta","code":"internalError","message":"Internal error."}}`

	t.Run("recovery w/o logging", func(t *testing.T) {
		next := &panickingHandler{panicValue: "test"}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		resp := httptest.NewRecorder()

		require.NotPanics(t, func() { Recovery(errDomain)(next).ServeHTTP(resp, req) })
		require.Equal(t, 1, next.called)
		require.Equal(t, http.StatusInternalServerError, resp.Code)
		require.JSONEq(t, wantBody, resp.Body.String())
	})

	t.Run("recovery with logging", func(t *testing.T) {
		const stackSize = 10
		next := &panickingHandler{panicValue: "test"}
		logger := logtest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(NewContextWithLogger(req.Context(), logger))
		resp := httptest.NewRecorder()

		require.NotPanics(t, func() {
			RecoveryWithOpts(errDomain, RecoveryOpts{StackSize: stackSize})(next).ServeHTTP(resp, req)
		})
		require.Equal(t, http.StatusInternalServerError, resp.Code)

		entry, found := logger.FindEntry("Panic: test")
		require.True(t, found)
		require.Equal(t, log.LevelError, entry.Level)
		stackField, found := entry.FindField("stack")
		require.True(t, found)
		require.Len(t, stackField.Bytes, stackSize)
	})

	t.Run("http.ErrAbortHandler is propagated", func(t *testing.T) {
		next := &panickingHandler{panicValue: http.ErrAbortHandler}
		logger := logtest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(NewContextWithLogger(req.Context(), logger))

		require.PanicsWithValue(t, http.ErrAbortHandler, func() {
			Recovery(errDomain)(next).ServeHTTP(httptest.NewRecorder(), req)
		})
		entry, found := logger.FindEntry("request has been aborted")
		require.True(t, found)
		require.Equal(t, log.LevelWarn, entry.Level)
	})
}
