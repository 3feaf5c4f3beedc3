/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockNextHandler struct {
	called  int
	request *http.Request
}

func (h *mockNextHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	h.called++
	h.request = r
}

func TestRequestIDHandler_ServeHTTP(t *testing.T) {
	const genExtReqID = "generated-external-request-id"
	const genIntReqID = "generated-internal-request-id"

	reqIDOpts := RequestIDOpts{
		GenerateID:         func() string { return genExtReqID },
		GenerateInternalID: func() string { return genIntReqID },
	}

	t.Run("external request id is taken from header", func(t *testing.T) {
		const headerReqID = "header-request-id"
		next := &mockNextHandler{}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, headerReqID)
		req.Header.Set(HeaderInternalRequestID, headerReqID)
		resp := httptest.NewRecorder()
		RequestIDWithOpts(reqIDOpts)(next).ServeHTTP(resp, req)

		assert.Equal(t, 1, next.called)
		assert.Equal(t, headerReqID, GetRequestIDFromContext(next.request.Context()))
		assert.Equal(t, headerReqID, resp.Header().Get(HeaderRequestID))
		assert.Equal(t, genIntReqID, GetInternalRequestIDFromContext(next.request.Context()))
		assert.Equal(t, genIntReqID, resp.Header().Get(HeaderInternalRequestID))
	})

	t.Run("external request id is generated", func(t *testing.T) {
		next := &mockNextHandler{}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		resp := httptest.NewRecorder()
		RequestIDWithOpts(reqIDOpts)(next).ServeHTTP(resp, req)

		assert.Equal(t, genExtReqID, GetRequestIDFromContext(next.request.Context()))
		assert.Equal(t, genExtReqID, resp.Header().Get(HeaderRequestID))
	})

	t.Run("default generator produces xid", func(t *testing.T) {
		next := &mockNextHandler{}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		resp := httptest.NewRecorder()
		RequestID()(next).ServeHTTP(resp, req)

		_, err := xid.FromString(GetRequestIDFromContext(next.request.Context()))
		require.NoError(t, err)
		_, err = xid.FromString(resp.Header().Get(HeaderInternalRequestID))
		require.NoError(t, err)
	})
}
