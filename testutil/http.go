/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const contentTypeAppJSON = "application/json"

// APIError is the decoded "error" object of an error response.
type APIError struct {
	Domain  string                 `json:"domain"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context"`
}

type errorEnvelope struct {
	Error *APIError `json:"error"`
}

// RequireErrorInRecorder asserts that the recorded response is an error envelope
// ({"error": {"domain": ..., "code": ...}}) with the given status, domain and code.
// The decoded error is returned for further checks (e.g. of its context).
func RequireErrorInRecorder(
	t require.TestingT, resp *httptest.ResponseRecorder, wantHTTPCode int, wantErrDomain, wantErrCode string,
) *APIError {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	return requireErrorInResponse(t, resp.Code, resp.Header(), resp.Body, wantHTTPCode, wantErrDomain, wantErrCode)
}

// RequireErrorInResponse is the same as RequireErrorInRecorder but for http.Response.
func RequireErrorInResponse(t require.TestingT, resp *http.Response, wantHTTPCode int, wantErrDomain, wantErrCode string) *APIError {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	return requireErrorInResponse(t, resp.StatusCode, resp.Header, resp.Body, wantHTTPCode, wantErrDomain, wantErrCode)
}

func requireErrorInResponse(
	t require.TestingT, code int, header http.Header, body io.Reader, wantHTTPCode int, wantErrDomain, wantErrCode string,
) *APIError {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	var envelope errorEnvelope
	if !assert.Equal(t, wantHTTPCode, code) ||
		!assert.Equal(t, contentTypeAppJSON, header.Get("Content-Type")) ||
		!assert.NoError(t, json.NewDecoder(body).Decode(&envelope)) ||
		!assert.NotNil(t, envelope.Error, "response has no error object") ||
		!assert.Equal(t, wantErrDomain, envelope.Error.Domain) ||
		!assert.Equal(t, wantErrCode, envelope.Error.Code) {
		t.FailNow()
		return nil
	}
	return envelope.Error
}

// RequireJSONInRecorder asserts that the recorded response has the given status and
// its JSON body decoded into dest equals want.
func RequireJSONInRecorder(t require.TestingT, resp *httptest.ResponseRecorder, wantHTTPCode int, want, dest interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	if !assert.Equal(t, wantHTTPCode, resp.Code) ||
		!assert.Equal(t, contentTypeAppJSON, resp.Header().Get("Content-Type")) ||
		!assert.NoError(t, json.Unmarshal(resp.Body.Bytes(), dest)) ||
		!assert.Equal(t, want, dest) {
		t.FailNow()
	}
}

// RequireStringJSONInResponse asserts that the response body is exactly the given JSON string.
func RequireStringJSONInResponse(t require.TestingT, resp *http.Response, want string) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	require.Equal(t, contentTypeAppJSON, resp.Header.Get("Content-Type"))
	bodyBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.JSONEq(t, want, string(bodyBytes))
}
