/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequireErrorInRecorder(t *testing.T) {
	tests := []struct {
		name        string
		code        int
		contentType string
		body        string
		wantFailed  bool
	}{
		{
			name:        "matching error",
			code:        http.StatusConflict,
			contentType: contentTypeAppJSON,
			body:        `{"error":{"domain":"Inspecta","code":"screenNotMounted","context":{"screenId":"records-list"}}}`,
		},
		{
			name:        "another status",
			code:        http.StatusBadRequest,
			contentType: contentTypeAppJSON,
			body:        `{"error":{"domain":"Inspecta","code":"screenNotMounted"}}`,
			wantFailed:  true,
		},
		{
			name:        "not json",
			code:        http.StatusConflict,
			contentType: "text/html",
			body:        `<html></html>`,
			wantFailed:  true,
		},
		{
			name:        "another code",
			code:        http.StatusConflict,
			contentType: contentTypeAppJSON,
			body:        `{"error":{"domain":"Inspecta","code":"requestAborted"}}`,
			wantFailed:  true,
		},
		{
			name:        "not wrapped",
			code:        http.StatusConflict,
			contentType: contentTypeAppJSON,
			body:        `{"domain":"Inspecta","code":"screenNotMounted"}`,
			wantFailed:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := httptest.NewRecorder()
			resp.Header().Set("Content-Type", tt.contentType)
			resp.WriteHeader(tt.code)
			_, _ = resp.WriteString(tt.body)

			mockT := &MockT{}
			apiErr := RequireErrorInRecorder(mockT, resp, http.StatusConflict, "Inspecta", "screenNotMounted")
			require.Equal(t, tt.wantFailed, mockT.Failed)
			if !tt.wantFailed {
				require.Equal(t, "records-list", apiErr.Context["screenId"])
			}
		})
	}
}

func TestRequireJSONInRecorder(t *testing.T) {
	type plant struct {
		Code string `json:"code"`
	}
	resp := httptest.NewRecorder()
	resp.Header().Set("Content-Type", contentTypeAppJSON)
	_, _ = resp.WriteString(`{"code":"PLT1"}`)

	mockT := &MockT{}
	RequireJSONInRecorder(mockT, resp, http.StatusOK, &plant{Code: "PLT1"}, &plant{})
	require.False(t, mockT.Failed)

	mockT = &MockT{}
	RequireJSONInRecorder(mockT, resp, http.StatusOK, &plant{Code: "PLT2"}, &plant{})
	require.True(t, mockT.Failed)
}
