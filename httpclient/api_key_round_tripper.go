/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"net/http"
)

// HeaderAPIKey is the header the backend gateway reads the project API key from.
const HeaderAPIKey = "apikey"

// APIKeyRoundTripper implements http.RoundTripper interface
// and authenticates all outgoing requests with a static API key.
// The key is sent in the "apikey" header and, unless the request already carries
// an Authorization header, as a bearer token.
type APIKeyRoundTripper struct {
	Delegate http.RoundTripper
	APIKey   string
}

// NewAPIKeyRoundTripper creates a new APIKeyRoundTripper.
func NewAPIKeyRoundTripper(delegate http.RoundTripper, apiKey string) *APIKeyRoundTripper {
	return &APIKeyRoundTripper{Delegate: delegate, APIKey: apiKey}
}

// RoundTrip executes a single HTTP transaction, returning a Response for the provided Request.
func (rt *APIKeyRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context()) // Per RoundTripper contract.
	req.Header.Set(HeaderAPIKey, rt.APIKey)
	if req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+rt.APIKey)
	}
	return rt.Delegate.RoundTrip(req)
}
