/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"

	"github.com/inspecta/inspecta/log"
	"github.com/inspecta/inspecta/restapi"
)

type requestBodyLimitHandler struct {
	next         http.Handler
	maxSizeBytes uint64
	errDomain    string
}

// RequestBodyLimit is a middleware that limits the size of request bodies.
// Requests with a larger Content-Length are rejected with 413 right away,
// bodies without a declared length are cut when they are read.
func RequestBodyLimit(maxSizeBytes uint64, errDomain string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return &requestBodyLimitHandler{next: next, maxSizeBytes: maxSizeBytes, errDomain: errDomain}
	}
}

func (h *requestBodyLimitHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if r.ContentLength > int64(h.maxSizeBytes) {
		logger := GetLoggerFromContext(r.Context())
		if logger == nil {
			logger = log.NewDisabledLogger()
		}
		restapi.RespondMalformedRequestError(rw, h.errDomain, restapi.NewTooLargeMalformedRequestError(h.maxSizeBytes), logger)
		return
	}
	restapi.SetRequestMaxBodySize(rw, r, h.maxSizeBytes)
	h.next.ServeHTTP(rw, r)
}
