/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/inspecta/inspecta/backend"
	"github.com/inspecta/inspecta/httpserver"
	"github.com/inspecta/inspecta/inspection"
	"github.com/inspecta/inspecta/log"
	"github.com/inspecta/inspecta/masterdata"
	"github.com/inspecta/inspecta/reqqueue"
	"github.com/inspecta/inspecta/restapi"
)

// respondError converts an error returned by a service into an API error response.
func (h *Handler) respondError(rw http.ResponseWriter, r *http.Request, err error) {
	logger := h.loggerFor(r)

	var validationErr *inspection.ValidationError
	var reqErr *restapi.MalformedRequestError
	switch {
	case errors.As(err, &reqErr):
		restapi.RespondMalformedRequestError(rw, ErrorDomain, reqErr, logger)

	case errors.As(err, &validationErr):
		apiErr := restapi.NewError(ErrorDomain, restapi.ErrCodeValidationFailed, "Request data is not valid.")
		restapi.RespondError(rw, http.StatusBadRequest, apiErr.AddContext("fields", validationErr.Fields), logger)

	case errors.Is(err, inspection.ErrUnknownKind):
		apiErr := restapi.NewError(ErrorDomain, restapi.ErrCodeUnknownKind, "Unknown record kind.")
		restapi.RespondError(rw, http.StatusNotFound, apiErr.AddContext("kinds", inspection.Kinds), logger)

	case errors.Is(err, inspection.ErrNotFound), errors.Is(err, masterdata.ErrNotFound):
		restapi.RespondError(rw, http.StatusNotFound,
			restapi.NewError(ErrorDomain, restapi.ErrCodeNotFound, restapi.ErrMessageNotFound), logger)

	case errors.Is(err, reqqueue.ErrAborted):
		restapi.RespondError(rw, http.StatusConflict,
			restapi.NewError(ErrorDomain, restapi.ErrCodeRequestAborted, restapi.ErrMessageRequestAborted), logger)

	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		logger.Warn("request is canceled by client", log.Error(err))
		rw.WriteHeader(httpserver.StatusClientClosedRequest)

	case backend.IsTransient(err):
		logger.Warn("backend is unavailable", log.Error(err))
		restapi.RespondError(rw, http.StatusServiceUnavailable,
			restapi.NewError(ErrorDomain, restapi.ErrCodeBackendUnavailable, restapi.ErrMessageBackendUnavailable), logger)

	default:
		logger.Error("request handling failed", log.Error(err))
		restapi.RespondInternalError(rw, ErrorDomain, logger)
	}
}

func (h *Handler) respondScreenNotMounted(rw http.ResponseWriter, r *http.Request, screenID string) {
	apiErr := restapi.NewError(ErrorDomain, restapi.ErrCodeScreenNotMounted, restapi.ErrMessageScreenNotMounted)
	restapi.RespondError(rw, http.StatusConflict, apiErr.AddContext("screenId", screenID), h.loggerFor(r))
}
