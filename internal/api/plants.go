/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inspecta/inspecta/restapi"
)

func (h *Handler) listLines(rw http.ResponseWriter, r *http.Request) {
	lines, err := h.masterData.Lines(r.Context(), chi.URLParam(r, "plant"))
	if err != nil {
		h.respondError(rw, r, err)
		return
	}
	restapi.RespondJSON(rw, map[string]interface{}{"items": lines}, h.loggerFor(r))
}
