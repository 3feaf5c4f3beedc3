/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/inspecta/inspecta/httpserver/middleware"
	"github.com/inspecta/inspecta/inspection"
	"github.com/inspecta/inspecta/restapi"
)

const (
	queryParamPlant    = "plant"
	queryParamLine     = "line"
	queryParamFrom     = "from"
	queryParamTo       = "to"
	queryParamPage     = "page"
	queryParamPageSize = "pageSize"
)

func (h *Handler) listRecords(rw http.ResponseWriter, r *http.Request) {
	kind, err := inspection.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		h.respondError(rw, r, err)
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		h.respondError(rw, r, err)
		return
	}
	page, err := h.records.List(r.Context(), kind, filter)
	if err != nil {
		h.respondError(rw, r, err)
		return
	}
	restapi.RespondJSON(rw, page, h.loggerFor(r))
}

func (h *Handler) getRecord(rw http.ResponseWriter, r *http.Request) {
	kind, id, err := parseRecordPath(r)
	if err != nil {
		h.respondError(rw, r, err)
		return
	}
	rec, err := h.records.Get(r.Context(), kind, id)
	if err != nil {
		h.respondError(rw, r, err)
		return
	}
	restapi.RespondJSON(rw, rec, h.loggerFor(r))
}

func (h *Handler) createRecord(rw http.ResponseWriter, r *http.Request) {
	kind, err := inspection.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		h.respondError(rw, r, err)
		return
	}
	var in inspection.Input
	if err = restapi.DecodeRequestJSON(r, &in); err != nil {
		h.respondError(rw, r, err)
		return
	}
	if in.Inspector == "" {
		in.Inspector = middleware.GetActorFromContext(r.Context())
	}
	rec, err := h.records.Create(r.Context(), kind, in)
	if err != nil {
		h.respondError(rw, r, err)
		return
	}
	restapi.RespondCodeAndJSON(rw, http.StatusCreated, rec, h.loggerFor(r))
}

func (h *Handler) updateRecord(rw http.ResponseWriter, r *http.Request) {
	kind, id, err := parseRecordPath(r)
	if err != nil {
		h.respondError(rw, r, err)
		return
	}
	var patch inspection.Patch
	if err = restapi.DecodeRequestJSON(r, &patch); err != nil {
		h.respondError(rw, r, err)
		return
	}
	rec, err := h.records.Update(r.Context(), kind, id, patch)
	if err != nil {
		h.respondError(rw, r, err)
		return
	}
	restapi.RespondJSON(rw, rec, h.loggerFor(r))
}

func (h *Handler) deleteRecord(rw http.ResponseWriter, r *http.Request) {
	kind, id, err := parseRecordPath(r)
	if err != nil {
		h.respondError(rw, r, err)
		return
	}
	if err = h.records.Delete(r.Context(), kind, id); err != nil {
		h.respondError(rw, r, err)
		return
	}
	rw.WriteHeader(http.StatusNoContent)
}

func parseRecordPath(r *http.Request) (inspection.Kind, int64, error) {
	kind, err := inspection.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		return "", 0, err
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		// Nothing can be stored under such an id.
		return "", 0, inspection.ErrNotFound
	}
	return kind, id, nil
}

func parseFilter(r *http.Request) (inspection.Filter, error) {
	query := r.URL.Query()
	filter := inspection.Filter{
		Plant: query.Get(queryParamPlant),
		Line:  query.Get(queryParamLine),
		From:  query.Get(queryParamFrom),
		To:    query.Get(queryParamTo),
	}
	verr := &inspection.ValidationError{}
	for _, p := range []struct {
		name string
		dst  *int
	}{
		{queryParamPage, &filter.Page},
		{queryParamPageSize, &filter.PageSize},
	} {
		raw := query.Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			verr.Fields = append(verr.Fields, inspection.FieldError{Field: p.name, Message: "must be an integer"})
			continue
		}
		*p.dst = v
	}
	if len(verr.Fields) > 0 {
		return filter, verr
	}
	return filter, nil
}
