/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inspecta/inspecta/inspection"
	"github.com/inspecta/inspecta/reqqueue"
	"github.com/inspecta/inspecta/restapi"
)

type queueSettings struct {
	MaxConcurrent int `json:"maxConcurrent"`
}

func (h *Handler) getScreensStats(rw http.ResponseWriter, r *http.Request) {
	restapi.RespondJSON(rw, h.screens.Stats(), h.loggerFor(r))
}

// mountScreen responds with 201 when the screen gets a new queue and with 200 when it already had one.
func (h *Handler) mountScreen(rw http.ResponseWriter, r *http.Request) {
	q, created, err := h.screens.Mount(chi.URLParam(r, "screenID"))
	if err != nil {
		h.respondError(rw, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	restapi.RespondCodeAndJSON(rw, status, q.Status(), h.loggerFor(r))
}

// unmountScreen aborts requests of the screen. Unmounting a screen that is not mounted is not an error.
func (h *Handler) unmountScreen(rw http.ResponseWriter, r *http.Request) {
	h.screens.Unmount(chi.URLParam(r, "screenID"))
	rw.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getScreenQueue(rw http.ResponseWriter, r *http.Request) {
	q, ok := h.screenQueue(rw, r)
	if !ok {
		return
	}
	restapi.RespondJSON(rw, q.Status(), h.loggerFor(r))
}

func (h *Handler) updateScreenQueue(rw http.ResponseWriter, r *http.Request) {
	var settings queueSettings
	if err := restapi.DecodeRequestJSON(r, &settings); err != nil {
		h.respondError(rw, r, err)
		return
	}
	if settings.MaxConcurrent <= 0 {
		h.respondError(rw, r, &inspection.ValidationError{Fields: []inspection.FieldError{
			{Field: "maxConcurrent", Message: "must be positive"},
		}})
		return
	}
	q, ok := h.screenQueue(rw, r)
	if !ok {
		return
	}
	if err := q.SetMaxConcurrent(settings.MaxConcurrent); err != nil {
		h.respondError(rw, r, err)
		return
	}
	restapi.RespondJSON(rw, q.Status(), h.loggerFor(r))
}

func (h *Handler) screenQueue(rw http.ResponseWriter, r *http.Request) (*reqqueue.Queue, bool) {
	screenID := chi.URLParam(r, "screenID")
	q, ok := h.screens.Get(screenID)
	if !ok {
		h.respondScreenNotMounted(rw, r, screenID)
	}
	return q, ok
}
