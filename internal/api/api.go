/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package api implements handlers of the INSPECTA REST API (version 1).
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inspecta/inspecta/httpserver/middleware"
	"github.com/inspecta/inspecta/inspection"
	"github.com/inspecta/inspecta/log"
	"github.com/inspecta/inspecta/masterdata"
	"github.com/inspecta/inspecta/reqqueue"
	"github.com/inspecta/inspecta/screen"
)

// ErrorDomain is the domain of all API errors.
const ErrorDomain = "Inspecta"

// RecordService manages inspection records.
type RecordService interface {
	List(ctx context.Context, kind inspection.Kind, filter inspection.Filter) (inspection.Page, error)
	Get(ctx context.Context, kind inspection.Kind, id int64) (inspection.Record, error)
	Create(ctx context.Context, kind inspection.Kind, in inspection.Input) (inspection.Record, error)
	Update(ctx context.Context, kind inspection.Kind, id int64, patch inspection.Patch) (inspection.Record, error)
	Delete(ctx context.Context, kind inspection.Kind, id int64) error
}

// MasterData provides plants and lines.
type MasterData interface {
	Lines(ctx context.Context, plant string) ([]masterdata.Line, error)
}

// ScreenRegistry keeps request queues of mounted screens.
type ScreenRegistry interface {
	middleware.QueueProvider
	Mount(screenID string) (q *reqqueue.Queue, created bool, err error)
	Unmount(screenID string) bool
	Stats() screen.Stats
}

// Handler serves the API.
type Handler struct {
	records    RecordService
	masterData MasterData
	screens    ScreenRegistry
	logger     log.FieldLogger
}

// NewHandler creates a new Handler. The logger is used when a request has no logger in its context.
func NewHandler(records RecordService, masterData MasterData, screens ScreenRegistry, logger log.FieldLogger) *Handler {
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	return &Handler{records: records, masterData: masterData, screens: screens, logger: logger}
}

// Routes registers the API routes. Screen management routes work outside of screen queues,
// while calls of data routes go through the queue of the screen named in the X-Inspecta-Screen header.
func (h *Handler) Routes(router chi.Router) {
	router.Route("/screens", func(r chi.Router) {
		r.Get("/", h.getScreensStats)
		r.Put("/{screenID}", h.mountScreen)
		r.Delete("/{screenID}", h.unmountScreen)
		r.Get("/{screenID}/queue", h.getScreenQueue)
		r.Put("/{screenID}/queue", h.updateScreenQueue)
	})

	router.Group(func(r chi.Router) {
		r.Use(middleware.ScreenQueue(h.screens, ErrorDomain))

		r.Get("/plants/{plant}/lines", h.listLines)

		r.Route("/records/{kind}", func(r chi.Router) {
			r.Get("/", h.listRecords)
			r.Post("/", h.createRecord)
			r.Get("/{id}", h.getRecord)
			r.Patch("/{id}", h.updateRecord)
			r.Delete("/{id}", h.deleteRecord)
		})
	})
}

func (h *Handler) loggerFor(r *http.Request) log.FieldLogger {
	if logger := middleware.GetLoggerFromContext(r.Context()); logger != nil {
		return logger
	}
	return h.logger
}
