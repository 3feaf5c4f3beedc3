/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package profserver provides an HTTP server that serves pprof profiles and debug handlers
// (e.g. the state of screen queues) on a separate, usually loopback-only, address.
package profserver

import (
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/inspecta/inspecta/httpserver/middleware"
	"github.com/inspecta/inspecta/log"
	"github.com/inspecta/inspecta/service"
)

// Opts represents options for the ProfServer.
type Opts struct {
	// DebugHandlers are mounted under /debug next to /debug/pprof.
	DebugHandlers map[string]http.Handler
	// Listener is used instead of listening on Config.Address when not nil.
	Listener net.Listener
}

// ProfServer represents HTTP server for profiling. pprof is used under the hood.
// It implements service.Unit interface.
type ProfServer struct {
	httpServer     *http.Server
	listener       net.Listener
	httpServerDone chan struct{}
	logger         log.FieldLogger
}

var _ service.Unit = (*ProfServer)(nil)

// New creates a new HTTP server (pprof) for profiling.
func New(cfg *Config, logger log.FieldLogger) *ProfServer {
	return NewWithOpts(cfg, logger, Opts{})
}

// NewWithOpts is a more configurable version of New.
func NewWithOpts(cfg *Config, logger log.FieldLogger, opts Opts) *ProfServer {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID(),
		middleware.LoggingWithOpts(logger, middleware.LoggingOpts{RequestStart: true}),
	)
	router.Route("/debug", func(r chi.Router) {
		for path, handler := range opts.DebugHandlers {
			r.Handle(path, handler)
		}
		r.Mount("/", chimiddleware.Profiler())
	})

	addr := cfg.Address
	if opts.Listener != nil {
		addr = opts.Listener.Addr().String()
	}
	return &ProfServer{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: time.Second * 5,
		},
		listener:       opts.Listener,
		httpServerDone: make(chan struct{}),
		logger:         logger.With(log.String("address", addr)),
	}
}

// URL returns the base URL of the server.
func (s *ProfServer) URL() string {
	return "http://" + s.httpServer.Addr
}

// Start starts profiling HTTP server in a blocking way. Supposed this methods will be called in a separate goroutine.
// If a fatal error occurs, it's sent into passed fatalError channel and should be processed outside.
func (s *ProfServer) Start(fatalError chan<- error) {
	defer close(s.httpServerDone)

	s.logger.Info("starting profiling HTTP server...")
	var err error
	if s.listener != nil {
		err = s.httpServer.Serve(s.listener)
	} else {
		err = s.httpServer.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		s.logger.Info("profiling HTTP server closed")
		return
	}
	s.logger.Error("profiling HTTP server error", log.Error(err))
	fatalError <- err
}

// Stop stops profiling HTTP server (always in no gracefully way).
func (s *ProfServer) Stop(gracefully bool) error {
	s.logger.Info("closing profiling HTTP server...")
	if err := s.httpServer.Close(); err != nil {
		s.logger.Error("profiling HTTP server closing error", log.Error(err))
		return err
	}
	<-s.httpServerDone
	return nil
}
