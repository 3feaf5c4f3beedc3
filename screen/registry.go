/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package screen keeps one request queue per mounted UI screen.
//
// All backend calls made on behalf of a screen share its queue, so a screen never has more than
// the configured number of calls in flight. Unmounting the screen (or evicting its session when
// there are too many, or when it stays unused for too long) aborts the queue:
// waiting calls are rejected and running ones are canceled.
package screen

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/inspecta/inspecta/log"
	"github.com/inspecta/inspecta/lrucache"
	"github.com/inspecta/inspecta/reqqueue"
	"github.com/inspecta/inspecta/service"
)

// Opts represents options for the Registry.
type Opts struct {
	Logger log.FieldLogger
	// QueueMetrics is shared by all queues of the registry.
	QueueMetrics reqqueue.MetricsCollector
	// SessionsMetrics collects statistics of the sessions cache.
	SessionsMetrics lrucache.MetricsCollector
}

// Stats represents lifetime counters of the registry.
type Stats struct {
	Active    int   `json:"active"`
	Mounted   int64 `json:"mounted"`
	Unmounted int64 `json:"unmounted"`
	Evicted   int64 `json:"evicted"`
}

type session struct {
	queue    *reqqueue.Queue
	lastUsed time.Time
}

// Registry maps screen ids to request queues.
type Registry struct {
	maxConcurrent int
	queueOpts     reqqueue.Opts
	logger        log.FieldLogger
	now           func() time.Time

	mu       sync.Mutex
	sessions *lrucache.LRUCache[string, *session]
	// releasing is set while sessions are removed on purpose, so onEvict does not count them as evicted.
	releasing bool

	mounted   atomic.Int64
	unmounted atomic.Int64
	evicted   atomic.Int64
}

// NewRegistry creates a new Registry. Queues are created with queueCfg.MaxConcurrent.
func NewRegistry(cfg *Config, queueCfg *reqqueue.Config) (*Registry, error) {
	return NewRegistryWithOpts(cfg, queueCfg, Opts{})
}

// NewRegistryWithOpts is a more configurable version of NewRegistry.
func NewRegistryWithOpts(cfg *Config, queueCfg *reqqueue.Config, opts Opts) (*Registry, error) {
	if queueCfg.MaxConcurrent <= 0 {
		return nil, fmt.Errorf("max concurrent should be positive, got %d", queueCfg.MaxConcurrent)
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	r := &Registry{
		maxConcurrent: queueCfg.MaxConcurrent,
		queueOpts:     reqqueue.Opts{Logger: opts.Logger, MetricsCollector: opts.QueueMetrics},
		logger:        opts.Logger,
		now:           time.Now,
	}
	sessions, err := lrucache.NewWithOpts[string, *session](cfg.MaxSessions, lrucache.Opts[string, *session]{
		OnEvict:          r.onEvict,
		MetricsCollector: opts.SessionsMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create sessions cache: %w", err)
	}
	r.sessions = sessions
	return r, nil
}

// Mount returns the queue of the screen, creating it if needed.
// A queue left aborted is reset, so the screen may issue requests again.
func (r *Registry) Mount(screenID string) (q *reqqueue.Queue, created bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions.Get(screenID); ok {
		s.lastUsed = r.now()
		if s.queue.Status().Aborted {
			s.queue.Reset()
		}
		return s.queue, false, nil
	}
	if q, err = reqqueue.NewWithOpts(r.maxConcurrent, r.queueOpts); err != nil {
		return nil, false, err
	}
	r.sessions.Add(screenID, &session{queue: q, lastUsed: r.now()})
	r.mounted.Inc()
	r.logger.Info("screen mounted", log.String("screen_id", screenID))
	return q, true, nil
}

// Get returns the queue of a mounted screen and marks the screen as used.
func (r *Registry) Get(screenID string) (*reqqueue.Queue, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions.Get(screenID)
	if !ok {
		return nil, false
	}
	s.lastUsed = r.now()
	return s.queue, true
}

// Unmount aborts the queue of the screen and forgets it. It returns false if the screen is not mounted.
func (r *Registry) Unmount(screenID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.releasing = true
	defer func() { r.releasing = false }()
	if !r.sessions.Remove(screenID) {
		return false
	}
	r.unmounted.Inc()
	r.logger.Info("screen unmounted", log.String("screen_id", screenID))
	return true
}

// UnmountIdle unmounts screens that were not used for maxIdle or longer and returns how many were unmounted.
// Screens whose queues still have running or queued requests are kept.
func (r *Registry) UnmountIdle(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.releasing = true
	defer func() { r.releasing = false }()
	now := r.now()
	n := 0
	for _, screenID := range r.sessions.Keys() {
		s, ok := r.sessions.Peek(screenID)
		if !ok || now.Sub(s.lastUsed) < maxIdle {
			continue
		}
		if st := s.queue.Status(); st.Running > 0 || st.Queued > 0 {
			continue
		}
		if r.sessions.Remove(screenID) {
			n++
			r.unmounted.Inc()
			r.logger.Info("idle screen unmounted",
				log.String("screen_id", screenID), log.Duration("idle", now.Sub(s.lastUsed)))
		}
	}
	return n
}

// IdleSweeper returns a worker that unmounts screens idle for maxIdle or longer.
// Run it periodically with service.NewPeriodicWorker.
func (r *Registry) IdleSweeper(maxIdle time.Duration) service.Worker {
	return service.WorkerFunc(func(ctx context.Context) error {
		if n := r.UnmountIdle(maxIdle); n > 0 {
			r.logger.Info("idle screens swept", log.Int("count", n), log.Int("active", r.Len()))
		}
		return nil
	})
}

// Close aborts queues of all screens.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releasing = true
	defer func() { r.releasing = false }()
	r.sessions.Purge()
}

// Len returns the number of mounted screens.
func (r *Registry) Len() int {
	return r.sessions.Len()
}

// Stats returns lifetime counters of the registry.
func (r *Registry) Stats() Stats {
	return Stats{
		Active:    r.sessions.Len(),
		Mounted:   r.mounted.Load(),
		Unmounted: r.unmounted.Load(),
		Evicted:   r.evicted.Load(),
	}
}

// onEvict runs with r.mu held: the cache changes only in Mount, Get, Unmount, UnmountIdle and Close
// (Get drops only expired entries, which never happens as sessions have no TTL).
func (r *Registry) onEvict(screenID string, s *session) {
	s.queue.Abort()
	if r.releasing {
		return
	}
	r.evicted.Inc()
	r.logger.Warn("screen session evicted, its requests are aborted", log.String("screen_id", screenID))
}
