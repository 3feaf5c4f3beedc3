/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Command inspecta runs the INSPECTA API service.
package main

import (
	"flag"
	"fmt"
	golog "log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/inspecta/inspecta/audit"
	"github.com/inspecta/inspecta/backend"
	"github.com/inspecta/inspecta/config"
	"github.com/inspecta/inspecta/httpclient"
	"github.com/inspecta/inspecta/httpserver"
	"github.com/inspecta/inspecta/httpserver/middleware"
	"github.com/inspecta/inspecta/inspection"
	"github.com/inspecta/inspecta/internal/api"
	"github.com/inspecta/inspecta/internal/libinfo"
	"github.com/inspecta/inspecta/internal/ratelimit"
	"github.com/inspecta/inspecta/log"
	"github.com/inspecta/inspecta/lrucache"
	"github.com/inspecta/inspecta/masterdata"
	"github.com/inspecta/inspecta/profserver"
	"github.com/inspecta/inspecta/reqqueue"
	"github.com/inspecta/inspecta/restapi"
	"github.com/inspecta/inspecta/screen"
	"github.com/inspecta/inspecta/service"
)

const metricsNamespace = "inspecta"

func main() {
	cfgPath := flag.String("config", "config.yml", "path to the YAML configuration file")
	flag.Parse()

	if err := runApp(*cfgPath); err != nil {
		golog.Fatal(err)
	}
}

func runApp(cfgPath string) error {
	cfg := NewAppConfig()
	cfgs := cfg.all()
	if err := config.NewDefaultLoader("inspecta").LoadFromFile(cfgPath, config.DataTypeYAML, cfgs[0], cfgs[1:]...); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, loggerClose := log.NewLogger(cfg.Log)
	defer loggerClose()
	logger.Info("starting INSPECTA", log.String("version", libinfo.GetVersion()))

	metrics := newAppMetrics()
	metrics.mustRegister()
	defer metrics.unregister()

	backendClient, err := backend.NewWithOpts(cfg.Backend, backend.Opts{
		Logger:           logger,
		MetricsCollector: metrics.backendRequests,
		UserAgent:        libinfo.UserAgent(),
	})
	if err != nil {
		return fmt.Errorf("create backend client: %w", err)
	}

	masterData, err := masterdata.NewWithOpts(cfg.MasterData, backendClient, masterdata.Opts{
		PlantsMetrics: metrics.plantsCache,
		LinesMetrics:  metrics.linesCache,
	})
	if err != nil {
		return fmt.Errorf("create master data service: %w", err)
	}
	records := inspection.NewService(cfg.Inspection, backendClient, masterData, audit.NewWriter(backendClient, logger))

	registry, err := screen.NewRegistryWithOpts(cfg.Screens, cfg.Queue, screen.Opts{
		Logger:          logger,
		QueueMetrics:    metrics.queues,
		SessionsMetrics: metrics.sessionsCache,
	})
	if err != nil {
		return fmt.Errorf("create screen registry: %w", err)
	}
	defer registry.Close()

	var apiMiddlewares []func(http.Handler) http.Handler
	if cfg.RateLimit.Enabled {
		limiter, limiterErr := ratelimit.NewLimiter(cfg.RateLimit)
		if limiterErr != nil {
			return fmt.Errorf("create rate limiter: %w", limiterErr)
		}
		apiMiddlewares = append(apiMiddlewares, middleware.RateLimit(limiter, api.ErrorDomain,
			middleware.RateLimitOpts{ExcludedKeys: cfg.RateLimit.ExcludedKeys}))
	}

	handler := api.NewHandler(records, masterData, registry, logger)
	httpServer := httpserver.New(cfg.Server, logger, httpserver.Opts{
		ErrorDomain:      api.ErrorDomain,
		APIRoutes:        map[httpserver.APIVersion]httpserver.APIRoute{1: handler.Routes},
		APIMiddlewares:   apiMiddlewares,
		HealthCheckers:   map[string]httpserver.HealthChecker{"backend": backendClient.Ping},
		MetricsNamespace: metricsNamespace,
	})

	units := []service.Unit{httpServer}
	if cfg.Screens.IdleTimeout > 0 {
		sweeper := service.NewPeriodicWorker("screen-sweeper",
			registry.IdleSweeper(cfg.Screens.IdleTimeout), cfg.Screens.SweepInterval, logger)
		units = append(units, service.NewWorkerUnit(sweeper, cfg.Server.Timeouts.Shutdown))
	}
	if cfg.ProfServer.Enabled {
		units = append(units, profserver.NewWithOpts(cfg.ProfServer, logger, profserver.Opts{
			DebugHandlers: map[string]http.Handler{"/screens": screensDebugHandler(registry, logger)},
		}))
	}

	return service.New(logger, service.NewCompositeUnit(units...)).Start()
}

func screensDebugHandler(registry *screen.Registry, logger log.FieldLogger) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		restapi.RespondJSON(rw, registry.Stats(), logger)
	})
}

// AppConfig is the configuration of the whole service.
type AppConfig struct {
	Log        *log.Config
	Server     *httpserver.Config
	RateLimit  *ratelimit.Config
	ProfServer *profserver.Config
	Backend    *backend.Config
	MasterData *masterdata.Config
	Inspection *inspection.Config
	Screens    *screen.Config
	Queue      *reqqueue.Config
}

// NewAppConfig creates a new AppConfig with all sections.
func NewAppConfig() *AppConfig {
	return &AppConfig{
		Log:        log.NewConfig(),
		Server:     httpserver.NewConfig(),
		RateLimit:  ratelimit.NewConfig(),
		ProfServer: profserver.NewConfig(),
		Backend:    backend.NewConfig(),
		MasterData: masterdata.NewConfig(),
		Inspection: inspection.NewConfig(),
		Screens:    screen.NewConfig(),
		Queue:      reqqueue.NewConfig(),
	}
}

func (c *AppConfig) all() []config.Config {
	return []config.Config{
		c.Log, c.Server, c.RateLimit, c.ProfServer, c.Backend, c.MasterData, c.Inspection, c.Screens, c.Queue,
	}
}

type appMetrics struct {
	buildInfo       prometheus.Collector
	backendRequests *httpclient.PrometheusMetricsCollector
	queues          *reqqueue.PrometheusMetrics
	plantsCache     *lrucache.PrometheusMetrics
	linesCache      *lrucache.PrometheusMetrics
	sessionsCache   *lrucache.PrometheusMetrics
	errors          *restapi.ErrorsMetrics
}

func newAppMetrics() *appMetrics {
	return &appMetrics{
		buildInfo:       libinfo.NewBuildInfoCollector(metricsNamespace),
		backendRequests: httpclient.NewPrometheusMetricsCollector(metricsNamespace),
		queues:          reqqueue.NewPrometheusMetricsWithOpts(reqqueue.PrometheusMetricsOpts{Namespace: metricsNamespace}),
		plantsCache:     lrucache.NewPrometheusMetrics(metricsNamespace, "plants"),
		linesCache:      lrucache.NewPrometheusMetrics(metricsNamespace, "lines"),
		sessionsCache:   lrucache.NewPrometheusMetrics(metricsNamespace, "screen_sessions"),
		errors:          restapi.NewErrorsMetrics(metricsNamespace),
	}
}

func (m *appMetrics) mustRegister() {
	prometheus.MustRegister(m.buildInfo)
	m.backendRequests.MustRegister()
	m.queues.MustRegister()
	m.plantsCache.MustRegister()
	m.linesCache.MustRegister()
	m.sessionsCache.MustRegister()
	m.errors.MustRegister()
}

func (m *appMetrics) unregister() {
	prometheus.Unregister(m.buildInfo)
	m.backendRequests.Unregister()
	m.queues.Unregister()
	m.plantsCache.Unregister()
	m.linesCache.Unregister()
	m.sessionsCache.Unregister()
	m.errors.Unregister()
}
