package http

import (
	"context"
	"net/http"
	"time"

	"github.com/dreschagin/monitoring-reports/internal/interfaces/http/handler"
	"github.com/dreschagin/monitoring-reports/internal/interfaces/http/middleware"
	"github.com/dreschagin/monitoring-reports/pkg/config"
	"github.com/dreschagin/monitoring-reports/pkg/logger"
)

// ReadinessCheck reports whether a dependency is usable.
type ReadinessCheck func(ctx context.Context) error

type RouterConfig struct {
	Security config.SecurityConfig
	// ManualRateLimitPerMinute limits POST /api/v1/reports/generate per client.
	ManualRateLimitPerMinute int
	// Metrics serves /metrics when set.
	Metrics http.Handler
	Checks  map[string]ReadinessCheck
}

// Router настраивает маршруты приложения
type Router struct {
	mux             *http.ServeMux
	dispatchHandler *handler.DispatchAPIHandler
	reportHandler   *handler.ReportAPIHandler
	config          RouterConfig
	logger          *logger.Logger
}

// NewRouter создает новый router
func NewRouter(
	dispatchHandler *handler.DispatchAPIHandler,
	reportHandler *handler.ReportAPIHandler,
	config RouterConfig,
	logger *logger.Logger,
) *Router {
	return &Router{
		mux:             http.NewServeMux(),
		dispatchHandler: dispatchHandler,
		reportHandler:   reportHandler,
		config:          config,
		logger:          logger,
	}
}

// Setup настраивает все маршруты
func (rt *Router) Setup() http.Handler {
	// Health endpoints are unauthenticated for probes.
	rt.mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	rt.mux.HandleFunc("/readyz", rt.ready)
	if rt.config.Metrics != nil {
		rt.mux.Handle("/metrics", rt.config.Metrics)
	}

	authMiddleware := middleware.Auth(middleware.AuthConfig{
		Enabled:     rt.config.Security.AuthEnabled,
		BearerToken: rt.config.Security.AuthToken,
	}, rt.logger)

	perMinute := rt.config.ManualRateLimitPerMinute
	if perMinute <= 0 {
		perMinute = 6
	}
	manualLimit := middleware.RateLimit(middleware.NewIPRateLimiter(float64(perMinute), perMinute))

	rt.mux.Handle("/api/v1/dispatch/run", authMiddleware(http.HandlerFunc(rt.dispatchHandler.Run)))
	rt.mux.Handle("/api/v1/reports/generate", authMiddleware(manualLimit(http.HandlerFunc(rt.reportHandler.Generate))))
	rt.mux.Handle("/api/v1/definitions", authMiddleware(http.HandlerFunc(rt.reportHandler.ListDefinitions)))

	// Применяем middleware
	var handler http.Handler = rt.mux
	handler = middleware.Logger(rt.logger)(handler)
	handler = middleware.Recovery(rt.logger)(handler)

	return handler
}

func (rt *Router) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	failed := make(map[string]string)
	for name, check := range rt.config.Checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		rt.logger.Warn("Readiness check failed", "failed", len(failed))
		middleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "not ready",
			"checks": failed,
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
