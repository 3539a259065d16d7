package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-quote/internal/observability"
)

// NewMetricsServer exposes /metrics and /healthz for processes without an API
// router, such as the worker. It returns nil when no address is configured.
func NewMetricsServer(cfg *Config, metrics *observability.Metrics) *http.Server {
	if cfg == nil || cfg.WorkerMetricsAddr == "" {
		return nil
	}
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	return &http.Server{
		Addr:              cfg.WorkerMetricsAddr,
		Handler:           r,
		ReadHeaderTimeout: cfg.AppReadTimeout,
	}
}
