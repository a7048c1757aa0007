package handlers

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dogemint/internal/metrics"
)

// Metrics exposes the application registry in Prometheus text format.
func (a *App) Metrics() http.Handler {
	return promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})
}
