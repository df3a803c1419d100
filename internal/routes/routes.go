package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jhalloran/linkgate/internal/handlers"
	"github.com/jhalloran/linkgate/internal/metrics"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	connectHandler *handlers.ConnectHandler,
	promRegistry *prometheus.Registry,
	rateLimitRequests int,
	rateLimitWindow time.Duration,
) {
	// The protocol endpoint. Per-IP rate limiting sits in front of the
	// per-account lockout counter.
	router.With(httprate.LimitByIP(rateLimitRequests, rateLimitWindow)).
		Post("/connect", connectHandler.Connect)

	router.Method(http.MethodGet, "/metrics", metrics.Handler(promRegistry))
}
