// Package routes registers all HTTP routes for the API.
package routes

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	infrahttp "github.com/secboard/api/internal/infra/http"
	"github.com/secboard/api/internal/infra/http/handler"
	"github.com/secboard/api/internal/infra/http/middleware"
	"github.com/secboard/api/pkg/logger"
)

// Middleware is an alias to the http package's Middleware type.
type Middleware = infrahttp.Middleware

// Router is an alias to the http package's Router interface.
type Router = infrahttp.Router

// Handlers holds all HTTP handlers for route registration.
type Handlers struct {
	Health        *handler.HealthHandler
	Upload        *handler.UploadHandler
	Ingestion     *handler.IngestionHandler
	Detection     *handler.DetectionHandler
	Vulnerability *handler.VulnerabilityHandler
	CloudFinding  *handler.CloudFindingHandler
	Ticket        *handler.TicketHandler
	Advisory      *handler.AdvisoryHandler
	Scorecard     *handler.ScorecardHandler
	Stats         *handler.StatsHandler
}

// Register wires all routes. Health and metrics stay public; everything
// under /api/v1 requires a valid bearer token.
func Register(
	router Router,
	h Handlers,
	validator middleware.TokenValidator,
	log *logger.Logger,
) {
	registerHealthRoutes(router, h.Health)
	registerMetricsRoute(router)

	authMiddleware := middleware.Authenticate(validator, log)

	router.Group("/api/v1", func(api Router) {
		// Uploads may arrive gzip- or zstd-compressed from exporters.
		api.POST("/uploads", h.Upload.Upload, middleware.Decompress(nil))

		api.GET("/ingestions", h.Ingestion.List)
		api.GET("/ingestions/{id}", h.Ingestion.Get)

		api.GET("/detections", h.Detection.List)
		api.GET("/vulnerabilities", h.Vulnerability.List)
		api.GET("/cloud-findings", h.CloudFinding.List)
		api.GET("/tickets", h.Ticket.List)
		api.GET("/advisories", h.Advisory.List)
		api.GET("/scorecard/summaries", h.Scorecard.ListSummaries)
		api.GET("/scorecard/issues", h.Scorecard.ListIssues)

		api.GET("/stats", h.Stats.Overview)
	}, authMiddleware)
}

// registerHealthRoutes registers liveness and readiness probes.
func registerHealthRoutes(router Router, h *handler.HealthHandler) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}

// registerMetricsRoute exposes Prometheus metrics. Expected to be
// firewalled from public traffic at the ingress.
func registerMetricsRoute(router Router) {
	router.GET("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
}
