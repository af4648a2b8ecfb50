package main

import (
	"time"

	"github.com/secboard/api/internal/app/ingest"
	"github.com/secboard/api/internal/infra/http/handler"
	"github.com/secboard/api/internal/infra/http/routes"
	"github.com/secboard/api/internal/infra/postgres"
	"github.com/secboard/api/internal/infra/redis"
	"github.com/secboard/api/pkg/logger"
)

const statsCacheTTL = 5 * time.Minute

// HandlerDeps bundles everything the HTTP handlers need.
type HandlerDeps struct {
	Log           *logger.Logger
	DB            *postgres.DB
	RedisClient   *redis.Client
	Repos         *Repositories
	IngestService *ingest.Service
}

// NewHandlers creates all HTTP handlers.
func NewHandlers(deps *HandlerDeps) routes.Handlers {
	healthOpts := []handler.HealthHandlerOption{
		handler.WithDatabase(deps.DB),
	}

	var statsCache *redis.Cache[handler.StatsResponse]
	if deps.RedisClient != nil {
		healthOpts = append(healthOpts, handler.WithRedis(deps.RedisClient))
		statsCache = redis.MustNewCache[handler.StatsResponse](deps.RedisClient, "stats", statsCacheTTL)
	}

	return routes.Handlers{
		Health:        handler.NewHealthHandler(healthOpts...),
		Upload:        handler.NewUploadHandler(deps.IngestService, deps.Log),
		Ingestion:     handler.NewIngestionHandler(deps.Repos.Ingestion, deps.Log),
		Detection:     handler.NewDetectionHandler(deps.Repos.Detection, deps.Log),
		Vulnerability: handler.NewVulnerabilityHandler(deps.Repos.Vulnerability, deps.Log),
		CloudFinding:  handler.NewCloudFindingHandler(deps.Repos.CloudFinding, deps.Log),
		Ticket:        handler.NewTicketHandler(deps.Repos.Ticket, deps.Log),
		Advisory:      handler.NewAdvisoryHandler(deps.Repos.Advisory, deps.Log),
		Scorecard:     handler.NewScorecardHandler(deps.Repos.ScorecardSum, deps.Repos.ScorecardIssue, deps.Log),
		Stats: handler.NewStatsHandler(handler.StatsRepos{
			Ingestions:      deps.Repos.Ingestion,
			Detections:      deps.Repos.Detection,
			Vulnerabilities: deps.Repos.Vulnerability,
			CloudFindings:   deps.Repos.CloudFinding,
			Tickets:         deps.Repos.Ticket,
			Advisories:      deps.Repos.Advisory,
			Summaries:       deps.Repos.ScorecardSum,
			Issues:          deps.Repos.ScorecardIssue,
		}, statsCache, deps.Log),
	}
}
