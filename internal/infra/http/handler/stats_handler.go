package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/secboard/api/internal/infra/redis"
	"github.com/secboard/api/pkg/apierror"
	"github.com/secboard/api/pkg/domain/advisory"
	"github.com/secboard/api/pkg/domain/cloudfinding"
	"github.com/secboard/api/pkg/domain/detection"
	"github.com/secboard/api/pkg/domain/ingestion"
	"github.com/secboard/api/pkg/domain/scorecard"
	"github.com/secboard/api/pkg/domain/ticket"
	"github.com/secboard/api/pkg/domain/vulnerability"
	"github.com/secboard/api/pkg/logger"
	"github.com/secboard/api/pkg/pagination"
)

const statsCacheKey = "overview"

// StatsResponse aggregates record totals across all families.
type StatsResponse struct {
	Totals      map[string]int64 `json:"totals"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// StatsHandler serves the dashboard overview counts. Totals are cached
// in Redis since every dashboard load asks for the same numbers.
type StatsHandler struct {
	ingestions      ingestion.Repository
	detections      detection.Repository
	vulnerabilities vulnerability.Repository
	cloudFindings   cloudfinding.Repository
	tickets         ticket.Repository
	advisories      advisory.Repository
	summaries       scorecard.SummaryRepository
	issues          scorecard.IssueRepository
	cache           *redis.Cache[StatsResponse]
	logger          *logger.Logger
}

// StatsRepos bundles the repositories the stats handler counts over.
type StatsRepos struct {
	Ingestions      ingestion.Repository
	Detections      detection.Repository
	Vulnerabilities vulnerability.Repository
	CloudFindings   cloudfinding.Repository
	Tickets         ticket.Repository
	Advisories      advisory.Repository
	Summaries       scorecard.SummaryRepository
	Issues          scorecard.IssueRepository
}

// NewStatsHandler creates a new StatsHandler. cache may be nil when
// Redis is disabled; counts then hit the database on every request.
func NewStatsHandler(repos StatsRepos, cache *redis.Cache[StatsResponse], log *logger.Logger) *StatsHandler {
	return &StatsHandler{
		ingestions:      repos.Ingestions,
		detections:      repos.Detections,
		vulnerabilities: repos.Vulnerabilities,
		cloudFindings:   repos.CloudFindings,
		tickets:         repos.Tickets,
		advisories:      repos.Advisories,
		summaries:       repos.Summaries,
		issues:          repos.Issues,
		cache:           cache,
		logger:          log.With("handler", "stats"),
	}
}

// Overview handles GET /api/v1/stats
// @Summary      Dashboard overview counts
// @Description  Record totals per family, cached for a short period
// @Tags         Stats
// @Produce      json
// @Success      200  {object}  StatsResponse
// @Failure      500  {object}  apierror.Error
// @Security     BearerAuth
// @Router       /stats [get]
func (h *StatsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	var (
		stats *StatsResponse
		err   error
	)

	if h.cache != nil {
		stats, err = h.cache.GetOrSetFallback(r.Context(), statsCacheKey, h.load)
	} else {
		stats, err = h.load(r.Context())
	}
	if err != nil {
		h.logger.WithError(err).Error("stats aggregation failed")
		apierror.InternalError(err).WriteJSON(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// load counts each family concurrently with a single-row page; only the
// COUNT side of the query is interesting here.
func (h *StatsHandler) load(ctx context.Context) (*StatsResponse, error) {
	one := pagination.New(1, 1)

	var mu sync.Mutex
	totals := make(map[string]int64, 8)

	g, ctx := errgroup.WithContext(ctx)
	count := func(name string, fn func() (int64, error)) {
		g.Go(func() error {
			total, err := fn()
			if err != nil {
				return fmt.Errorf("count %s: %w", name, err)
			}
			mu.Lock()
			totals[name] = total
			mu.Unlock()
			return nil
		})
	}

	count("ingestions", func() (int64, error) {
		r, err := h.ingestions.List(ctx, ingestion.Filter{}, one)
		return r.Total, err
	})
	count("detections", func() (int64, error) {
		r, err := h.detections.List(ctx, detection.Filter{}, one)
		return r.Total, err
	})
	count("vulnerabilities", func() (int64, error) {
		r, err := h.vulnerabilities.List(ctx, vulnerability.Filter{}, one)
		return r.Total, err
	})
	count("cloud_findings", func() (int64, error) {
		r, err := h.cloudFindings.List(ctx, cloudfinding.Filter{}, one)
		return r.Total, err
	})
	count("tickets", func() (int64, error) {
		r, err := h.tickets.List(ctx, ticket.Filter{}, one)
		return r.Total, err
	})
	count("advisories", func() (int64, error) {
		r, err := h.advisories.List(ctx, advisory.Filter{}, one)
		return r.Total, err
	})
	count("scorecard_summaries", func() (int64, error) {
		r, err := h.summaries.List(ctx, scorecard.SummaryFilter{}, one)
		return r.Total, err
	})
	count("scorecard_issues", func() (int64, error) {
		r, err := h.issues.List(ctx, scorecard.IssueFilter{}, one)
		return r.Total, err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &StatsResponse{
		Totals:      totals,
		GeneratedAt: time.Now().UTC(),
	}, nil
}
