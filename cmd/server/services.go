package main

import (
	"slices"

	"github.com/secboard/api/internal/app/ingest"
	"github.com/secboard/api/internal/app/retention"
	"github.com/secboard/api/internal/config"
	"github.com/secboard/api/pkg/domain/ingestion"
	"github.com/secboard/api/pkg/logger"
)

// newFormatRouter registers every supported source format against its
// repository-backed row handler. The scorecard PDF placeholder has no
// handler; those files are archived as-is.
func newFormatRouter(cfg *config.Config, repos *Repositories) *ingest.Router {
	restricted := func(tag string) bool {
		return slices.Contains(cfg.Ingest.RestrictedSourceTags, tag)
	}

	profiles := []*ingest.Profile{
		{
			Tag:        ingest.TagVulnerability,
			FileType:   ingestion.FileTypeCSV,
			Restricted: restricted(ingest.TagVulnerability),
			Handler:    ingest.NewVulnerabilityHandler(repos.Vulnerability),
		},
		{
			Tag:        ingest.TagEDRFalcon,
			FileType:   ingestion.FileTypeCSV,
			Restricted: restricted(ingest.TagEDRFalcon),
			Handler:    ingest.NewFalconHandler(repos.Detection),
		},
		{
			Tag:        ingest.TagEDRSecureworks,
			FileType:   ingestion.FileTypeCSV,
			Restricted: restricted(ingest.TagEDRSecureworks),
			Handler:    ingest.NewSecureworksHandler(repos.Detection),
		},
		{
			Tag:        ingest.TagCloudFindings,
			FileType:   ingestion.FileTypeCSV,
			Restricted: restricted(ingest.TagCloudFindings),
			Handler:    ingest.NewCloudFindingHandler(repos.CloudFinding),
		},
		{
			Tag:        ingest.TagPhishingTicket,
			FileType:   ingestion.FileTypeCSV,
			Restricted: restricted(ingest.TagPhishingTicket),
			Handler:    ingest.NewPhishingHandler(repos.Ticket),
		},
		{
			Tag:        ingest.TagThreatAdvisory,
			FileType:   ingestion.FileTypeCSV,
			Restricted: restricted(ingest.TagThreatAdvisory),
			Handler:    ingest.NewAdvisoryHandler(repos.Advisory),
		},
		{
			Tag:        ingest.TagGenericTicket,
			FileType:   ingestion.FileTypeCSV,
			Restricted: restricted(ingest.TagGenericTicket),
			Handler:    ingest.NewGenericTicketHandler(repos.Ticket),
		},
		{
			Tag:        ingest.TagScorecardSum,
			FileType:   ingestion.FileTypeCSV,
			Restricted: restricted(ingest.TagScorecardSum),
			Handler:    ingest.NewScorecardSummaryHandler(repos.ScorecardSum),
		},
		{
			Tag:        ingest.TagScorecardIssue,
			FileType:   ingestion.FileTypeCSV,
			Restricted: restricted(ingest.TagScorecardIssue),
			Handler:    ingest.NewScorecardIssueHandler(repos.ScorecardIssue),
		},
		{
			Tag:        ingest.TagScorecardPDF,
			FileType:   ingestion.FileTypePDF,
			Restricted: restricted(ingest.TagScorecardPDF),
		},
	}

	return ingest.NewRouter(profiles)
}

// newRetentionService wires the sweep over the ingestion log and every
// record family.
func newRetentionService(cfg *config.Config, repos *Repositories, log *logger.Logger) *retention.Service {
	records := []retention.NamedStore{
		{Family: "detection", Store: repos.Detection},
		{Family: "vulnerability", Store: repos.Vulnerability},
		{Family: "cloud_finding", Store: repos.CloudFinding},
		{Family: "ticket", Store: repos.Ticket},
		{Family: "advisory", Store: repos.Advisory},
		{Family: "scorecard_summary", Store: repos.ScorecardSum},
		{Family: "scorecard_issue", Store: repos.ScorecardIssue},
	}
	return retention.NewService(cfg.Retention, repos.Ingestion, records, log)
}
