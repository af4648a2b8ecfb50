package main

import (
	"github.com/secboard/api/internal/infra/postgres"
	"github.com/secboard/api/pkg/domain/advisory"
	"github.com/secboard/api/pkg/domain/cloudfinding"
	"github.com/secboard/api/pkg/domain/detection"
	"github.com/secboard/api/pkg/domain/ingestion"
	"github.com/secboard/api/pkg/domain/scorecard"
	"github.com/secboard/api/pkg/domain/ticket"
	"github.com/secboard/api/pkg/domain/vulnerability"
)

// Repositories holds all repository instances.
type Repositories struct {
	Ingestion       ingestion.Repository
	Detection       detection.Repository
	Vulnerability   vulnerability.Repository
	CloudFinding    cloudfinding.Repository
	Ticket          ticket.Repository
	Advisory        advisory.Repository
	ScorecardSum    scorecard.SummaryRepository
	ScorecardIssue  scorecard.IssueRepository
}

// NewRepositories creates all repository instances.
func NewRepositories(db *postgres.DB) *Repositories {
	return &Repositories{
		Ingestion:      postgres.NewIngestionLogRepository(db),
		Detection:      postgres.NewDetectionRepository(db),
		Vulnerability:  postgres.NewVulnerabilityRepository(db),
		CloudFinding:   postgres.NewCloudFindingRepository(db),
		Ticket:         postgres.NewTicketRepository(db),
		Advisory:       postgres.NewAdvisoryRepository(db),
		ScorecardSum:   postgres.NewScorecardSummaryRepository(db),
		ScorecardIssue: postgres.NewScorecardIssueRepository(db),
	}
}
