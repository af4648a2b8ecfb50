package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secboard/api/pkg/domain/ingestion"
	"github.com/secboard/api/pkg/domain/shared"
)

func testRouter() *Router {
	return NewRouter([]*Profile{
		{Tag: TagVulnerability, FileType: ingestion.FileTypeCSV},
		{Tag: TagEDRFalcon, FileType: ingestion.FileTypeCSV},
		{Tag: TagEDRSecureworks, FileType: ingestion.FileTypeCSV},
		{Tag: TagCloudFindings, FileType: ingestion.FileTypeCSV},
		{Tag: TagPhishingTicket, FileType: ingestion.FileTypeCSV, Restricted: true},
		{Tag: TagThreatAdvisory, FileType: ingestion.FileTypeCSV},
		{Tag: TagGenericTicket, FileType: ingestion.FileTypeCSV},
		{Tag: TagScorecardSum, FileType: ingestion.FileTypeCSV},
		{Tag: TagScorecardIssue, FileType: ingestion.FileTypeCSV},
		{Tag: TagScorecardPDF, FileType: ingestion.FileTypePDF},
	})
}

func TestRouterDetect(t *testing.T) {
	r := testRouter()

	cases := []struct {
		filename string
		wantTag  string
	}{
		{"vulnerability-20250827.csv", TagVulnerability},
		{"vulnerabilities_20250827.csv", TagVulnerability},
		{"vulns-20250827.csv", TagVulnerability},
		{"falcon-20250827.csv", TagEDRFalcon},
		{"Secureworks-20250827.csv", TagEDRSecureworks},
		{"cloud_20250827.csv", TagCloudFindings},
		{"cloud-findings-20250827.csv", TagCloudFindings},
		{"phishing-20250827.csv", TagPhishingTicket},
		{"advisories-20250827.csv", TagThreatAdvisory},
		{"tickets-20250827.csv", TagGenericTicket},
		{"scorecard-summary-20250827.csv", TagScorecardSum},
		{"scorecard-issues-20250827.csv", TagScorecardIssue},
		{"scorecard-20250827.pdf", TagScorecardPDF},
	}
	for _, tc := range cases {
		profile, reportDate, err := r.Detect(tc.filename)
		require.NoError(t, err, "filename %q", tc.filename)
		assert.Equal(t, tc.wantTag, profile.Tag, "filename %q", tc.filename)
		assert.True(t, reportDate.Equal(time.Date(2025, 8, 27, 0, 0, 0, 0, time.UTC)))
	}
}

func TestRouterDetectExtractsReportDate(t *testing.T) {
	r := testRouter()
	_, reportDate, err := r.Detect("falcon-20240101.csv")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), reportDate)
}

func TestRouterDetectRejects(t *testing.T) {
	r := testRouter()

	t.Run("filename without embedded date", func(t *testing.T) {
		_, _, err := r.Detect("report.csv")
		assert.ErrorIs(t, err, shared.ErrUnrecognizedFormat)
	})

	t.Run("unknown source token", func(t *testing.T) {
		_, _, err := r.Detect("mystery-20250827.csv")
		assert.ErrorIs(t, err, shared.ErrUnrecognizedFormat)
	})

	t.Run("extension mismatch", func(t *testing.T) {
		_, _, err := r.Detect("vulns-20250827.pdf")
		assert.ErrorIs(t, err, shared.ErrUnrecognizedFormat)
	})

	t.Run("csv upload for the pdf placeholder", func(t *testing.T) {
		_, _, err := r.Detect("scorecard-20250827.csv")
		assert.ErrorIs(t, err, shared.ErrUnrecognizedFormat)
	})

	t.Run("impossible embedded date", func(t *testing.T) {
		_, _, err := r.Detect("vulns-20251399.csv")
		assert.ErrorIs(t, err, shared.ErrMalformedInput)
	})

	t.Run("unregistered tag", func(t *testing.T) {
		empty := NewRouter(nil)
		_, _, err := empty.Detect("vulns-20250827.csv")
		assert.ErrorIs(t, err, shared.ErrUnrecognizedFormat)
	})
}

func TestRouterDetectRestrictedFlagPassthrough(t *testing.T) {
	r := testRouter()
	profile, _, err := r.Detect("phishing-20250827.csv")
	require.NoError(t, err)
	assert.True(t, profile.Restricted)
}
