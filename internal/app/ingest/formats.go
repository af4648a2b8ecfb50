package ingest

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/secboard/api/pkg/domain/ingestion"
	"github.com/secboard/api/pkg/domain/shared"
)

// Source format tags.
const (
	TagVulnerability   = "vulnerability"
	TagEDRFalcon       = "edr-falcon"
	TagEDRSecureworks  = "edr-secureworks"
	TagCloudFindings   = "cloud-findings"
	TagPhishingTicket  = "phishing-ticket"
	TagThreatAdvisory  = "threat-advisory"
	TagGenericTicket   = "generic-ticket"
	TagScorecardSum    = "scorecard-summary"
	TagScorecardIssue  = "scorecard-issue-detail"
	TagScorecardPDF    = "scorecard-pdf"
)

// Profile describes one source format: its file type, whether uploads are
// gated behind the admin role, and the handler that maps its rows. The
// scorecard PDF placeholder has no handler; its files are archived without
// row processing.
type Profile struct {
	Tag        string
	FileType   ingestion.FileType
	Restricted bool
	Handler    RowHandler
}

// filenamePattern requires "<source>[-_]<YYYYMMDD>.<csv|pdf>".
var filenamePattern = regexp.MustCompile(`^([A-Za-z0-9]+(?:[-_][A-Za-z0-9]+)*)[-_](\d{8})\.([A-Za-z]+)$`)

// sourceAliases maps the filename's source token to a canonical tag.
var sourceAliases = map[string]string{
	"vulnerability":          TagVulnerability,
	"vulnerabilities":        TagVulnerability,
	"vulns":                  TagVulnerability,
	"falcon":                 TagEDRFalcon,
	"edr-falcon":             TagEDRFalcon,
	"secureworks":            TagEDRSecureworks,
	"edr-secureworks":        TagEDRSecureworks,
	"cloud":                  TagCloudFindings,
	"cloud-findings":         TagCloudFindings,
	"phishing":               TagPhishingTicket,
	"phishing-ticket":        TagPhishingTicket,
	"advisory":               TagThreatAdvisory,
	"advisories":             TagThreatAdvisory,
	"threat-advisory":        TagThreatAdvisory,
	"ticket":                 TagGenericTicket,
	"tickets":                TagGenericTicket,
	"generic-ticket":         TagGenericTicket,
	"scorecard-summary":      TagScorecardSum,
	"scorecard-issues":       TagScorecardIssue,
	"scorecard-issue-detail": TagScorecardIssue,
	"scorecard":              TagScorecardPDF,
}

// Router maps validated filenames to source-format profiles. It is
// privilege-agnostic; the caller enforces the Restricted flag.
type Router struct {
	profiles map[string]*Profile
}

// NewRouter builds a router over the given profiles.
func NewRouter(profiles []*Profile) *Router {
	byTag := make(map[string]*Profile, len(profiles))
	for _, p := range profiles {
		byTag[p.Tag] = p
	}
	return &Router{profiles: byTag}
}

// Detect selects the profile for a filename and extracts its report date.
func (r *Router) Detect(filename string) (*Profile, time.Time, error) {
	m := filenamePattern.FindStringSubmatch(strings.TrimSpace(filename))
	if m == nil {
		return nil, time.Time{}, fmt.Errorf("%w: filename %q does not match <source>-<YYYYMMDD>.<ext>", shared.ErrUnrecognizedFormat, filename)
	}
	source, dateStr, ext := strings.ToLower(m[1]), m[2], strings.ToLower(m[3])

	// The longest alias wins: "scorecard-summary-20250827.csv" must not
	// resolve to the bare "scorecard" PDF placeholder.
	tag, ok := sourceAliases[source]
	if !ok {
		return nil, time.Time{}, fmt.Errorf("%w: unknown source tag %q", shared.ErrUnrecognizedFormat, source)
	}

	profile, ok := r.profiles[tag]
	if !ok {
		return nil, time.Time{}, fmt.Errorf("%w: no profile registered for %q", shared.ErrUnrecognizedFormat, tag)
	}

	if string(profile.FileType) != ext {
		return nil, time.Time{}, fmt.Errorf("%w: source %q expects a .%s file, got .%s", shared.ErrUnrecognizedFormat, tag, profile.FileType, ext)
	}

	reportDate, err := time.ParseInLocation("20060102", dateStr, time.UTC)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: invalid embedded date %q", shared.ErrMalformedInput, dateStr)
	}
	return profile, reportDate, nil
}
