package ingest

import (
	"strconv"
	"strings"

	"github.com/secboard/api/pkg/domain/shared"
)

// Severity fallback policy per format family. The two defaults differ on
// purpose: generic severities (scanner, advisory, cloud) fall back to INFO,
// alert-style severities (EDR) to MEDIUM. This mirrors long-standing source
// behavior and is kept as an explicit named policy instead of scattered
// literals.
var (
	SeverityFallbackGeneric = shared.SeverityInfo
	SeverityFallbackAlert   = shared.SeverityMedium
)

var severityAliases = map[string]shared.Severity{
	"critical": shared.SeverityCritical,
	"crit":     shared.SeverityCritical,
	"urgent":   shared.SeverityCritical,
	"high":     shared.SeverityHigh,
	"severe":   shared.SeverityHigh,
	"important": shared.SeverityHigh,
	"medium":   shared.SeverityMedium,
	"moderate": shared.SeverityMedium,
	"med":      shared.SeverityMedium,
	"low":      shared.SeverityLow,
	"minor":    shared.SeverityLow,
	"info":          shared.SeverityInfo,
	"informational": shared.SeverityInfo,
	"none":          shared.SeverityInfo,
}

// NormalizeSeverity case-folds a vendor severity and maps it to the fixed
// enumeration. Unrecognized values take the caller's fallback.
func NormalizeSeverity(s string, fallback shared.Severity) shared.Severity {
	if sev, ok := severityAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return sev
	}
	return fallback
}

var statusAliases = map[string]shared.RecordStatus{
	"open":     shared.StatusOpen,
	"new":      shared.StatusOpen,
	"to do":    shared.StatusOpen,
	"todo":     shared.StatusOpen,
	"reopened": shared.StatusOpen,
	"active":   shared.StatusOpen,
	"in progress":   shared.StatusInProgress,
	"investigating": shared.StatusInProgress,
	"in review":     shared.StatusInProgress,
	"pending":       shared.StatusInProgress,
	"resolved":   shared.StatusResolved,
	"done":       shared.StatusResolved,
	"fixed":      shared.StatusResolved,
	"remediated": shared.StatusResolved,
	"mitigated":  shared.StatusResolved,
	"closed":    shared.StatusClosed,
	"complete":  shared.StatusClosed,
	"completed": shared.StatusClosed,
	"dismissed":      shared.StatusDismissed,
	"false positive": shared.StatusDismissed,
	"suppressed":     shared.StatusDismissed,
	"ignored":        shared.StatusDismissed,
	"wont fix":       shared.StatusDismissed,
	"won t fix":      shared.StatusDismissed,
}

// NormalizeStatus case-folds a vendor status and maps it to the closed
// status set. Unrecognized values default to open.
func NormalizeStatus(s string) shared.RecordStatus {
	norm := normalizeHeaderName(s)
	if st, ok := statusAliases[norm]; ok {
		return st
	}
	return shared.StatusOpen
}

// ParseFloat parses a numeric field tolerating thousands separators and
// surrounding whitespace. Returns nil when unparseable.
func ParseFloat(s string) *float64 {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if cleaned == "" {
		return nil
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &f
}

// ParseInt parses an integer field the same way, defaulting to 0.
func ParseInt(s string) int {
	if f := ParseFloat(s); f != nil {
		return int(*f)
	}
	return 0
}

// OptionalString returns nil for blank values so absent and empty compare
// equal during reconciliation.
func OptionalString(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
