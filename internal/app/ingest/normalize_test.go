package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secboard/api/pkg/domain/shared"
)

func TestNormalizeSeverity(t *testing.T) {
	cases := map[string]shared.Severity{
		"Critical":      shared.SeverityCritical,
		"URGENT":        shared.SeverityCritical,
		"high":          shared.SeverityHigh,
		"Important":     shared.SeverityHigh,
		"Moderate":      shared.SeverityMedium,
		"med":           shared.SeverityMedium,
		"Low":           shared.SeverityLow,
		"minor":         shared.SeverityLow,
		"Informational": shared.SeverityInfo,
		"none":          shared.SeverityInfo,
		"  High  ":      shared.SeverityHigh,
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeSeverity(in, SeverityFallbackGeneric), "input %q", in)
	}
}

func TestNormalizeSeverityFallback(t *testing.T) {
	assert.Equal(t, shared.SeverityInfo, NormalizeSeverity("", SeverityFallbackGeneric))
	assert.Equal(t, shared.SeverityMedium, NormalizeSeverity("", SeverityFallbackAlert))
	assert.Equal(t, shared.SeverityMedium, NormalizeSeverity("whatever", SeverityFallbackAlert))
}

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]shared.RecordStatus{
		"Open":           shared.StatusOpen,
		"New":            shared.StatusOpen,
		"To Do":          shared.StatusOpen,
		"Reopened":       shared.StatusOpen,
		"In Progress":    shared.StatusInProgress,
		"Investigating":  shared.StatusInProgress,
		"Resolved":       shared.StatusResolved,
		"Done":           shared.StatusResolved,
		"Remediated":     shared.StatusResolved,
		"Closed":         shared.StatusClosed,
		"Completed":      shared.StatusClosed,
		"False Positive": shared.StatusDismissed,
		"Won't Fix":      shared.StatusDismissed,
		"Suppressed":     shared.StatusDismissed,
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeStatus(in), "input %q", in)
	}
}

func TestNormalizeStatusDefaultsToOpen(t *testing.T) {
	assert.Equal(t, shared.StatusOpen, NormalizeStatus(""))
	assert.Equal(t, shared.StatusOpen, NormalizeStatus("something vendor specific"))
}

func TestParseFloat(t *testing.T) {
	f := ParseFloat("42.5")
	require.NotNil(t, f)
	assert.Equal(t, 42.5, *f)

	f = ParseFloat("1,234.5")
	require.NotNil(t, f)
	assert.Equal(t, 1234.5, *f)

	f = ParseFloat("  7  ")
	require.NotNil(t, f)
	assert.Equal(t, 7.0, *f)

	assert.Nil(t, ParseFloat(""))
	assert.Nil(t, ParseFloat("n/a"))
}

func TestParseInt(t *testing.T) {
	assert.Equal(t, 42, ParseInt("42.9"))
	assert.Equal(t, 1234, ParseInt("1,234"))
	assert.Equal(t, 0, ParseInt(""))
	assert.Equal(t, 0, ParseInt("abc"))
}

func TestOptionalString(t *testing.T) {
	s := OptionalString("  value  ")
	require.NotNil(t, s)
	assert.Equal(t, "value", *s)

	assert.Nil(t, OptionalString(""))
	assert.Nil(t, OptionalString("   "))
}
