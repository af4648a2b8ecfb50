package shared

import (
	"math"
	"strings"
)

// FloatEpsilon is the tolerance below which numeric fields are considered
// unchanged during reconciliation, so float noise in vendor exports does
// not churn records.
const FloatEpsilon = 0.01

// FloatPtrChanged reports whether two optional numeric fields differ beyond
// FloatEpsilon. nil on both sides is not a change.
func FloatPtrChanged(a, b *float64) bool {
	if a == nil && b == nil {
		return false
	}
	if a == nil || b == nil {
		return true
	}
	return math.Abs(*a-*b) > FloatEpsilon
}

// StringPtrChanged reports whether two optional string fields differ.
// nil and the empty (or blank) string both represent "absent" and comparing
// one against the other is not a change.
func StringPtrChanged(a, b *string) bool {
	av, bv := "", ""
	if a != nil {
		av = strings.TrimSpace(*a)
	}
	if b != nil {
		bv = strings.TrimSpace(*b)
	}
	return av != bv
}

// StringChanged reports whether two required string fields differ after
// trimming.
func StringChanged(a, b string) bool {
	return strings.TrimSpace(a) != strings.TrimSpace(b)
}
