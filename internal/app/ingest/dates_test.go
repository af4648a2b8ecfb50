package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2025-08-27T02:29:55Z", time.Date(2025, 8, 27, 2, 29, 55, 0, time.UTC)},
		{"2025-08-27T02:29:55", time.Date(2025, 8, 27, 2, 29, 55, 0, time.UTC)},
		{"2025-08-27 02:29:55", time.Date(2025, 8, 27, 2, 29, 55, 0, time.UTC)},
		{"2025/08/27 02:29:55 UTC", time.Date(2025, 8, 27, 2, 29, 55, 0, time.UTC)},
		{"08/27/2025 14:30:00", time.Date(2025, 8, 27, 14, 30, 0, 0, time.UTC)},
		{"08/27/2025", time.Date(2025, 8, 27, 0, 0, 0, 0, time.UTC)},
		{"27/Aug/25 9:15 AM", time.Date(2025, 8, 27, 9, 15, 0, 0, time.UTC)},
		{"5/Aug/25 3:04 PM", time.Date(2025, 8, 5, 15, 4, 0, 0, time.UTC)},
		{"27-Aug-2025", time.Date(2025, 8, 27, 0, 0, 0, 0, time.UTC)},
		{"2025/08/27", time.Date(2025, 8, 27, 0, 0, 0, 0, time.UTC)},
		{"2025-08-27", time.Date(2025, 8, 27, 0, 0, 0, 0, time.UTC)},
		{"  2025-08-27  ", time.Date(2025, 8, 27, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got := ParseDate(tc.in)
		require.NotNil(t, got, "input %q", tc.in)
		assert.True(t, got.Equal(tc.want), "input %q: got %v, want %v", tc.in, got, tc.want)
	}
}

func TestParseDateUnparseable(t *testing.T) {
	for _, in := range []string{"", "   ", "not a date", "99/99/9999", "2025-13-45"} {
		assert.Nil(t, ParseDate(in), "input %q", in)
	}
}

func TestDayBucket(t *testing.T) {
	ts := time.Date(2025, 8, 27, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 8, 27, 0, 0, 0, 0, time.UTC), DayBucket(ts))

	midnight := time.Date(2025, 8, 27, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, midnight, DayBucket(midnight))
}
