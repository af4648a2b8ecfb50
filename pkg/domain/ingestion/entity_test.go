package ingestion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secboard/api/pkg/domain/shared"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := NewLog(
		"edr-falcon_20250827.csv",
		"falcon-20250827.csv",
		FileTypeCSV,
		"edr-falcon",
		"abc123",
		time.Date(2025, 8, 27, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	return l
}

func TestNewLog(t *testing.T) {
	l := newTestLog(t)

	assert.False(t, l.ID().IsZero())
	assert.Equal(t, StatusPending, l.Status())
	assert.False(t, l.IsFinalized())
	assert.Nil(t, l.FinalizedAt())
	assert.False(t, l.DuplicateUpload())
	assert.WithinDuration(t, time.Now().UTC(), l.ImportedAt(), time.Second)
}

func TestNewLogValidation(t *testing.T) {
	_, err := NewLog("", "orig.csv", FileTypeCSV, "tag", "sum", time.Now())
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = NewLog("file.csv", "orig.csv", FileTypeCSV, "", "sum", time.Now())
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = NewLog("file.csv", "orig.csv", FileTypeCSV, "tag", "", time.Now())
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestMarkSuccess(t *testing.T) {
	l := newTestLog(t)
	l.MarkSuccess(100, 2, "row 5: bad severity")

	assert.Equal(t, StatusSuccess, l.Status())
	assert.Equal(t, 100, l.RowsProcessed())
	assert.Equal(t, 2, l.RowErrors())
	assert.Equal(t, "row 5: bad severity", l.ErrorLog())
	assert.True(t, l.IsFinalized())
	require.NotNil(t, l.FinalizedAt())
}

func TestMarkPartial(t *testing.T) {
	l := newTestLog(t)
	l.MarkPartial(10, "every row failed")

	assert.Equal(t, StatusPartial, l.Status())
	assert.Equal(t, 0, l.RowsProcessed())
	assert.Equal(t, 10, l.RowErrors())
	assert.True(t, l.IsFinalized())
}

func TestMarkFailed(t *testing.T) {
	l := newTestLog(t)
	l.MarkFailed("file could not be parsed as CSV")

	assert.Equal(t, StatusFailed, l.Status())
	assert.Equal(t, "file could not be parsed as CSV", l.ErrorLog())
	assert.True(t, l.IsFinalized())
}

func TestFlagDuplicateUpload(t *testing.T) {
	l := newTestLog(t)
	l.FlagDuplicateUpload()

	assert.True(t, l.DuplicateUpload())
	assert.Equal(t, StatusPending, l.Status(), "flagging does not finalize")
}

func TestStatusIsValid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusSuccess, StatusPartial, StatusFailed} {
		assert.True(t, s.IsValid(), "status %q", s)
	}
	assert.False(t, Status("bogus").IsValid())
	assert.False(t, Status("").IsValid())
}
