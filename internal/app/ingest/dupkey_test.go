package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveKey(t *testing.T) {
	day := time.Date(2025, 8, 27, 10, 30, 0, 0, time.UTC)

	t.Run("deterministic", func(t *testing.T) {
		a := DeriveKey(day, "Test Alert", "host-1")
		b := DeriveKey(day, "Test Alert", "host-1")
		assert.Equal(t, a, b)
	})

	t.Run("case and whitespace insensitive", func(t *testing.T) {
		a := DeriveKey(day, "Test Alert", "HOST-1")
		b := DeriveKey(day, "  test alert  ", "host-1")
		assert.Equal(t, a, b)
	})

	t.Run("day bucket suffix", func(t *testing.T) {
		key := DeriveKey(day, "x")
		assert.True(t, strings.HasSuffix(key, "-20250827"), "key %q", key)
	})

	t.Run("different identity yields different key", func(t *testing.T) {
		a := DeriveKey(day, "Test Alert", "host-1")
		b := DeriveKey(day, "Test Alert", "host-2")
		assert.NotEqual(t, a, b)
	})

	t.Run("field order matters", func(t *testing.T) {
		a := DeriveKey(day, "a", "b")
		b := DeriveKey(day, "b", "a")
		assert.NotEqual(t, a, b)
	})

	t.Run("different day yields different key", func(t *testing.T) {
		a := DeriveKey(day, "x")
		b := DeriveKey(day.AddDate(0, 0, 1), "x")
		assert.NotEqual(t, a, b)
	})
}
