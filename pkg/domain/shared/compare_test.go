package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fp(v float64) *float64 { return &v }
func sp(v string) *string   { return &v }

func TestFloatPtrChanged(t *testing.T) {
	assert.False(t, FloatPtrChanged(nil, nil))
	assert.True(t, FloatPtrChanged(fp(1), nil))
	assert.True(t, FloatPtrChanged(nil, fp(1)))
	assert.True(t, FloatPtrChanged(fp(1), fp(2)))

	// Differences within the epsilon are float noise, not changes.
	assert.False(t, FloatPtrChanged(fp(42.500), fp(42.505)))
	assert.True(t, FloatPtrChanged(fp(42.5), fp(42.52)))
}

func TestStringPtrChanged(t *testing.T) {
	assert.False(t, StringPtrChanged(nil, nil))
	assert.False(t, StringPtrChanged(nil, sp("")))
	assert.False(t, StringPtrChanged(sp("   "), nil))
	assert.False(t, StringPtrChanged(sp(" a "), sp("a")))
	assert.True(t, StringPtrChanged(sp("a"), sp("b")))
	assert.True(t, StringPtrChanged(nil, sp("a")))
}

func TestStringChanged(t *testing.T) {
	assert.False(t, StringChanged(" a ", "a"))
	assert.True(t, StringChanged("a", "b"))
	assert.False(t, StringChanged("", "  "))
}
