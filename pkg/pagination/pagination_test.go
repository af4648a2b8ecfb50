package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAppliesDefaults(t *testing.T) {
	p := New(0, 0)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PerPage)

	p = New(-5, -1)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PerPage)
}

func TestNewCapsPerPage(t *testing.T) {
	p := New(1, 500)
	assert.Equal(t, 100, p.PerPage)
}

func TestOffsetAndLimit(t *testing.T) {
	p := New(3, 25)
	assert.Equal(t, 50, p.Offset())
	assert.Equal(t, 25, p.Limit())

	first := New(1, 10)
	assert.Equal(t, 0, first.Offset())
}

func TestNewResult(t *testing.T) {
	r := NewResult([]int{1, 2, 3}, 45, New(1, 20))
	assert.Equal(t, int64(45), r.Total)
	assert.Equal(t, 3, r.TotalPages)
	assert.Equal(t, 1, r.Page)
	assert.Equal(t, 20, r.PerPage)
}

func TestNewResultExactPageBoundary(t *testing.T) {
	r := NewResult([]int{1}, 40, New(1, 20))
	assert.Equal(t, 2, r.TotalPages)
}

func TestNewResultNilData(t *testing.T) {
	r := NewResult[string](nil, 0, New(1, 20))
	assert.NotNil(t, r.Data)
	assert.Empty(t, r.Data)
	assert.Equal(t, 0, r.TotalPages)
}
