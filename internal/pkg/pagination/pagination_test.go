package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	p := New(2, 10, 35)

	assert.Equal(t, 4, p.TotalPages)
	assert.True(t, p.HasNext)
	assert.True(t, p.HasPrev)

	last := New(4, 10, 35)
	assert.False(t, last.HasNext)
}

func TestNormalize(t *testing.T) {
	page, limit := Normalize(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, DefaultLimit, limit)

	_, limit = Normalize(3, 1000)
	assert.Equal(t, MaxLimit, limit)
}

func TestNewEmpty(t *testing.T) {
	p := New(1, 20, 0)

	assert.Equal(t, 0, p.TotalPages)
	assert.False(t, p.HasNext)
	assert.False(t, p.HasPrev)
}
