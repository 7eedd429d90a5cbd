package watchlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPagination_TotalPages(t *testing.T) {
	tests := []struct {
		total, size, pages int
	}{
		{57, 25, 3},
		{50, 25, 2},
		{1, 25, 1},
		{0, 25, 0},
		{57, 10, 6},
		{25, 25, 1},
	}
	for _, tt := range tests {
		p := NewPagination(tt.size)
		p.SetTotal(tt.total)
		assert.Equal(t, tt.pages, p.TotalPages(), "total=%d size=%d", tt.total, tt.size)
	}
}

func TestPagination_GoToPage(t *testing.T) {
	p := NewPagination(25)
	p.SetTotal(57)

	assert.False(t, p.GoToPage(0), "page 0 is a no-op")
	assert.Equal(t, 1, p.CurrentPage)

	assert.False(t, p.GoToPage(4), "page past the end is a no-op")
	assert.Equal(t, 1, p.CurrentPage)

	assert.False(t, p.GoToPage(1), "same page is a no-op")

	assert.True(t, p.GoToPage(3))
	assert.Equal(t, 3, p.CurrentPage)
}

func TestPagination_SetPageSizeResets(t *testing.T) {
	p := NewPagination(25)
	p.SetTotal(57)
	p.GoToPage(3)

	p.SetPageSize(10)
	assert.Equal(t, 1, p.CurrentPage, "page size change resets to page 1")
	assert.Equal(t, 6, p.TotalPages())
}

func TestPagination_Bounds(t *testing.T) {
	p := NewPagination(25)
	p.SetTotal(57)

	start, end := p.Bounds()
	assert.Equal(t, 0, start)
	assert.Equal(t, 25, end)

	p.GoToPage(3)
	start, end = p.Bounds()
	assert.Equal(t, 50, start)
	assert.Equal(t, 57, end, "last page is the remainder")
}

func TestPagination_Empty(t *testing.T) {
	p := NewPagination(25)
	p.SetTotal(0)

	assert.Equal(t, 0, p.TotalItems)
	assert.Equal(t, 0, p.TotalPages())
	start, end := p.Bounds()
	assert.Equal(t, 0, start)
	assert.Equal(t, 0, end)
}
