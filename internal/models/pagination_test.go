package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	cases := []struct {
		name  string
		page  int
		limit int
		total int
		pages int
	}{
		{"exact multiple", 1, 10, 30, 3},
		{"partial last page", 1, 10, 25, 3},
		{"single row", 1, 10, 1, 1},
		{"empty", 1, 10, 0, 0},
		{"limit normalised", 1, 0, 25, 3},
		{"page normalised", 0, 10, 25, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPagination(tc.page, tc.limit, tc.total)
			assert.Equal(t, tc.pages, p.Pages)
			assert.GreaterOrEqual(t, p.Page, 1)
			assert.Greater(t, p.Limit, 0)
		})
	}
}

func TestPaginationOffset(t *testing.T) {
	p := NewPagination(3, 10, 25)
	assert.Equal(t, 20, p.Offset())

	first := NewPagination(1, 10, 25)
	assert.Equal(t, 0, first.Offset())
}
