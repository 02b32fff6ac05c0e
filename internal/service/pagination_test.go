package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPaginationMiddlePage(t *testing.T) {
	// 12 records, limit 5, page 2 -> pages 1..3, this page full.
	p := BuildPagination(2, 5, 12, 5, 5)

	assert.Equal(t, 2, p.CurrentPage)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, int64(12), p.TotalDocuments)
	assert.Equal(t, 5, p.Limit)
	assert.True(t, p.HasNextPage)
	assert.True(t, p.HasPrevPage)
	assert.Equal(t, 3, *p.NextPage)
	assert.Equal(t, 1, *p.PrevPage)
	assert.Equal(t, 5, p.Skip)
	assert.Equal(t, 5, p.DocumentsInCurrentPage)
}

func TestBuildPaginationLastPartialPage(t *testing.T) {
	p := BuildPagination(3, 5, 12, 10, 2)

	assert.Equal(t, 3, p.TotalPages)
	assert.False(t, p.HasNextPage)
	assert.True(t, p.HasPrevPage)
	assert.Nil(t, p.NextPage)
	assert.Equal(t, 2, *p.PrevPage)
	assert.Equal(t, 2, p.DocumentsInCurrentPage)
}

func TestBuildPaginationFirstAndOnlyPage(t *testing.T) {
	p := BuildPagination(1, 10, 3, 0, 3)

	assert.Equal(t, 1, p.TotalPages)
	assert.False(t, p.HasNextPage)
	assert.False(t, p.HasPrevPage)
	assert.Nil(t, p.NextPage)
	assert.Nil(t, p.PrevPage)
}

func TestBuildPaginationEmpty(t *testing.T) {
	p := BuildPagination(1, 10, 0, 0, 0)

	assert.Equal(t, 0, p.TotalPages)
	assert.False(t, p.HasNextPage)
	assert.False(t, p.HasPrevPage)
	assert.Equal(t, 0, p.DocumentsInCurrentPage)
}

func TestBuildPaginationPageBeyondEnd(t *testing.T) {
	p := BuildPagination(5, 10, 12, 40, 0)

	assert.Equal(t, 2, p.TotalPages)
	assert.False(t, p.HasNextPage)
	assert.True(t, p.HasPrevPage)
	assert.Equal(t, 0, p.DocumentsInCurrentPage)
}
