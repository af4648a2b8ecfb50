package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQueryInt(t *testing.T) {
	assert.Equal(t, 5, parseQueryInt("5", 1))
	assert.Equal(t, 1, parseQueryInt("", 1))
	assert.Equal(t, 1, parseQueryInt("abc", 1))
	assert.Equal(t, -3, parseQueryInt("-3", 1))
}

func TestNewPaginationLinks(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/detections?severity=high&page=2&per_page=10", nil)

	links := NewPaginationLinks(req, 2, 10, 4)
	require.NotNil(t, links)

	assert.Contains(t, links.Self, "page=2")
	assert.Contains(t, links.Self, "severity=high")
	assert.Contains(t, links.First, "page=1")
	assert.Contains(t, links.Prev, "page=1")
	assert.Contains(t, links.Next, "page=3")
	assert.Contains(t, links.Last, "page=4")
}

func TestNewPaginationLinksFirstPage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/detections", nil)

	links := NewPaginationLinks(req, 1, 20, 3)
	require.NotNil(t, links)
	assert.Empty(t, links.Prev)
	assert.NotEmpty(t, links.Next)
}

func TestNewPaginationLinksLastPage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/detections", nil)

	links := NewPaginationLinks(req, 3, 20, 3)
	require.NotNil(t, links)
	assert.Empty(t, links.Next)
	assert.NotEmpty(t, links.Prev)
}

func TestNewPaginationLinksEmptyResult(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/detections", nil)
	assert.Nil(t, NewPaginationLinks(req, 1, 20, 0))
}

func TestNewPaginationLinksForwardedHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/detections", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	req.Header.Set("X-Forwarded-Host", "api.example.com")

	links := NewPaginationLinks(req, 1, 20, 1)
	require.NotNil(t, links)
	assert.Contains(t, links.Self, "https://api.example.com/api/v1/detections")
}
