package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrawlExtractsReadableText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Dosage Guide</title>
			<script>var x = "noise";</script></head>
			<body><nav>menu items</nav>
			<article><h1>Metformin Dosage</h1><p>Start at 500 mg daily.</p></article>
			</body></html>`))
	}))
	defer srv.Close()

	res, err := NewCrawl().Execute(context.Background(), Call{
		ID:        "c1",
		Arguments: map[string]any{"url": srv.URL},
	})
	require.NoError(t, err)
	require.NoError(t, res.Error)
	assert.Contains(t, res.Content, "Title: Dosage Guide")
	assert.Contains(t, res.Content, "Metformin Dosage")
	assert.Contains(t, res.Content, "Start at 500 mg daily.")
	assert.NotContains(t, res.Content, "noise")
	assert.NotContains(t, res.Content, "menu items")
}

func TestCrawlCachesRepeatVisits(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte(`<html><head><title>Cached</title></head><body><p>body text</p></body></html>`))
	}))
	defer srv.Close()

	crawl := NewCrawl()
	call := Call{ID: "c1", Arguments: map[string]any{"url": srv.URL}}

	first, err := crawl.Execute(context.Background(), call)
	require.NoError(t, err)
	require.NoError(t, first.Error)

	second, err := crawl.Execute(context.Background(), call)
	require.NoError(t, err)
	require.NoError(t, second.Error)

	assert.Equal(t, 1, hits)
	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, true, second.Metadata["cached"])
}

func TestCrawlRejectsInvalidURL(t *testing.T) {
	res, err := NewCrawl().Execute(context.Background(), Call{
		ID:        "c1",
		Arguments: map[string]any{"url": "ftp://example.org"},
	})
	require.NoError(t, err)
	assert.Error(t, res.Error)
}

func TestCrawlReportsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	res, err := NewCrawl().Execute(context.Background(), Call{
		ID:        "c1",
		Arguments: map[string]any{"url": srv.URL},
	})
	require.NoError(t, err)
	assert.Error(t, res.Error)
	assert.Contains(t, res.Content, "404")
}
