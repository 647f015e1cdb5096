package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSearchFormatsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "metformin side effects", req["query"])
		assert.EqualValues(t, 3, req["max_results"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"query":  "metformin side effects",
			"answer": "GI upset is most common.",
			"results": []map[string]any{
				{"title": "Metformin review", "url": "https://example.org/a", "content": "Common side effects include nausea."},
			},
		})
	}))
	defer srv.Close()

	ws := NewWebSearch("key", 5)
	ws.endpoint = srv.URL

	res, err := ws.Execute(context.Background(), Call{
		ID:        "c1",
		Arguments: map[string]any{"query": "metformin side effects", "max_results": float64(3)},
	})
	require.NoError(t, err)
	require.NoError(t, res.Error)
	assert.Contains(t, res.Content, "GI upset is most common.")
	assert.Contains(t, res.Content, "https://example.org/a")
	assert.Equal(t, 1, res.Metadata["results_count"])
}

func TestWebSearchMissingKey(t *testing.T) {
	ws := NewWebSearch("", 5)
	res, err := ws.Execute(context.Background(), Call{ID: "c1", Arguments: map[string]any{"query": "x"}})
	require.NoError(t, err)
	assert.Error(t, res.Error)
	assert.Contains(t, res.Content, "TAVILY_API_KEY")
}

func TestWebSearchMissingQuery(t *testing.T) {
	ws := NewWebSearch("key", 5)
	res, err := ws.Execute(context.Background(), Call{ID: "c1", Arguments: map[string]any{}})
	require.NoError(t, err)
	assert.Error(t, res.Error)
}
