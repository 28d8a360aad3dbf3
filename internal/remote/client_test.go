package remote

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/content", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "2026-03-01T00:00:00Z", r.URL.Query().Get("updated_since"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"facts": [{"id": 1, "title": "Fact", "body": "Body", "language": "en"}],
			"categories": [{"id": 1, "name": "Science", "slug": "science"}],
			"questions": [{"id": 5, "fact_id": 1, "type": "true_false", "prompt": "True?", "correct_answer": "true", "options": ["true", "false"]}]
		}`))
	}))
	defer server.Close()

	client := New(server.URL, "secret")
	batch, err := client.FetchContent(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Len(t, batch.Facts, 1)
	assert.Equal(t, "Fact", batch.Facts[0].Title)
	require.Len(t, batch.Categories, 1)
	require.Len(t, batch.Questions, 1)
	assert.Equal(t, []string{"true", "false"}, batch.Questions[0].Options)
}

func TestFetchContent_NoSinceParam(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("updated_since"))
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	_, err := New(server.URL, "").FetchContent(time.Time{})
	require.NoError(t, err)
}

func TestFetchContent_ErrorBodySurfaced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := New(server.URL, "").FetchContent(time.Time{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "quota exceeded")
}
