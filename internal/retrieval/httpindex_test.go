package retrieval

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func indexServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "TREND", req["book"])
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[
			{"book":"TREND","chunk_id":"t-1","seq":1,"page_start":10,"page_end":12,
			 "section":"pullbacks","text":"buy the pullback","n_tokens":42,"score":0.87}
		]}`))
	})
	mux.HandleFunc("/neighbors", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"chunks":[
			{"book":"TREND","chunk_id":"t-0","seq":0,"text":"before","n_tokens":30},
			{"book":"TREND","chunk_id":"t-1","seq":1,"text":"hit","n_tokens":42},
			{"book":"TREND","chunk_id":"t-2","seq":2,"text":"after","n_tokens":35}
		]}`))
	})
	return httptest.NewServer(mux)
}

func TestHTTPIndexSearch(t *testing.T) {
	srv := indexServer(t)
	defer srv.Close()

	idx := NewHTTPIndex(srv.URL)
	out, err := idx.Search(context.Background(), "pullback entries", 6, Filter{Book: "TREND"})
	require.NoError(t, err)
	require.Len(t, out, 1)

	sc := out[0]
	assert.Equal(t, "t-1", sc.ChunkID)
	assert.Equal(t, 1, sc.Seq)
	assert.Equal(t, 10, sc.PageStart)
	assert.Equal(t, "pullbacks", sc.Section)
	assert.Equal(t, 42, sc.NTokens)
	assert.Equal(t, 0.87, sc.Score)
}

func TestHTTPIndexNeighbors(t *testing.T) {
	srv := indexServer(t)
	defer srv.Close()

	idx := NewHTTPIndex(srv.URL)
	out, err := idx.Neighbors(context.Background(), "TREND", 1, 1)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, 0, out[0].Seq)
	assert.Equal(t, 2, out[2].Seq)
}

func TestHTTPIndexErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	idx := NewHTTPIndex(srv.URL)
	_, err := idx.Search(context.Background(), "q", 6, Filter{})
	assert.Error(t, err)
}

func TestHTTPIndexUnreachable(t *testing.T) {
	idx := NewHTTPIndex("http://127.0.0.1:1")
	_, err := idx.Search(context.Background(), "q", 6, Filter{})
	assert.Error(t, err)
}
