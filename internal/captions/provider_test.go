package captions

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchConcatenatesAndNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/timedtext", r.URL.Path)
		assert.Equal(t, "abc123", r.URL.Query().Get("v"))
		fmt.Fprint(w, `<?xml version="1.0" encoding="utf-8"?>
<transcript>
  <text start="0" dur="2.1">hello   world</text>
  <text start="2.1" dur="1.8">it&#39;s a
test</text>
  <text start="3.9" dur="1.0">   </text>
  <text start="4.9" dur="2.0">of captions</text>
</transcript>`)
	}))
	defer srv.Close()

	p := NewProvider(srv.URL)
	text, err := p.Fetch(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "hello world it's a test of captions", text)
}

func TestFetchPrefersEnglishThenDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("lang") == "en" {
			// No English track: empty payload.
			fmt.Fprint(w, `<transcript></transcript>`)
			return
		}
		fmt.Fprint(w, `<transcript><text>bonjour tout le monde</text></transcript>`)
	}))
	defer srv.Close()

	p := NewProvider(srv.URL)
	text, err := p.Fetch(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "bonjour tout le monde", text)
}

func TestFetchNoCaptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<transcript></transcript>`)
	}))
	defer srv.Close()

	p := NewProvider(srv.URL)
	_, err := p.Fetch(context.Background(), "abc123")
	require.ErrorIs(t, err, ErrNoCaptions)
}

func TestFetchNoCaptionsOnHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	p := NewProvider(srv.URL)
	_, err := p.Fetch(context.Background(), "abc123")
	require.ErrorIs(t, err, ErrNoCaptions)
}
