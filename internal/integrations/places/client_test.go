package places

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient("key-test",
		WithBaseURL(srv.URL+"/maps/api/place/"),
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
		WithRateLimit(0),
	)
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient("  ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "api key")
}

func TestSearchURL(t *testing.T) {
	got := searchURL("https://maps.googleapis.com/maps/api/place/", "cafes in Colombo", "k")
	require.Equal(t, "https://maps.googleapis.com/maps/api/place/textsearch/json?key=k&query=cafes+in+Colombo", got)
}

func TestSearch_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/maps/api/place/textsearch/json", r.URL.Path)
		require.Equal(t, "Cafe", r.URL.Query().Get("query"))
		require.Equal(t, "key-test", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(`{
			"status": "OK",
			"results": [
				{"place_id": "a", "name": "Cafe A", "formatted_address": "1 Main St", "rating": 4.5,
				 "types": ["cafe"], "geometry": {"location": {"lat": 6.9, "lng": 79.8}}},
				{"place_id": "b", "name": "Cafe B"}
			]
		}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	locs, err := c.Search(context.Background(), " Cafe ")
	require.NoError(t, err)
	require.Len(t, locs, 2)
	require.Equal(t, "a", locs[0].PlaceID)
	require.Equal(t, "Cafe A", locs[0].Name)
	require.Equal(t, "1 Main St", locs[0].Address)
	require.InDelta(t, 6.9, locs[0].Lat, 1e-9)
	require.InDelta(t, 79.8, locs[0].Lng, 1e-9)
	require.Equal(t, []string{"cafe"}, locs[0].Types)
	require.Equal(t, "b", locs[1].PlaceID)
}

func TestSearch_ZeroResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	}))
	defer srv.Close()

	locs, err := newTestClient(t, srv).Search(context.Background(), "nothing")
	require.NoError(t, err)
	require.NotNil(t, locs)
	require.Empty(t, locs)
}

func TestSearch_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"bad key"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Search(context.Background(), "Cafe")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, "REQUEST_DENIED", statusErr.Status)
	require.Contains(t, err.Error(), "bad key")
}

func TestSearch_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(503)
		_, _ = w.Write([]byte(`unavailable`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Search(context.Background(), "Cafe")
	require.Error(t, err)
	require.Contains(t, err.Error(), "503")
}

func TestSearch_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not-json`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Search(context.Background(), "Cafe")
	require.ErrorContains(t, err, "decode response")
}

func TestSearch_EmptyQuery(t *testing.T) {
	c, err := NewClient("k")
	require.NoError(t, err)
	_, err = c.Search(context.Background(), " ")
	require.ErrorContains(t, err, "query must not be empty")
}

func TestSearch_RateLimitHonoursContext(t *testing.T) {
	c, err := NewClient("k", WithRateLimit(0.001))
	require.NoError(t, err)
	// drain the single burst token
	require.True(t, c.limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = c.Search(ctx, "Cafe")
	require.ErrorContains(t, err, "rate limit")
}
