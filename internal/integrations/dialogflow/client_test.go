package dialogflow

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeTokens struct {
	token string
	err   error
	calls int
}

func (f *fakeTokens) Token(_ context.Context) (string, error) {
	f.calls++
	return f.token, f.err
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(
		&fakeTokens{token: "tok-test"},
		WithEndpoint(srv.URL+"/v1/query?v=20150910"),
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
	)
	require.NoError(t, err)
	return c
}

func validRequest() QueryRequest {
	return QueryRequest{Lang: "en", Query: "Hello", SessionID: "12345", Timezone: "Asia/Colombo"}
}

// ---------------------------------------------------------------------------
// NewClient
// ---------------------------------------------------------------------------

func TestNewClient_NilTokenSource(t *testing.T) {
	_, err := NewClient(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "nil")
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(&fakeTokens{}, WithEndpoint("  "))
	require.NoError(t, err)
	require.Equal(t, DefaultEndpoint, c.endpoint)
	require.NotNil(t, c.httpClient)
}

// ---------------------------------------------------------------------------
// Client.Query
// ---------------------------------------------------------------------------

func TestClient_Query_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/query", r.URL.Path)
		require.Equal(t, "20150910", r.URL.Query().Get("v"))
		require.Equal(t, "Bearer tok-test", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, map[string]string{
			"lang":      "en",
			"query":     "Hello",
			"sessionId": "12345",
			"timezone":  "Asia/Colombo",
		}, body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "q-1",
			"result": {
				"fulfillment": {
					"speech": "Hi there!",
					"messages": [
						{"type": 0, "speech": "Hi there!"},
						{"type": 4, "payload": {"response": {"types": ["Cafe", "Bar"], "possibleAnswers": ["Cafe"]}}}
					]
				}
			},
			"status": {"code": 200, "errorType": "success"}
		}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	resp, err := c.Query(context.Background(), validRequest())
	require.NoError(t, err)
	require.Equal(t, "Hi there!", resp.Speech())

	msgs := resp.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, Speech("Hi there!"), msgs[0].Speech)
	_, ok := msgs[0].Types()
	require.False(t, ok)

	types, ok := msgs[1].Types()
	require.True(t, ok)
	require.Equal(t, []string{"Cafe", "Bar"}, types)
	answers, ok := msgs[1].PossibleAnswers()
	require.True(t, ok)
	require.Equal(t, []string{"Cafe"}, answers)
}

func TestClient_Query_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		_, _ = w.Write([]byte(`{"status":{"code":401,"errorType":"unauthorized"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Query(context.Background(), validRequest())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unexpected status 401")

	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, 401, statusErr.HTTPStatusCode())
}

func TestClient_Query_InBandErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":{"code":400,"errorType":"bad_request"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Query(context.Background(), validRequest())
	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, 400, statusErr.StatusCode)
	require.Equal(t, "bad_request", statusErr.Body)
}

func TestClient_Query_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not-a-json`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Query(context.Background(), validRequest())
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode response")
}

func TestClient_Query_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}
	_, err := c.Query(context.Background(), validRequest())
	require.Error(t, err)
	require.Contains(t, err.Error(), "request failed")
}

func TestClient_Query_TokenError(t *testing.T) {
	c, err := NewClient(&fakeTokens{err: errors.New("ssm unavailable")})
	require.NoError(t, err)
	_, err = c.Query(context.Background(), validRequest())
	require.Error(t, err)
	require.Contains(t, err.Error(), "ssm unavailable")
}

func TestClient_Query_ValidatesInput(t *testing.T) {
	tokens := &fakeTokens{token: "tok"}
	c, err := NewClient(tokens)
	require.NoError(t, err)

	in := validRequest()
	in.Query = "  "
	_, err = c.Query(context.Background(), in)
	require.ErrorContains(t, err, "query must not be empty")

	in = validRequest()
	in.SessionID = ""
	_, err = c.Query(context.Background(), in)
	require.ErrorContains(t, err, "session id")
	require.Zero(t, tokens.calls)
}

func TestClient_Query_EmptyBodyHasNoMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	resp, err := c.Query(context.Background(), validRequest())
	require.NoError(t, err)
	require.Empty(t, resp.Messages())
	require.Empty(t, resp.Speech())
}
