// Package dialogflow is a focused client for a Dialogflow v1 style query
// endpoint: one POST per user utterance, bearer-token authenticated.
package dialogflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultEndpoint is the v1 query endpoint pinned to the protocol version the
// payload shapes in this package follow.
const DefaultEndpoint = "https://api.dialogflow.com/v1/query?v=20150910"

const defaultTimeout = 10 * time.Second

// TokenSource yields the bearer token for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// HTTPStatusError captures non-2xx upstream responses.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("dialogflow: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client sends query turns to the NLU backend.
type Client struct {
	endpoint   string
	httpClient *http.Client
	tokens     TokenSource
}

type Option func(*Client)

func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = strings.TrimSpace(endpoint)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client that authenticates with tokens from ts.
func NewClient(ts TokenSource, opts ...Option) (*Client, error) {
	if ts == nil {
		return nil, errors.New("dialogflow: token source must not be nil")
	}
	c := &Client{
		endpoint:   DefaultEndpoint,
		httpClient: &http.Client{Timeout: defaultTimeout},
		tokens:     ts,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.endpoint == "" {
		c.endpoint = DefaultEndpoint
	}
	return c, nil
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: defaultTimeout}
}

// Query sends one utterance and decodes the response.
func (c *Client) Query(ctx context.Context, in QueryRequest) (*QueryResponse, error) {
	if strings.TrimSpace(in.Query) == "" {
		return nil, errors.New("dialogflow: query must not be empty")
	}
	if strings.TrimSpace(in.SessionID) == "" {
		return nil, errors.New("dialogflow: session id must not be empty")
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("dialogflow: resolve token: %w", err)
	}

	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("dialogflow: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("dialogflow: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	raw, err := c.doJSONRequest(req)
	if err != nil {
		return nil, fmt.Errorf("dialogflow: request failed: %w", err)
	}

	var out QueryResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("dialogflow: decode response: %w", err)
	}
	// v1 reports some failures in-band with a 200.
	if out.Status != nil && out.Status.Code >= 300 {
		return nil, &HTTPStatusError{
			StatusCode: out.Status.Code,
			URL:        c.endpoint,
			Body:       out.Status.ErrorType,
		}
	}
	return &out, nil
}

func (c *Client) doJSONRequest(req *http.Request) ([]byte, error) {
	res, err := c.resolvedHTTPClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        req.URL.String(),
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}
