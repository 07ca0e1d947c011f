// Package engine talks to the external Engine API: a small JSON client for
// the endpoints the server calls itself and a reverse proxy for the rest.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/looply/looply/internal/metrics"
)

const (
	// ClientTimeout is the total request timeout.
	ClientTimeout = 30 * time.Second
	// DialTimeout is the connection timeout.
	DialTimeout = 10 * time.Second
	// TLSHandshakeTimeout is the TLS negotiation timeout.
	TLSHandshakeTimeout = 10 * time.Second

	// maxResponseBytes caps buffered Engine responses.
	maxResponseBytes = 4 << 20
)

// NewHTTPClient creates an HTTP client configured for Engine calls.
// Redirects are returned to the caller instead of being followed.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = ClientTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: TLSHandshakeTimeout,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Client calls the Engine API.
type Client struct {
	baseURL string
	http    *http.Client
	metrics metrics.Recorder
}

// NewClient creates a Client for baseURL. An empty baseURL yields a client
// whose every call fails with CodeNotConfigured.
func NewClient(baseURL string, httpClient *http.Client, recorder metrics.Recorder) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient(ClientTimeout)
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    httpClient,
		metrics: recorder,
	}
}

// Configured reports whether an Engine base URL is set.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// BaseURL returns the normalized Engine base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Response is a buffered Engine response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// JSON returns the parsed body. Invalid JSON yields an empty result.
func (r *Response) JSON() gjson.Result {
	if !gjson.ValidBytes(r.Body) {
		return gjson.Result{}
	}
	return gjson.ParseBytes(r.Body)
}

// Do sends a JSON request to path (relative to the base URL).
//
// A non-2xx response returns both the Response and an *Error classified from
// it, so callers can either relay the upstream reply or map the error.
func (c *Client) Do(ctx context.Context, method, path string, body any, header http.Header) (*Response, error) {
	if !c.Configured() {
		return nil, NotConfiguredError()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode engine request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build engine request: %w", err)
	}
	for name, values := range header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveEngineRequest(0, time.Since(start))
		return nil, errNetwork(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	c.metrics.ObserveEngineRequest(resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, errNetwork(err)
	}

	res := &Response{Status: resp.StatusCode, Header: resp.Header, Body: raw}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return res, Classify(res.Status, res.JSON())
	}
	return res, nil
}

// CreateAPIKey asks the Engine to issue an API key for the bearer of
// authorization. The upstream reply is returned as is.
func (c *Client) CreateAPIKey(ctx context.Context, authorization string) (*Response, error) {
	header := http.Header{}
	header.Set("Authorization", authorization)
	return c.Do(ctx, http.MethodPost, "/v1/api-keys", struct{}{}, header)
}
