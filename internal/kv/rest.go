package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// maxErrorBody bounds how much of a failed response is kept in the error.
	maxErrorBody = 512
)

// restResponse is the envelope every REST KV command returns.
type restResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error,omitempty"`
}

// REST talks to a hosted KV service over its REST protocol:
// GET {baseURL}/{command}/{escaped args...} with a bearer token.
type REST struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates an HTTP client suited to short KV round trips.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: 5 * time.Second,
			MaxIdleConns:        50,
			MaxIdleConnsPerHost: 20,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// NewREST creates a REST store. Empty baseURL or token yields a store whose
// every command fails with ErrNotConfigured.
func NewREST(baseURL, token string, httpClient *http.Client) *REST {
	if httpClient == nil {
		httpClient = NewHTTPClient(5 * time.Second)
	}
	return &REST{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:      strings.TrimSpace(token),
		httpClient: httpClient,
	}
}

// Configured reports whether both URL and token are present.
func (s *REST) Configured() bool {
	return s.baseURL != "" && s.token != ""
}

// Get implements Store.
func (s *REST) Get(ctx context.Context, key string) (string, bool, error) {
	raw, err := s.do(ctx, "get", key)
	if err != nil {
		return "", false, err
	}
	if isNull(raw) {
		return "", false, nil
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str, true, nil
	}
	// Some services return stored JSON documents already decoded.
	return string(raw), true, nil
}

// Set implements Store.
func (s *REST) Set(ctx context.Context, key, value string) error {
	_, err := s.do(ctx, "set", key, value)
	return err
}

// Del implements Store.
func (s *REST) Del(ctx context.Context, key string) error {
	_, err := s.do(ctx, "del", key)
	return err
}

// LPush implements Store.
func (s *REST) LPush(ctx context.Context, key, value string) (int64, error) {
	raw, err := s.do(ctx, "lpush", key, value)
	if err != nil {
		return 0, err
	}
	return decodeInt(raw), nil
}

// LRange implements Store.
func (s *REST) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	raw, err := s.do(ctx, "lrange", key, strconv.FormatInt(start, 10), strconv.FormatInt(stop, 10))
	if err != nil {
		return nil, err
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return []string{}, nil //nolint:nilerr
	}
	if items == nil {
		items = []string{}
	}
	return items, nil
}

// LRem implements Store.
func (s *REST) LRem(ctx context.Context, key string, count int64, value string) (int64, error) {
	raw, err := s.do(ctx, "lrem", key, strconv.FormatInt(count, 10), value)
	if err != nil {
		return 0, err
	}
	return decodeInt(raw), nil
}

// Ping verifies the service answers authenticated commands.
func (s *REST) Ping(ctx context.Context) error {
	_, err := s.do(ctx, "ping")
	return err
}

// Close releases idle connections.
func (s *REST) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}

// do executes one command and returns the raw result field.
func (s *REST) do(ctx context.Context, command string, args ...string) (json.RawMessage, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.commandURL(command, args...), nil)
	if err != nil {
		return nil, fmt.Errorf("kv %s: create request: %w", command, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Cache-Control", "no-store")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kv %s: %w", command, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		text := strings.TrimSpace(string(body))
		if text != "" {
			return nil, fmt.Errorf("kv_http_%d: %s", resp.StatusCode, text)
		}
		return nil, fmt.Errorf("kv_http_%d", resp.StatusCode)
	}

	var envelope restResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("kv %s: decode response: %w", command, err)
	}
	if envelope.Error != "" {
		return nil, fmt.Errorf("kv %s: %s", command, envelope.Error)
	}

	return envelope.Result, nil
}

// commandURL builds {baseURL}/{command}/{arg1}/{arg2}... with each segment escaped.
func (s *REST) commandURL(command string, args ...string) string {
	var b strings.Builder
	b.WriteString(s.baseURL)
	b.WriteByte('/')
	b.WriteString(command)
	for _, arg := range args {
		b.WriteByte('/')
		b.WriteString(escapeSegment(arg))
	}
	return b.String()
}

// escapeSegment escapes a path segment the way encodeURIComponent does,
// so that '/', '+', spaces and JSON punctuation survive the round trip.
func escapeSegment(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func isNull(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}

func decodeInt(raw json.RawMessage) int64 {
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		n, _ = strconv.ParseInt(str, 10, 64)
	}
	return n
}
