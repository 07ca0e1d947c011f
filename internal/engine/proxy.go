package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"
)

// Proxy forwards arbitrary requests to the Engine, authenticating them with
// the session cookie.
type Proxy struct {
	client     *Client
	cookieName string
	logger     *slog.Logger
	rp         *httputil.ReverseProxy
}

// NewProxy creates a Proxy that uses client's transport and base URL.
func NewProxy(client *Client, cookieName string, logger *slog.Logger) *Proxy {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Proxy{
		client:     client,
		cookieName: cookieName,
		logger:     logger,
	}
	p.rp = &httputil.ReverseProxy{
		Rewrite:        p.rewrite,
		Transport:      client.http.Transport,
		ModifyResponse: stripSetCookie,
		ErrorHandler:   p.handleError,
	}
	return p
}

type targetKey struct{}

// Forward proxies r to {base}/{path}?{query}.
func (p *Proxy) Forward(w http.ResponseWriter, r *http.Request, path string) {
	if !p.client.Configured() {
		WriteError(w, NotConfiguredError())
		return
	}

	target, err := url.Parse(p.client.baseURL + "/" + EscapePath(path))
	if err != nil {
		WriteError(w, &Error{Code: CodeBadRequest, Status: http.StatusBadRequest, Message: "Invalid path.", Err: err})
		return
	}
	target.RawQuery = r.URL.RawQuery

	ctx := r.Context()
	if p.client.http.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.client.http.Timeout)
		defer cancel()
	}

	sw := &statusWriter{ResponseWriter: w}
	start := time.Now()
	p.rp.ServeHTTP(sw, r.WithContext(context.WithValue(ctx, targetKey{}, target)))

	status := sw.status
	if sw.failed {
		status = 0
	}
	p.client.metrics.ObserveEngineRequest(status, time.Since(start))
}

func (p *Proxy) rewrite(pr *httputil.ProxyRequest) {
	target, _ := pr.In.Context().Value(targetKey{}).(*url.URL)
	pr.Out.URL = target
	pr.Out.Host = ""

	pr.Out.Header.Del("Cookie")
	pr.Out.Header.Set("Accept", "application/json")
	if c, err := pr.In.Cookie(p.cookieName); err == nil && c.Value != "" {
		pr.Out.Header.Set("Authorization", "Bearer "+c.Value)
	}

	if pr.In.Method == http.MethodGet || pr.In.Method == http.MethodHead {
		pr.Out.Body = http.NoBody
		pr.Out.ContentLength = 0
		pr.Out.Header.Del("Content-Length")
	}
}

func (p *Proxy) handleError(w http.ResponseWriter, r *http.Request, err error) {
	if sw, ok := w.(*statusWriter); ok {
		sw.failed = true
	}
	p.logger.Warn("engine proxy request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	WriteError(w, errNetwork(err))
}

func stripSetCookie(resp *http.Response) error {
	resp.Header.Del("Set-Cookie")
	return nil
}

// EscapePath normalizes the escaping of an escaped, slash separated path.
// Each segment is decoded once and escaped again, so "%2F" stays inside
// its segment.
func EscapePath(path string) string {
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, seg := range segments {
		if decoded, err := url.PathUnescape(seg); err == nil {
			seg = decoded
		}
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

// WriteError writes e as {ok:false, error, message} with e.Status.
func WriteError(w http.ResponseWriter, e *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok":      false,
		"error":   e.Code,
		"message": e.Message,
	})
}

// statusWriter captures the status code written by the reverse proxy.
type statusWriter struct {
	http.ResponseWriter
	status int
	failed bool
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
