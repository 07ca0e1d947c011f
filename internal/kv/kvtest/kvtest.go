// Package kvtest provides an in-process server that speaks the REST KV protocol.
package kvtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/looply/looply/internal/kv"
)

// Token is the bearer token the test server accepts.
const Token = "kvtest-token"

// Server is an httptest server backed by a kv.Memory.
type Server struct {
	*httptest.Server
	Store *kv.Memory

	// FailWith forces every command to answer with this HTTP status when non-zero.
	FailWith atomic.Int32
	// Commands counts handled commands.
	Commands atomic.Int64
}

// NewServer starts a REST KV server. Callers must Close it.
func NewServer() *Server {
	s := &Server{Store: kv.NewMemory()}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+Token {
		http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
		return
	}
	if code := s.FailWith.Load(); code != 0 {
		http.Error(w, "forced failure", int(code))
		return
	}
	s.Commands.Add(1)

	raw := strings.Split(strings.TrimPrefix(r.URL.EscapedPath(), "/"), "/")
	parts := make([]string, 0, len(raw))
	for _, seg := range raw {
		v, err := url.PathUnescape(seg)
		if err != nil {
			writeResult(w, nil, "ERR bad escape")
			return
		}
		parts = append(parts, v)
	}

	ctx := r.Context()
	cmd, args := strings.ToLower(parts[0]), parts[1:]

	switch {
	case cmd == "ping":
		writeResult(w, "PONG", "")
	case cmd == "get" && len(args) == 1:
		v, ok, _ := s.Store.Get(ctx, args[0])
		if !ok {
			writeResult(w, nil, "")
			return
		}
		writeResult(w, v, "")
	case cmd == "set" && len(args) == 2:
		_ = s.Store.Set(ctx, args[0], args[1])
		writeResult(w, "OK", "")
	case cmd == "del" && len(args) == 1:
		_, existed, _ := s.Store.Get(ctx, args[0])
		_ = s.Store.Del(ctx, args[0])
		if existed {
			writeResult(w, 1, "")
		} else {
			writeResult(w, 0, "")
		}
	case cmd == "lpush" && len(args) == 2:
		n, _ := s.Store.LPush(ctx, args[0], args[1])
		writeResult(w, n, "")
	case cmd == "lrange" && len(args) == 3:
		start, err1 := strconv.ParseInt(args[1], 10, 64)
		stop, err2 := strconv.ParseInt(args[2], 10, 64)
		if err1 != nil || err2 != nil {
			writeResult(w, nil, "ERR value is not an integer or out of range")
			return
		}
		items, _ := s.Store.LRange(ctx, args[0], start, stop)
		writeResult(w, items, "")
	case cmd == "lrem" && len(args) == 3:
		count, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			writeResult(w, nil, "ERR value is not an integer or out of range")
			return
		}
		n, _ := s.Store.LRem(ctx, args[0], count, args[2])
		writeResult(w, n, "")
	default:
		writeResult(w, nil, "ERR unknown command '"+cmd+"'")
	}
}

func writeResult(w http.ResponseWriter, result any, errMsg string) {
	w.Header().Set("Content-Type", "application/json")
	body := map[string]any{"result": result}
	if errMsg != "" {
		w.WriteHeader(http.StatusBadRequest)
		body = map[string]any{"error": errMsg}
	}
	_ = json.NewEncoder(w).Encode(body)
}
