package middleware

import (
	"encoding/json"
	"net/http"
)

// errorBody is the JSON error envelope shared with the handlers.
type errorBody struct {
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func writeBody(w http.ResponseWriter, status int, body errorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError writes {ok:false, error:code, requestId}.
func writeError(w http.ResponseWriter, r *http.Request, status int, code string) {
	writeBody(w, status, errorBody{Error: code, RequestID: GetRequestID(r.Context())})
}
