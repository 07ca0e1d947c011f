package engine

import (
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// Error codes reported for Engine failures.
const (
	CodeNotConfigured = "engine_not_configured"
	CodeNetwork       = "network_error"
	CodeBadRequest    = "bad_request"
	CodeUnauthorized  = "unauthorized"
	CodeRateLimited   = "rate_limited"
	CodeServerError   = "server_error"
)

// Error is a classified Engine failure.
type Error struct {
	Code    string
	Status  int // HTTP status to report downstream
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("engine %s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("engine %s (%d): %s", e.Code, e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotConfiguredError reports a missing Engine base URL.
func NotConfiguredError() *Error {
	return &Error{
		Code:    CodeNotConfigured,
		Status:  http.StatusInternalServerError,
		Message: "ENGINE_API_URL is not configured.",
	}
}

func errNetwork(err error) *Error {
	return &Error{
		Code:    CodeNetwork,
		Status:  http.StatusBadGateway,
		Message: "Engine is unreachable.",
		Err:     err,
	}
}

// Classify maps an Engine status and JSON body to an Error.
func Classify(status int, body gjson.Result) *Error {
	code := CodeServerError
	switch {
	case body.Get("error").String() == CodeNotConfigured:
		code = CodeNotConfigured
	case status == http.StatusBadRequest:
		code = CodeBadRequest
	case status == http.StatusUnauthorized:
		code = CodeUnauthorized
	case status == http.StatusTooManyRequests:
		code = CodeRateLimited
	}

	return &Error{
		Code:    code,
		Status:  status,
		Message: Message(body, fmt.Sprintf("Request failed (%d)", status)),
	}
}

// Message returns the first non-empty of message, error and detail in body,
// or fallback.
func Message(body gjson.Result, fallback string) string {
	for _, field := range []string{"message", "error", "detail"} {
		if v := body.Get(field); v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	return fallback
}
