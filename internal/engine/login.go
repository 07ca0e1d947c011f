package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tidwall/gjson"
)

// ErrTokenMissing means the Engine accepted the login but returned no token.
var ErrTokenMissing = errors.New("login succeeded but token is missing")

// tokenPaths are probed in order for the session token.
var tokenPaths = []string{
	"token",
	"access_token",
	"session.token",
	"data.token",
	"data.access_token",
}

// ExtractToken returns the first non-empty string at one of tokenPaths.
func ExtractToken(body gjson.Result) string {
	for _, path := range tokenPaths {
		if v := body.Get(path); v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	return ""
}

// LoginResult is a successful Engine login.
type LoginResult struct {
	Token string
	Body  *Response
}

// Login forwards credentials to the Engine. A rejected login returns an
// *Error whose Status is the upstream status and whose Message prefers the
// Engine's own wording.
func (c *Client) Login(ctx context.Context, credentials json.RawMessage) (*LoginResult, error) {
	res, err := c.Do(ctx, http.MethodPost, "/v1/auth/login", credentials, nil)
	if err != nil {
		var engineErr *Error
		if res != nil && errors.As(err, &engineErr) {
			engineErr.Message = Message(res.JSON(), "Login failed.")
		}
		return nil, err
	}

	token := ExtractToken(res.JSON())
	if token == "" {
		return nil, ErrTokenMissing
	}
	return &LoginResult{Token: token, Body: res}, nil
}
