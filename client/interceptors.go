package client

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/aigencia/apiclient/client/internal/token"
)

// RequestIDHeader carries a per-exchange correlation id.
const RequestIDHeader = "X-Request-ID"

// RequestInterceptor may mutate an outgoing request. Returning an error aborts
// the request before it reaches the network.
type RequestInterceptor func(*http.Request) error

// ResponseInterceptor observes or rewrites a successful response before its
// body is decoded.
type ResponseInterceptor func(*Response) error

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Request    *http.Request
}

// attachBearer sets Authorization from the stored access token when it is a
// real, unexpired token and the caller did not supply one. Cookie-only
// sessions rely on the jar instead.
func (c *Client) attachBearer(req *http.Request) error {
	if req.Header.Get("Authorization") != "" {
		return nil
	}
	tok, ok := c.tokens.AccessToken()
	if !ok || tok == token.CookieSessionToken || c.tokens.IsExpired(tok) {
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	return nil
}

func stampRequestID(req *http.Request) error {
	if req.Header.Get(RequestIDHeader) == "" {
		req.Header.Set(RequestIDHeader, uuid.NewString())
	}
	return nil
}
