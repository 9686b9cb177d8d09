package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	apierrors "github.com/aigencia/apiclient/client/internal/errors"
	"github.com/aigencia/apiclient/client/internal/token"
)

const maxResponseBody = 10 << 20

// RequestConfig holds per-call overrides. Zero fields fall back to the
// client-wide defaults; set fields win.
type RequestConfig struct {
	Headers     map[string]string
	Timeout     time.Duration
	Credentials *bool // nil keeps the client default
}

// Bool returns a pointer to v, for RequestConfig.Credentials.
func Bool(v bool) *bool { return &v }

type resolvedConfig struct {
	headers     http.Header
	timeout     time.Duration
	credentials bool
}

func (c *Client) mergeConfig(cfg *RequestConfig) resolvedConfig {
	rc := resolvedConfig{
		headers:     c.headers.Clone(),
		timeout:     c.timeout,
		credentials: c.credentials,
	}
	if cfg == nil {
		return rc
	}
	for k, v := range cfg.Headers {
		rc.headers.Set(k, v)
	}
	if cfg.Timeout > 0 {
		rc.timeout = cfg.Timeout
	}
	if cfg.Credentials != nil {
		rc.credentials = *cfg.Credentials
	}
	return rc
}

// --------------------------------------------------------------------
// Verbs
// --------------------------------------------------------------------

// Get issues a GET and decodes a JSON body into out (which may be nil).
func (c *Client) Get(ctx context.Context, path string, out any, cfg *RequestConfig) error {
	return c.do(ctx, http.MethodGet, path, nil, out, cfg)
}

// Post issues a POST with body encoded as JSON.
func (c *Client) Post(ctx context.Context, path string, body, out any, cfg *RequestConfig) error {
	return c.do(ctx, http.MethodPost, path, body, out, cfg)
}

// Put issues a PUT with body encoded as JSON.
func (c *Client) Put(ctx context.Context, path string, body, out any, cfg *RequestConfig) error {
	return c.do(ctx, http.MethodPut, path, body, out, cfg)
}

// Patch issues a PATCH with body encoded as JSON.
func (c *Client) Patch(ctx context.Context, path string, body, out any, cfg *RequestConfig) error {
	return c.do(ctx, http.MethodPatch, path, body, out, cfg)
}

// Delete issues a DELETE. Bodyless success responses leave out untouched.
func (c *Client) Delete(ctx context.Context, path string, out any, cfg *RequestConfig) error {
	return c.do(ctx, http.MethodDelete, path, nil, out, cfg)
}

// Do issues method against path and returns the decoded body as T. A
// successful response without a JSON body yields the zero value of T.
func Do[T any](ctx context.Context, c *Client, method, path string, body any, cfg *RequestConfig) (T, error) {
	var out T
	err := c.do(ctx, method, path, body, &out, cfg)
	return out, err
}

// --------------------------------------------------------------------
// Pipeline
// --------------------------------------------------------------------

func (c *Client) do(ctx context.Context, method, path string, body, out any, cfg *RequestConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target := c.resolveURL(path)
	payload, err := encodeBody(body)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}
	rc := c.mergeConfig(cfg)

	var resp *Response
	attempt := 0
	op := func() error {
		attempt++
		r, err := c.attempt(ctx, method, target, payload, rc)
		if err == nil {
			resp = r
			return nil
		}
		if apierrors.IsRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		retriesTotal.WithLabelValues(method).Inc()
		c.log.Info().
			Str("method", method).
			Str("url", target).
			Int("attempt", attempt).
			Int("max_attempts", c.retry.Attempts).
			Dur("wait", wait).
			Err(err).
			Msg("retrying request")
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(newPolicyBackOff(c.retry), ctx), notify); err != nil {
		return err
	}
	return c.finish(resp, out)
}

// attempt runs one logical request: send, then on a 401 from a non-auth
// endpoint refresh once and resend once. Any non-2xx left over becomes an
// *APIError observed by the handler.
func (c *Client) attempt(ctx context.Context, method, target string, payload []byte, rc resolvedConfig) (*Response, error) {
	resp, err := c.send(ctx, method, target, payload, rc, "")
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && !c.isAuthEndpoint(target) {
		tok, rerr := c.refresh(ctx)
		if rerr != nil {
			c.handler.Handle(c.failure(method, target, resp))
			return nil, fmt.Errorf("%s %s: %w", method, target, rerr)
		}
		resp, err = c.send(ctx, method, target, payload, rc, tok)
		if err != nil {
			return nil, err
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := c.failure(method, target, resp)
		c.handler.Handle(apiErr)
		return nil, apiErr
	}
	return resp, nil
}

// send performs a single HTTP exchange under the per-request timeout. A
// non-empty bearer overrides whatever the interceptors attached.
func (c *Client) send(ctx context.Context, method, target string, payload []byte, rc resolvedConfig, bearer string) (*Response, error) {
	actx := ctx
	if rc.timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, rc.timeout)
		defer cancel()
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(actx, method, target, bodyReader)
	if err != nil {
		return nil, err
	}
	for k, vs := range rc.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if payload != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	for _, ic := range c.reqInterceptors {
		if err := ic(req); err != nil {
			return nil, fmt.Errorf("request interceptor: %w", err)
		}
	}
	if bearer != "" && bearer != token.CookieSessionToken {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	hc := c.http
	if !rc.credentials {
		hc = c.bare
	}

	start := time.Now()
	hresp, err := hc.Do(req)
	if err != nil {
		return nil, c.transportFailure(ctx, actx, req, err, start)
	}
	defer func() { _ = hresp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(hresp.Body, maxResponseBody))
	if err != nil {
		return nil, c.transportFailure(ctx, actx, req, err, start)
	}

	code := strconv.Itoa(hresp.StatusCode)
	requestsTotal.WithLabelValues(method, code).Inc()
	requestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())

	return &Response{
		StatusCode: hresp.StatusCode,
		Header:     hresp.Header,
		Body:       data,
		Request:    req,
	}, nil
}

// transportFailure maps a failed exchange to the caller's context error (a
// deliberate abort), a 408 timeout when our own deadline fired, or a status-0
// network error.
func (c *Client) transportFailure(ctx, actx context.Context, req *http.Request, err error, start time.Time) error {
	method, target := req.Method, req.URL.String()
	requestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())

	if cerr := ctx.Err(); cerr != nil {
		requestsTotal.WithLabelValues(method, "aborted").Inc()
		return fmt.Errorf("%s %s: %w", method, target, cerr)
	}

	var apiErr *APIError
	if errors.Is(actx.Err(), context.DeadlineExceeded) {
		requestsTotal.WithLabelValues(method, "timeout").Inc()
		apiErr = apierrors.NewTimeoutError(method, target, err)
	} else {
		requestsTotal.WithLabelValues(method, "network_error").Inc()
		apiErr = apierrors.NewNetworkError(method, target, err)
	}
	apiErr.RequestID = req.Header.Get(RequestIDHeader)
	c.handler.Handle(apiErr)
	return apiErr
}

func (c *Client) failure(method, target string, resp *Response) *APIError {
	e := apierrors.FromResponse(resp.StatusCode, resp.Body, method, target)
	e.Header = resp.Header
	if resp.Request != nil {
		e.RequestID = resp.Request.Header.Get(RequestIDHeader)
	}
	return e
}

// finish runs the response interceptors and decodes JSON bodies into out.
// Non-JSON or empty bodies leave out untouched.
func (c *Client) finish(resp *Response, out any) error {
	for _, ic := range c.respInterceptors {
		if err := ic(resp); err != nil {
			return fmt.Errorf("response interceptor: %w", err)
		}
	}
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 || !isJSON(resp.Header) {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func isJSON(h http.Header) bool {
	mt, _, err := mime.ParseMediaType(h.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mt == "application/json" || (len(mt) > 5 && mt[len(mt)-5:] == "+json")
}

// encodeBody marshals body as JSON. Raw bytes and json.RawMessage are sent
// verbatim.
func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	default:
		return json.Marshal(b)
	}
}
