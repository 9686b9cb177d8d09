package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/singleflight"

	apierrors "github.com/aigencia/apiclient/client/internal/errors"
	"github.com/aigencia/apiclient/client/internal/token"
	"github.com/aigencia/apiclient/client/tokenstore"
)

// Auth endpoint paths, relative to the base URL.
const (
	LoginPath    = "/auth/login"
	LogoutPath   = "/auth/logout"
	RefreshPath  = "/auth/refresh"
	MePath       = "/auth/me"
	RegisterPath = "/auth/register"
)

const defaultTimeout = 30 * time.Second

// --------------------------------------------------------------------
// Client core
// --------------------------------------------------------------------

type Client struct {
	baseURL string
	http    *http.Client // carries the cookie jar
	bare    *http.Client // same transport, no jar: requests with credentials excluded
	jar     http.CookieJar

	headers     http.Header
	timeout     time.Duration
	credentials bool
	retry       RetryConfig

	store     tokenstore.Store
	session   tokenstore.Store
	navigator Navigator
	loginPage string
	log       zerolog.Logger
	debug     bool

	tokens  *token.Manager
	handler *apierrors.Handler

	reqInterceptors  []RequestInterceptor
	respInterceptors []ResponseInterceptor

	refreshes singleflight.Group

	closedOnce uint32 // ensures Close is idempotent
}

// New constructs a Client for baseURL. Additional options can be provided via
// functional arguments.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errEmptyBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: want http(s)://host", baseURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		http:        &http.Client{Jar: jar},
		jar:         jar,
		headers:     make(http.Header),
		timeout:     defaultTimeout,
		credentials: true,
		retry:       RetryConfig{Attempts: 1, Delay: time.Second, Backoff: BackoffLinear},
		log:         log.Logger,
	}

	// Auto-enable debug via env variable without changing code.
	if debugLoggingRequested() {
		opts = append(opts, WithDebugLogging(true))
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.store == nil {
		c.store = tokenstore.NewMemoryStore()
	}
	if c.debug {
		c.http.Transport = &debugTransport{base: c.http.Transport, log: c.log}
	}
	c.bare = &http.Client{Transport: c.http.Transport, CheckRedirect: c.http.CheckRedirect}

	origin, _ := url.Parse(c.baseURL)
	c.tokens, err = token.NewManager(token.Config{
		Store:      c.store,
		Cookies:    token.JarCookies{Jar: jar, URL: origin},
		HTTP:       c.http,
		RefreshURL: c.resolveURL(RefreshPath),
		Logger:     c.log,
	})
	if err != nil {
		return nil, err
	}
	c.handler = apierrors.NewHandler(apierrors.HandlerConfig{
		Logger:    c.log,
		Navigator: c.navigator,
		Session:   c.session,
		LoginPath: c.loginPage,
	})

	// Built-ins run ahead of anything registered through options.
	c.reqInterceptors = append([]RequestInterceptor{c.attachBearer, stampRequestID}, c.reqInterceptors...)

	return c, nil
}

// BaseURL returns the prefix applied to relative paths.
func (c *Client) BaseURL() string { return c.baseURL }

// Tokens exposes the token manager backing this client.
func (c *Client) Tokens() *TokenManager { return c.tokens }

// ErrorHandler exposes the handler that observes failed requests.
func (c *Client) ErrorHandler() *ErrorHandler { return c.handler }

// CookieJar returns the jar holding server-set session cookies.
func (c *Client) CookieJar() http.CookieJar { return c.jar }

// Close releases the token store when it holds resources. Safe to call
// multiple times.
func (c *Client) Close() error {
	if !atomic.CompareAndSwapUint32(&c.closedOnce, 0, 1) {
		return nil
	}
	if closer, ok := c.store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// resolveURL passes absolute URLs through and prefixes everything else with
// the base URL.
func (c *Client) resolveURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// isAuthEndpoint reports whether target is the login or refresh endpoint; a
// 401 from either is final.
func (c *Client) isAuthEndpoint(target string) bool {
	p := stripQuery(target)
	return p == c.resolveURL(LoginPath) || p == c.resolveURL(RefreshPath)
}

func stripQuery(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		return u[:i]
	}
	return u
}

// refresh renews the access token. Concurrent callers share one in-flight
// refresh; the shared call is detached from any single caller's cancellation.
func (c *Client) refresh(ctx context.Context) (string, error) {
	ch := c.refreshes.DoChan("refresh", func() (any, error) {
		limit := c.timeout
		if limit <= 0 {
			limit = defaultTimeout
		}
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), limit)
		defer cancel()
		tok, err := c.tokens.Refresh(rctx)
		if err != nil {
			tokenRefreshTotal.WithLabelValues("failure").Inc()
			c.log.Warn().Err(err).Msg("access token refresh failed")
			return "", err
		}
		tokenRefreshTotal.WithLabelValues("success").Inc()
		return tok, nil
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Refresh explicitly renews the access token through the shared refresh path.
func (c *Client) Refresh(ctx context.Context) (string, error) { return c.refresh(ctx) }
