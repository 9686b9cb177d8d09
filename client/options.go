package client

// Functional options for New. All knobs live here so they are easy to find.

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aigencia/apiclient/client/tokenstore"
)

// Option configures a Client during construction in New.
//
// Options run before the debug transport and the built-in interceptors are
// installed, so a transport supplied through WithTransport ends up underneath
// the debug wrapper.
type Option func(*Client) error

// WithHTTPTimeout sets the default per-request timeout. The deadline covers a
// single attempt; retries get a fresh one. The value must be greater than zero.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("http timeout must be > 0")
		}
		c.timeout = d
		return nil
	}
}

// WithDebugLogging dumps every request and response through the client logger
// when enabled is true. Do not enable it in production: dumps include headers,
// bearer tokens and bodies.
func WithDebugLogging(enabled bool) Option {
	return func(c *Client) error {
		c.debug = c.debug || enabled
		return nil
	}
}

// WithRetry replaces the retry policy. Attempts counts the first try.
func WithRetry(rc RetryConfig) Option {
	return func(c *Client) error {
		if err := rc.Validate(); err != nil {
			return err
		}
		c.retry = rc
		return nil
	}
}

// WithHeaders adds default headers sent on every request. Per-request headers
// override them key by key.
func WithHeaders(h map[string]string) Option {
	return func(c *Client) error {
		for k, v := range h {
			c.headers.Set(k, v)
		}
		return nil
	}
}

// WithCredentials controls whether cookies from the jar accompany requests by
// default.
func WithCredentials(include bool) Option {
	return func(c *Client) error {
		c.credentials = include
		return nil
	}
}

// WithTokenStore sets where access and refresh tokens are backed up. The
// client closes it on Close when it implements io.Closer.
func WithTokenStore(s tokenstore.Store) Option {
	return func(c *Client) error {
		if s == nil {
			return fmt.Errorf("token store must not be nil")
		}
		c.store = s
		return nil
	}
}

// WithSessionStore sets the store that receives the post-login redirect
// location. Without one it is kept in memory for the life of the client.
func WithSessionStore(s tokenstore.Store) Option {
	return func(c *Client) error {
		c.session = s
		return nil
	}
}

// WithNavigator sets how the client reports the current location and performs
// the redirect to the login page.
func WithNavigator(n Navigator) Option {
	return func(c *Client) error {
		c.navigator = n
		return nil
	}
}

// WithLoginPage overrides the page unauthenticated users are sent to.
func WithLoginPage(path string) Option {
	return func(c *Client) error {
		if path == "" {
			return fmt.Errorf("login page must not be empty")
		}
		c.loginPage = path
		return nil
	}
}

// WithLogger replaces the global zerolog logger for this client.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) error {
		c.log = l
		return nil
	}
}

// WithRequestInterceptor appends fn to the request chain. Interceptors run in
// registration order after the built-in ones.
func WithRequestInterceptor(fn RequestInterceptor) Option {
	return func(c *Client) error {
		if fn == nil {
			return fmt.Errorf("request interceptor must not be nil")
		}
		c.reqInterceptors = append(c.reqInterceptors, fn)
		return nil
	}
}

// WithResponseInterceptor appends fn to the response chain, run in
// registration order on successful responses before decoding.
func WithResponseInterceptor(fn ResponseInterceptor) Option {
	return func(c *Client) error {
		if fn == nil {
			return fmt.Errorf("response interceptor must not be nil")
		}
		c.respInterceptors = append(c.respInterceptors, fn)
		return nil
	}
}

// WithTransport swaps the underlying RoundTripper, e.g. for tests or proxies.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) error {
		c.http.Transport = rt
		return nil
	}
}
