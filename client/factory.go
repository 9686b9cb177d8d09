package client

import (
	"fmt"
	"io"
	"time"

	"github.com/aigencia/apiclient/client/tokenstore"
	"github.com/aigencia/apiclient/internal/config"
)

// Environment selects one of the preset client configurations.
type Environment = config.Environment

const (
	EnvDevelopment = config.EnvDevelopment
	EnvProduction  = config.EnvProduction
	EnvTest        = config.EnvTest
	EnvDebug       = config.EnvDebug
	EnvCustom      = config.EnvCustom
)

// ParseEnvironment maps a tag such as "production" or "dev" to an Environment.
func ParseEnvironment(s string) (Environment, error) { return config.ParseEnvironment(s) }

type preset struct {
	retry       RetryConfig
	timeout     time.Duration
	credentials bool
	headers     map[string]string
	debug       bool
}

var presets = map[Environment]preset{
	EnvProduction: {
		retry:       RetryConfig{Attempts: 3, Delay: time.Second, Backoff: BackoffExponential},
		timeout:     15 * time.Second,
		credentials: true,
	},
	EnvDevelopment: {
		retry:       RetryConfig{Attempts: 1, Delay: time.Second, Backoff: BackoffLinear},
		timeout:     60 * time.Second,
		credentials: true,
		headers: map[string]string{
			"ngrok-skip-browser-warning": "true",
			"X-Client-Env":               "development",
		},
	},
	EnvTest: {
		retry:       RetryConfig{Attempts: 1, Delay: 0, Backoff: BackoffLinear},
		timeout:     5 * time.Second,
		credentials: false,
	},
	EnvDebug: {
		retry:       RetryConfig{Attempts: 1, Delay: time.Second, Backoff: BackoffLinear},
		timeout:     120 * time.Second,
		credentials: true,
		headers:     map[string]string{"X-Debug": "true"},
		debug:       true,
	},
	EnvCustom: {
		retry:       RetryConfig{Attempts: 1, Delay: time.Second, Backoff: BackoffLinear},
		timeout:     defaultTimeout,
		credentials: true,
	},
}

func (p preset) options() []Option {
	opts := []Option{
		WithRetry(p.retry),
		WithHTTPTimeout(p.timeout),
		WithCredentials(p.credentials),
	}
	if len(p.headers) > 0 {
		opts = append(opts, WithHeaders(p.headers))
	}
	if p.debug {
		opts = append(opts, WithDebugLogging(true))
	}
	return opts
}

// NewForEnvironment builds a Client from the preset for env. Caller options
// are applied after the preset and win over it.
func NewForEnvironment(env Environment, baseURL string, opts ...Option) (*Client, error) {
	p, ok := presets[env]
	if !ok {
		return nil, fmt.Errorf("unsupported environment: %q", env)
	}
	return New(baseURL, append(p.options(), opts...)...)
}

// NewFromConfig builds a Client for cfg.Environment and cfg.APIURL with the
// token store cfg selects. A non-zero RequestTimeout overrides the preset.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	store, err := OpenTokenStore(cfg.TokenStore, cfg.TokenStorePath)
	if err != nil {
		return nil, err
	}
	base := []Option{WithTokenStore(store)}
	if cfg.RequestTimeout > 0 {
		base = append(base, WithHTTPTimeout(cfg.RequestTimeout))
	}
	c, err := NewForEnvironment(cfg.Environment, cfg.APIURL, append(base, opts...)...)
	if err != nil {
		if closer, ok := store.(io.Closer); ok {
			_ = closer.Close()
		}
		return nil, err
	}
	return c, nil
}

// OpenTokenStore opens the named backend: memory, file or sqlite.
func OpenTokenStore(kind, path string) (tokenstore.Store, error) {
	switch kind {
	case config.StoreMemory, "":
		return tokenstore.NewMemoryStore(), nil
	case config.StoreFile:
		fs, err := tokenstore.NewFileStore(path)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case config.StoreSQLite:
		ss, err := tokenstore.OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return ss, nil
	default:
		return nil, fmt.Errorf("unsupported token store: %q", kind)
	}
}
