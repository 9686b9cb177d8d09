// Package token manages the client's access and refresh credentials: where
// they are read from, when they count as expired, and how they are renewed.
//
// Credentials live in two places. Cookies set by the server are authoritative
// and travel with requests through the HTTP client's cookie jar; a
// tokenstore.Store keeps a local backup readable by the application.
package token

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/aigencia/apiclient/client/internal/types"
	"github.com/aigencia/apiclient/client/tokenstore"
)

// CookieSessionToken marks a session authenticated purely by cookies. It is
// never expired and is never sent as a bearer token.
const CookieSessionToken = "cookie-session"

// Cookie names set by the backend; they mirror the store keys.
const (
	AccessCookie  = tokenstore.AccessTokenKey
	RefreshCookie = tokenstore.RefreshTokenKey
)

var (
	// ErrNoRefreshToken is returned by Refresh when no refresh token is available.
	ErrNoRefreshToken = errors.New("no refresh token available")
	// ErrRefreshTokenExpired is returned by Refresh when the refresh token is expired or unreadable.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

// RefreshError reports a non-2xx answer from the refresh endpoint.
type RefreshError struct {
	Status int
	Body   string
}

func (e *RefreshError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("token refresh failed: HTTP %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("token refresh failed: HTTP %d", e.Status)
}

// Config wires a Manager.
type Config struct {
	Store      tokenstore.Store
	Cookies    CookieSource // may be nil when the client runs without a jar
	HTTP       types.HTTPClient
	RefreshURL string
	Logger     zerolog.Logger
	Now        func() time.Time
}

// Manager reads, validates, renews and clears credentials.
type Manager struct {
	store      tokenstore.Store
	cookies    CookieSource
	http       types.HTTPClient
	refreshURL string
	log        zerolog.Logger
	now        func() time.Time
	parser     *jwt.Parser
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("token store is required")
	}
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("http client is required")
	}
	if cfg.RefreshURL == "" {
		return nil, fmt.Errorf("refresh URL is required")
	}
	if cfg.Cookies == nil {
		cfg.Cookies = noCookies{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{
		store:      cfg.Store,
		cookies:    cfg.Cookies,
		http:       cfg.HTTP,
		refreshURL: cfg.RefreshURL,
		log:        cfg.Logger,
		now:        cfg.Now,
		parser:     jwt.NewParser(jwt.WithPaddingAllowed()),
	}, nil
}

// RefreshURL returns the endpoint used by Refresh.
func (m *Manager) RefreshURL() string { return m.refreshURL }

// AccessToken returns the locally stored access token. Cookie-held access
// tokens are attached by the transport and are not read back here.
func (m *Manager) AccessToken() (string, bool) {
	return m.resolveToken(tokenstore.AccessTokenKey, sourceLocal)
}

// RefreshToken prefers the cookie copy and falls back to the local store.
func (m *Manager) RefreshToken() (string, bool) {
	return m.resolveToken(tokenstore.RefreshTokenKey, sourceCookie, sourceLocal)
}

type source int

const (
	sourceCookie source = iota
	sourceLocal
)

// resolveToken returns the first non-empty value for name across sources, in
// priority order. Store read failures are logged and treated as absent.
func (m *Manager) resolveToken(name string, sources ...source) (string, bool) {
	for _, src := range sources {
		switch src {
		case sourceCookie:
			if v, ok := m.cookies.Cookie(name); ok && v != "" {
				return v, true
			}
		case sourceLocal:
			v, ok, err := m.store.Get(name)
			if err != nil {
				m.log.Warn().Err(err).Str("key", name).Msg("token store read failed")
				continue
			}
			if ok && v != "" {
				return v, true
			}
		}
	}
	return "", false
}

// IsExpired reports whether tok must be treated as expired. The cookie-session
// sentinel never expires; any other token expires when ExpiresAt cannot read
// an exp or exp is not in the future.
func (m *Manager) IsExpired(tok string) bool {
	if tok == CookieSessionToken {
		return false
	}
	exp, ok := m.ExpiresAt(tok)
	return !ok || !exp.After(m.now())
}

// ExpiresAt returns the numeric exp claim of tok. The token must have three
// dot-separated segments whose middle one is base64 JSON; the header and
// signature are not inspected.
func (m *Manager) ExpiresAt(tok string) (time.Time, bool) {
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	payload, err := m.decodeSegment(parts[1])
	if err != nil {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// decodeSegment accepts base64url with or without padding, then falls back to
// the standard alphabet.
func (m *Manager) decodeSegment(seg string) ([]byte, error) {
	if b, err := m.parser.DecodeSegment(seg); err == nil {
		return b, nil
	}
	if b, err := base64.StdEncoding.DecodeString(seg); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(seg)
}

// Refresh exchanges the refresh token for a new access token and persists it.
// It fails without any network call when the refresh token is missing or
// expired. Every failure clears all stored credentials before returning.
func (m *Manager) Refresh(ctx context.Context) (tok string, err error) {
	defer func() {
		if err != nil {
			m.Clear()
		}
	}()

	rt, ok := m.RefreshToken()
	if !ok {
		return "", ErrNoRefreshToken
	}
	if m.IsExpired(rt) {
		return "", ErrRefreshTokenExpired
	}

	body, err := json.Marshal(types.RefreshRequest{RefreshToken: rt})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.refreshURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token refresh request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read refresh response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &RefreshError{Status: resp.StatusCode, Body: string(bytes.TrimSpace(data))}
	}

	var tr types.TokenResponse
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &tr); err != nil {
			return "", fmt.Errorf("decode refresh response: %w", err)
		}
	}
	if err := m.Save(tr); err != nil {
		return "", err
	}
	tok, _ = m.AccessToken()
	m.log.Debug().Bool("cookie_session", tok == CookieSessionToken).Msg("access token refreshed")
	return tok, nil
}

// Save backs up tokens from a login, register or refresh response. An empty
// access token records a cookie-only session.
func (m *Manager) Save(tr types.TokenResponse) error {
	access := tr.AccessToken
	if access == "" {
		access = CookieSessionToken
	}
	if err := m.store.Set(tokenstore.AccessTokenKey, access); err != nil {
		return fmt.Errorf("save access token: %w", err)
	}
	if tr.RefreshToken != "" {
		if err := m.store.Set(tokenstore.RefreshTokenKey, tr.RefreshToken); err != nil {
			return fmt.Errorf("save refresh token: %w", err)
		}
	}
	return nil
}

// Clear removes both stored tokens and expires both cookies. Cookie removal is
// best effort; the server remains the owner of its cookies.
func (m *Manager) Clear() {
	for _, key := range []string{tokenstore.AccessTokenKey, tokenstore.RefreshTokenKey} {
		if err := m.store.Delete(key); err != nil {
			m.log.Warn().Err(err).Str("key", key).Msg("token store delete failed")
		}
	}
	m.cookies.Expire(AccessCookie)
	m.cookies.Expire(RefreshCookie)
}
