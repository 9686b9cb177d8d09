package token

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aigencia/apiclient/client/internal/types"
	"github.com/aigencia/apiclient/client/tokenstore"
)

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func tokenExpiringIn(t *testing.T, d time.Duration) string {
	return signed(t, jwt.MapClaims{"sub": "u1", "exp": fixedNow.Add(d).Unix()})
}

func newManager(t *testing.T, store tokenstore.Store, httpc types.HTTPClient, refreshURL string, cookies CookieSource) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		Store:      store,
		Cookies:    cookies,
		HTTP:       httpc,
		RefreshURL: refreshURL,
		Now:        func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return m
}

func TestNewManager_Validation(t *testing.T) {
	t.Parallel()
	_, err := NewManager(Config{HTTP: http.DefaultClient, RefreshURL: "http://x/auth/refresh"})
	assert.Error(t, err)
	_, err = NewManager(Config{Store: tokenstore.NewMemoryStore(), RefreshURL: "http://x/auth/refresh"})
	assert.Error(t, err)
	_, err = NewManager(Config{Store: tokenstore.NewMemoryStore(), HTTP: http.DefaultClient})
	assert.Error(t, err)
}

func TestIsExpired(t *testing.T) {
	t.Parallel()
	m := newManager(t, tokenstore.NewMemoryStore(), http.DefaultClient, "http://x/auth/refresh", nil)

	b64 := func(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }
	futurePayload := `{"exp":` + jsonInt(fixedNow.Add(time.Hour).Unix()) + `}`
	pastPayload := `{"exp":` + jsonInt(fixedNow.Add(-time.Hour).Unix()) + `}`
	padded := base64.StdEncoding.EncodeToString([]byte(futurePayload))
	require.Contains(t, padded, "=")

	cases := []struct {
		name    string
		tok     string
		expired bool
	}{
		{"sentinel", CookieSessionToken, false},
		{"future exp", tokenExpiringIn(t, time.Hour), false},
		{"past exp", tokenExpiringIn(t, -time.Second), true},
		{"exp equals now", tokenExpiringIn(t, 0), true},
		{"no exp", signed(t, jwt.MapClaims{"sub": "u1"}), true},
		{"string exp", signed(t, jwt.MapClaims{"exp": "tomorrow"}), true},
		{"two segments", "abc.def", true},
		{"four segments", "a.b.c.d", true},
		{"empty", "", true},
		{"opaque", "3f1b2c9e-opaque-refresh", true},
		{"payload not json", b64(`{"alg":"HS256"}`) + "." + b64("not json") + ".sig", true},
		{"no alg header", b64(`{"typ":"JWT"}`) + "." + b64(futurePayload) + ".sig", false},
		{"opaque header", "abc." + b64(futurePayload) + ".sig", false},
		{"empty header", "." + b64(futurePayload) + ".sig", false},
		{"empty signature", "abc." + b64(futurePayload) + ".", false},
		{"padded std payload", "hdr." + padded + ".sig", false},
		{"padded url payload", "hdr." + base64.URLEncoding.EncodeToString([]byte(futurePayload)) + ".sig", false},
		{"opaque header past exp", "abc." + b64(pastPayload) + ".sig", true},
		{"payload not base64", "abc.!!!.sig", true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.expired, m.IsExpired(c.tok))
		})
	}
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestSaveAndAccessToken(t *testing.T) {
	t.Parallel()
	store := tokenstore.NewMemoryStore()
	m := newManager(t, store, http.DefaultClient, "http://x/auth/refresh", nil)

	_, ok := m.AccessToken()
	assert.False(t, ok)

	require.NoError(t, m.Save(types.TokenResponse{AccessToken: "acc-1", RefreshToken: "ref-1"}))
	got, ok := m.AccessToken()
	assert.True(t, ok)
	assert.Equal(t, "acc-1", got)
	rt, ok := m.RefreshToken()
	assert.True(t, ok)
	assert.Equal(t, "ref-1", rt)

	// Cookie-only login keeps the refresh token and records the sentinel.
	require.NoError(t, m.Save(types.TokenResponse{}))
	got, _ = m.AccessToken()
	assert.Equal(t, CookieSessionToken, got)
	rt, _ = m.RefreshToken()
	assert.Equal(t, "ref-1", rt)
}

func TestClear(t *testing.T) {
	t.Parallel()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	u, _ := url.Parse("http://api.example.test/")
	jar.SetCookies(u, []*http.Cookie{{Name: RefreshCookie, Value: "cookie-ref", Path: "/"}})
	cookies := JarCookies{Jar: jar, URL: u}

	store := tokenstore.NewMemoryStore()
	m := newManager(t, store, http.DefaultClient, "http://x/auth/refresh", cookies)
	require.NoError(t, m.Save(types.TokenResponse{AccessToken: "acc", RefreshToken: "ref"}))

	rt, _ := m.RefreshToken()
	assert.Equal(t, "cookie-ref", rt, "cookie copy wins over the local store")

	m.Clear()
	_, ok := m.AccessToken()
	assert.False(t, ok)
	_, ok = m.RefreshToken()
	assert.False(t, ok)
	_, ok = cookies.Cookie(RefreshCookie)
	assert.False(t, ok)
}

func TestRefresh_NoTokenFailsWithoutNetwork(t *testing.T) {
	t.Parallel()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.Set(tokenstore.AccessTokenKey, "stale"))
	m := newManager(t, store, srv.Client(), srv.URL+"/auth/refresh", nil)

	_, err := m.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrNoRefreshToken)
	assert.Zero(t, atomic.LoadInt32(&hits))
	_, ok := m.AccessToken()
	assert.False(t, ok, "failed refresh clears the session")
}

func TestRefresh_ExpiredTokenFailsWithoutNetwork(t *testing.T) {
	t.Parallel()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.Set(tokenstore.RefreshTokenKey, tokenExpiringIn(t, -time.Minute)))
	m := newManager(t, store, srv.Client(), srv.URL+"/auth/refresh", nil)

	_, err := m.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrRefreshTokenExpired)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestRefresh_Success(t *testing.T) {
	t.Parallel()
	rt := tokenExpiringIn(t, 24*time.Hour)
	newAccess := tokenExpiringIn(t, 15*time.Minute)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/refresh", r.URL.Path)
		var body types.RefreshRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, rt, body.RefreshToken)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(types.TokenResponse{AccessToken: newAccess})
	}))
	defer srv.Close()

	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.Set(tokenstore.RefreshTokenKey, rt))
	m := newManager(t, store, srv.Client(), srv.URL+"/auth/refresh", nil)

	got, err := m.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, newAccess, got)
	stored, _ := m.AccessToken()
	assert.Equal(t, newAccess, stored)
	kept, _ := m.RefreshToken()
	assert.Equal(t, rt, kept)
}

func TestRefresh_ServerRejectsClearsTokens(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "refresh revoked", http.StatusUnauthorized)
	}))
	defer srv.Close()

	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.Set(tokenstore.AccessTokenKey, "old"))
	require.NoError(t, store.Set(tokenstore.RefreshTokenKey, tokenExpiringIn(t, time.Hour)))
	m := newManager(t, store, srv.Client(), srv.URL+"/auth/refresh", nil)

	_, err := m.Refresh(context.Background())
	var re *RefreshError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusUnauthorized, re.Status)
	assert.Contains(t, re.Error(), "refresh revoked")

	_, ok := m.AccessToken()
	assert.False(t, ok)
	_, ok = m.RefreshToken()
	assert.False(t, ok)
}

func TestRefresh_CookieOnlyResponse(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: AccessCookie, Value: "set-by-server", Path: "/", HttpOnly: true})
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.Set(tokenstore.RefreshTokenKey, tokenExpiringIn(t, time.Hour)))
	m := newManager(t, store, srv.Client(), srv.URL+"/auth/refresh", nil)

	got, err := m.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CookieSessionToken, got)
	assert.False(t, m.IsExpired(got))
}

func TestRefresh_HeaderlessRefreshTokenIsSent(t *testing.T) {
	t.Parallel()
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"exp":` + jsonInt(fixedNow.Add(time.Hour).Unix()) + `}`))
	rt := "opaque." + payload + ".sig"

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		var body types.RefreshRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, rt, body.RefreshToken)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(types.TokenResponse{AccessToken: "fresh"})
	}))
	defer srv.Close()

	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.Set(tokenstore.RefreshTokenKey, rt))
	m := newManager(t, store, srv.Client(), srv.URL+"/auth/refresh", nil)

	got, err := m.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", got)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestExpiresAt(t *testing.T) {
	t.Parallel()
	m := newManager(t, tokenstore.NewMemoryStore(), http.DefaultClient, "http://x/auth/refresh", nil)

	exp, ok := m.ExpiresAt(tokenExpiringIn(t, time.Hour))
	require.True(t, ok)
	assert.Equal(t, fixedNow.Add(time.Hour).Unix(), exp.Unix())

	_, ok = m.ExpiresAt(signed(t, jwt.MapClaims{"sub": "u1"}))
	assert.False(t, ok)
	_, ok = m.ExpiresAt(CookieSessionToken)
	assert.False(t, ok)
}
