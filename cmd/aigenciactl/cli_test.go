package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, ttl time.Duration) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(ttl).Unix(),
	}).SignedString([]byte("cli-test"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCLI_LoginGetStatusLogout(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("AIGENCIA_ENV", "")
	t.Setenv("NODE_ENV", "")

	access := signedToken(t, time.Hour)
	refresh := signedToken(t, 24*time.Hour)

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"accessToken":  access,
			"refreshToken": refresh,
			"user":         map[string]string{"id": "u1", "email": "ana@aigencia.test", "name": "Ana"},
		})
	})
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/items/1", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+access {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Header.Get("X-Tenant") != "acme" {
			t.Errorf("custom header missing")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","name":"widget"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	common := []string{"--api", srv.URL, "--env", "test", "--store", "file", "--store-path", filepath.Join(t.TempDir(), "tokens.json")}
	with := func(args ...string) []string { return append(append([]string{}, args...), common...) }

	out, err := run(t, with("login", "--email", "ana@aigencia.test", "--password", "correct-horse")...)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !strings.Contains(out, "Logged in as Ana") {
		t.Fatalf("unexpected login output: %q", out)
	}

	out, err = run(t, with("get", "/items/1", "-H", "X-Tenant: acme")...)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !strings.Contains(out, `"name": "widget"`) {
		t.Fatalf("expected indented JSON, got %q", out)
	}

	out, err = run(t, with("token", "status")...)
	if err != nil {
		t.Fatalf("token status failed: %v", err)
	}
	if !strings.Contains(out, "access:  valid until") || !strings.Contains(out, "refresh: valid until") {
		t.Fatalf("unexpected status: %q", out)
	}

	if _, err := run(t, with("logout")...); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	out, err = run(t, with("token", "status")...)
	if err != nil {
		t.Fatalf("token status failed: %v", err)
	}
	if !strings.Contains(out, "access:  absent") {
		t.Fatalf("tokens should be cleared: %q", out)
	}
}

func TestCLI_PostRejectsInvalidJSON(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	_, err := run(t, "post", "/items", "--data", "{not json", "--api", "http://127.0.0.1:1", "--store", "memory")
	if err == nil || !strings.Contains(err.Error(), "not valid JSON") {
		t.Fatalf("expected JSON validation error, got %v", err)
	}
}

func TestCLI_UnknownEnvironment(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	_, err := run(t, "token", "status", "--env", "staging", "--store", "memory")
	if err == nil {
		t.Fatalf("expected error for unknown environment")
	}
}

func TestCLI_LoginWarnsOnCookieOnlySession(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "accessToken", Value: "c", Path: "/", HttpOnly: true})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}))
	defer srv.Close()

	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs([]string{"login", "--email", "ana@aigencia.test", "--password", "correct-horse",
		"--api", srv.URL, "--env", "test", "--store", "memory"})
	if err := root.Execute(); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !strings.Contains(errOut.String(), cookieOnlyNotice) {
		t.Fatalf("expected cookie-only warning, got %q", errOut.String())
	}

	login, _, err := NewRootCmd().Find([]string{"login"})
	if err != nil {
		t.Fatalf("find login: %v", err)
	}
	if !strings.Contains(login.Long, "does not carry") {
		t.Fatalf("login help should describe the cookie limitation: %q", login.Long)
	}
}
