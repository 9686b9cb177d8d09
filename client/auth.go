package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aigencia/apiclient/client/internal/types"
)

// Login authenticates with email and password and backs up the returned
// tokens. Cookies set by the server land in the client's jar.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := types.ValidateLogin(req); err != nil {
		return nil, err
	}
	var resp AuthResponse
	if err := c.Post(ctx, LoginPath, req, &resp, nil); err != nil {
		return nil, err
	}
	if err := c.tokens.Save(resp.TokenResponse); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates an account and starts a session the same way Login does.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if err := types.ValidateRegister(req); err != nil {
		return nil, err
	}
	var resp AuthResponse
	if err := c.Post(ctx, RegisterPath, req, &resp, nil); err != nil {
		return nil, err
	}
	if err := c.tokens.Save(resp.TokenResponse); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout tells the server to end the session. Local tokens and cookies are
// cleared whether or not the server call succeeds.
func (c *Client) Logout(ctx context.Context) error {
	defer c.tokens.Clear()
	return c.Post(ctx, LogoutPath, nil, nil, nil)
}

// Me returns the authenticated user's profile. Both a bare user object and a
// {"user": {...}} envelope are accepted.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var raw json.RawMessage
	if err := c.Get(ctx, MePath, &raw, nil); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty profile response")
	}
	var env struct {
		User *User `json:"user"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && env.User != nil {
		return env.User, nil
	}
	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &u, nil
}

// TakeRedirect returns and forgets the location stashed when an unauthorized
// response sent the user to the login page.
func (c *Client) TakeRedirect() (string, bool) {
	session := c.handler.Session()
	loc, ok, err := session.Get(RedirectKey)
	if err != nil || !ok || loc == "" {
		return "", false
	}
	if err := session.Delete(RedirectKey); err != nil {
		c.log.Warn().Err(err).Msg("failed to clear post-login redirect")
	}
	return loc, true
}
