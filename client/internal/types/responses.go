package types

// ------------------------------
// Response Types
// ------------------------------

// TokenResponse is the token-bearing part of login, register and refresh
// responses. Either field may be empty when the server only sets cookies.
type TokenResponse struct {
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int    `json:"expiresIn,omitempty"`
}

// AuthResponse is returned by /auth/login and /auth/register.
type AuthResponse struct {
	TokenResponse
	User    *User  `json:"user,omitempty"`
	Message string `json:"message,omitempty"`
}
