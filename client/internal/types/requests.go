package types

// ------------------------------
// Request Types
// ------------------------------

// LoginRequest holds credentials for /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest holds parameters for /auth/register.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name,omitempty"`
	CompanyName string `json:"companyName,omitempty"`
}

// RefreshRequest is the body sent to /auth/refresh. The refresh cookie is
// attached by the transport as well; the body copy covers cookie-less clients.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}
