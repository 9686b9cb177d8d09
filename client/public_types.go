package client

import (
	apierrors "github.com/aigencia/apiclient/client/internal/errors"
	"github.com/aigencia/apiclient/client/internal/token"
	"github.com/aigencia/apiclient/client/internal/types"
)

// Public type aliases so SDK consumers can import only the client package.
type (
	// Requests
	LoginRequest    = types.LoginRequest
	RegisterRequest = types.RegisterRequest

	// Domain entities
	User = types.User

	// Responses
	TokenResponse = types.TokenResponse
	AuthResponse  = types.AuthResponse

	// Collaborators
	TokenManager = token.Manager
	ErrorHandler = apierrors.Handler
	Navigator    = apierrors.Navigator
)

// CookieSessionToken is stored in place of an access token when the server
// authenticates through cookies only.
const CookieSessionToken = token.CookieSessionToken

// RedirectKey is the session key holding the location to return to after login.
const RedirectKey = apierrors.RedirectKey
