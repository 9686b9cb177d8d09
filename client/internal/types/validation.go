package types

import (
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
)

// ------------------------------
// Shared Interfaces
// ------------------------------

// HTTPClient interface for dependency injection
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ------------------------------
// Shared Errors
// ------------------------------

// ErrInvalidRequest is wrapped by every validation failure below.
var ErrInvalidRequest = errors.New("invalid request")

const minPasswordLen = 8

// ValidateEmail checks that s is a bare RFC 5322 address.
func ValidateEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidRequest)
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return fmt.Errorf("%w: email %q is malformed", ErrInvalidRequest, s)
	}
	return nil
}

// ValidateLogin checks a login request before it is sent.
func ValidateLogin(req LoginRequest) error {
	if err := ValidateEmail(req.Email); err != nil {
		return err
	}
	if req.Password == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidRequest)
	}
	return nil
}

// ValidateRegister checks a registration request before it is sent.
func ValidateRegister(req RegisterRequest) error {
	if err := ValidateEmail(req.Email); err != nil {
		return err
	}
	if len(req.Password) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidRequest, minPasswordLen)
	}
	return nil
}
