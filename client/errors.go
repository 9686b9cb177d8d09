package client

import (
	"errors"

	apierrors "github.com/aigencia/apiclient/client/internal/errors"
	"github.com/aigencia/apiclient/client/internal/token"
	"github.com/aigencia/apiclient/client/internal/types"
)

var errEmptyBaseURL = errors.New("base URL must not be empty")

// APIError is the structured failure returned for every non-2xx response and
// transport failure.
type (
	APIError = apierrors.APIError
	Kind     = apierrors.Kind
)

// Error kinds.
const (
	KindGeneric      = apierrors.KindGeneric
	KindUnauthorized = apierrors.KindUnauthorized
	KindForbidden    = apierrors.KindForbidden
	KindNotFound     = apierrors.KindNotFound
	KindConflict     = apierrors.KindConflict
	KindValidation   = apierrors.KindValidation
	KindRateLimited  = apierrors.KindRateLimited
	KindServer       = apierrors.KindServer
	KindNetwork      = apierrors.KindNetwork
	KindTimeout      = apierrors.KindTimeout
)

// Re-export shared sentinels so callers compare against a single symbol.
var (
	ErrUnauthorized = apierrors.ErrUnauthorized
	ErrForbidden    = apierrors.ErrForbidden
	ErrNotFound     = apierrors.ErrNotFound
	ErrConflict     = apierrors.ErrConflict
	ErrValidation   = apierrors.ErrValidation
	ErrRateLimited  = apierrors.ErrRateLimited
	ErrServer       = apierrors.ErrServer
	ErrNetwork      = apierrors.ErrNetwork
	ErrTimeout      = apierrors.ErrTimeout

	ErrNoRefreshToken      = token.ErrNoRefreshToken
	ErrRefreshTokenExpired = token.ErrRefreshTokenExpired
	ErrInvalidRequest      = types.ErrInvalidRequest
)

// RefreshError reports a non-2xx answer from the refresh endpoint.
type RefreshError = token.RefreshError

// IsRetryable reports whether err would be retried under the retry policy.
func IsRetryable(err error) bool { return apierrors.IsRetryable(err) }

// StatusOf returns the HTTP status carried by err, or -1 when err is not an
// *APIError.
func StatusOf(err error) int { return apierrors.StatusOf(err) }
