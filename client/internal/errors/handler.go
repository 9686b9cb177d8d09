package errors

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aigencia/apiclient/client/tokenstore"
)

// RedirectKey is the session key holding the location to return to after a
// successful login.
const RedirectKey = "redirectAfterLogin"

// DefaultLoginPath is where unauthorized sessions are sent.
const DefaultLoginPath = "/login"

// authPathPrefixes are locations that never trigger a login redirect.
var authPathPrefixes = []string{"/login", "/register", "/auth/", "/forgot-password", "/reset-password"}

// Navigator is the host application's view of "where the user is" and how to
// move them. Front-ends implement it over their router; headless callers can
// leave the default, which only logs.
type Navigator interface {
	Location() string
	Redirect(to string)
}

// HandlerConfig wires a Handler's collaborators. Zero fields get defaults.
type HandlerConfig struct {
	Logger    zerolog.Logger
	Navigator Navigator
	Session   tokenstore.Store
	LoginPath string
	Now       func() time.Time
}

// Handler observes failed requests. Its effects are diagnostic or
// navigational; it never changes the error returned to the caller beyond
// filling in Validation and RetryAfter.
type Handler struct {
	log       zerolog.Logger
	nav       Navigator
	session   tokenstore.Store
	loginPath string
	now       func() time.Time

	byKind map[Kind]func(*APIError)
}

// NewHandler builds a Handler from cfg.
func NewHandler(cfg HandlerConfig) *Handler {
	h := &Handler{
		log:       cfg.Logger,
		nav:       cfg.Navigator,
		session:   cfg.Session,
		loginPath: cfg.LoginPath,
		now:       cfg.Now,
	}
	if h.nav == nil {
		h.nav = &logNavigator{log: cfg.Logger}
	}
	if h.session == nil {
		h.session = tokenstore.NewMemoryStore()
	}
	if h.loginPath == "" {
		h.loginPath = DefaultLoginPath
	}
	if h.now == nil {
		h.now = time.Now
	}
	h.byKind = map[Kind]func(*APIError){
		KindUnauthorized: h.unauthorized,
		KindForbidden:    h.forbidden,
		KindNotFound:     h.notFound,
		KindConflict:     h.conflict,
		KindValidation:   h.validation,
		KindRateLimited:  h.rateLimited,
		KindServer:       h.server,
		KindNetwork:      h.network,
		KindTimeout:      h.timeout,
		KindGeneric:      h.generic,
	}
	return h
}

// Handle dispatches e to the handler registered for its kind.
func (h *Handler) Handle(e *APIError) {
	if e == nil {
		return
	}
	fn, ok := h.byKind[e.Kind]
	if !ok {
		fn = h.generic
	}
	fn(e)
}

// IsRetryable is the handler-facing alias of the package-level policy gate.
func (h *Handler) IsRetryable(err error) bool { return IsRetryable(err) }

// Session exposes the store holding the post-login redirect location.
func (h *Handler) Session() tokenstore.Store { return h.session }

func (h *Handler) event(level zerolog.Level, e *APIError) *zerolog.Event {
	return h.log.WithLevel(level).
		Str("kind", e.Kind.String()).
		Int("status", e.Status).
		Str("method", e.Method).
		Str("url", e.URL).
		Str("request_id", e.RequestID).
		Str("code", e.Code)
}

func (h *Handler) unauthorized(e *APIError) {
	loc := h.nav.Location()
	if IsAuthPath(loc) {
		h.event(zerolog.InfoLevel, e).Str("location", loc).Msg("unauthorized on auth page, not redirecting")
		return
	}
	if loc != "" {
		if err := h.session.Set(RedirectKey, loc); err != nil {
			h.log.Warn().Err(err).Msg("failed to stash post-login redirect")
		}
	}
	h.event(zerolog.WarnLevel, e).Str("location", loc).Str("redirect", h.loginPath).Msg("session unauthorized, redirecting to login")
	h.nav.Redirect(h.loginPath)
}

func (h *Handler) forbidden(e *APIError) {
	h.event(zerolog.WarnLevel, e).Str("api_message", e.Message).Msg("access forbidden")
}

func (h *Handler) notFound(e *APIError) {
	h.event(zerolog.InfoLevel, e).Msg("resource not found")
}

func (h *Handler) conflict(e *APIError) {
	h.event(zerolog.InfoLevel, e).Str("api_message", e.Message).Msg("resource conflict")
}

func (h *Handler) validation(e *APIError) {
	e.Validation = extractValidation(e.Details)
	ev := h.event(zerolog.InfoLevel, e).Str("api_message", e.Message)
	if len(e.Validation) > 0 {
		ev = ev.RawJSON("validation", e.Validation)
	}
	ev.Msg("request validation failed")
}

func (h *Handler) rateLimited(e *APIError) {
	e.RetryAfter = h.retryAfter(e)
	h.event(zerolog.WarnLevel, e).Dur("retry_after", e.RetryAfter).Msg("rate limited")
}

func (h *Handler) server(e *APIError) {
	ev := h.event(zerolog.ErrorLevel, e).Str("api_message", e.Message)
	if len(e.Details) > 0 {
		ev = ev.RawJSON("details", e.Details)
	}
	ev.Msg("server error")
}

func (h *Handler) network(e *APIError) {
	h.event(zerolog.ErrorLevel, e).Err(e.Err).Msg("network failure (connectivity, DNS, TLS or CORS-class rejection)")
}

func (h *Handler) timeout(e *APIError) {
	h.event(zerolog.WarnLevel, e).Err(e.Err).Msg("request timed out")
}

func (h *Handler) generic(e *APIError) {
	h.event(zerolog.WarnLevel, e).Str("api_message", e.Message).Msg("request failed")
}

// retryAfter reads the hint from the Retry-After header (delta-seconds or
// HTTP-date) or a retryAfter field in the body, in that order.
func (h *Handler) retryAfter(e *APIError) time.Duration {
	if v := e.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
		if at, err := http.ParseTime(v); err == nil {
			if d := at.Sub(h.now()); d > 0 {
				return d
			}
			return 0
		}
	}
	if len(e.Details) > 0 {
		var body struct {
			RetryAfter json.Number `json:"retryAfter"`
		}
		if err := json.Unmarshal(e.Details, &body); err == nil && body.RetryAfter != "" {
			if f, err := body.RetryAfter.Float64(); err == nil && f >= 0 {
				return time.Duration(f * float64(time.Second))
			}
		}
	}
	return 0
}

// validationKeys are the envelope keys that carry field-level detail, in
// priority order.
var validationKeys = []string{"errors", "validationErrors", "detail", "details"}

func extractValidation(details json.RawMessage) json.RawMessage {
	if len(details) == 0 {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(details, &obj); err != nil {
		return nil
	}
	for _, k := range validationKeys {
		if v, ok := obj[k]; ok && len(v) > 0 && string(v) != "null" {
			return v
		}
	}
	// Nested envelope: {"error": {"details": ...}}
	if inner, ok := obj["error"]; ok {
		return extractValidation(inner)
	}
	return nil
}

// IsAuthPath reports whether loc is a login/registration-type location.
func IsAuthPath(loc string) bool {
	if i := strings.IndexAny(loc, "?#"); i >= 0 {
		loc = loc[:i]
	}
	for _, p := range authPathPrefixes {
		if loc == strings.TrimSuffix(p, "/") || strings.HasPrefix(loc, p) {
			return true
		}
	}
	return false
}

type logNavigator struct{ log zerolog.Logger }

func (n *logNavigator) Location() string { return "" }

func (n *logNavigator) Redirect(to string) {
	n.log.Info().Str("to", to).Msg("login required")
}
