package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// statusKinds maps specific status codes to a kind. Codes missing from the
// table fall back to the 5xx range rule in Classify.
var statusKinds = map[int]Kind{
	0:                              KindNetwork,
	http.StatusUnauthorized:        KindUnauthorized,
	http.StatusForbidden:           KindForbidden,
	http.StatusNotFound:            KindNotFound,
	http.StatusRequestTimeout:      KindTimeout,
	http.StatusConflict:            KindConflict,
	http.StatusUnprocessableEntity: KindValidation,
	http.StatusTooManyRequests:     KindRateLimited,
}

// retryableStatuses is the sole gate for automatic retries.
var retryableStatuses = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Classify maps an HTTP status code to its taxonomy kind.
func Classify(status int) Kind {
	if k, ok := statusKinds[status]; ok {
		return k
	}
	if status >= 500 && status < 600 {
		return KindServer
	}
	return KindGeneric
}

// IsRetryableStatus reports whether status is in the retryable set
// {408, 429, 500, 502, 503, 504}.
func IsRetryableStatus(status int) bool { return retryableStatuses[status] }

// IsRetryable reports whether err is an *APIError whose status is retryable.
// Transport failures (status 0) and all other errors are not retried.
func IsRetryable(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && IsRetryableStatus(apiErr.Status)
}

// errorBody is the union of error envelopes the backend is known to emit.
type errorBody struct {
	Message json.RawMessage `json:"message"`
	Error   json.RawMessage `json:"error"`
	Code    json.RawMessage `json:"code"`
}

// FromResponse builds an APIError from a non-2xx response body. The body is
// kept verbatim in Details.
func FromResponse(status int, body []byte, method, url string) *APIError {
	e := &APIError{
		Status: status,
		Kind:   Classify(status),
		Method: method,
		URL:    url,
	}
	if len(body) > 0 && json.Valid(body) {
		e.Details = json.RawMessage(body)
		var eb errorBody
		if err := json.Unmarshal(body, &eb); err == nil {
			e.Message = firstString(eb.Message, eb.Error)
			e.Code = rawString(eb.Code)
		}
	} else if len(body) > 0 {
		e.Message = truncate(string(body), 512)
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("request failed with status %d", status)
	}
	return e
}

// NewNetworkError wraps a transport-level failure (status 0).
func NewNetworkError(method, url string, err error) *APIError {
	return &APIError{
		Message: "Network error",
		Status:  0,
		Kind:    KindNetwork,
		Method:  method,
		URL:     url,
		Err:     err,
	}
}

// NewTimeoutError reports that the client's own deadline expired.
func NewTimeoutError(method, url string, err error) *APIError {
	return &APIError{
		Message: "Request timeout",
		Status:  http.StatusRequestTimeout,
		Kind:    KindTimeout,
		Method:  method,
		URL:     url,
		Err:     err,
	}
}

// firstString returns the first raw value that decodes to a non-empty string.
// Arrays of strings (common for validation messages) are joined.
func firstString(raws ...json.RawMessage) string {
	for _, raw := range raws {
		if s := rawString(raw); s != "" {
			return s
		}
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
			out := list[0]
			for _, s := range list[1:] {
				out += "; " + s
			}
			return out
		}
	}
	return ""
}

func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
