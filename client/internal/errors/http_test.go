package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	t.Parallel()
	cases := map[int]Kind{
		0:   KindNetwork,
		400: KindGeneric,
		401: KindUnauthorized,
		403: KindForbidden,
		404: KindNotFound,
		408: KindTimeout,
		409: KindConflict,
		422: KindValidation,
		429: KindRateLimited,
		500: KindServer,
		501: KindServer,
		503: KindServer,
		599: KindServer,
		302: KindGeneric,
	}
	for status, want := range cases {
		assert.Equal(t, want, Classify(status), "status %d", status)
	}
}

// IsRetryable holds exactly for the six statuses in the retry set.
func TestIsRetryable_ExactSet(t *testing.T) {
	t.Parallel()
	want := map[int]bool{408: true, 429: true, 500: true, 502: true, 503: true, 504: true}
	for status := 0; status < 600; status++ {
		e := &APIError{Status: status, Kind: Classify(status)}
		assert.Equal(t, want[status], IsRetryable(e), "status %d", status)
	}
	assert.False(t, IsRetryable(stderrors.New("not an api error")))
	assert.False(t, IsRetryable(nil))
}
