package client

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// BackoffStrategy selects how the wait grows between retries.
type BackoffStrategy string

const (
	BackoffLinear      BackoffStrategy = "linear"
	BackoffExponential BackoffStrategy = "exponential"
)

// RetryConfig bounds retries of retryable failures. Attempts counts every try,
// including the first, so Attempts=1 disables retrying.
type RetryConfig struct {
	Attempts int
	Delay    time.Duration
	Backoff  BackoffStrategy
}

// Validate checks the invariants New relies on.
func (rc RetryConfig) Validate() error {
	if rc.Attempts < 1 {
		return fmt.Errorf("retry attempts must be >= 1, got %d", rc.Attempts)
	}
	if rc.Delay < 0 {
		return fmt.Errorf("retry delay must be >= 0, got %s", rc.Delay)
	}
	switch rc.Backoff {
	case BackoffLinear, BackoffExponential:
	default:
		return fmt.Errorf("unknown backoff strategy %q", rc.Backoff)
	}
	return nil
}

// DelayFor returns the wait before retry k (k >= 1): Delay*k for linear,
// Delay*2^(k-1) for exponential.
func (rc RetryConfig) DelayFor(k int) time.Duration {
	if k < 1 {
		return 0
	}
	if rc.Backoff == BackoffExponential {
		return rc.Delay * time.Duration(1<<uint(k-1))
	}
	return rc.Delay * time.Duration(k)
}

// policyBackOff replays RetryConfig as a backoff.BackOff: retry k waits
// DelayFor(k), and Stop is returned once Attempts tries have been made.
type policyBackOff struct {
	cfg     RetryConfig
	retries int
}

var _ backoff.BackOff = (*policyBackOff)(nil)

func newPolicyBackOff(cfg RetryConfig) *policyBackOff { return &policyBackOff{cfg: cfg} }

func (p *policyBackOff) NextBackOff() time.Duration {
	if p.retries+1 >= p.cfg.Attempts {
		return backoff.Stop
	}
	p.retries++
	return p.cfg.DelayFor(p.retries)
}

func (p *policyBackOff) Reset() { p.retries = 0 }
