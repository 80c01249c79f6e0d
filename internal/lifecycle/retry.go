package lifecycle

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"
)

const (
	defaultRetryAttempts = 3
	initialRetryBackoff  = 100 * time.Millisecond
	maxRetryBackoff      = 2 * time.Second
)

var retryableErrorSubstrings = []string{
	"timeout",
	"i/o timeout",
	"tls handshake timeout",
	"eof",
	"unexpected eof",
	"broken pipe",
	"connection reset",
	"connection refused",
	"connection aborted",
	"connection closed",
	"use of closed network connection",
	"network is unreachable",
	"no route to host",
	"no such host",
	"status 500",
	"status 502",
	"status 503",
	"status 504",
}

// RetryPolicy bounds the per-platform retry of adapter calls. Adapters
// only guarantee idempotency; the retry itself lives here so every
// orchestrated platform call gets the same discipline.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	sleep          func(context.Context, time.Duration) error
}

// DefaultRetryPolicy retries transport-class failures up to 3 times
// with exponential backoff from 100ms capped at 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    defaultRetryAttempts,
		InitialBackoff: initialRetryBackoff,
		MaxBackoff:     maxRetryBackoff,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultRetryAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = initialRetryBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = maxRetryBackoff
	}
	if p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = p.InitialBackoff
	}
	if p.sleep == nil {
		p.sleep = sleepWithContext
	}
	return p
}

// callWithRetry invokes fn until it succeeds, fails non-retryably, or
// the attempt budget is exhausted. The last Result is returned either way.
func callWithRetry(ctx context.Context, p RetryPolicy, fn func(context.Context) Result) Result {
	p = p.normalized()
	backoff := p.InitialBackoff

	var last Result
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Failed(err, nil)
		}

		last = fn(ctx)
		if last.Success {
			return last
		}

		if !isRetryable(last.Err) || attempt == p.MaxAttempts {
			return last
		}

		if err := p.sleep(ctx, backoff); err != nil {
			return last
		}

		if backoff < p.MaxBackoff {
			backoff *= 2
			if backoff > p.MaxBackoff {
				backoff = p.MaxBackoff
			}
		}
	}

	return last
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isRetryable reports whether the failure looks transport-class.
// Auth and validation failures are never retried.
func isRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	errText := strings.ToLower(err.Error())
	for _, marker := range retryableErrorSubstrings {
		if strings.Contains(errText, marker) {
			return true
		}
	}

	return false
}
