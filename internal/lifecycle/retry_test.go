package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"
)

// stubSleep records requested backoffs without actually sleeping.
func stubSleep(record *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*record = append(*record, d)
		return nil
	}
}

func TestCallWithRetry(t *testing.T) {
	retryable := errors.New("connection refused")

	t.Run("succeeds without retrying", func(t *testing.T) {
		var sleeps []time.Duration
		p := RetryPolicy{MaxAttempts: 3, sleep: stubSleep(&sleeps)}

		calls := 0
		res := callWithRetry(context.Background(), p, func(context.Context) Result {
			calls++
			return OK(nil)
		})
		if !res.Success || calls != 1 || len(sleeps) != 0 {
			t.Errorf("calls=%d sleeps=%v success=%t, want one clean call", calls, sleeps, res.Success)
		}
	})

	t.Run("retries transport failures with doubling backoff", func(t *testing.T) {
		var sleeps []time.Duration
		p := RetryPolicy{MaxAttempts: 3, InitialBackoff: 100 * time.Millisecond,
			MaxBackoff: 2 * time.Second, sleep: stubSleep(&sleeps)}

		calls := 0
		res := callWithRetry(context.Background(), p, func(context.Context) Result {
			calls++
			if calls < 3 {
				return Failed(retryable, nil)
			}
			return OK(nil)
		})
		if !res.Success || calls != 3 {
			t.Fatalf("calls=%d success=%t, want success on the third attempt", calls, res.Success)
		}
		want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}
		if len(sleeps) != len(want) || sleeps[0] != want[0] || sleeps[1] != want[1] {
			t.Errorf("backoffs = %v, want %v", sleeps, want)
		}
	})

	t.Run("backoff is capped", func(t *testing.T) {
		var sleeps []time.Duration
		p := RetryPolicy{MaxAttempts: 6, InitialBackoff: 100 * time.Millisecond,
			MaxBackoff: 300 * time.Millisecond, sleep: stubSleep(&sleeps)}

		callWithRetry(context.Background(), p, func(context.Context) Result {
			return Failed(retryable, nil)
		})
		for _, d := range sleeps {
			if d > 300*time.Millisecond {
				t.Errorf("backoff %v exceeds the cap", d)
			}
		}
	})

	t.Run("gives up after the attempt budget", func(t *testing.T) {
		var sleeps []time.Duration
		p := RetryPolicy{MaxAttempts: 3, sleep: stubSleep(&sleeps)}

		calls := 0
		res := callWithRetry(context.Background(), p, func(context.Context) Result {
			calls++
			return Failed(retryable, nil)
		})
		if res.Success || calls != 3 {
			t.Errorf("calls=%d success=%t, want 3 failed attempts", calls, res.Success)
		}
	})

	t.Run("non-retryable failures return immediately", func(t *testing.T) {
		var sleeps []time.Duration
		p := RetryPolicy{MaxAttempts: 3, sleep: stubSleep(&sleeps)}

		calls := 0
		res := callWithRetry(context.Background(), p, func(context.Context) Result {
			calls++
			return Failed(errors.New("status 401: bad credentials"), nil)
		})
		if res.Success || calls != 1 {
			t.Errorf("calls=%d, want a single attempt for an auth failure", calls)
		}
	})

	t.Run("single attempt policy never retries", func(t *testing.T) {
		var sleeps []time.Duration
		p := RetryPolicy{MaxAttempts: 1, sleep: stubSleep(&sleeps)}

		calls := 0
		callWithRetry(context.Background(), p, func(context.Context) Result {
			calls++
			return Failed(retryable, nil)
		})
		if calls != 1 || len(sleeps) != 0 {
			t.Errorf("calls=%d sleeps=%v, want exactly one attempt", calls, sleeps)
		}
	})

	t.Run("cancelled context stops the loop", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		calls := 0
		p := RetryPolicy{MaxAttempts: 5, sleep: func(context.Context, time.Duration) error {
			cancel()
			return ctx.Err()
		}}
		res := callWithRetry(ctx, p, func(context.Context) Result {
			calls++
			return Failed(retryable, nil)
		})
		if res.Success || calls != 1 {
			t.Errorf("calls=%d, want the loop to stop once the context dies", calls)
		}
	})
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"cancelled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, true},
		{"net timeout", &net.DNSError{IsTimeout: true}, true},
		{"server error", fmt.Errorf("api request: status 503"), true},
		{"connection reset", errors.New("read tcp: connection reset by peer"), true},
		{"auth failure", errors.New("status 401: bad credentials"), false},
		{"validation", errors.New("invalid repository full name"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryable(tt.err); got != tt.want {
				t.Errorf("isRetryable(%v) = %t, want %t", tt.err, got, tt.want)
			}
		})
	}
}

func TestSlugGuard(t *testing.T) {
	g := newSlugGuard()

	if err := g.acquire("acme"); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	err := g.acquire("acme")
	var inProgress *OperationInProgressError
	if !errors.As(err, &inProgress) {
		t.Fatalf("expected OperationInProgressError, got %v", err)
	}

	// Other slugs are unaffected.
	if err := g.acquire("globex"); err != nil {
		t.Errorf("unrelated slug blocked: %v", err)
	}

	g.release("acme")
	if err := g.acquire("acme"); err != nil {
		t.Errorf("acquire after release: %v", err)
	}
}
