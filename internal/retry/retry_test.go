package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig(attempts int) Config {
	return Config{MaxAttempts: attempts, InitialWait: time.Millisecond, MaxWait: 2 * time.Millisecond, Multiplier: 2}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(5), func() error {
		calls++
		if calls < 3 {
			return Retryable(errors.New("429 too many requests"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	permanent := errors.New("404 not found")
	calls := 0
	err := Do(context.Background(), fastConfig(5), func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) || calls != 1 {
		t.Fatalf("Do() = (%v, %d calls), want permanent error after 1 call", err, calls)
	}
}

func TestDo_GivesUpAfterMaxAttempts(t *testing.T) {
	cause := errors.New("503 unavailable")
	calls := 0
	err := Do(context.Background(), fastConfig(3), func() error {
		calls++
		return Retryable(cause)
	})
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("Do() error = %v, want %v", err, cause)
	}
	if IsRetryable(err) {
		t.Fatalf("IsRetryable(final error) = true, want the marker removed")
	}
}

func TestDo_HonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{MaxAttempts: 0, InitialWait: time.Hour, Multiplier: 1}
	calls := 0
	err := Do(ctx, cfg, func() error {
		calls++
		cancel()
		return Retryable(errors.New("busy"))
	})
	if !errors.Is(err, context.Canceled) || calls != 1 {
		t.Fatalf("Do() = (%v, %d calls), want context.Canceled after 1 call", err, calls)
	}
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	got, err := DoWithResult(context.Background(), fastConfig(3), func() (string, error) {
		calls++
		if calls == 1 {
			return "", RetryableAfter(errors.New("slow down"), time.Millisecond)
		}
		return "folder-42", nil
	})
	if err != nil || got != "folder-42" {
		t.Fatalf("DoWithResult() = (%q, %v), want folder-42", got, err)
	}
}

func TestRetryable(t *testing.T) {
	if Retryable(nil) != nil {
		t.Fatalf("Retryable(nil) != nil")
	}
	if IsRetryable(errors.New("x")) {
		t.Fatalf("IsRetryable(plain) = true, want false")
	}
	if !IsRetryable(Retryable(errors.New("x"))) {
		t.Fatalf("IsRetryable(Retryable(x)) = false, want true")
	}
}

func TestConfig_Backoff(t *testing.T) {
	cfg := Config{InitialWait: 100 * time.Millisecond, MaxWait: 300 * time.Millisecond, Multiplier: 2}
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 300 * time.Millisecond},
		{10, 300 * time.Millisecond},
	}
	for _, c := range cases {
		if got := cfg.backoff(c.attempt); got != c.want {
			t.Fatalf("backoff(%d) = %v, want %v", c.attempt, got, c.want)
		}
	}
}
