package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errNet = errors.New("connection reset")

func TestBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond}
	for i, w := range want {
		if got := Backoff(base, i); got != w {
			t.Fatalf("attempt %d: want %v, got %v", i, w, got)
		}
	}
}

func TestDoExhaustsRetries(t *testing.T) {
	var delays []time.Duration
	calls := 0
	p := Policy{
		Retries:   3,
		BaseDelay: 50 * time.Millisecond,
		Sleep: func(_ context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		},
	}

	_, err := Do(context.Background(), p, func(_ context.Context, n int) (int, error) {
		if n != calls {
			t.Fatalf("attempt index %d, expected %d", n, calls)
		}
		calls++
		return 0, errNet
	})
	if !errors.Is(err, errNet) {
		t.Fatalf("want last error, got %v", err)
	}
	if calls != 4 {
		t.Fatalf("want retries+1 = 4 calls, got %d", calls)
	}
	want := []time.Duration{50 * time.Millisecond, 100 * time.Millisecond, 200 * time.Millisecond}
	if len(delays) != len(want) {
		t.Fatalf("want %d delays, got %v", len(want), delays)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("delay %d: want %v, got %v", i, want[i], delays[i])
		}
	}
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	errClient := errors.New("404")
	calls := 0
	p := Policy{
		Retries:   5,
		BaseDelay: time.Millisecond,
		Retryable: func(err error) bool { return !errors.Is(err, errClient) },
		Sleep:     func(context.Context, time.Duration) error { t.Fatal("should not sleep"); return nil },
	}
	_, err := Do(context.Background(), p, func(context.Context, int) (string, error) {
		calls++
		return "", errClient
	})
	if !errors.Is(err, errClient) || calls != 1 {
		t.Fatalf("want one call with client error, got calls=%d err=%v", calls, err)
	}
}

func TestDoSucceedsAfterFailures(t *testing.T) {
	p := Policy{Retries: 3, BaseDelay: time.Millisecond, Sleep: func(context.Context, time.Duration) error { return nil }}
	v, err := Do(context.Background(), p, func(_ context.Context, n int) (int, error) {
		if n < 2 {
			return 0, errNet
		}
		return 42, nil
	})
	if err != nil || v != 42 {
		t.Fatalf("want 42, got %d (%v)", v, err)
	}
}

func TestDoCancelledDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	p := Policy{Retries: 3, BaseDelay: time.Hour}
	_, err := Do(ctx, p, func(context.Context, int) (int, error) {
		calls++
		return 0, errNet
	})
	if calls != 1 || !errors.Is(err, errNet) {
		t.Fatalf("want single attempt after cancel, got calls=%d err=%v", calls, err)
	}
}
