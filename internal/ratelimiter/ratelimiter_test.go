package ratelimiter

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, private, group time.Duration) *RateLimiter {
	t.Helper()

	rl := NewWithRates(slog.New(slog.DiscardHandler), private, group)
	t.Cleanup(rl.Stop)

	return rl
}

func TestDelay(t *testing.T) {
	rl := newTestLimiter(t, privateChatRate, groupChatRate)
	now := time.Now()

	tests := []struct {
		name     string
		chatID   int64
		lastSent time.Time
		wantZero bool
	}{
		{
			"Private chat - no delay needed",
			123456789,
			now.Add(-2 * time.Second),
			true,
		},
		{
			"Private chat - delay needed",
			123456789,
			now.Add(-500 * time.Millisecond),
			false,
		},
		{
			"Group chat - no delay needed",
			-123456789,
			now.Add(-4 * time.Second),
			true,
		},
		{
			"Group chat - delay needed",
			-123456789,
			now.Add(-1 * time.Second),
			false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := rl.delay(test.chatID, test.lastSent)

			if test.wantZero && got > 0 {
				t.Errorf("Expected zero delay, got %v", got)
			}

			if !test.wantZero && got <= 0 {
				t.Errorf("Expected positive delay, got %v", got)
			}
		})
	}
}

func TestSendReturnsSenderError(t *testing.T) {
	rl := newTestLimiter(t, 0, 0)
	sendErr := errors.New("telegram is down")

	err := rl.Send(context.Background(), 1, func(context.Context) error {
		return sendErr
	})
	if !errors.Is(err, sendErr) {
		t.Fatalf("Expected sender error, got %v", err)
	}
}

func TestSendPacesSameChat(t *testing.T) {
	const rate = 50 * time.Millisecond
	rl := newTestLimiter(t, rate, rate)

	var (
		mu    sync.Mutex
		times []time.Time
	)
	record := func(context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		times = append(times, time.Now())
		return nil
	}

	for range 3 {
		if err := rl.Send(context.Background(), 42, record); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}

	for i := 1; i < len(times); i++ {
		// Small tolerance for timer granularity.
		if gap := times[i].Sub(times[i-1]); gap < rate-5*time.Millisecond {
			t.Errorf("Expected gap of at least %v, got %v", rate, gap)
		}
	}
}

func TestSendAfterStop(t *testing.T) {
	rl := newTestLimiter(t, 0, 0)
	rl.Stop()

	// Give the queue goroutine a moment to observe cancellation.
	time.Sleep(10 * time.Millisecond)

	err := rl.Send(context.Background(), 1, func(context.Context) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}

func TestSendCancelledContext(t *testing.T) {
	rl := newTestLimiter(t, time.Hour, time.Hour)

	if err := rl.Send(context.Background(), 5, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	called := false
	err := rl.Send(ctx, 5, func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected context.DeadlineExceeded, got %v", err)
	}
	if called {
		t.Fatalf("Expected send to be skipped")
	}
}
