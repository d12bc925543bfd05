package platform

import (
	"context"
	"errors"
	"testing"
	"time"
)

func Test_Retry_StopsOnTerminal(t *testing.T) {
	p := RetryPolicy{Attempts: 5, BaseDelay: time.Millisecond}
	calls := 0
	err := p.Do(context.Background(), "op", func() error {
		calls++
		return ErrRejected
	})
	if !errors.Is(err, ErrRejected) || calls != 1 {
		t.Fatalf("calls=%d err=%v", calls, err)
	}
}

func Test_Retry_ExhaustsAttempts(t *testing.T) {
	p := RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond}
	calls := 0
	boom := errors.New("flaky")
	err := p.Do(context.Background(), "op", func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || calls != 3 {
		t.Fatalf("calls=%d err=%v", calls, err)
	}
}

func Test_Retry_SucceedsAfterTransient(t *testing.T) {
	p := RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond}
	calls := 0
	err := p.Do(context.Background(), "op", func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Fatalf("calls=%d err=%v", calls, err)
	}
}

func Test_Retry_HonorsRateLimitHint(t *testing.T) {
	p := RetryPolicy{Attempts: 2, BaseDelay: time.Hour} // расчётная пауза нарочно огромная
	calls := 0
	startedAt := time.Now()
	err := p.Do(context.Background(), "op", func() error {
		calls++
		if calls == 1 {
			return &RateLimitError{RetryAfter: time.Millisecond}
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Fatalf("calls=%d err=%v", calls, err)
	}
	if time.Since(startedAt) > time.Second {
		t.Fatal("rate limit hint was ignored in favour of BaseDelay")
	}
}

func Test_Retry_ContextCancelled(t *testing.T) {
	p := RetryPolicy{Attempts: 10, BaseDelay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Do(ctx, "op", func() error { return errors.New("never retried") })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func Test_RateLimit_HeaderRoundsUp(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Millisecond, "1"},
		{time.Second, "1"},
		{2500 * time.Millisecond, "3"},
	}
	for _, c := range cases {
		got := (&RateLimitError{RetryAfter: c.d}).Header()
		if got != c.want {
			t.Errorf("%s: got %s, want %s", c.d, got, c.want)
		}
	}
}
