package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sir_venger/chat_drive/internal/models"
)

func refWithChannel(ch string, msg int64) models.PartRef {
	return models.PartRef{Part: 1, Platform: models.PlatformDiscord, ChannelID: ch, MessageID: msg}
}

func discordForStatus(t *testing.T, status int, body string) *DiscordSender {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return NewDiscordSender("tok", "1", srv.URL, time.Second)
}

func Test_Discord_429BecomesRateLimit(t *testing.T) {
	d := discordForStatus(t, http.StatusTooManyRequests, `{"retry_after": 2.5}`)

	_, err := d.Send(context.Background(), "123", "p.part1", "", []byte("x"))
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("want RateLimitError, got %v", err)
	}
	if rl.RetryAfter != 2500*time.Millisecond {
		t.Fatalf("retry after %s", rl.RetryAfter)
	}
}

func Test_Discord_404BecomesRemoteNotFound(t *testing.T) {
	d := discordForStatus(t, http.StatusNotFound, `{}`)
	_, err := d.Fetch(context.Background(), refWithChannel("123", 42))
	if !errors.Is(err, ErrRemoteNotFound) {
		t.Fatalf("want ErrRemoteNotFound, got %v", err)
	}
}

func Test_Discord_413BecomesRejected(t *testing.T) {
	d := discordForStatus(t, http.StatusRequestEntityTooLarge, `{}`)
	_, err := d.Send(context.Background(), "123", "p.part1", "", []byte("x"))
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("want ErrRejected, got %v", err)
	}
	if !Terminal(err) {
		t.Fatal("rejection must be terminal")
	}
}

func Test_Discord_5xxIsTransient(t *testing.T) {
	d := discordForStatus(t, http.StatusBadGateway, ``)
	_, err := d.Send(context.Background(), "123", "p.part1", "", []byte("x"))
	if err == nil || Terminal(err) {
		t.Fatalf("5xx must be retryable, got %v", err)
	}
}

func Test_Telegram_ErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":false,"error_code":429,"description":"flood","parameters":{"retry_after":7}}`)
	}))
	t.Cleanup(srv.Close)
	tg := NewTelegramSender("tok", "10", srv.URL, time.Second)

	_, err := tg.Send(context.Background(), "", "p.part1", "", []byte("x"))
	var rl *RateLimitError
	if !errors.As(err, &rl) || rl.RetryAfter != 7*time.Second {
		t.Fatalf("want rate limit 7s, got %v", err)
	}

	if err := tg.Ping(context.Background()); err == nil {
		t.Fatal("ping swallowed API error")
	}
}
