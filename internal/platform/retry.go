package platform

import (
	"context"
	"errors"
	"log"
	"time"
)

// RetryPolicy — ограниченный экспоненциальный бэкофф: задержка перед
// повтором n равна BaseDelay*2^n, но подсказка rate-limit'а важнее расчётной.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
}

// Do выполняет fn до первого успеха либо до исчерпания попыток.
// Терминальные ошибки платформы возвращаются сразу, без повторов.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func() error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		if Terminal(err) {
			return err
		}
		lastErr = err

		if attempt == attempts-1 {
			break
		}

		delay := p.BaseDelay << attempt
		var rl *RateLimitError
		if errors.As(err, &rl) && rl.RetryAfter > 0 {
			delay = rl.RetryAfter
		}
		log.Printf("%s: attempt %d/%d failed (%v), retrying in %s", op, attempt+1, attempts, err, delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return lastErr
}
