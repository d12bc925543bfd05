package platform

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	// ErrRejected — платформа окончательно отказалась принять содержимое
	// (слишком большой файл, запрещённый тип и т.п.). Ретраи бесполезны.
	ErrRejected = errors.New("remote platform rejected content")

	// ErrRemoteNotFound — удалённый объект не существует (удалён вручную
	// или канал снесён). Для скачивания это сигнал попробовать другую платформу.
	ErrRemoteNotFound = errors.New("remote object not found")
)

// RateLimitError несёт подсказку платформы, сколько ждать перед повтором.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// Header возвращает значение для заголовка Retry-After: целые секунды, не меньше 1.
func (e *RateLimitError) Header() string {
	secs := int(e.RetryAfter / time.Second)
	if e.RetryAfter%time.Second > 0 || secs < 1 {
		secs++
	}
	return strconv.Itoa(secs)
}

// Terminal сообщает, имеет ли смысл повторять операцию после этой ошибки.
func Terminal(err error) bool {
	return errors.Is(err, ErrRejected) || errors.Is(err, ErrRemoteNotFound)
}
