package httperrors

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sir_venger/chat_drive/internal/models"
	"github.com/sir_venger/chat_drive/internal/platform"
)

// Write переводит доменные ошибки в HTTP-статусы и пишет текст ошибки в ответ.
func Write(w http.ResponseWriter, err error) {
	var rl *platform.RateLimitError
	switch {
	case errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrFolderNotFound),
		errors.Is(err, models.ErrSessionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, models.ErrOutOfOrder),
		errors.Is(err, models.ErrIncomplete),
		errors.Is(err, models.ErrNotEmpty),
		errors.Is(err, models.ErrSessionClosed):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, models.ErrChecksum),
		errors.Is(err, models.ErrCycle):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, models.ErrIntegrity),
		errors.Is(err, models.ErrPartUnavailable),
		errors.Is(err, platform.ErrRemoteNotFound):
		http.Error(w, err.Error(), http.StatusBadGateway)
	case errors.As(err, &rl):
		w.Header().Set("Retry-After", rl.Header())
		http.Error(w, err.Error(), http.StatusTooManyRequests)
	case errors.Is(err, platform.ErrRejected):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		if containsAny(err.Error(),
			"is required", "is empty", "negative chunk index",
			"exceeds chunk size", "past declared total", "declared size",
		) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func containsAny(msg string, needles ...string) bool {
	for _, s := range needles {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
