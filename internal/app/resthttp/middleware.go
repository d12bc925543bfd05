package resthttp

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// requestLogger помечает каждый запрос коротким id и пишет строку доступа
// после обработки. Id возвращается клиенту в X-Request-Id для сопоставления
// с логами.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()[:8]
		w.Header().Set("X-Request-Id", id)

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		startedAt := time.Now()
		next.ServeHTTP(sw, r)
		log.Printf("[%s] %s %s -> %d (%s)", id, r.Method, r.URL.Path, sw.status, time.Since(startedAt))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
