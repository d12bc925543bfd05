package resthttp

import (
	"encoding/json"
	"net/http"

	"github.com/sir_venger/chat_drive/internal/models"
)

type healthResponse struct {
	Status    string          `json:"status"`
	Platforms map[string]bool `json:"platforms"`
}

// getHealth опрашивает платформы. Недоступный резерв не роняет статус:
// сервис остаётся рабочим, пока жива основная платформа.
func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	platforms := map[string]bool{}
	for tag, sender := range s.Downloads.Senders {
		platforms[tag] = sender.Ping(r.Context()) == nil
	}

	status := "ok"
	code := http.StatusOK
	if !platforms[models.PlatformDiscord] {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(healthResponse{Status: status, Platforms: platforms})
}
