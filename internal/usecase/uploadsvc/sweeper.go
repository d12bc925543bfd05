package uploadsvc

import (
	"context"
	"log"
	"time"

	"github.com/sir_venger/chat_drive/internal/models"
)

// StartSweeper запускает фоновую уборку: протухшие по TTL сессии прерываются,
// осиротевшие после рестарта записи вычищаются из реестра. Возвращает функцию
// остановки.
func (s *Service) StartSweeper(interval time.Duration) func() {
	if interval <= 0 || s.TTL <= 0 {
		return func() {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.sweep(ctx)
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func (s *Service) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.TTL)

	s.mu.Lock()
	var expired []*liveSession
	for _, ls := range s.live {
		ls.mu.Lock()
		if ls.sess.Status == models.StatusUploading && ls.lastActivity.Before(cutoff) {
			expired = append(expired, ls)
		}
		ls.mu.Unlock()
	}
	s.mu.Unlock()

	for _, ls := range expired {
		log.Printf("upload: session %s expired", ls.sess.SessionID)
		s.abort(ctx, ls)
	}

	// Записи без рабочего состояния остаются после рестарта процесса.
	sessions, err := s.Registry.ListSessions(ctx)
	if err != nil {
		log.Printf("upload: sweep sessions: %v", err)
		return
	}
	for _, sess := range sessions {
		if s.lookup(sess.SessionID) != nil {
			continue
		}
		created, err := time.Parse(time.RFC3339, sess.CreatedAt)
		if err == nil && created.After(cutoff) {
			continue
		}
		if err := s.Registry.DeleteSession(ctx, sess.SessionID); err != nil {
			log.Printf("upload: drop orphan session %s: %v", sess.SessionID, err)
		} else {
			log.Printf("upload: orphan session %s dropped", sess.SessionID)
		}
	}
}
