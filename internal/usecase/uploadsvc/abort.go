package uploadsvc

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/sir_venger/chat_drive/internal/models"
	"github.com/sir_venger/chat_drive/internal/platform"
)

// Cancel прерывает сессию. Уже отправленные части удаляются с платформ по
// принципу best-effort, запись сессии стирается. Отмена завершённой или
// неизвестной сессии — no-op.
func (s *Service) Cancel(ctx context.Context, sessionID string) error {
	if _, ok := s.completedID(sessionID); ok {
		return nil
	}
	if ls := s.lookup(sessionID); ls != nil {
		s.abort(ctx, ls)
		return nil
	}
	// Осиротевшая запись без рабочего состояния — просто вычищаем её.
	if err := s.Registry.DeleteSession(ctx, sessionID); err != nil && !errors.Is(err, models.ErrSessionNotFound) {
		return fmt.Errorf("cancel session %s: %w", sessionID, err)
	}
	return nil
}

// abort гасит сессию: новые чанки отклоняются сразу, уже начатые отправки
// дорабатывают, после чего их части удаляются с платформ.
func (s *Service) abort(ctx context.Context, ls *liveSession) {
	ls.mu.Lock()
	if ls.aborting || ls.sess.Status == models.StatusSent {
		ls.mu.Unlock()
		return
	}
	ls.aborting = true
	ls.sess.Status = models.StatusAborted
	sessionID := ls.sess.SessionID
	ls.cond.Broadcast()
	for ls.inflight > 0 {
		ls.cond.Wait()
	}
	refs := append([]models.PartRef(nil), ls.refs...)
	for _, pending := range ls.pending {
		refs = append(refs, pending...)
	}
	ls.mu.Unlock()

	for _, ref := range refs {
		if sender := s.senderFor(ref.Platform); sender != nil {
			sender.Delete(ctx, ref)
		}
	}
	if err := s.Registry.DeleteSession(ctx, sessionID); err != nil && !errors.Is(err, models.ErrSessionNotFound) {
		log.Printf("upload: drop aborted session %s: %v", sessionID, err)
	}

	s.removeLive(sessionID)
	close(ls.stop)
	log.Printf("upload: session %s aborted, %d sent parts cleaned up", sessionID, len(refs))
}

func (s *Service) senderFor(tag string) platform.Sender {
	if s.Primary != nil && s.Primary.Tag() == tag {
		return s.Primary
	}
	if s.Backup != nil && s.Backup.Tag() == tag {
		return s.Backup
	}
	return nil
}
