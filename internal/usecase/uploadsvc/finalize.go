package uploadsvc

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/sir_venger/chat_drive/internal/models"
)

// Finalize дожидается подтверждения всех отправок, сверяет размер и
// контрольную сумму и публикует запись файла в реестре. Повторный вызов для
// уже завершённой сессии возвращает тот же идентификатор файла.
func (s *Service) Finalize(ctx context.Context, sessionID, wantSha256 string) (int64, error) {
	if id, ok := s.completedID(sessionID); ok {
		return id, nil
	}
	ls := s.lookup(sessionID)
	if ls == nil {
		return 0, s.classifyMissing(ctx, sessionID)
	}

	ls.mu.Lock()
	if ls.sess.Status != models.StatusUploading {
		status := ls.sess.Status
		failed := ls.failed
		ls.mu.Unlock()
		if failed != nil {
			return 0, fmt.Errorf("session %s is %s after send failure (%v): %w",
				sessionID, status, failed, models.ErrSessionClosed)
		}
		return 0, fmt.Errorf("session %s is %s: %w", sessionID, status, models.ErrSessionClosed)
	}
	if ls.sess.TotalChunks > 0 && ls.next != ls.sess.TotalChunks {
		err := fmt.Errorf("session %s: have %d of %d chunks: %w",
			sessionID, ls.next, ls.sess.TotalChunks, models.ErrIncomplete)
		ls.mu.Unlock()
		return 0, err
	}
	if ls.sess.FileSize > 0 && ls.bytes != ls.sess.FileSize {
		err := fmt.Errorf("session %s: have %d of %d bytes: %w",
			sessionID, ls.bytes, ls.sess.FileSize, models.ErrIncomplete)
		ls.mu.Unlock()
		return 0, err
	}

	ls.sess.Status = models.StatusSending
	snapshot := ls.sess.Clone()
	ls.mu.Unlock()
	if err := s.Registry.SaveSession(ctx, snapshot); err != nil {
		log.Printf("upload: persist session %s: %v", sessionID, err)
	}

	ls.mu.Lock()
	for ls.failed == nil && (ls.inflight > 0 || ls.committed < ls.next) && ls.sess.Status == models.StatusSending {
		ls.cond.Wait()
	}
	if ls.failed != nil {
		// Сессию уже прерывает collector; клиенту возвращаем причину отказа.
		err := ls.failed
		ls.mu.Unlock()
		return 0, fmt.Errorf("finalize session %s: %w", sessionID, err)
	}
	if ls.sess.Status == models.StatusAborted {
		ls.mu.Unlock()
		return 0, fmt.Errorf("session %s: %w", sessionID, models.ErrSessionClosed)
	}

	gotSha := hex.EncodeToString(ls.hash.Sum(nil))
	if wantSha256 != "" && !strings.EqualFold(wantSha256, gotSha) {
		// Сессию не трогаем: клиент может перепроверить сумму и повторить вызов.
		ls.sess.Status = models.StatusUploading
		snapshot := ls.sess.Clone()
		err := fmt.Errorf("session %s: want sha256 %s, got %s: %w",
			sessionID, wantSha256, gotSha, models.ErrChecksum)
		ls.mu.Unlock()
		if perr := s.Registry.SaveSession(ctx, snapshot); perr != nil {
			log.Printf("upload: persist session %s: %v", sessionID, perr)
		}
		return 0, err
	}

	rec := s.buildRecord(ls, gotSha)
	ls.mu.Unlock()

	if err := s.Registry.SaveFile(ctx, rec); err != nil {
		ls.mu.Lock()
		ls.sess.Status = models.StatusUploading
		ls.mu.Unlock()
		return 0, fmt.Errorf("finalize session %s: %w", sessionID, err)
	}
	if err := s.Registry.DeleteSession(ctx, sessionID); err != nil {
		log.Printf("upload: drop finished session %s: %v", sessionID, err)
	}

	ls.mu.Lock()
	ls.sess.Status = models.StatusSent
	ls.cond.Broadcast()
	ls.mu.Unlock()

	s.mu.Lock()
	s.completed[sessionID] = rec.ID
	delete(s.live, sessionID)
	s.mu.Unlock()
	close(ls.stop)

	log.Printf("upload: session %s finalized as file %d (%q, %d parts)", sessionID, rec.ID, rec.Filename, rec.Parts)
	return rec.ID, nil
}

// buildRecord собирает запись файла. Вызывается под ls.mu.
func (s *Service) buildRecord(ls *liveSession, sha string) models.FileRecord {
	method, methodKey := s.methodLabel(ls.next)
	messageIDs := make([]int64, 0, len(ls.refs))
	jumpURL := ""
	for _, ref := range ls.refs {
		messageIDs = append(messageIDs, ref.MessageID)
		if jumpURL == "" && ref.Platform == models.PlatformDiscord && ref.JumpURL != "" {
			jumpURL = ref.JumpURL
		}
	}
	now := models.NowISO()
	return models.FileRecord{
		ID:          models.NewID(),
		Filename:    ls.sess.Filename,
		SizeMB:      math.Round(float64(ls.bytes)/(1024*1024)*100) / 100,
		ChannelID:   ls.sess.ChannelID,
		ChannelName: ls.sess.ChannelName,
		FolderID:    ls.sess.FolderID,
		FolderName:  ls.sess.FolderName,
		Status:      models.StatusSent,
		Method:      method,
		MethodKey:   methodKey,
		Parts:       ls.next,
		PartsInfo:   append([]models.PartRef(nil), ls.refs...),
		MessageIDs:  messageIDs,
		JumpURL:     jumpURL,
		SentAt:      models.NowDisplay(),
		Size:        ls.bytes,
		ChunkSize:   s.ChunkSize,
		Sha256:      sha,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (s *Service) methodLabel(parts int) (string, string) {
	switch {
	case s.Backup != nil && parts > 1:
		return "Split + backup copy", "split_dual"
	case s.Backup != nil:
		return "Direct + backup copy", "direct_dual"
	case parts > 1:
		return "Split upload", "split"
	default:
		return "Direct upload", "direct"
	}
}
