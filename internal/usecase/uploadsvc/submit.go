package uploadsvc

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sir_venger/chat_drive/internal/chunker"
	"github.com/sir_venger/chat_drive/internal/models"
	"github.com/sir_venger/chat_drive/internal/platform"
)

type SubmitResult struct {
	Received int // принятых чанков всего
	Total    int // 0 — не объявлено
}

// Submit принимает чанк с индексом idx. Индексы начинаются с нуля и должны
// идти подряд: повтор уже принятого индекса — идемпотентный no-op, пропуск
// вперёд — ErrOutOfOrder. Отправка на платформы выполняется асинхронно.
func (s *Service) Submit(ctx context.Context, sessionID string, idx int, data []byte) (SubmitResult, error) {
	ls := s.lookup(sessionID)
	if ls == nil {
		return SubmitResult{}, s.classifyMissing(ctx, sessionID)
	}

	ls.mu.Lock()
	if ls.failed != nil {
		err := ls.failed
		ls.mu.Unlock()
		return SubmitResult{}, err
	}
	if ls.sess.Status != models.StatusUploading {
		ls.mu.Unlock()
		return SubmitResult{}, fmt.Errorf("session %s: %w", sessionID, models.ErrSessionClosed)
	}
	if idx < 0 {
		ls.mu.Unlock()
		return SubmitResult{}, fmt.Errorf("session %s: negative chunk index %d", sessionID, idx)
	}
	if idx < ls.next {
		// Клиент повторил доставленный чанк — подтверждаем без повторной отправки.
		res := SubmitResult{Received: ls.next, Total: ls.sess.TotalChunks}
		ls.mu.Unlock()
		return res, nil
	}
	if idx > ls.next {
		err := fmt.Errorf("session %s: got chunk %d, want %d: %w", sessionID, idx, ls.next, models.ErrOutOfOrder)
		ls.mu.Unlock()
		return SubmitResult{}, err
	}
	if len(data) == 0 {
		ls.mu.Unlock()
		return SubmitResult{}, fmt.Errorf("session %s: chunk %d is empty", sessionID, idx)
	}
	if int64(len(data)) > s.ChunkSize {
		ls.mu.Unlock()
		return SubmitResult{}, fmt.Errorf("session %s: chunk %d exceeds chunk size %d", sessionID, idx, s.ChunkSize)
	}
	if ls.sess.TotalChunks > 0 && idx >= ls.sess.TotalChunks {
		ls.mu.Unlock()
		return SubmitResult{}, fmt.Errorf("session %s: chunk %d is past declared total %d", sessionID, idx, ls.sess.TotalChunks)
	}
	if ls.sess.FileSize > 0 && ls.bytes+int64(len(data)) > ls.sess.FileSize {
		ls.mu.Unlock()
		return SubmitResult{}, fmt.Errorf("session %s: declared size %d exceeded at chunk %d", sessionID, ls.sess.FileSize, idx)
	}

	ls.next++
	ls.bytes += int64(len(data))
	ls.hash.Write(data)
	ls.sess.ReceivedChunks = append(ls.sess.ReceivedChunks, idx)
	ls.inflight++
	ls.lastActivity = time.Now()
	snapshot := ls.sess.Clone()
	channelID := ls.sess.ChannelID
	filename := ls.sess.Filename
	message := ls.sess.Message
	res := SubmitResult{Received: ls.next, Total: ls.sess.TotalChunks}
	ls.mu.Unlock()

	if err := s.Registry.SaveSession(ctx, snapshot); err != nil {
		log.Printf("upload: persist session %s: %v", sessionID, err)
	}

	sha := chunker.Sum(data)

	// Приём подтверждён, дальше — асинхронная отправка под общим семафором.
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		// Слот не достался — отправляем без учёта лимита, чанк уже принят.
		go s.dispatch(ls, idx, filename, channelID, message, sha, data)
		return res, nil
	}
	go func() {
		defer func() { <-s.sem }()
		s.dispatch(ls, idx, filename, channelID, message, sha, data)
	}()
	return res, nil
}

// dispatch шлёт чанк на основную платформу и, при включённом резерве,
// дублирует его на резервную. Отказ резерва не валит загрузку.
func (s *Service) dispatch(ls *liveSession, idx int, filename, channelID, message, sha string, data []byte) {
	ctx := context.Background()
	partName := fmt.Sprintf("%s.part%d", filename, idx+1)
	caption := message
	if caption == "" {
		caption = fmt.Sprintf("%s (part %d)", filename, idx+1)
	}

	refs := make([]models.PartRef, 0, 2)
	ref, err := s.sendWithRetry(ctx, s.Primary, channelID, partName, caption, data)
	if err != nil {
		ls.results <- sendResult{idx: idx, err: fmt.Errorf("chunk %d via %s: %w", idx, s.Primary.Tag(), err)}
		return
	}
	ref.Part = idx + 1
	ref.Size = int64(len(data))
	ref.Sha256 = sha
	refs = append(refs, ref)

	if s.Backup != nil {
		bref, berr := s.sendWithRetry(ctx, s.Backup, channelID, partName, caption, data)
		if berr != nil {
			log.Printf("upload: backup copy of chunk %d (%s) failed: %v", idx, partName, berr)
		} else {
			bref.Part = idx + 1
			bref.Size = int64(len(data))
			bref.Sha256 = sha
			refs = append(refs, bref)
		}
	}
	ls.results <- sendResult{idx: idx, refs: refs}
}

func (s *Service) sendWithRetry(ctx context.Context, sender platform.Sender, channelID, partName, caption string, data []byte) (models.PartRef, error) {
	var ref models.PartRef
	err := s.Retry.Do(ctx, "send "+partName, func() error {
		var err error
		ref, err = sender.Send(ctx, channelID, partName, caption, data)
		return err
	})
	return ref, err
}

// classifyMissing различает неизвестную сессию и сессию, чьё рабочее
// состояние утеряно после рестарта: запись есть, но принимать чанки некому.
func (s *Service) classifyMissing(ctx context.Context, sessionID string) error {
	if id, ok := s.completedID(sessionID); ok {
		return fmt.Errorf("session %s already finalized as file %d: %w", sessionID, id, models.ErrSessionClosed)
	}
	if _, err := s.Registry.GetSession(ctx, sessionID); err == nil {
		return fmt.Errorf("session %s has no live worker, restart the upload: %w", sessionID, models.ErrSessionClosed)
	} else if !errors.Is(err, models.ErrSessionNotFound) {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	return fmt.Errorf("session %s: %w", sessionID, models.ErrSessionNotFound)
}

func (s *Service) completedID(sessionID string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.completed[sessionID]
	return id, ok
}
