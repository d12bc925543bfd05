package uploadsvc

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sir_venger/chat_drive/internal/models"
)

type StartRequest struct {
	Filename    string
	FolderID    models.FlexID
	Size        int64 // 0 — размер заранее не известен
	TotalChunks int   // 0 — количество чанков не объявлено
	Message     string
	ResumeID    string // непустой — попытка продолжить прежнюю сессию
}

type StartResult struct {
	SessionID string
	ChunkSize int64
	Received  []int // уже принятые индексы (при возобновлении)
}

// Start открывает сессию загрузки. При ResumeID сначала пытается продолжить
// живую сессию; если рабочее состояние утеряно (рестарт сервиса), осиротевшая
// запись удаляется и открывается новая сессия.
func (s *Service) Start(ctx context.Context, req StartRequest) (StartResult, error) {
	if s.Primary == nil {
		return StartResult{}, fmt.Errorf("start upload: primary platform is not configured")
	}
	if req.Filename == "" {
		return StartResult{}, fmt.Errorf("start upload: filename is required")
	}

	if req.ResumeID != "" {
		if res, ok := s.tryResume(req.ResumeID); ok {
			return res, nil
		}
		if err := s.Registry.DeleteSession(ctx, req.ResumeID); err != nil && !errors.Is(err, models.ErrSessionNotFound) {
			log.Printf("upload: drop stale session %s: %v", req.ResumeID, err)
		}
	}

	categoryID, folderName, err := s.Folders.EnsureCategory(ctx, req.FolderID)
	if err != nil {
		return StartResult{}, fmt.Errorf("start upload %q: %w", req.Filename, err)
	}

	var channelID, channelName string
	if s.Channels != nil {
		channelID, channelName, err = s.Channels.CreateChannel(ctx, req.Filename, categoryID)
		if err != nil {
			return StartResult{}, fmt.Errorf("start upload %q: create channel: %w", req.Filename, err)
		}
	}

	sess := models.UploadSession{
		SessionID:      models.NewSessionID(req.Filename),
		Filename:       req.Filename,
		FileSize:       req.Size,
		TotalChunks:    req.TotalChunks,
		ReceivedChunks: []int{},
		FolderID:       req.FolderID,
		FolderName:     folderName,
		Message:        req.Message,
		Status:         models.StatusUploading,
		CreatedAt:      models.NowISO(),
		ChannelID:      channelID,
		ChannelName:    channelName,
	}
	if err := s.Registry.SaveSession(ctx, sess); err != nil {
		return StartResult{}, fmt.Errorf("start upload %q: %w", req.Filename, err)
	}

	ls := newLiveSession(sess, s.Parallel)
	s.mu.Lock()
	s.live[sess.SessionID] = ls
	s.mu.Unlock()
	go s.collector(ls)

	log.Printf("upload: session %s opened for %q (folder=%q)", sess.SessionID, req.Filename, folderName)
	return StartResult{SessionID: sess.SessionID, ChunkSize: s.ChunkSize, Received: []int{}}, nil
}

func (s *Service) tryResume(id string) (StartResult, bool) {
	ls := s.lookup(id)
	if ls == nil {
		return StartResult{}, false
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.sess.Status != models.StatusUploading {
		return StartResult{}, false
	}
	ls.lastActivity = time.Now()
	received := make([]int, len(ls.sess.ReceivedChunks))
	copy(received, ls.sess.ReceivedChunks)
	return StartResult{SessionID: id, ChunkSize: s.ChunkSize, Received: received}, true
}
