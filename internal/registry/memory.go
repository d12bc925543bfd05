package registry

import (
	"context"
	"sync"

	"github.com/sir_venger/chat_drive/internal/models"
)

// MemoryStore хранит реестр только в оперативной памяти; удобно для тестов.
type MemoryStore struct {
	mu       sync.RWMutex
	files    []models.FileRecord
	folders  []models.Folder
	sessions map[string]models.UploadSession
}

// NewMemoryStore создаёт пустое in-memory хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]models.UploadSession{}}
}

func (s *MemoryStore) Close() {}

func (s *MemoryStore) GetFile(_ context.Context, id int64) (models.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.files {
		if rec.ID == id {
			return rec.Clone(), nil
		}
	}
	return models.FileRecord{}, models.ErrNotFound
}

func (s *MemoryStore) SaveFile(_ context.Context, rec models.FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.files {
		if s.files[i].ID == rec.ID {
			s.files[i] = rec.Clone()
			return nil
		}
	}
	s.files = append([]models.FileRecord{rec.Clone()}, s.files...)
	return nil
}

func (s *MemoryStore) DeleteFile(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.files[:0]
	for _, rec := range s.files {
		if rec.ID != id {
			kept = append(kept, rec)
		}
	}
	s.files = kept
	return nil
}

func (s *MemoryStore) ListFiles(_ context.Context) ([]models.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.FileRecord, 0, len(s.files))
	for _, rec := range s.files {
		out = append(out, rec.Clone())
	}
	return out, nil
}

func (s *MemoryStore) ListFolders(_ context.Context) ([]models.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Folder(nil), s.folders...), nil
}

func (s *MemoryStore) SaveFolder(_ context.Context, f models.Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.folders {
		if s.folders[i].ID == f.ID {
			s.folders[i] = f
			return nil
		}
	}
	s.folders = append([]models.Folder{f}, s.folders...)
	return nil
}

func (s *MemoryStore) DeleteFolder(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.folders[:0]
	for _, f := range s.folders {
		if f.ID != id {
			kept = append(kept, f)
		}
	}
	s.folders = kept
	return nil
}

func (s *MemoryStore) GetSession(_ context.Context, id string) (models.UploadSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return models.UploadSession{}, models.ErrSessionNotFound
	}
	return sess.Clone(), nil
}

func (s *MemoryStore) SaveSession(_ context.Context, sess models.UploadSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.SessionID] = sess.Clone()
	return nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) ListSessions(_ context.Context) ([]models.UploadSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.UploadSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.Clone())
	}
	return out, nil
}
