package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sir_venger/chat_drive/internal/models"
)

// Имена документов зафиксированы предыдущей реализацией и являются внешним
// контрактом: старые данные должны читаться как есть.
const (
	historyFile  = "file_history.json"
	foldersFile  = "folders.json"
	sessionsFile = "upload_sessions.json"
)

// JSONStore хранит реестр в трёх JSON-документах внутри каталога данных.
// Каждый документ перечитывается и переписывается целиком; сериализация
// обеспечивается одним мьютексом на весь стор.
type JSONStore struct {
	mu  sync.Mutex
	dir string
}

// NewJSONStore создаёт каталог данных и возвращает стор поверх него.
func NewJSONStore(dir string) (*JSONStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("registry data dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &JSONStore{dir: dir}, nil
}

func (s *JSONStore) Close() {}

func (s *JSONStore) path(name string) string { return filepath.Join(s.dir, name) }

// loadInto читает документ; отсутствующий файл оставляет значение нулевым.
func (s *JSONStore) loadInto(name string, out any) error {
	b, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

// saveDoc пишет документ с отступами, как писала предыдущая реализация.
func (s *JSONStore) saveDoc(name string, doc any) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(name), b, 0o644)
}

// ── Файлы ─────────────────────────────────────────────────────────────────────

func (s *JSONStore) loadHistory() ([]models.FileRecord, error) {
	var history []models.FileRecord
	if err := s.loadInto(historyFile, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (s *JSONStore) GetFile(_ context.Context, id int64) (models.FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.loadHistory()
	if err != nil {
		return models.FileRecord{}, err
	}
	for _, rec := range history {
		if rec.ID == id {
			return rec.Clone(), nil
		}
	}
	return models.FileRecord{}, models.ErrNotFound
}

func (s *JSONStore) SaveFile(_ context.Context, rec models.FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.loadHistory()
	if err != nil {
		return err
	}
	for i := range history {
		if history[i].ID == rec.ID {
			history[i] = rec.Clone()
			return s.saveDoc(historyFile, history)
		}
	}
	// Новые записи идут в начало: история отсортирована от свежих к старым.
	history = append([]models.FileRecord{rec.Clone()}, history...)
	return s.saveDoc(historyFile, history)
}

func (s *JSONStore) DeleteFile(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.loadHistory()
	if err != nil {
		return err
	}
	kept := history[:0]
	for _, rec := range history {
		if rec.ID != id {
			kept = append(kept, rec)
		}
	}
	return s.saveDoc(historyFile, kept)
}

func (s *JSONStore) ListFiles(_ context.Context) ([]models.FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.loadHistory()
	if err != nil {
		return nil, err
	}
	out := make([]models.FileRecord, 0, len(history))
	for _, rec := range history {
		out = append(out, rec.Clone())
	}
	return out, nil
}

// ── Папки ─────────────────────────────────────────────────────────────────────

func (s *JSONStore) loadFolders() ([]models.Folder, error) {
	var folders []models.Folder
	if err := s.loadInto(foldersFile, &folders); err != nil {
		return nil, err
	}
	return folders, nil
}

func (s *JSONStore) ListFolders(_ context.Context) ([]models.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadFolders()
}

func (s *JSONStore) SaveFolder(_ context.Context, f models.Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	folders, err := s.loadFolders()
	if err != nil {
		return err
	}
	for i := range folders {
		if folders[i].ID == f.ID {
			folders[i] = f
			return s.saveDoc(foldersFile, folders)
		}
	}
	folders = append([]models.Folder{f}, folders...)
	return s.saveDoc(foldersFile, folders)
}

func (s *JSONStore) DeleteFolder(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	folders, err := s.loadFolders()
	if err != nil {
		return err
	}
	kept := folders[:0]
	for _, f := range folders {
		if f.ID != id {
			kept = append(kept, f)
		}
	}
	return s.saveDoc(foldersFile, kept)
}

// ── Сессии ────────────────────────────────────────────────────────────────────

func (s *JSONStore) loadSessions() (map[string]models.UploadSession, error) {
	sessions := map[string]models.UploadSession{}
	if err := s.loadInto(sessionsFile, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *JSONStore) GetSession(_ context.Context, id string) (models.UploadSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.loadSessions()
	if err != nil {
		return models.UploadSession{}, err
	}
	sess, ok := sessions[id]
	if !ok {
		return models.UploadSession{}, models.ErrSessionNotFound
	}
	return sess.Clone(), nil
}

func (s *JSONStore) SaveSession(_ context.Context, sess models.UploadSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.loadSessions()
	if err != nil {
		return err
	}
	sessions[sess.SessionID] = sess.Clone()
	return s.saveDoc(sessionsFile, sessions)
}

func (s *JSONStore) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.loadSessions()
	if err != nil {
		return err
	}
	delete(sessions, id)
	return s.saveDoc(sessionsFile, sessions)
}

func (s *JSONStore) ListSessions(_ context.Context) ([]models.UploadSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.loadSessions()
	if err != nil {
		return nil, err
	}
	out := make([]models.UploadSession, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sess.Clone())
	}
	return out, nil
}
