package filesvc

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/sir_venger/chat_drive/internal/models"
)

// Files возвращает файлы указанной папки; пустой id — содержимое корня.
func (s *Service) Files(ctx context.Context, folderID models.FlexID) ([]models.FileRecord, error) {
	all, err := s.Registry.ListFiles(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.FileRecord, 0, len(all))
	for _, rec := range all {
		if rec.FolderID == folderID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Search ищет файлы по подстроке имени без учёта регистра.
func (s *Service) Search(ctx context.Context, query string) ([]models.FileRecord, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}

	all, err := s.Registry.ListFiles(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.FileRecord
	for _, rec := range all {
		if strings.Contains(strings.ToLower(rec.Filename), query) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Stats — сводка по реестру.
type Stats struct {
	TotalFiles   int     `json:"total_files"`
	TotalFolders int     `json:"total_folders"`
	TotalMB      float64 `json:"total_mb"`
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	files, err := s.Registry.ListFiles(ctx)
	if err != nil {
		return Stats{}, err
	}
	folders, err := s.Registry.ListFolders(ctx)
	if err != nil {
		return Stats{}, err
	}

	var total float64
	for _, rec := range files {
		total += rec.SizeMB
	}
	return Stats{
		TotalFiles:   len(files),
		TotalFolders: len(folders),
		TotalMB:      float64(int(total*100+0.5)) / 100,
	}, nil
}

// RenameFile меняет отображаемое имя файла.
func (s *Service) RenameFile(ctx context.Context, id int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("file name is empty")
	}

	rec, err := s.Registry.GetFile(ctx, id)
	if err != nil {
		return err
	}
	rec.Filename = name
	rec.UpdatedAt = models.NowISO()
	return s.Registry.SaveFile(ctx, rec)
}

// MoveFile переносит файл в другую папку правкой метаданных.
func (s *Service) MoveFile(ctx context.Context, id int64, folderID models.FlexID) error {
	rec, err := s.Registry.GetFile(ctx, id)
	if err != nil {
		return err
	}

	folderName := ""
	if !folderID.IsRoot() {
		folder, err := s.folderByKey(ctx, folderID)
		if err != nil {
			return err
		}
		folderName = folder.Name
	}

	rec.FolderID = folderID
	rec.FolderName = folderName
	rec.UpdatedAt = models.NowISO()
	return s.Registry.SaveFile(ctx, rec)
}

// DeleteFile убирает запись из реестра, предварительно запросив best-effort
// удаление всех частей с платформ. При deleteChannel сносится и канал файла,
// что удаляет Discord-части скопом.
func (s *Service) DeleteFile(ctx context.Context, id int64, deleteChannel bool) error {
	rec, err := s.Registry.GetFile(ctx, id)
	if err != nil {
		return err
	}

	if deleteChannel && rec.ChannelID != "" && s.Remote != nil {
		if err := s.Remote.DeleteChannel(ctx, rec.ChannelID); err != nil {
			logRemoteCleanup(rec.Filename, err)
		}
	}

	for _, ref := range rec.NormalizedParts() {
		if deleteChannel && ref.Platform == models.PlatformDiscord {
			continue // ушла вместе с каналом
		}
		sender, ok := s.Senders[ref.Platform]
		if !ok {
			continue
		}
		sender.Delete(ctx, ref)
	}

	return s.Registry.DeleteFile(ctx, id)
}

func logRemoteCleanup(name string, err error) {
	log.Printf("remote cleanup for %q: %v", name, err)
}
