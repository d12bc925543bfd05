// Package registry — реестр частей: единственное место, где длительно живут
// метаданные файлов, папок и сессий загрузки. Остальные компоненты не
// кэшируют его содержимое дольше одной операции.
package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/sir_venger/chat_drive/internal/models"
	"github.com/sir_venger/chat_drive/internal/registry/postgres"
)

// Store — персистентное хранилище реестра. Save* всегда работают как upsert.
type Store interface {
	GetFile(ctx context.Context, id int64) (models.FileRecord, error)
	SaveFile(ctx context.Context, rec models.FileRecord) error
	DeleteFile(ctx context.Context, id int64) error
	ListFiles(ctx context.Context) ([]models.FileRecord, error)

	ListFolders(ctx context.Context) ([]models.Folder, error)
	SaveFolder(ctx context.Context, f models.Folder) error
	DeleteFolder(ctx context.Context, id int64) error

	GetSession(ctx context.Context, id string) (models.UploadSession, error)
	SaveSession(ctx context.Context, s models.UploadSession) error
	DeleteSession(ctx context.Context, id string) error
	ListSessions(ctx context.Context) ([]models.UploadSession, error)

	Close()
}

// Open выбирает бэкенд по DSN: memory:// для тестов, file://<dir> для
// легаси-совместимых JSON-документов, postgres://… для pgx-пула.
func Open(ctx context.Context, dsn string) (Store, error) {
	switch {
	case dsn == "memory://":
		return NewMemoryStore(), nil
	case strings.HasPrefix(dsn, "file://"):
		return NewJSONStore(strings.TrimPrefix(dsn, "file://"))
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return postgres.NewStore(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported registry dsn %q", dsn)
	}
}
