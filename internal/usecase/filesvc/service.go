// Package filesvc — операции над деревом папок и метаданными файлов.
// Перемещение и переименование меняют только реестр: байты частей на
// платформах никогда не перезаливаются.
package filesvc

import (
	"context"

	"github.com/sir_venger/chat_drive/internal/models"
	"github.com/sir_venger/chat_drive/internal/platform"
)

type (
	// Registry — нужная сервису часть реестра.
	Registry interface {
		GetFile(ctx context.Context, id int64) (models.FileRecord, error)
		SaveFile(ctx context.Context, rec models.FileRecord) error
		DeleteFile(ctx context.Context, id int64) error
		ListFiles(ctx context.Context) ([]models.FileRecord, error)

		ListFolders(ctx context.Context) ([]models.Folder, error)
		SaveFolder(ctx context.Context, f models.Folder) error
		DeleteFolder(ctx context.Context, id int64) error
	}

	// Remote — операции основной платформы над контейнерами: категория на
	// папку, канал на файл. В деградированном режиме может быть nil.
	Remote interface {
		CreateCategory(ctx context.Context, name string) (int64, error)
		DeleteChannel(ctx context.Context, channelID string) error
	}
)

type Deps struct {
	Registry Registry
	Remote   Remote
	// Senders по тегу платформы; используются для best-effort удаления частей.
	Senders map[string]platform.Sender
}

type Service struct {
	Deps
}

// New конструирует сервис метаданных с заданными зависимостями.
func New(deps Deps) *Service {
	return &Service{Deps: deps}
}
