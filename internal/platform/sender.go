// Package platform содержит отправщиков частей на удалённые чат-платформы.
// Каждый отправщик умеет три операции: положить часть в канал, достать её
// по ссылке и удалить. Discord — основная платформа, Telegram — резервная.
package platform

import (
	"context"

	"github.com/sir_venger/chat_drive/internal/models"
)

// Sender — минимальный набор возможностей платформы.
//
// Send возвращает ссылку на удалённый объект; номер части (Part) в ней не
// заполняется — его проставляет вызывающий при фиксации. Delete — best-effort:
// ошибки проглатываются и логируются, потому что удаление чужих сообщений
// может быть уже невозможно.
type Sender interface {
	Tag() string
	Send(ctx context.Context, channelID, partName, caption string, data []byte) (models.PartRef, error)
	Fetch(ctx context.Context, ref models.PartRef) ([]byte, error)
	Delete(ctx context.Context, ref models.PartRef)
	Ping(ctx context.Context) error
}
