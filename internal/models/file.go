package models

// Платформы, на которых может лежать часть файла.
const (
	PlatformDiscord  = "discord"
	PlatformTelegram = "telegram"
)

// Статусы файлов и сессий. Значение "sent" исторически означает
// полностью собранный файл, его менять нельзя — старые ридеры его ждут.
const (
	StatusUploading = "uploading"
	StatusSending   = "sending"
	StatusSent      = "sent"
	StatusFailed    = "failed"
	StatusAborted   = "aborted"
)

// PartRef описывает одну зафиксированную часть файла на одной платформе.
// Поле part — однобазовый номер части, как в легаси-документах.
type PartRef struct {
	Part      int    `json:"part"`
	Platform  string `json:"platform"`
	MessageID int64  `json:"message_id"`
	ChannelID string `json:"channel_id,omitempty"`
	FileID    string `json:"file_id,omitempty"`
	JumpURL   string `json:"jump_url,omitempty"`
	Size      int64  `json:"size,omitempty"`
	Sha256    string `json:"sha256,omitempty"`
}

// FileRecord содержит агрегированные метаданные файла и ссылки на все его части.
// Имена json-полей повторяют формат file_history.json предыдущей реализации;
// новые поля только добавляются и помечены omitempty.
type FileRecord struct {
	ID          int64     `json:"id"`
	Filename    string    `json:"filename"`
	SizeMB      float64   `json:"size_mb"`
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	FolderID    FlexID    `json:"folder_id"`
	FolderName  string    `json:"folder_name,omitempty"`
	Status      string    `json:"status"`
	Method      string    `json:"method"`
	MethodKey   string    `json:"method_key"`
	Parts       int       `json:"parts"`
	PartsInfo   []PartRef `json:"parts_info"`
	MessageIDs  []int64   `json:"message_ids"`
	JumpURL     string    `json:"jump_url,omitempty"`
	SentAt      string    `json:"sent_at"`

	Size      int64  `json:"size,omitempty"`
	ChunkSize int64  `json:"chunk_size,omitempty"`
	Sha256    string `json:"sha256,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// Clone возвращает копию структуры, чтобы не делиться внутренними срезами.
func (f FileRecord) Clone() FileRecord {
	out := f
	out.PartsInfo = append([]PartRef(nil), f.PartsInfo...)
	out.MessageIDs = append([]int64(nil), f.MessageIDs...)
	return out
}

// RefsForIndex возвращает все ссылки на часть с нулевым индексом idx.
// Их может быть две: по одной на каждую платформу при дублированной загрузке.
func (f FileRecord) RefsForIndex(idx int) []PartRef {
	var out []PartRef
	for _, p := range f.PartsInfo {
		if p.Part == idx+1 {
			out = append(out, p)
		}
	}
	return out
}

// NormalizedParts возвращает ссылки на части для файлов старого формата,
// где parts_info пуст, а message_ids содержит плоский список Discord-сообщений.
func (f FileRecord) NormalizedParts() []PartRef {
	if len(f.PartsInfo) > 0 {
		return append([]PartRef(nil), f.PartsInfo...)
	}
	out := make([]PartRef, 0, len(f.MessageIDs))
	for i, mid := range f.MessageIDs {
		out = append(out, PartRef{
			Part:      i + 1,
			Platform:  PlatformDiscord,
			MessageID: mid,
			ChannelID: f.ChannelID,
		})
	}
	return out
}
