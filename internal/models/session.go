package models

// UploadSession — состояние одной возобновляемой загрузки. Сессии хранятся в
// upload_sessions.json в формате предыдущей реализации, чтобы незавершённые
// загрузки переживали рестарт и смену версии.
//
// Жизненный цикл статусов: uploading → sending → sent, либо aborted
// из любого незавершённого состояния (таймаут или явная отмена).
type UploadSession struct {
	SessionID      string `json:"session_id"`
	Filename       string `json:"filename"`
	FileSize       int64  `json:"file_size"`
	TotalChunks    int    `json:"total_chunks"`
	ReceivedChunks []int  `json:"received_chunks"`
	FolderID       FlexID `json:"folder_id"`
	Message        string `json:"message"`
	Status         string `json:"status"`
	CreatedAt      string `json:"created_at"`
	ChannelID      string `json:"channel_id,omitempty"`
	ChannelName    string `json:"channel_name,omitempty"`
	FolderName     string `json:"folder_name,omitempty"`
}

// Clone возвращает копию сессии с отвязанным срезом received_chunks.
func (s UploadSession) Clone() UploadSession {
	out := s
	out.ReceivedChunks = append([]int(nil), s.ReceivedChunks...)
	return out
}

// HasChunk проверяет, был ли чанк с данным индексом уже принят.
func (s UploadSession) HasChunk(idx int) bool {
	for _, got := range s.ReceivedChunks {
		if got == idx {
			return true
		}
	}
	return false
}
