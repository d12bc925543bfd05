package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sir_venger/chat_drive/internal/models"
)

// DefaultTelegramAPI — боевой адрес Bot API; в тестах подменяется.
const DefaultTelegramAPI = "https://api.telegram.org"

// TelegramSender шлёт части документами в один настроенный чат.
// Каналы здесь не заводятся: ссылкой на объект служит file_id документа.
type TelegramSender struct {
	http    *http.Client
	apiBase string
	token   string
	chatID  string
}

// NewTelegramSender создаёт отправщика. Пустой apiBase означает боевой API.
func NewTelegramSender(token, chatID, apiBase string, timeout time.Duration) *TelegramSender {
	if apiBase == "" {
		apiBase = DefaultTelegramAPI
	}
	return &TelegramSender{
		http:    &http.Client{Timeout: timeout},
		apiBase: apiBase,
		token:   token,
		chatID:  chatID,
	}
}

func (t *TelegramSender) Tag() string { return models.PlatformTelegram }

// Ответы Bot API всегда завёрнуты в {ok, result, description}.
type tgResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

type tgMessage struct {
	MessageID int64 `json:"message_id"`
	Document  struct {
		FileID string `json:"file_id"`
	} `json:"document"`
}

func (t *TelegramSender) method(name string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.apiBase, t.token, name)
}

// Ping проверяет токен через getMe.
func (t *TelegramSender) Ping(ctx context.Context) error {
	_, err := t.call(ctx, http.MethodGet, t.method("getMe"), "", nil)
	return err
}

// Send загружает часть через sendDocument. Параметр channelID игнорируется:
// у резервной платформы единственный чат из конфигурации.
func (t *TelegramSender) Send(ctx context.Context, _ string, partName, caption string, data []byte) (models.PartRef, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("chat_id", t.chatID)
	_ = mw.WriteField("caption", caption)
	fw, err := mw.CreateFormFile("document", partName)
	if err != nil {
		return models.PartRef{}, err
	}
	if _, err := fw.Write(data); err != nil {
		return models.PartRef{}, err
	}
	if err := mw.Close(); err != nil {
		return models.PartRef{}, err
	}

	raw, err := t.call(ctx, http.MethodPost, t.method("sendDocument"), mw.FormDataContentType(), &buf)
	if err != nil {
		return models.PartRef{}, fmt.Errorf("send part %s: %w", partName, err)
	}

	var msg tgMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return models.PartRef{}, err
	}
	if msg.Document.FileID == "" {
		return models.PartRef{}, fmt.Errorf("telegram: no document in response for %s", partName)
	}

	return models.PartRef{
		Platform:  models.PlatformTelegram,
		MessageID: msg.MessageID,
		FileID:    msg.Document.FileID,
		Size:      int64(len(data)),
	}, nil
}

// Fetch резолвит file_id в файловый путь и скачивает содержимое.
func (t *TelegramSender) Fetch(ctx context.Context, ref models.PartRef) ([]byte, error) {
	if ref.FileID == "" {
		return nil, fmt.Errorf("part %d has no telegram file_id: %w", ref.Part, ErrRemoteNotFound)
	}

	raw, err := t.call(ctx, http.MethodGet,
		t.method("getFile")+"?file_id="+url.QueryEscape(ref.FileID), "", nil)
	if err != nil {
		return nil, fmt.Errorf("resolve part %d: %w", ref.Part, err)
	}

	var file struct {
		FilePath string `json:"file_path"`
	}
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, err
	}
	if file.FilePath == "" {
		return nil, fmt.Errorf("part %d: %w", ref.Part, ErrRemoteNotFound)
	}

	u := fmt.Sprintf("%s/file/bot%s/%s", t.apiBase, t.token, file.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrRemoteNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram file download: %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("telegram file download: empty body")
	}
	return data, nil
}

// Delete убирает сообщение с документом; неуспех только логируется.
func (t *TelegramSender) Delete(ctx context.Context, ref models.PartRef) {
	payload, _ := json.Marshal(map[string]any{
		"chat_id":    t.chatID,
		"message_id": strconv.FormatInt(ref.MessageID, 10),
	})
	if _, err := t.call(ctx, http.MethodPost, t.method("deleteMessage"), "application/json", bytes.NewReader(payload)); err != nil {
		log.Printf("telegram delete part %d: %v", ref.Part, err)
	}
}

// call выполняет запрос и разворачивает конверт Bot API в result либо ошибку
// из таксономии платформы.
func (t *TelegramSender) call(ctx context.Context, httpMethod, u, contentType string, body io.Reader) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, httpMethod, u, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var envelope tgResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("telegram API: decode response: %w", err)
	}
	if envelope.OK {
		return envelope.Result, nil
	}

	switch {
	case envelope.ErrorCode == http.StatusTooManyRequests:
		return nil, &RateLimitError{RetryAfter: time.Duration(envelope.Parameters.RetryAfter) * time.Second}
	case envelope.ErrorCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrRemoteNotFound, envelope.Description)
	case envelope.ErrorCode >= 400 && envelope.ErrorCode < 500:
		return nil, fmt.Errorf("%w: %s", ErrRejected, envelope.Description)
	default:
		return nil, fmt.Errorf("telegram API: %s", envelope.Description)
	}
}
