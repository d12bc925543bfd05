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
	"strconv"
	"time"

	"github.com/sir_venger/chat_drive/internal/models"
)

// DefaultDiscordAPI — боевой адрес Discord REST API; в тестах подменяется.
const DefaultDiscordAPI = "https://discord.com/api/v10"

const (
	channelTypeText     = 0
	channelTypeCategory = 4
)

// DiscordSender шлёт части как вложения сообщений в текстовые каналы гильдии.
// Помимо интерфейса Sender умеет заводить категории (для папок) и каналы
// (по одному на файл) — этим пользуется слой папок и менеджер сессий.
type DiscordSender struct {
	http    *http.Client
	apiBase string
	token   string
	guildID string
}

// NewDiscordSender создаёт отправщика. Пустой apiBase означает боевой API.
func NewDiscordSender(token, guildID, apiBase string, timeout time.Duration) *DiscordSender {
	if apiBase == "" {
		apiBase = DefaultDiscordAPI
	}
	return &DiscordSender{
		http:    &http.Client{Timeout: timeout},
		apiBase: apiBase,
		token:   token,
		guildID: guildID,
	}
}

func (d *DiscordSender) Tag() string { return models.PlatformDiscord }

// Ping дёргает /users/@me — минимальная проверка токена и доступности API.
func (d *DiscordSender) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.apiBase+"/users/@me", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bot "+d.token)

	resp, err := d.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("discord ping: %s", resp.Status)
	}
	return nil
}

type discordChannel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type discordMessage struct {
	ID          string `json:"id"`
	ChannelID   string `json:"channel_id"`
	Attachments []struct {
		URL string `json:"url"`
	} `json:"attachments"`
}

// CreateCategory создаёт категорию гильдии под папку и возвращает её id.
func (d *DiscordSender) CreateCategory(ctx context.Context, name string) (int64, error) {
	ch, err := d.createChannel(ctx, name, channelTypeCategory, 0)
	if err != nil {
		return 0, err
	}
	return parseSnowflake(ch.ID)
}

// CreateChannel создаёт текстовый канал под файл, опционально внутри категории.
func (d *DiscordSender) CreateChannel(ctx context.Context, name string, categoryID int64) (string, string, error) {
	ch, err := d.createChannel(ctx, name, channelTypeText, categoryID)
	if err != nil {
		return "", "", err
	}
	return ch.ID, ch.Name, nil
}

func (d *DiscordSender) createChannel(ctx context.Context, name string, kind int, parentID int64) (discordChannel, error) {
	payload := map[string]any{"name": name, "type": kind}
	if parentID != 0 {
		payload["parent_id"] = strconv.FormatInt(parentID, 10)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return discordChannel{}, err
	}

	u := fmt.Sprintf("%s/guilds/%s/channels", d.apiBase, d.guildID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return discordChannel{}, err
	}
	req.Header.Set("Authorization", "Bot "+d.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return discordChannel{}, err
	}
	defer resp.Body.Close()
	if err := d.checkStatus(resp); err != nil {
		return discordChannel{}, fmt.Errorf("create channel %q: %w", name, err)
	}

	var ch discordChannel
	if err := json.NewDecoder(resp.Body).Decode(&ch); err != nil {
		return discordChannel{}, err
	}
	return ch, nil
}

// DeleteChannel удаляет канал целиком (вместе со всеми сообщениями-частями).
func (d *DiscordSender) DeleteChannel(ctx context.Context, channelID string) error {
	u := fmt.Sprintf("%s/channels/%s", d.apiBase, channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bot "+d.token)

	resp, err := d.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return d.checkStatus(resp)
}

// Send публикует часть как вложение сообщения в канал файла.
func (d *DiscordSender) Send(ctx context.Context, channelID, partName, caption string, data []byte) (models.PartRef, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	meta, err := json.Marshal(map[string]string{"content": caption})
	if err != nil {
		return models.PartRef{}, err
	}
	if err := mw.WriteField("payload_json", string(meta)); err != nil {
		return models.PartRef{}, err
	}
	fw, err := mw.CreateFormFile("files[0]", partName)
	if err != nil {
		return models.PartRef{}, err
	}
	if _, err := fw.Write(data); err != nil {
		return models.PartRef{}, err
	}
	if err := mw.Close(); err != nil {
		return models.PartRef{}, err
	}

	u := fmt.Sprintf("%s/channels/%s/messages", d.apiBase, channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &buf)
	if err != nil {
		return models.PartRef{}, err
	}
	req.Header.Set("Authorization", "Bot "+d.token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := d.http.Do(req)
	if err != nil {
		return models.PartRef{}, err
	}
	defer resp.Body.Close()
	if err := d.checkStatus(resp); err != nil {
		return models.PartRef{}, fmt.Errorf("send part %s: %w", partName, err)
	}

	var msg discordMessage
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return models.PartRef{}, err
	}
	msgID, err := parseSnowflake(msg.ID)
	if err != nil {
		return models.PartRef{}, err
	}

	return models.PartRef{
		Platform:  models.PlatformDiscord,
		MessageID: msgID,
		ChannelID: channelID,
		JumpURL:   fmt.Sprintf("https://discord.com/channels/%s/%s/%s", d.guildID, channelID, msg.ID),
		Size:      int64(len(data)),
	}, nil
}

// Fetch находит сообщение части и скачивает его первое вложение.
func (d *DiscordSender) Fetch(ctx context.Context, ref models.PartRef) ([]byte, error) {
	u := fmt.Sprintf("%s/channels/%s/messages/%d", d.apiBase, ref.ChannelID, ref.MessageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bot "+d.token)

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := d.checkStatus(resp); err != nil {
		return nil, fmt.Errorf("fetch part %d: %w", ref.Part, err)
	}

	var msg discordMessage
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return nil, err
	}
	if len(msg.Attachments) == 0 {
		return nil, fmt.Errorf("part %d: %w", ref.Part, ErrRemoteNotFound)
	}

	return d.downloadAttachment(ctx, msg.Attachments[0].URL)
}

// downloadAttachment тянет байты по CDN-ссылке вложения (без авторизации).
func (d *DiscordSender) downloadAttachment(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrRemoteNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("attachment download: %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("attachment download: empty body")
	}
	return data, nil
}

// Delete убирает сообщение части; неуспех только логируется.
func (d *DiscordSender) Delete(ctx context.Context, ref models.PartRef) {
	u := fmt.Sprintf("%s/channels/%s/messages/%d", d.apiBase, ref.ChannelID, ref.MessageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		log.Printf("discord delete part %d: %v", ref.Part, err)
		return
	}
	req.Header.Set("Authorization", "Bot "+d.token)

	resp, err := d.http.Do(req)
	if err != nil {
		log.Printf("discord delete part %d: %v", ref.Part, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices && resp.StatusCode != http.StatusNotFound {
		log.Printf("discord delete part %d: %s", ref.Part, resp.Status)
	}
}

// checkStatus переводит HTTP-статусы Discord в таксономию ошибок платформы.
func (d *DiscordSender) checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode < http.StatusMultipleChoices:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		var body struct {
			RetryAfter float64 `json:"retry_after"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return &RateLimitError{RetryAfter: time.Duration(body.RetryAfter * float64(time.Second))}
	case resp.StatusCode == http.StatusNotFound:
		return ErrRemoteNotFound
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusRequestEntityTooLarge:
		return fmt.Errorf("%w: %s", ErrRejected, resp.Status)
	default:
		return fmt.Errorf("discord API: %s", resp.Status)
	}
}

func parseSnowflake(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse discord id %q: %w", s, err)
	}
	return id, nil
}
