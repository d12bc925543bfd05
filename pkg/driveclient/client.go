// Package driveclient — HTTP-клиент хранилища для CLI и внешних интеграций.
// Разбивает файл на чанки размера, который выдал сервер, шлёт их строго по
// порядку и завершает сессию контрольной суммой.
package driveclient

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New создаёт клиент с транспортом по умолчанию.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{},
	}
}

type FileInfo struct {
	ID       int64   `json:"id"`
	Filename string  `json:"filename"`
	SizeMB   float64 `json:"size_mb"`
	FolderID any     `json:"folder_id"`
	Status   string  `json:"status"`
	Parts    int     `json:"parts"`
	SentAt   string  `json:"sent_at"`
}

type FolderInfo struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID any    `json:"parent_id"`
}

type Stats struct {
	TotalFiles   int     `json:"total_files"`
	TotalFolders int     `json:"total_folders"`
	TotalMB      float64 `json:"total_mb"`
}

type startRequest struct {
	Filename string `json:"filename"`
	FolderID string `json:"folder_id,omitempty"`
	Size     int64  `json:"size"`
	Message  string `json:"message,omitempty"`
	ResumeID string `json:"resume_id,omitempty"`
}

type startResponse struct {
	SessionID string `json:"session_id"`
	ChunkSize int64  `json:"chunk_size"`
	Received  []int  `json:"received"`
}

type UploadOptions struct {
	FolderID string
	Message  string
	ResumeID string
	Progress bool
}

// Upload заливает файл с диска и возвращает идентификатор записи.
func (c *Client) Upload(ctx context.Context, path string, opts UploadOptions) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return 0, err
	}

	start, err := c.startSession(ctx, filepath.Base(path), st.Size(), opts)
	if err != nil {
		return 0, err
	}
	if start.ChunkSize <= 0 {
		return 0, fmt.Errorf("server returned chunk size %d", start.ChunkSize)
	}

	var bar *progressBar
	if opts.Progress {
		bar = newProgressBar("Uploading "+filepath.Base(path), st.Size())
	}

	hash := sha256.New()
	buf := make([]byte, start.ChunkSize)
	skip := len(start.Received) // уже принятые чанки при возобновлении
	for idx := 0; ; idx++ {
		n, rerr := io.ReadFull(f, buf)
		if rerr == io.EOF {
			break
		}
		if rerr != nil && rerr != io.ErrUnexpectedEOF {
			bar.Fail(rerr)
			return 0, rerr
		}
		chunk := buf[:n]
		hash.Write(chunk)
		if idx >= skip {
			if err := c.putChunk(ctx, start.SessionID, idx, chunk); err != nil {
				bar.Fail(err)
				return 0, err
			}
		}
		bar.AddBytes(int64(n))
		if rerr == io.ErrUnexpectedEOF {
			break
		}
	}

	fileID, err := c.finalize(ctx, start.SessionID, hex.EncodeToString(hash.Sum(nil)))
	if err != nil {
		bar.Fail(err)
		return 0, err
	}
	bar.Finish()
	return fileID, nil
}

func (c *Client) startSession(ctx context.Context, filename string, size int64, opts UploadOptions) (startResponse, error) {
	// Размер объявляем заранее: по нему сервер проверит комплектность.
	var out startResponse
	req := startRequest{
		Filename: filename,
		FolderID: opts.FolderID,
		Size:     size,
		Message:  opts.Message,
		ResumeID: opts.ResumeID,
	}
	err := c.postJSON(ctx, "/upload/start", req, &out)
	if err != nil {
		return startResponse{}, fmt.Errorf("start upload: %w", err)
	}
	return out, nil
}

func (c *Client) putChunk(ctx context.Context, sessionID string, idx int, data []byte) error {
	u := fmt.Sprintf("%s/upload/%s/chunk/%d", c.BaseURL, sessionID, idx)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("chunk %d: %s", idx, readError(resp))
	}
	return nil
}

func (c *Client) finalize(ctx context.Context, sessionID, sha string) (int64, error) {
	var out struct {
		FileID int64 `json:"file_id"`
	}
	path := fmt.Sprintf("/upload/%s/finalize", sessionID)
	if err := c.postJSON(ctx, path, map[string]string{"sha256": sha}, &out); err != nil {
		return 0, fmt.Errorf("finalize: %w", err)
	}
	return out.FileID, nil
}

// Cancel прерывает сессию загрузки.
func (c *Client) Cancel(ctx context.Context, sessionID string) error {
	return c.postJSON(ctx, fmt.Sprintf("/upload/%s/cancel", sessionID), nil, nil)
}

// Download скачивает файл в dest.
func (c *Client) Download(ctx context.Context, fileID int64, dest string, progress bool) error {
	u := fmt.Sprintf("%s/download/%d", c.BaseURL, fileID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %d: %s", fileID, readError(resp))
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	var body io.Reader = resp.Body
	var bar *progressBar
	if progress {
		bar = newProgressBar("Downloading "+filepath.Base(dest), resp.ContentLength)
		body = io.TeeReader(resp.Body, barWriter{bar})
	}

	if _, err := io.Copy(out, body); err != nil {
		bar.Fail(err)
		return err
	}
	bar.Finish()
	return out.Sync()
}

// Files возвращает записи файлов; folderID пустой — корень.
func (c *Client) Files(ctx context.Context, folderID string) ([]FileInfo, error) {
	var out []FileInfo
	path := "/files"
	if folderID != "" {
		path += "?folder_id=" + folderID
	}
	return out, c.getJSON(ctx, path, &out)
}

func (c *Client) Folders(ctx context.Context) ([]FolderInfo, error) {
	var out []FolderInfo
	return out, c.getJSON(ctx, "/folders", &out)
}

// CreateFolder заводит папку и возвращает её идентификатор.
func (c *Client) CreateFolder(ctx context.Context, name, parentID string) (int64, error) {
	var out FolderInfo
	req := map[string]string{"name": name}
	if parentID != "" {
		req["parent_id"] = parentID
	}
	if err := c.postJSON(ctx, "/folders", req, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var out Stats
	return out, c.getJSON(ctx, "/files/stats", &out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%s: %s", path, readError(resp))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s", path, readError(resp))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func readError(resp *http.Response) string {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(b))
	if msg == "" {
		return resp.Status
	}
	return fmt.Sprintf("%s: %s", resp.Status, msg)
}
