package integration

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// fakeDiscord — минимальный in-memory Discord API: каналы гильдии, сообщения
// с вложениями и CDN-ссылки на них.
type fakeDiscord struct {
	mu       sync.Mutex
	nextID   int64
	channels map[string]string            // id → name
	messages map[string]map[int64][]byte  // channel → message → данные вложения
	baseURL  string
}

func newFakeDiscord(t *testing.T) (*fakeDiscord, string) {
	t.Helper()
	f := &fakeDiscord{
		nextID:   100,
		channels: map[string]string{},
		messages: map[string]map[int64][]byte{},
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	f.baseURL = srv.URL
	return f, srv.URL
}

func (f *fakeDiscord) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeDiscord) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/users/@me":
		fmt.Fprint(w, `{"id":"1","username":"bot"}`)

	case r.Method == http.MethodPost && len(parts) == 3 && parts[0] == "guilds" && parts[2] == "channels":
		var payload struct {
			Name string `json:"name"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		id := strconv.FormatInt(f.id(), 10)
		f.channels[id] = payload.Name
		f.messages[id] = map[int64][]byte{}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": id, "name": payload.Name})

	case r.Method == http.MethodDelete && len(parts) == 2 && parts[0] == "channels":
		delete(f.channels, parts[1])
		delete(f.messages, parts[1])
		w.WriteHeader(http.StatusOK)

	case r.Method == http.MethodPost && len(parts) == 3 && parts[0] == "channels" && parts[2] == "messages":
		ch := parts[1]
		if _, ok := f.messages[ch]; !ok {
			http.Error(w, "no such channel", http.StatusNotFound)
			return
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		file, _, err := r.FormFile("files[0]")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		_ = file.Close()
		msgID := f.id()
		f.messages[ch][msgID] = data
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":         strconv.FormatInt(msgID, 10),
			"channel_id": ch,
			"attachments": []map[string]string{
				{"url": fmt.Sprintf("%s/attachments/%s/%d", f.baseURL, ch, msgID)},
			},
		})

	case len(parts) == 4 && parts[0] == "channels" && parts[2] == "messages":
		ch, msgID := parts[1], mustInt(parts[3])
		if _, ok := f.messages[ch][msgID]; !ok {
			http.Error(w, "unknown message", http.StatusNotFound)
			return
		}
		if r.Method == http.MethodDelete {
			delete(f.messages[ch], msgID)
			w.WriteHeader(http.StatusOK)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":         parts[3],
			"channel_id": ch,
			"attachments": []map[string]string{
				{"url": fmt.Sprintf("%s/attachments/%s/%d", f.baseURL, ch, msgID)},
			},
		})

	case r.Method == http.MethodGet && len(parts) == 3 && parts[0] == "attachments":
		data, ok := f.messages[parts[1]][mustInt(parts[2])]
		if !ok {
			http.Error(w, "gone", http.StatusNotFound)
			return
		}
		_, _ = w.Write(data)

	default:
		http.Error(w, "unexpected call "+r.Method+" "+r.URL.Path, http.StatusNotFound)
	}
}

func (f *fakeDiscord) dropMessage(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch, msgs := range f.messages {
		for id, stored := range msgs {
			if string(stored) == string(data) {
				delete(f.messages[ch], id)
			}
		}
	}
}

// fakeTelegram — минимальный Bot API: sendDocument, getFile и скачивание.
type fakeTelegram struct {
	mu     sync.Mutex
	nextID int64
	docs   map[string][]byte // file_id → данные
}

func newFakeTelegram(t *testing.T) (*fakeTelegram, string) {
	t.Helper()
	f := &fakeTelegram{docs: map[string][]byte{}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv.URL
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	switch {
	case strings.HasSuffix(path, "/getMe"):
		fmt.Fprint(w, `{"ok":true,"result":{"id":1}}`)

	case strings.HasSuffix(path, "/sendDocument"):
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		file, _, err := r.FormFile("document")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		_ = file.Close()
		f.nextID++
		fileID := fmt.Sprintf("doc-%d", f.nextID)
		f.docs[fileID] = data
		fmt.Fprintf(w, `{"ok":true,"result":{"message_id":%d,"document":{"file_id":"%s"}}}`, f.nextID, fileID)

	case strings.HasSuffix(path, "/getFile"):
		fileID := r.URL.Query().Get("file_id")
		if _, ok := f.docs[fileID]; !ok {
			fmt.Fprint(w, `{"ok":false,"error_code":404,"description":"file not found"}`)
			return
		}
		fmt.Fprintf(w, `{"ok":true,"result":{"file_path":"files/%s"}}`, fileID)

	case strings.HasSuffix(path, "/deleteMessage"):
		fmt.Fprint(w, `{"ok":true,"result":true}`)

	case strings.Contains(path, "/file/bot"):
		fileID := path[strings.LastIndex(path, "/")+1:]
		data, ok := f.docs[fileID]
		if !ok {
			http.Error(w, "gone", http.StatusNotFound)
			return
		}
		_, _ = w.Write(data)

	default:
		http.Error(w, "unexpected call "+path, http.StatusNotFound)
	}
}

func mustInt(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
