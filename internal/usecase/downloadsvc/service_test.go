package downloadsvc

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sir_venger/chat_drive/internal/chunker"
	"github.com/sir_venger/chat_drive/internal/models"
	"github.com/sir_venger/chat_drive/internal/platform"
)

// mapSender отдаёт части по message_id из заранее заполненной карты.
type mapSender struct {
	tag   string
	parts map[int64][]byte
}

func (m *mapSender) Tag() string { return m.tag }

func (m *mapSender) Send(context.Context, string, string, string, []byte) (models.PartRef, error) {
	return models.PartRef{}, errors.New("not implemented")
}

func (m *mapSender) Fetch(_ context.Context, ref models.PartRef) ([]byte, error) {
	data, ok := m.parts[ref.MessageID]
	if !ok {
		return nil, platform.ErrRemoteNotFound
	}
	return data, nil
}

func (m *mapSender) Delete(context.Context, models.PartRef) {}

func (m *mapSender) Ping(context.Context) error { return nil }

type mapRegistry struct {
	rec models.FileRecord
}

func (r mapRegistry) GetFile(_ context.Context, id int64) (models.FileRecord, error) {
	if id != r.rec.ID {
		return models.FileRecord{}, models.ErrNotFound
	}
	return r.rec, nil
}

func dualRecord(chunks [][]byte) (models.FileRecord, *mapSender, *mapSender) {
	discord := &mapSender{tag: models.PlatformDiscord, parts: map[int64][]byte{}}
	telegram := &mapSender{tag: models.PlatformTelegram, parts: map[int64][]byte{}}

	rec := models.FileRecord{ID: 1, Filename: "data.bin", Status: models.StatusSent, Parts: len(chunks)}
	var msgID int64
	for i, chunk := range chunks {
		rec.Size += int64(len(chunk))
		for _, s := range []*mapSender{discord, telegram} {
			msgID++
			s.parts[msgID] = chunk
			rec.PartsInfo = append(rec.PartsInfo, models.PartRef{
				Part:      i + 1,
				Platform:  s.tag,
				MessageID: msgID,
				Size:      int64(len(chunk)),
				Sha256:    chunker.Sum(chunk),
			})
		}
	}
	return rec, discord, telegram
}

func newTestService(rec models.FileRecord, senders ...platform.Sender) *Service {
	m := map[string]platform.Sender{}
	for _, s := range senders {
		m[s.Tag()] = s
	}
	return New(Deps{
		Registry:  mapRegistry{rec: rec},
		Senders:   m,
		Retry:     platform.RetryPolicy{Attempts: 2},
		ReadAhead: 2,
	})
}

// flakySender имитирует сетевой сбой: первые failures запросов падают
// переходящей ошибкой, дальше части отдаются штатно.
type flakySender struct {
	mapSender
	mu       sync.Mutex
	failures int
}

func (f *flakySender) Fetch(ctx context.Context, ref models.PartRef) ([]byte, error) {
	f.mu.Lock()
	flaky := f.failures > 0
	if flaky {
		f.failures--
	}
	f.mu.Unlock()
	if flaky {
		return nil, errors.New("connection reset")
	}
	return f.mapSender.Fetch(ctx, ref)
}

func Test_Stream_OrderedAssembly(t *testing.T) {
	chunks := [][]byte{[]byte("alpha-"), []byte("beta-"), []byte("gamma")}
	rec, discord, telegram := dualRecord(chunks)
	svc := newTestService(rec, discord, telegram)

	var out bytes.Buffer
	if err := svc.Stream(context.Background(), rec, &out); err != nil {
		t.Fatal(err)
	}
	if out.String() != "alpha-beta-gamma" {
		t.Fatalf("assembled %q", out.String())
	}
}

func Test_Stream_RetriesTransientFetch(t *testing.T) {
	chunks := [][]byte{[]byte("alpha-"), []byte("beta")}
	rec, discord, _ := dualRecord(chunks)

	// единственная платформа моргает один раз: успех обязан прийти повтором,
	// а не переключением на несуществующую копию
	flaky := &flakySender{mapSender: *discord, failures: 1}
	svc := newTestService(rec, flaky)

	var out bytes.Buffer
	if err := svc.Stream(context.Background(), rec, &out); err != nil {
		t.Fatal(err)
	}
	if out.String() != "alpha-beta" {
		t.Fatalf("assembled %q", out.String())
	}
	flaky.mu.Lock()
	defer flaky.mu.Unlock()
	if flaky.failures != 0 {
		t.Fatalf("flaky budget not consumed: %d left", flaky.failures)
	}
}

func Test_Stream_FailoverToBackup(t *testing.T) {
	chunks := [][]byte{[]byte("alpha-"), []byte("beta-"), []byte("gamma")}
	rec, discord, telegram := dualRecord(chunks)

	// средняя часть на основной платформе удалена вручную
	for id, data := range discord.parts {
		if bytes.Equal(data, chunks[1]) {
			delete(discord.parts, id)
		}
	}

	svc := newTestService(rec, discord, telegram)
	var out bytes.Buffer
	if err := svc.Stream(context.Background(), rec, &out); err != nil {
		t.Fatal(err)
	}
	if out.String() != "alpha-beta-gamma" {
		t.Fatalf("assembled %q", out.String())
	}
}

func Test_Stream_AllCopiesGone(t *testing.T) {
	chunks := [][]byte{[]byte("alpha"), []byte("beta")}
	rec, discord, telegram := dualRecord(chunks)
	discord.parts = map[int64][]byte{}
	telegram.parts = map[int64][]byte{}

	svc := newTestService(rec, discord, telegram)
	err := svc.Stream(context.Background(), rec, &bytes.Buffer{})
	if !errors.Is(err, models.ErrPartUnavailable) {
		t.Fatalf("want ErrPartUnavailable, got %v", err)
	}
}

func Test_Stream_CorruptedPartIsIntegrityError(t *testing.T) {
	chunks := [][]byte{[]byte("alpha")}
	rec, discord, telegram := dualRecord(chunks)
	for id := range discord.parts {
		discord.parts[id] = []byte("tampered-with")
	}
	for id := range telegram.parts {
		telegram.parts[id] = []byte("tampered-with")
	}

	svc := newTestService(rec, discord, telegram)
	err := svc.Stream(context.Background(), rec, &bytes.Buffer{})
	if !errors.Is(err, models.ErrIntegrity) {
		t.Fatalf("want ErrIntegrity, got %v", err)
	}
}

func Test_Resolve_RejectsUnfinishedFile(t *testing.T) {
	rec := models.FileRecord{ID: 7, Status: models.StatusUploading}
	svc := newTestService(rec)

	if _, err := svc.Resolve(context.Background(), 7); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if _, err := svc.Resolve(context.Background(), 8); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func Test_Stream_LegacyMessageIDs(t *testing.T) {
	discord := &mapSender{tag: models.PlatformDiscord, parts: map[int64][]byte{
		101: []byte("old-"),
		102: []byte("style"),
	}}
	rec := models.FileRecord{
		ID:         2,
		Filename:   "legacy.bin",
		Status:     models.StatusSent,
		Parts:      2,
		MessageIDs: []int64{101, 102},
	}

	svc := newTestService(rec, discord)
	var out bytes.Buffer
	if err := svc.Stream(context.Background(), rec, &out); err != nil {
		t.Fatal(err)
	}
	if out.String() != "old-style" {
		t.Fatalf("assembled %q", out.String())
	}
}
