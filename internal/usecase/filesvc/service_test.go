package filesvc

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/sir_venger/chat_drive/internal/models"
	"github.com/sir_venger/chat_drive/internal/platform"
	"github.com/sir_venger/chat_drive/internal/registry"
)

type fakeRemote struct {
	mu         sync.Mutex
	categories int64
	deleted    []string
}

func (f *fakeRemote) CreateCategory(context.Context, string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.categories++
	return 1000 + f.categories, nil
}

func (f *fakeRemote) DeleteChannel(_ context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, channelID)
	return nil
}

type recordingSender struct {
	tag     string
	mu      sync.Mutex
	deleted []int64
}

func (r *recordingSender) Tag() string { return r.tag }

func (r *recordingSender) Send(context.Context, string, string, string, []byte) (models.PartRef, error) {
	return models.PartRef{}, errors.New("not implemented")
}

func (r *recordingSender) Fetch(context.Context, models.PartRef) ([]byte, error) {
	return nil, platform.ErrRemoteNotFound
}

func (r *recordingSender) Delete(_ context.Context, ref models.PartRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, ref.MessageID)
}

func (r *recordingSender) Ping(context.Context) error { return nil }

func newTestService(t *testing.T) (*Service, *fakeRemote, *recordingSender, registry.Store) {
	t.Helper()
	store := registry.NewMemoryStore()
	t.Cleanup(store.Close)
	remote := &fakeRemote{}
	telegram := &recordingSender{tag: models.PlatformTelegram}
	svc := New(Deps{
		Registry: store,
		Remote:   remote,
		Senders:  map[string]platform.Sender{telegram.tag: telegram},
	})
	return svc, remote, telegram, store
}

func Test_MoveFolder_CycleRejected(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.CreateFolder(ctx, "a", "")
	if err != nil {
		t.Fatal(err)
	}
	b, err := svc.CreateFolder(ctx, "b", a.Key())
	if err != nil {
		t.Fatal(err)
	}
	c, err := svc.CreateFolder(ctx, "c", b.Key())
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.MoveFolder(ctx, a.ID, a.Key()); !errors.Is(err, models.ErrCycle) {
		t.Fatalf("move under itself: want ErrCycle, got %v", err)
	}
	if err := svc.MoveFolder(ctx, a.ID, c.Key()); !errors.Is(err, models.ErrCycle) {
		t.Fatalf("move under descendant: want ErrCycle, got %v", err)
	}

	// дерево не изменилось
	got, _ := svc.Folders(ctx)
	for _, f := range got {
		if f.ID == a.ID && !f.ParentID.IsRoot() {
			t.Fatalf("folder a moved despite rejection: parent=%q", f.ParentID)
		}
	}

	// корректное перемещение проходит
	if err := svc.MoveFolder(ctx, c.ID, a.Key()); err != nil {
		t.Fatal(err)
	}
}

func Test_DeleteFolder_NotEmptyWithoutForce(t *testing.T) {
	svc, _, _, store := newTestService(t)
	ctx := context.Background()

	parent, _ := svc.CreateFolder(ctx, "parent", "")
	if _, err := svc.CreateFolder(ctx, "child", parent.Key()); err != nil {
		t.Fatal(err)
	}

	if err := svc.DeleteFolder(ctx, parent.ID, false); !errors.Is(err, models.ErrNotEmpty) {
		t.Fatalf("want ErrNotEmpty, got %v", err)
	}
	folders, _ := store.ListFolders(ctx)
	if len(folders) != 2 {
		t.Fatalf("folders deleted despite rejection: %d left", len(folders))
	}
}

func Test_DeleteFolder_ForceCascades(t *testing.T) {
	svc, remote, telegram, store := newTestService(t)
	ctx := context.Background()

	parent, _ := svc.CreateFolder(ctx, "parent", "")
	child, _ := svc.CreateFolder(ctx, "child", parent.Key())

	rec := models.FileRecord{
		ID:        models.NewID(),
		Filename:  "in-child.bin",
		ChannelID: "chan-7",
		FolderID:  child.Key(),
		Status:    models.StatusSent,
		Parts:     1,
		PartsInfo: []models.PartRef{
			{Part: 1, Platform: models.PlatformDiscord, MessageID: 11, ChannelID: "chan-7"},
			{Part: 1, Platform: models.PlatformTelegram, MessageID: 21},
		},
	}
	if err := store.SaveFile(ctx, rec); err != nil {
		t.Fatal(err)
	}

	if err := svc.DeleteFolder(ctx, parent.ID, true); err != nil {
		t.Fatal(err)
	}

	if files, _ := store.ListFiles(ctx); len(files) != 0 {
		t.Fatalf("%d files survived cascade", len(files))
	}
	if folders, _ := store.ListFolders(ctx); len(folders) != 0 {
		t.Fatalf("%d folders survived cascade", len(folders))
	}

	remote.mu.Lock()
	deletedChannels := append([]string(nil), remote.deleted...)
	remote.mu.Unlock()
	if len(deletedChannels) == 0 || deletedChannels[0] != "chan-7" {
		t.Fatalf("file channel not deleted: %v", deletedChannels)
	}

	telegram.mu.Lock()
	defer telegram.mu.Unlock()
	if len(telegram.deleted) != 1 || telegram.deleted[0] != 21 {
		t.Fatalf("telegram copy not cleaned: %v", telegram.deleted)
	}
}

func Test_EnsureCategory_LazyAndCached(t *testing.T) {
	svc, remote, _, _ := newTestService(t)
	ctx := context.Background()

	folder, _ := svc.CreateFolder(ctx, "docs", "")
	remote.mu.Lock()
	created := remote.categories
	remote.mu.Unlock()
	if created != 0 {
		t.Fatal("category provisioned at folder creation")
	}

	id1, name, err := svc.EnsureCategory(ctx, folder.Key())
	if err != nil {
		t.Fatal(err)
	}
	if id1 == 0 || name != "docs" {
		t.Fatalf("ensure: id=%d name=%q", id1, name)
	}

	id2, _, err := svc.EnsureCategory(ctx, folder.Key())
	if err != nil || id2 != id1 {
		t.Fatalf("second ensure: id=%d err=%v", id2, err)
	}
	remote.mu.Lock()
	defer remote.mu.Unlock()
	if remote.categories != 1 {
		t.Fatalf("category created %d times", remote.categories)
	}
}

func Test_EnsureCategory_RootHasNone(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	id, name, err := svc.EnsureCategory(context.Background(), "")
	if err != nil || id != 0 || name != "" {
		t.Fatalf("root: id=%d name=%q err=%v", id, name, err)
	}
}

func Test_SearchAndStats(t *testing.T) {
	svc, _, _, store := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"Report-Q1.pdf", "report-q2.pdf", "photo.jpg"} {
		rec := models.FileRecord{
			ID:       models.NewID(),
			Filename: name,
			SizeMB:   1.5,
			Status:   models.StatusSent,
		}
		if err := store.SaveFile(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	found, err := svc.Search(ctx, "REPORT")
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 2 {
		t.Fatalf("want 2 matches, got %d", len(found))
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalFiles != 3 || stats.TotalMB != 4.5 {
		t.Fatalf("stats: %+v", stats)
	}
}

func Test_MoveFile_ResolvesFolderName(t *testing.T) {
	svc, _, _, store := newTestService(t)
	ctx := context.Background()

	folder, _ := svc.CreateFolder(ctx, "archive", "")
	rec := models.FileRecord{ID: models.NewID(), Filename: "a.bin", Status: models.StatusSent}
	if err := store.SaveFile(ctx, rec); err != nil {
		t.Fatal(err)
	}

	if err := svc.MoveFile(ctx, rec.ID, folder.Key()); err != nil {
		t.Fatal(err)
	}
	got, _ := store.GetFile(ctx, rec.ID)
	if got.FolderName != "archive" || got.FolderID != folder.Key() {
		t.Fatalf("moved record: folder=%q name=%q", got.FolderID, got.FolderName)
	}

	wrong := models.FlexID(strconv.FormatInt(folder.ID+1, 10))
	if err := svc.MoveFile(ctx, rec.ID, wrong); !errors.Is(err, models.ErrFolderNotFound) {
		t.Fatalf("move to missing folder: %v", err)
	}
}
