// Package uploadsvc — менеджер сессий загрузки. Принимает чанки строго по
// порядку, рассылает их на платформы с ограниченным параллелизмом и фиксирует
// ссылки на части в реестре в порядке индексов, независимо от того, в каком
// порядке платформы подтвердили приём.
package uploadsvc

import (
	"context"
	"crypto/sha256"
	"hash"
	"sync"
	"time"

	"github.com/sir_venger/chat_drive/internal/models"
	"github.com/sir_venger/chat_drive/internal/platform"
)

type (
	// Registry — нужная менеджеру часть реестра.
	Registry interface {
		SaveFile(ctx context.Context, rec models.FileRecord) error
		GetSession(ctx context.Context, id string) (models.UploadSession, error)
		SaveSession(ctx context.Context, s models.UploadSession) error
		DeleteSession(ctx context.Context, id string) error
		ListSessions(ctx context.Context) ([]models.UploadSession, error)
	}

	// ChannelProvisioner создаёт канал под файл на основной платформе.
	ChannelProvisioner interface {
		CreateChannel(ctx context.Context, name string, categoryID int64) (string, string, error)
	}

	// FolderResolver лениво выделяет удалённую категорию папки.
	FolderResolver interface {
		EnsureCategory(ctx context.Context, folderID models.FlexID) (int64, string, error)
	}
)

type Deps struct {
	Registry Registry
	Primary  platform.Sender
	Backup   platform.Sender // nil — резервный путь отключён
	Channels ChannelProvisioner
	Folders  FolderResolver
	Retry    platform.RetryPolicy

	ChunkSize int64
	Parallel  int
	TTL       time.Duration
}

type Service struct {
	Deps

	mu        sync.Mutex
	live      map[string]*liveSession
	completed map[string]int64 // session id → file id, для идемпотентного finalize
	sem       chan struct{}    // общий лимит параллельных отправок
}

// New конструирует менеджер сессий.
func New(deps Deps) *Service {
	if deps.Parallel <= 0 {
		deps.Parallel = 1
	}
	return &Service{
		Deps:      deps,
		live:      map[string]*liveSession{},
		completed: map[string]int64{},
		sem:       make(chan struct{}, deps.Parallel),
	}
}

// liveSession — рабочее состояние сессии в памяти. Всё мутабельное — под mu;
// cond будит ожидающих finalize/abort при каждом продвижении.
type liveSession struct {
	mu   sync.Mutex
	cond *sync.Cond

	sess models.UploadSession

	next      int   // следующий ожидаемый индекс чанка
	committed int   // сколько индексов зафиксировано по порядку
	bytes     int64 // принято байт
	hash      hash.Hash

	pending  map[int][]models.PartRef // подтверждено, ждёт фиксации по порядку
	refs     []models.PartRef         // зафиксированные ссылки
	inflight int
	failed   error
	aborting bool

	lastActivity time.Time

	results chan sendResult
	stop    chan struct{}
}

type sendResult struct {
	idx  int
	refs []models.PartRef
	err  error
}

func newLiveSession(sess models.UploadSession, parallel int) *liveSession {
	ls := &liveSession{
		sess:         sess,
		hash:         sha256.New(),
		pending:      map[int][]models.PartRef{},
		lastActivity: time.Now(),
		results:      make(chan sendResult, parallel),
		stop:         make(chan struct{}),
	}
	ls.cond = sync.NewCond(&ls.mu)
	return ls
}

func (s *Service) lookup(id string) *liveSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live[id]
}

func (s *Service) removeLive(id string) {
	s.mu.Lock()
	delete(s.live, id)
	s.mu.Unlock()
}

// collector — единственный потребитель результатов отправки. Подтверждения
// приходят вне порядка, фиксация выполняется строго по возрастанию индексов.
// Первый отказ отправки сразу запускает прерывание сессии, не дожидаясь
// finalize, cancel или уборщика.
func (s *Service) collector(ls *liveSession) {
	for {
		select {
		case res := <-ls.results:
			ls.mu.Lock()
			ls.inflight--
			if res.err != nil {
				if ls.failed == nil {
					ls.failed = res.err
					if !ls.aborting && ls.sess.Status != models.StatusSent {
						// abort ждёт просадки inflight, а дорабатывает их этот же
						// цикл, поэтому прерывание — в отдельной горутине.
						go s.abort(context.Background(), ls)
					}
				}
			} else if len(res.refs) > 0 {
				ls.pending[res.idx] = res.refs
				for {
					refs, ok := ls.pending[ls.committed]
					if !ok {
						break
					}
					delete(ls.pending, ls.committed)
					ls.refs = append(ls.refs, refs...)
					ls.committed++
				}
			}
			ls.cond.Broadcast()
			ls.mu.Unlock()
		case <-ls.stop:
			return
		}
	}
}
