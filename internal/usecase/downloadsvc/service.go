// Package downloadsvc — сборка файла из частей. Части подкачиваются вперёд с
// ограничением по глубине, а в поток пишутся строго в порядке индексов; при
// недоступности части на одной платформе берётся её копия с другой.
package downloadsvc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/sir_venger/chat_drive/internal/chunker"
	"github.com/sir_venger/chat_drive/internal/models"
	"github.com/sir_venger/chat_drive/internal/platform"
)

type Registry interface {
	GetFile(ctx context.Context, id int64) (models.FileRecord, error)
}

type Deps struct {
	Registry  Registry
	Senders   map[string]platform.Sender // тег платформы → отправитель
	Retry     platform.RetryPolicy
	ReadAhead int
}

type Service struct {
	Deps
}

func New(deps Deps) *Service {
	if deps.ReadAhead <= 0 {
		deps.ReadAhead = 1
	}
	return &Service{Deps: deps}
}

// Resolve возвращает запись файла, готового к скачиванию.
func (s *Service) Resolve(ctx context.Context, id int64) (models.FileRecord, error) {
	rec, err := s.Registry.GetFile(ctx, id)
	if err != nil {
		return models.FileRecord{}, fmt.Errorf("resolve file %d: %w", id, err)
	}
	if rec.Status != models.StatusSent {
		return models.FileRecord{}, fmt.Errorf("file %d is %s: %w", id, rec.Status, models.ErrNotFound)
	}
	return rec, nil
}

// Stream пишет содержимое файла в w. Часть с индексом i не начинает писаться,
// пока не дописана часть i-1, но скачивание следующих частей идёт параллельно.
func (s *Service) Stream(ctx context.Context, rec models.FileRecord, w io.Writer) error {
	parts := rec.NormalizedParts()
	total := rec.Parts
	if total == 0 {
		return nil
	}

	ahead := s.ReadAhead
	if ahead > total {
		ahead = total
	}

	pipes := make([]*io.PipeReader, total)
	writers := make([]*io.PipeWriter, total)
	for i := range pipes {
		pipes[i], writers[i] = io.Pipe()
	}

	g, ctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, ahead)

	for i := 0; i < total; i++ {
		idx := i
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				writers[idx].CloseWithError(ctx.Err())
				return ctx.Err()
			}
			defer func() { <-sem }()

			data, err := s.fetchPart(ctx, rec, parts, idx)
			if err != nil {
				writers[idx].CloseWithError(err)
				return err
			}
			if _, err := writers[idx].Write(data); err != nil {
				return err
			}
			return writers[idx].Close()
		})
	}

	g.Go(func() error {
		for i := 0; i < total; i++ {
			if _, err := io.Copy(w, pipes[i]); err != nil {
				// Остальные пайпы закрываем, чтобы качальщики не зависли.
				for j := i; j < total; j++ {
					pipes[j].CloseWithError(err)
				}
				return err
			}
		}
		return nil
	})

	return g.Wait()
}

// fetchPart скачивает часть idx по её ссылкам в порядке записи. Переходящие
// сбои одной ссылки повторяются политикой Retry; к следующей копии переходим
// только после исчерпания попыток или терминальной ошибки платформы. Порча
// данных (ErrIntegrity) — финальна, другие копии не пробуются.
func (s *Service) fetchPart(ctx context.Context, rec models.FileRecord, parts []models.PartRef, idx int) ([]byte, error) {
	refs := refsForIndex(parts, idx)
	if len(refs) == 0 {
		return nil, fmt.Errorf("file %d part %d has no references: %w", rec.ID, idx+1, models.ErrPartUnavailable)
	}

	var lastErr error
	for _, ref := range refs {
		sender, ok := s.Senders[ref.Platform]
		if !ok {
			lastErr = fmt.Errorf("platform %s is not configured", ref.Platform)
			continue
		}
		var data []byte
		err := s.Retry.Do(ctx, fmt.Sprintf("fetch file %d part %d via %s", rec.ID, idx+1, ref.Platform), func() error {
			var ferr error
			data, ferr = sender.Fetch(ctx, ref)
			return ferr
		})
		if err != nil {
			log.Printf("download: file %d part %d via %s: %v", rec.ID, idx+1, ref.Platform, err)
			lastErr = err
			continue
		}
		if ref.Size > 0 && int64(len(data)) != ref.Size {
			return nil, fmt.Errorf("file %d part %d: got %d bytes, want %d: %w",
				rec.ID, idx+1, len(data), ref.Size, models.ErrIntegrity)
		}
		if ref.Sha256 != "" && chunker.Sum(data) != ref.Sha256 {
			return nil, fmt.Errorf("file %d part %d: checksum mismatch: %w",
				rec.ID, idx+1, models.ErrIntegrity)
		}
		return data, nil
	}
	if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
		return nil, lastErr
	}
	return nil, fmt.Errorf("file %d part %d: all copies failed (%v): %w",
		rec.ID, idx+1, lastErr, models.ErrPartUnavailable)
}

func refsForIndex(parts []models.PartRef, idx int) []models.PartRef {
	var refs []models.PartRef
	for _, ref := range parts {
		if ref.Part == idx+1 {
			refs = append(refs, ref)
		}
	}
	return refs
}
