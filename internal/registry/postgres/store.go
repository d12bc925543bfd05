// Package postgres — бэкенд реестра поверх pgx-пула. Записи хранятся как
// JSONB-payload, чтобы схема не расходилась с легаси-документами.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sir_venger/chat_drive/internal/models"
)

const (
	filesTable    = "drive_files"
	foldersTable  = "drive_folders"
	sessionsTable = "drive_sessions"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store сохраняет реестр в Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore создаёт подключение к Postgres.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("registry dsn is empty")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	return &Store{pool: pool}, nil
}

// Close освобождает подключения пула.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// getPayload читает payload одной строки по id.
func (s *Store) getPayload(ctx context.Context, table string, id any, out any, missing error) error {
	sqlStr, args, err := psql.
		Select("payload").
		From(table).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return fmt.Errorf("build select: %w", err)
	}

	var payload []byte
	if err := s.pool.QueryRow(ctx, sqlStr, args...).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return missing
		}
		return fmt.Errorf("scan %s row: %w", table, err)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("unmarshal %s payload: %w", table, err)
	}
	return nil
}

// upsertPayload пишет (или обновляет) payload строки.
func (s *Store) upsertPayload(ctx context.Context, table string, id any, doc any) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	sqlStr, args, err := psql.
		Insert(table).
		Columns("id", "payload").
		Values(id, payload).
		Suffix("ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := s.pool.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("exec upsert: %w", err)
	}
	return nil
}

func (s *Store) deleteRow(ctx context.Context, table string, id any) error {
	sqlStr, args, err := psql.Delete(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := s.pool.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("exec delete: %w", err)
	}
	return nil
}

// listPayloads перебирает все payload-ы таблицы, декодируя каждый в append.
func listPayloads[T any](ctx context.Context, s *Store, table, order string) ([]T, error) {
	sqlStr, args, err := psql.Select("payload").From(table).OrderBy(order).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", table, err)
		}
		var item T
		if err := json.Unmarshal(payload, &item); err != nil {
			return nil, fmt.Errorf("unmarshal %s payload: %w", table, err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// ── Файлы ─────────────────────────────────────────────────────────────────────

func (s *Store) GetFile(ctx context.Context, id int64) (models.FileRecord, error) {
	var rec models.FileRecord
	if err := s.getPayload(ctx, filesTable, id, &rec, models.ErrNotFound); err != nil {
		return models.FileRecord{}, err
	}
	return rec, nil
}

func (s *Store) SaveFile(ctx context.Context, rec models.FileRecord) error {
	return s.upsertPayload(ctx, filesTable, rec.ID, rec)
}

func (s *Store) DeleteFile(ctx context.Context, id int64) error {
	return s.deleteRow(ctx, filesTable, id)
}

func (s *Store) ListFiles(ctx context.Context) ([]models.FileRecord, error) {
	// id — миллисекундный timestamp, сортировка по убыванию даёт историю
	// от свежих записей к старым, как в JSON-документе.
	return listPayloads[models.FileRecord](ctx, s, filesTable, "id DESC")
}

// ── Папки ─────────────────────────────────────────────────────────────────────

func (s *Store) ListFolders(ctx context.Context) ([]models.Folder, error) {
	return listPayloads[models.Folder](ctx, s, foldersTable, "id DESC")
}

func (s *Store) SaveFolder(ctx context.Context, f models.Folder) error {
	return s.upsertPayload(ctx, foldersTable, f.ID, f)
}

func (s *Store) DeleteFolder(ctx context.Context, id int64) error {
	return s.deleteRow(ctx, foldersTable, id)
}

// ── Сессии ────────────────────────────────────────────────────────────────────

func (s *Store) GetSession(ctx context.Context, id string) (models.UploadSession, error) {
	var sess models.UploadSession
	if err := s.getPayload(ctx, sessionsTable, id, &sess, models.ErrSessionNotFound); err != nil {
		return models.UploadSession{}, err
	}
	return sess, nil
}

func (s *Store) SaveSession(ctx context.Context, sess models.UploadSession) error {
	return s.upsertPayload(ctx, sessionsTable, sess.SessionID, sess)
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	return s.deleteRow(ctx, sessionsTable, id)
}

func (s *Store) ListSessions(ctx context.Context) ([]models.UploadSession, error) {
	return listPayloads[models.UploadSession](ctx, s, sessionsTable, "id")
}
