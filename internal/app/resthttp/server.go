// Package resthttp — HTTP-поверхность хранилища: сессии загрузки, скачивание,
// операции над файлами и папками.
package resthttp

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sir_venger/chat_drive/internal/config"
	"github.com/sir_venger/chat_drive/internal/platform"
	"github.com/sir_venger/chat_drive/internal/registry"
	"github.com/sir_venger/chat_drive/internal/usecase/downloadsvc"
	"github.com/sir_venger/chat_drive/internal/usecase/filesvc"
	"github.com/sir_venger/chat_drive/internal/usecase/uploadsvc"
)

type Server struct {
	Uploads   *uploadsvc.Service
	Downloads *downloadsvc.Service
	Files     *filesvc.Service
	Registry  registry.Store
	Cfg       *config.Config

	stopSweeper func()
}

// NewServer собирает все сервисы поверх конфигурации и возвращает роутер.
func NewServer(ctx context.Context, cfg *config.Config) (http.Handler, *Server, error) {
	store, err := registry.Open(ctx, cfg.RegistryDSN)
	if err != nil {
		return nil, nil, err
	}

	discord := platform.NewDiscordSender(cfg.Discord.Token, cfg.Discord.GuildID, cfg.Discord.APIBase, cfg.HTTPTimeout())
	senders := map[string]platform.Sender{discord.Tag(): discord}

	var backup platform.Sender
	if cfg.BackupEnabled() {
		telegram := platform.NewTelegramSender(cfg.Telegram.Token, cfg.Telegram.ChatID, cfg.Telegram.APIBase, cfg.HTTPTimeout())
		senders[telegram.Tag()] = telegram
		backup = telegram
	}

	files := filesvc.New(filesvc.Deps{
		Registry: store,
		Remote:   discord,
		Senders:  senders,
	})

	uploads := uploadsvc.New(uploadsvc.Deps{
		Registry: store,
		Primary:  discord,
		Backup:   backup,
		Channels: discord,
		Folders:  files,
		Retry: platform.RetryPolicy{
			Attempts:  cfg.SendRetries,
			BaseDelay: cfg.RetryBaseDelay(),
		},
		ChunkSize: cfg.ChunkSizeBytes(),
		Parallel:  cfg.ParallelSends,
		TTL:       cfg.SessionTTL(),
	})

	downloads := downloadsvc.New(downloadsvc.Deps{
		Registry: store,
		Senders:  senders,
		Retry: platform.RetryPolicy{
			Attempts:  cfg.DownloadRetries,
			BaseDelay: cfg.RetryBaseDelay(),
		},
		ReadAhead: cfg.ReadAhead,
	})

	srv := &Server{
		Uploads:   uploads,
		Downloads: downloads,
		Files:     files,
		Registry:  store,
		Cfg:       cfg,
	}
	srv.stopSweeper = uploads.StartSweeper(cfg.GCInterval())

	rtr := chi.NewRouter()
	rtr.Use(requestLogger)

	rtr.Post("/upload/start", srv.postUploadStart)
	rtr.Post("/upload/{sid}/chunk/{idx}", srv.postUploadChunk)
	rtr.Post("/upload/{sid}/finalize", srv.postUploadFinalize)
	rtr.Post("/upload/{sid}/cancel", srv.postUploadCancel)

	rtr.Get("/download/{id}", srv.getDownload)

	rtr.Get("/files", srv.getFiles)
	rtr.Get("/files/search", srv.getSearch)
	rtr.Get("/files/stats", srv.getStats)
	rtr.Post("/files/{id}/rename", srv.postFileRename)
	rtr.Post("/files/{id}/move", srv.postFileMove)
	rtr.Delete("/files/{id}", srv.deleteFile)

	rtr.Get("/folders", srv.getFolders)
	rtr.Post("/folders", srv.postFolders)
	rtr.Post("/folders/{id}/rename", srv.postFolderRename)
	rtr.Post("/folders/{id}/move", srv.postFolderMove)
	rtr.Delete("/folders/{id}", srv.deleteFolder)

	rtr.Get("/health", srv.getHealth)

	return rtr, srv, nil
}

// Close гасит фоновую уборку и закрывает реестр.
func (s *Server) Close() {
	if s.stopSweeper != nil {
		s.stopSweeper()
	}
	s.Registry.Close()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("rest: encode response: %v", err)
	}
}
