package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sir_venger/chat_drive/internal/app/resthttp"
	"github.com/sir_venger/chat_drive/internal/config"
	"github.com/sir_venger/chat_drive/internal/platform"
)

// main поднимает HTTP-сервис хранилища и обеспечивает корректное завершение по сигналу.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler, app, err := resthttp.NewServer(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer app.Close()

	checkPrimary(ctx, cfg)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("shutdown error: %v", err)
		}
	}()

	log.Printf("listening on %s (registry %s)", cfg.ListenAddr, cfg.RegistryDSN)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

// checkPrimary проверяет доступность основной платформы на старте. По
// умолчанию недоступность лишь логируется: скачивание с резерва и операции
// над реестром работают и без неё.
func checkPrimary(ctx context.Context, cfg *config.Config) {
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	discord := platform.NewDiscordSender(cfg.Discord.Token, cfg.Discord.GuildID, cfg.Discord.APIBase, 10*time.Second)
	if err := discord.Ping(pingCtx); err != nil {
		if cfg.RequirePrimary {
			log.Fatalf("discord is unreachable: %v", err)
		}
		log.Printf("discord is unreachable, uploads will fail until it recovers: %v", err)
	}
}
