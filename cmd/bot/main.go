package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"presenca-bot/internal/attendance"
	"presenca-bot/internal/common/clock"
	"presenca-bot/internal/config"
	"presenca-bot/internal/drive"
	"presenca-bot/internal/events"
	"presenca-bot/internal/logging"
	"presenca-bot/internal/server"
	"presenca-bot/internal/sheets"
	"presenca-bot/internal/storage/memory"
	"presenca-bot/internal/tgbot"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		bootLog := logging.New("development", "info")
		bootLog.Fatal().Err(err).Msg("config")
	}

	log := logging.New(cfg.Env, cfg.LogLevel)
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	records, blobs, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StorageBackend).Msg("storage")
	}

	var notifiers events.Multi

	var botApp *tgbot.App
	if cfg.TelegramToken != "" {
		// service is set once it exists; the bot is also one of its notifiers
		botApp, err = tgbot.New(cfg, nil, log)
		if err != nil {
			log.Fatal().Err(err).Msg("telegram")
		}
		notifiers = append(notifiers, botApp)
	}

	if cfg.AMQPURL != "" {
		rmq, err := events.NewRabbit(cfg.AMQPURL, cfg.AMQPExchange, log.With().Str("component", "rabbit").Logger())
		if err != nil {
			log.Fatal().Err(err).Msg("rabbitmq")
		}
		defer rmq.Close()
		notifiers = append(notifiers, rmq)
	}

	svc, err := attendance.NewService(&attendance.Config{
		FolderID:       cfg.DriveFolderID,
		TerminalStatus: cfg.TerminalStatus,
		MaxUploadBytes: cfg.MaxUploadBytes,
		CacheTTL:       cfg.CacheTTL,
	}, &attendance.Dependencies{
		Records:  records,
		Blobs:    blobs,
		Notifier: notifiers,
		Clock:    &clock.DefaultClock{},
		Logger:   log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("attendance")
	}
	if botApp != nil {
		botApp.SetService(svc)
	}

	httpSrv := server.New(cfg, svc, log)

	// Start HTTP server
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	// Start Telegram
	if botApp != nil {
		go func() {
			if err := botApp.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("bot stopped")
				cancel()
			}
		}()
	}

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down...")

	cancel()
	ctxTimeout, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = httpSrv.Shutdown(ctxTimeout)

	log.Info().Msg("bye")
}

func openStores(ctx context.Context, cfg config.Config, log zerolog.Logger) (attendance.RecordStore, attendance.BlobStore, error) {
	if cfg.StorageBackend == config.BackendMemory {
		log.Warn().Msg("using in-memory storage, data is lost on restart")
		st := memory.New()
		return st, st, nil
	}

	sh, err := sheets.New(ctx, cfg.GoogleServiceAccountJSON, cfg.SpreadsheetID, cfg.SheetName)
	if err != nil {
		return nil, nil, err
	}
	if err := sh.EnsureHeaders(ctx); err != nil {
		return nil, nil, err
	}

	dr, err := drive.New(ctx, cfg.GoogleServiceAccountJSON)
	if err != nil {
		return nil, nil, err
	}
	return sh, dr, nil
}
