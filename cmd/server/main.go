package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/hongminglow/mess-be/internal/config"
	"github.com/hongminglow/mess-be/internal/logging"
	"github.com/hongminglow/mess-be/internal/server"
	"github.com/hongminglow/mess-be/internal/storage"
	"github.com/hongminglow/mess-be/internal/storage/memory"
	"github.com/hongminglow/mess-be/internal/storage/postgres"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.Fatalf("init logger: %v", err)
	}
	if envErr != nil {
		log.Debug("no .env file found; relying on existing environment")
	}

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("init storage")
	}
	defer closeStore()

	srv := server.New(cfg, store, log)

	go func() {
		log.WithFields(logrus.Fields{
			"addr":     cfg.HTTPAddress(),
			"storage":  cfg.Driver,
			"timezone": cfg.Location.String(),
		}).Info("mess backend listening")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.WithError(err).Error("graceful shutdown error")
	}
}

func openStore(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (storage.Store, func(), error) {
	if cfg.Driver == config.DriverMemory {
		log.Warn("using in-memory storage; data is lost on exit")
		store := memory.New()
		store.SetMenu(memory.DefaultMenu)
		return store, func() {}, nil
	}
	store, err := postgres.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}
