package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/devteamer/authd"
	"github.com/devteamer/authd/httpapi"
	"github.com/devteamer/authd/mailer"
	"github.com/devteamer/authd/postgres"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := authd.LoadConfig()
	if err != nil {
		return err
	}

	var handler slog.Handler
	if cfg.Debug {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, nil)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	users, err := postgres.Open(ctx, cfg.Postgres.DSN())
	if err != nil {
		return err
	}
	defer users.Close()
	if err := users.Migrate(ctx); err != nil {
		return err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr(),
		DB:   cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return err
	}

	var sender authd.MailSender
	if cfg.SendEmail {
		sender, err = mailer.NewSMTP(mailer.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Address:  cfg.SMTP.Address,
			Password: cfg.SMTP.Password,
		}, logger)
		if err != nil {
			return err
		}
	} else {
		sender = mailer.NewLogSender(logger)
	}

	engine, err := authd.NewEngine(authd.Options{
		Config: cfg,
		Users:  users,
		Redis:  rdb,
		Sender: sender,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httpapi.NewServer(engine, cfg, logger).Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr, "debug", cfg.Debug)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
