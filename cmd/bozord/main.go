// Command bozord runs the bozor API server. All configuration comes
// from the environment; there are no flags.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"

	"github.com/bozorapp/bozor/auth"
	"github.com/bozorapp/bozor/internal/httpapi"
	"github.com/bozorapp/bozor/mail"
	"github.com/bozorapp/bozor/store"
)

type config struct {
	Addr     string `env:"BOZOR_ADDR" envDefault:":8080"`
	DBPath   string `env:"BOZOR_DB_PATH" envDefault:"bozor.db"`
	LogLevel string `env:"BOZOR_LOG_LEVEL" envDefault:"info"`

	RedisAddr     string `env:"BOZOR_REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	RedisPassword string `env:"BOZOR_REDIS_PASSWORD"`
	RedisDB       int    `env:"BOZOR_REDIS_DB" envDefault:"0"`

	AccessSecret  string `env:"BOZOR_ACCESS_SECRET,required"`
	RefreshSecret string `env:"BOZOR_REFRESH_SECRET,required"`
	ResetSecret   string `env:"BOZOR_RESET_SECRET"`

	FrontendURL  string `env:"BOZOR_FRONTEND_URL" envDefault:"http://localhost:3000"`
	SMTPAddr     string `env:"BOZOR_SMTP_ADDR"`
	SMTPFrom     string `env:"BOZOR_SMTP_FROM"`
	SMTPUsername string `env:"BOZOR_SMTP_USERNAME"`
	SMTPPassword string `env:"BOZOR_SMTP_PASSWORD"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	logger := newLogger(cfg.LogLevel)

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = rdb.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		return fmt.Errorf("ping redis at %s: %w", cfg.RedisAddr, err)
	}

	mailer, err := newMailer(cfg, logger)
	if err != nil {
		return err
	}

	authCfg := auth.DefaultConfig()
	authCfg.AccessSecret = []byte(cfg.AccessSecret)
	authCfg.RefreshSecret = []byte(cfg.RefreshSecret)
	if cfg.ResetSecret != "" {
		authCfg.ResetSecret = []byte(cfg.ResetSecret)
	}

	engine, err := auth.New().
		WithConfig(authCfg).
		WithRedis(rdb).
		WithUserStore(store.NewAccounts(st)).
		WithMailer(mailer).
		WithLogger(logger).
		Build()
	if err != nil {
		return fmt.Errorf("build auth engine: %w", err)
	}

	api := httpapi.NewServer(engine, st, logger)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// newMailer picks SMTP when a relay is configured and falls back to
// log-only delivery otherwise.
func newMailer(cfg config, logger *slog.Logger) (mail.Sender, error) {
	if cfg.SMTPAddr == "" {
		logger.Warn("no SMTP relay configured, reset mail will only be logged")
		return &mail.LogSender{Logger: logger}, nil
	}
	sender, err := mail.NewSMTPSender(mail.SMTPConfig{
		Addr:        cfg.SMTPAddr,
		From:        cfg.SMTPFrom,
		Username:    cfg.SMTPUsername,
		Password:    cfg.SMTPPassword,
		FrontendURL: cfg.FrontendURL,
	})
	if err != nil {
		return nil, fmt.Errorf("configure mailer: %w", err)
	}
	return sender, nil
}
