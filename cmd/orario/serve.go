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

	"github.com/spf13/cobra"

	"orario/config"
	"orario/internal/bot"
	"orario/internal/httpclient"
	"orario/internal/server"
	"orario/internal/telegram"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server and the Telegram bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(*configPath, os.Stdout)
			if err != nil {
				return err
			}
			if err := a.cfg.RequireTelegram(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	cfg := a.cfg
	dispatcher := bot.NewDispatcher(a.service, cfg.Query.MaxLength)

	var (
		tg     *telegram.Client
		sender telegram.Sender
	)
	if cfg.Telegram.Mode != config.TelegramDisabled {
		pollTimeout := time.Duration(cfg.Telegram.PollTimeoutSeconds) * time.Second

		// getUpdates holds the connection open for up to pollTimeout.
		clientCfg := httpclient.DefaultConfig()
		clientCfg.Timeout = pollTimeout + cfg.HTTP.Timeout()

		tgCfg := telegram.DefaultConfig(cfg.Telegram.Token)
		tgCfg.APIURL = cfg.Telegram.APIURL
		tg = telegram.NewClient(tgCfg, httpclient.NewHTTPClient(&clientCfg))
	}
	if cfg.Telegram.Mode == config.TelegramWebhook {
		sender = tg
	}

	if cfg.Server.APIKey == "" {
		slog.Warn("API_KEY not set: /v1 is unauthenticated")
	}

	srv := server.New(a.service, dispatcher, sender, &server.Config{
		APIKey:          cfg.Server.APIKey,
		MetricsEnabled:  cfg.Metrics.Enabled,
		MetricsEndpoint: cfg.Metrics.Endpoint,
		BodySizeLimit:   cfg.Server.BodySizeLimit,
		WebhookSecret:   cfg.Telegram.WebhookSecret,
	})

	errCh := make(chan error, 2)

	addr := ":" + cfg.Server.Port
	go func() {
		slog.Info("starting server", "address", addr, "source", a.cache.Source(), "telegram_mode", cfg.Telegram.Mode)
		if err := srv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if cfg.Telegram.Mode == config.TelegramPolling {
		poller := telegram.NewPoller(tg, dispatcher, time.Duration(cfg.Telegram.PollTimeoutSeconds)*time.Second)
		go func() {
			if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("shutting down server...")
	case runErr = <-errCh:
		slog.Error("server failed", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	if runErr == nil {
		slog.Info("server stopped gracefully")
	}
	return runErr
}
