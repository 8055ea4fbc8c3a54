package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"math-bot/api/internal/config"
	"math-bot/api/internal/explain"
	"math-bot/api/internal/httpserver"
	"math-bot/api/internal/latex"
	"math-bot/api/internal/store"
	"math-bot/api/internal/telegram"
)

const janitorEvery = time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot and the JSON API",
	Long: `Starts the HTTP server (/healthz, /v1/reduce, /v1/solve, /v1/shapes) and the bot.
With webhook_url set the bot receives updates on a secret webhook path of the same
server, otherwise it long-polls Telegram.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Postgres (optional) ---
	var (
		history telegram.History
		pinger  httpserver.Pinger
	)
	if cfg.DatabaseURL != "" {
		db, err := openDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		history = store.NewHistoryRepo(db)
		pinger = db
	} else {
		logger.Warn("no database configured, history is disabled")
	}

	// --- Telegram bot ---
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	bot.Debug = false
	logger.Info("authorized", zap.String("bot", bot.Self.UserName))

	router := telegram.NewRouter(bot, logger.Named("telegram"), telegram.Options{
		Cooldown:     cfg.Cooldown,
		SessionTTL:   cfg.SessionTTL,
		HistoryLimit: cfg.HistoryLimit,
	})
	router.History = history
	router.LaTeX = latex.New(cfg.LaTeXURL, logger.Named("latex"))
	router.Explainer = explain.New(cfg.GeminiAPIKey, cfg.GeminiModel, logger.Named("explain"))

	srv := httpserver.New(net.JoinHostPort("0.0.0.0", cfg.Port), pinger, logger.Named("http"))

	eg, egctx := errgroup.WithContext(ctx)

	// --- Choose mode: Webhook vs Polling ---
	if base := strings.TrimSpace(cfg.WebhookURL); base != "" {
		updates, err := startWebhook(bot, srv, base, cfg.TelegramToken)
		if err != nil {
			return err
		}
		eg.Go(func() error {
			for {
				select {
				case <-egctx.Done():
					return nil
				case upd := <-updates:
					router.HandleUpdate(egctx, upd)
				}
			}
		})
	} else {
		if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			logger.Warn("delete webhook failed", zap.Error(err))
		}
		logger.Info("polling mode")
		eg.Go(func() error {
			telegram.RunPolling(egctx, bot, logger.Named("polling"), func(upd tgbotapi.Update) {
				router.HandleUpdate(egctx, upd)
			})
			return nil
		})
	}

	eg.Go(func() error {
		router.Janitor(egctx, janitorEvery)
		return nil
	})
	eg.Go(func() error {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		return srv.Serve(egctx)
	})

	err = eg.Wait()
	logger.Info("stopped")
	return err
}

func startWebhook(bot *tgbotapi.BotAPI, srv *httpserver.Server, baseURL, token string) (<-chan tgbotapi.Update, error) {
	// секретный путь вебхука
	path := telegram.WebhookPath(token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		return nil, fmt.Errorf("webhook: %w", err)
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		return nil, fmt.Errorf("set webhook: %w", err)
	}

	updates := make(chan tgbotapi.Update, bot.Buffer)
	srv.MountWebhook(path, telegram.WebhookHandler(updates, logger.Named("webhook")))
	logger.Info("webhook mode", zap.String("path", path))
	return updates, nil
}

func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := store.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	logger.Info("db connected", zap.String("dsn", config.SafeDSNSummary(dsn)))
	if err := store.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
