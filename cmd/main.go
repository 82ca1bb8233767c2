package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/MimeLyc/srt-translate-bot/internal/bot"
	"github.com/MimeLyc/srt-translate-bot/internal/config"
	"github.com/MimeLyc/srt-translate-bot/internal/httpapi"
	"github.com/MimeLyc/srt-translate-bot/internal/jobs"
	"github.com/MimeLyc/srt-translate-bot/internal/service"
	"github.com/MimeLyc/srt-translate-bot/internal/session"
	"github.com/MimeLyc/srt-translate-bot/internal/telegram"
	"github.com/MimeLyc/srt-translate-bot/internal/translator"
	"github.com/MimeLyc/srt-translate-bot/pkg/icron"
	"github.com/MimeLyc/srt-translate-bot/pkg/log"
)

const shutdownTimeout = 10 * time.Second

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

type cronEngine interface {
	AddFunc(spec string, cmd func()) (cron.EntryID, error)
	Start()
	Stop() context.Context
}

type components struct {
	http httpServer
	cron cronEngine
	// updates receives chat updates until ctx is done; nil in webhook mode
	updates func(ctx context.Context) error
	sweep   func()
}

func main() {
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}

	closeLog := setupLogging(cfg)
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tr, err := translator.Factory(translator.Provider(cfg.Translator.Provider), translator.Options{
		APIKey:  cfg.Translator.APIKey,
		APIURL:  cfg.Translator.APIURL,
		Model:   cfg.Translator.Model,
		Timeout: cfg.TranslateTimeout(),
	})
	if err != nil {
		log.Fatal("Failed to create translator: %v", err)
	}
	cues := translator.NewCueTranslator(tr, translator.CueTranslatorConfig{
		Granularity: translator.Granularity(cfg.Translator.Granularity),
		Concurrency: cfg.Translator.CueConcurrency,
		CallTimeout: cfg.TranslateTimeout(),
	})
	orchestrator := service.NewOrchestrator(cues, cfg.Translator.LanguageConcurrency)

	client, err := telegram.New(cfg.Telegram.Token)
	if err != nil {
		log.Fatal("Failed to start telegram client: %v", err)
	}

	sessions := session.NewStore()
	queue := jobs.NewQueue(cfg.Bot.WorkerCount)
	handler := bot.NewHandler(client, sessions, bot.NewCatalog(cfg.Bot.Languages), orchestrator, queue, cfg.Bot.MaxFileBytes)
	queue.Start(handler.Execute)
	defer queue.Stop()

	dispatch := func(ctx context.Context, ev bot.Event) {
		if err := handler.Handle(ctx, ev); err != nil {
			log.Error("Handling update for chat %d failed: %v", ev.ChatID, err)
		}
	}

	opts := []httpapi.Option{httpapi.WithSweepSchedule(cfg.Session.SweepCron)}
	var updates func(ctx context.Context) error
	if cfg.WebhookMode() {
		if err := client.RegisterWebhook(cfg.Telegram.WebhookURL); err != nil {
			log.Fatal("Failed to register webhook: %v", err)
		}
		opts = append(opts, httpapi.WithWebhook(cfg.Telegram.WebhookPath, telegram.WebhookHandler(dispatch)))
	} else {
		if err := client.RemoveWebhook(); err != nil {
			log.Warn("Failed to remove webhook: %v", err)
		}
		updates = func(ctx context.Context) error {
			return client.Poll(ctx, dispatch)
		}
	}

	err = runWithComponents(ctx, cfg, components{
		http:    httpapi.NewServer(queue, sessions, opts...),
		cron:    icron.New(),
		updates: updates,
		sweep:   sessionSweeper(sessions, cfg.SessionTTL()),
	})
	if err != nil {
		log.Error("Bot stopped: %v", err)
		os.Exit(1)
	}
}

func setupLogging(cfg *config.Config) func() {
	level := log.ParseLevel(cfg.Log.Level)
	if cfg.Log.File == "" {
		log.InitLogger(level)
		return func() {}
	}

	fileLogger, err := log.NewFileLogger(cfg.Log.File, level)
	if err != nil {
		log.InitLogger(level)
		log.Warn("Logging to stdout only: %v", err)
		return func() {}
	}
	log.SetLogger(fileLogger.Logger)
	return func() { _ = fileLogger.Close() }
}

func sessionSweeper(sessions *session.Store, ttl time.Duration) func() {
	return func() {
		removed := sessions.Sweep(time.Now().Add(-ttl))
		if removed > 0 {
			log.Info("Swept %d idle sessions, %d left", removed, sessions.Len())
		}
	}
}

// runWithComponents runs the bot until ctx is done or a component fails,
// then shuts everything down.
func runWithComponents(ctx context.Context, cfg *config.Config, c components) error {
	if c.sweep != nil {
		if _, err := c.cron.AddFunc(cfg.Session.SweepCron, c.sweep); err != nil {
			return err
		}
	}
	c.cron.Start()

	errCh := make(chan error, 2)
	go func() {
		log.Info("HTTP server listening on %s", cfg.HTTP.Addr)
		if err := c.http.ListenAndServe(cfg.HTTP.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if c.updates != nil {
		go func() {
			if err := c.updates(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down")
	case runErr = <-errCh:
		log.Error("Component failed: %v", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := c.http.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown: %v", err)
	}
	select {
	case <-c.cron.Stop().Done():
	case <-shutdownCtx.Done():
	}
	return runErr
}
