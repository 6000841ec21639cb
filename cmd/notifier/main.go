package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mdemirtas/tgtg-notifier/internal/bot"
	"github.com/mdemirtas/tgtg-notifier/internal/config"
	"github.com/mdemirtas/tgtg-notifier/internal/notifier"
	"github.com/mdemirtas/tgtg-notifier/internal/store"
	"github.com/mdemirtas/tgtg-notifier/internal/store/postgres"
	"github.com/mdemirtas/tgtg-notifier/internal/store/redisstore"
	"github.com/mdemirtas/tgtg-notifier/internal/store/sqlite"
	"github.com/mdemirtas/tgtg-notifier/internal/tgtg"
	"github.com/mdemirtas/tgtg-notifier/pkg/logger"
)

// Exit codes per failure kind so an external scheduler can alert
// differently on credentials trouble.
const (
	exitFailure      = 1
	exitAuthRequired = 2
)

func main() {
	once := flag.Bool("once", false, "run a single check cycle and exit (cron mode)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(exitFailure)
	}
	logger.Init(cfg.Debug)
	logger.Log.Printf("Configuration loaded. Poll interval: %s, retention: %d days", cfg.PollInterval, cfg.RetentionDays)

	st, err := openStore(cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatalf("Failed to open dedup store: %v", err)
	}
	defer st.Close()

	telegramBot, err := bot.New(cfg.TelegramBotToken, cfg.TelegramChatID)
	if err != nil {
		logger.Log.Fatalf("Failed to initialize Telegram bot: %v", err)
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Log.Fatalf("Invalid TGTG_TIMEZONE %q: %v", cfg.Timezone, err)
	}

	client := tgtg.NewClient(cfg.CredentialsFile)
	n := notifier.New(client, telegramBot, st, location)

	if *once {
		runOnce(n, cfg)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Log.Printf("Received signal %v, initiating shutdown...", sig)
		cancel()
	}()

	handler := bot.NewHandler(telegramBot, st, func(ctx context.Context) (string, error) {
		result, err := n.RunCycle(ctx, false)
		return result.String(), err
	}, location)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		pollWorker(ctx, n, cfg)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		botWorker(ctx, handler)
	}()

	logger.Log.Println("Notifier is now running. Press Ctrl+C to stop.")
	wg.Wait()
	logger.Log.Println("Shutdown complete")
}

func runOnce(n *notifier.Notifier, cfg *config.Config) {
	result, err := n.RunCycle(context.Background(), cfg.SendSummary)
	if err != nil {
		if errors.Is(err, tgtg.ErrAuthRequired) {
			logger.Log.Errorf("Cycle aborted, re-authentication needed (run tgtgctl auth): %v", err)
			os.Exit(exitAuthRequired)
		}
		logger.Log.Errorf("Cycle failed: %v", err)
		os.Exit(exitFailure)
	}
	logger.Log.Printf("Cycle complete: %s", result)
}

func pollWorker(ctx context.Context, n *notifier.Notifier, cfg *config.Config) {
	logger.Log.Printf("Poll worker started with %s interval", cfg.PollInterval)
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	lastPurge := time.Now()
	runCycle(ctx, n, cfg)

	for {
		select {
		case <-ctx.Done():
			logger.Log.Println("Poll worker shutting down...")
			return
		case <-ticker.C:
			runCycle(ctx, n, cfg)

			if time.Since(lastPurge) >= 24*time.Hour {
				if deleted, err := n.Purge(cfg.Retention()); err != nil {
					logger.Log.Errorf("Failed to purge old records: %v", err)
				} else if deleted > 0 {
					logger.Log.Printf("Purged %d records older than %d days", deleted, cfg.RetentionDays)
				}
				lastPurge = time.Now()
			}
		}
	}
}

func runCycle(ctx context.Context, n *notifier.Notifier, cfg *config.Config) {
	result, err := n.RunCycle(ctx, cfg.SendSummary)
	if err != nil {
		if errors.Is(err, tgtg.ErrAuthRequired) {
			logger.Log.Errorf("Cycle aborted, re-authentication needed (run tgtgctl auth): %v", err)
			return
		}
		logger.Log.Errorf("Cycle failed: %v", err)
		return
	}
	logger.Log.Printf("Cycle complete: %s", result)
}

func botWorker(ctx context.Context, handler *bot.Handler) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := handler.Bot.API.GetUpdatesChan(u)
	logger.Log.Println("Bot is now listening for commands")

	for {
		select {
		case <-ctx.Done():
			logger.Log.Println("Bot worker shutting down...")
			return
		case update := <-updates:
			if err := handler.HandleUpdate(ctx, update); err != nil {
				logger.Log.Errorf("Error handling command: %v", err)
			}
		}
	}
}

func openStore(databaseURL string) (store.Store, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return postgres.New(databaseURL)
	case strings.HasPrefix(databaseURL, "redis://"), strings.HasPrefix(databaseURL, "rediss://"):
		return redisstore.New(databaseURL)
	default:
		return sqlite.New(databaseURL)
	}
}
