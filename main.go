package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/recoverybot/internal/achievements"
	"github.com/example/recoverybot/internal/bot"
	"github.com/example/recoverybot/internal/config"
	"github.com/example/recoverybot/internal/content"
	"github.com/example/recoverybot/internal/database"
	"github.com/example/recoverybot/internal/profile"
	"github.com/example/recoverybot/internal/scheduler"
	"github.com/example/recoverybot/internal/vault"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func main() {
	cfg := config.Load()
	if cfg.TelegramToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN environment variable is not set")
	}

	db, err := database.Connect(database.Options{
		Type: cfg.DBType,
		Path: cfg.DBPath,
		URL:  cfg.DatabaseURL,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	profileRepo := database.NewProfileRepository(db)
	store := profile.NewStore(profileRepo)

	// Content modules come from the network when a base URL is configured,
	// with the database cache as the offline fallback; otherwise straight
	// from local files.
	var source content.Source
	if cfg.ContentBaseURL != "" {
		source = content.NewHTTPSource(cfg.ContentBaseURL, database.NewContentCacheRepository(db))
	} else {
		source = content.FileSource{Dir: cfg.ContentDir}
	}
	registry := content.NewRegistry(source)

	var vaultClient *vault.Client
	if cfg.VaultAccount != "" {
		vaultClient = vault.NewClient(cfg.VaultEndpoint, cfg.VaultAccount)
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	b := bot.New(api, cfg, store, registry, achievements.New(), vaultClient, bot.NewTelegramBridge(api))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.SchedulerEnabled {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Printf("Invalid timezone %q, falling back to UTC: %v", cfg.Timezone, err)
			loc = time.UTC
		}
		sched := scheduler.New(loc, profileRepo, store, b, cfg.NotifyStartHour, cfg.NotifyEndHour)
		sched.Start()
		defer sched.Stop()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("Received signal: %v", sig)
		cancel()
	}()

	log.Println("Bot started. Press Ctrl+C to stop.")
	if err := b.Start(ctx); err != nil && err != context.Canceled {
		log.Fatalf("Bot error: %v", err)
	}
	log.Println("Bot stopped successfully")
}
