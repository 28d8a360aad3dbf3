package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/factbot/internal/config"
	"github.com/example/factbot/internal/database"
	"github.com/example/factbot/internal/feed"
	"github.com/example/factbot/internal/notify"
	"github.com/example/factbot/internal/remote"
	"github.com/example/factbot/internal/scheduler"
	"github.com/example/factbot/internal/syncer"
	"github.com/go-co-op/gocron"
)

func main() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	store, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	if cfg.TelegramToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN environment variable is not set")
	}
	notifier, err := notify.New(cfg.TelegramToken, cfg.TelegramChatID)
	if err != nil {
		log.Fatalf("Failed to create notifier: %v", err)
	}
	if err := notifier.Start(); err != nil {
		log.Fatalf("Failed to start notifier: %v", err)
	}
	defer notifier.Stop()

	facts := database.NewFactRepository(store)
	merger := syncer.New(store)
	sched := scheduler.New(facts, notifier, scheduler.Config{
		SlotTimes: cfg.SlotTimes,
		Capacity:  cfg.Capacity,
		Language:  cfg.Language,
		Location:  cfg.Timezone,
	})
	reconciler := scheduler.NewReconciler(facts, notifier, cfg.Timezone)
	projector := feed.New(facts, cfg.Timezone)

	var client *remote.Client
	if cfg.RemoteBaseURL != "" {
		client = remote.New(cfg.RemoteBaseURL, cfg.RemoteAPIKey)
	}

	var lastSync time.Time
	syncAndFill := func() {
		if client != nil {
			batch, err := client.FetchContent(lastSync)
			if err != nil {
				log.Printf("Error fetching remote content: %v", err)
			} else {
				if err := merger.Merge(batch.Facts, batch.Categories, batch.Questions); err != nil {
					log.Printf("Error merging remote content: %v", err)
				} else {
					lastSync = time.Now()
				}
			}
		}

		report, err := sched.FillSchedule()
		if err != nil {
			log.Printf("Error filling schedule: %v", err)
			return
		}
		if report.PoolExhausted {
			log.Printf("Schedule filled to %d slots; %d left unfilled (no content)", report.Scheduled, report.Unfilled)
		} else if report.Scheduled > 0 {
			log.Printf("Scheduled %d new deliveries", report.Scheduled)
		}
	}

	reconcile := func() {
		pending, err := notifier.ListPending()
		if err != nil {
			log.Printf("Error listing pending notifications: %v", err)
			return
		}
		cleared, err := reconciler.SyncWithOS(pending)
		if err != nil {
			log.Printf("Error reconciling with notifier: %v", err)
			return
		}
		if cleared > 0 {
			log.Printf("Cleared %d stale schedule entries", cleared)
		}

		audit, err := reconciler.AuditDayCounts(len(cfg.SlotTimes))
		if err != nil {
			log.Printf("Error auditing day counts: %v", err)
			return
		}
		if !audit.Clean() {
			log.Printf("Schedule audit: %d over-counted days, %d under-counted days", len(audit.Excess), len(audit.Deficit))
		}
	}

	// Reconcile first, as an app resume would, then bring the schedule up
	// to capacity.
	reconcile()
	syncAndFill()

	cron := gocron.NewScheduler(cfg.Timezone)
	if _, err := cron.Every(cfg.SyncInterval).Do(syncAndFill); err != nil {
		log.Fatalf("Failed to schedule sync job: %v", err)
	}
	if _, err := cron.Every(15).Minutes().Do(reconcile); err != nil {
		log.Fatalf("Failed to schedule reconcile job: %v", err)
	}
	cron.StartAsync()
	defer cron.Stop()

	if items, err := projector.TodaysItems(cfg.Language); err == nil {
		log.Printf("Today's feed holds %d items", len(items))
	}

	log.Println("factbot started. Press Ctrl+C to stop.")
	sig := <-sigChan
	log.Printf("Received signal: %v, shutting down", sig)
}
