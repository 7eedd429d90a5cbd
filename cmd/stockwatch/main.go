package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"stockwatch/internal/alert"
	"stockwatch/internal/config"
	"stockwatch/internal/notify"
	"stockwatch/internal/quote"
	"stockwatch/internal/scheduler"
	"stockwatch/internal/server"
	"stockwatch/internal/store"
	"stockwatch/internal/watchlist"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("load .env: %v", err)
	}
	log.Info("stockwatch starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	// Init store
	var st store.Store
	if cfg.Database.SQLitePath != "" {
		ss, err := store.NewSQLiteStore(cfg.Database.SQLitePath)
		if err != nil {
			log.Warnf("init sqlite store failed, using memory: %v", err)
			st = store.NewMemoryStore()
		} else {
			st = ss
			defer ss.Close()
		}
	} else {
		st = store.NewMemoryStore()
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init quote source
	var src quote.Source
	switch cfg.Quote.Source {
	case "broker":
		src = quote.NewBrokerSource(cfg.Quote.BrokerBaseURL, cfg.Quote.BrokerAPIKey, cfg.Proxy)
	case "stream":
		stream := quote.NewStreamSource(cfg.Quote.StreamURL, cfg.Quote.StreamAPIKey)
		stream.Start(ctx)
		defer stream.Stop()
		src = stream
	default:
		src = quote.NewMockSource()
	}
	log.Infof("quote source: %s", src.Name())

	// Notification fan-out
	hub := notify.NewHub()
	toasts, err := notify.NewToastNotifier(hub, 100)
	if err != nil {
		log.Fatalf("init toast notifier: %v", err)
	}
	perm := notify.ParsePermission(cfg.Notifications.Desktop)
	if _, err := notify.NewDesktopNotifier(hub, perm, nil, nil); err != nil {
		log.Fatalf("init desktop notifier: %v", err)
	}

	// Engines
	engine := alert.NewEngine(st, src, hub, nil, cfg.AlertInterval())
	engine.Start(ctx)
	defer engine.Stop()

	ws := watchlist.NewSync(st, src, hub, cfg.Watchlist.PageSize, cfg.WatchlistInterval(), cfg.BrokerSyncDelay())
	ws.Start(ctx)
	defer ws.Stop()

	// A streaming source needs to know which symbols to follow.
	if stream, ok := src.(*quote.StreamSource); ok {
		for _, wl := range ws.Watchlists() {
			for _, e := range wl.Stocks {
				if err := stream.Subscribe(e.Symbol); err != nil {
					log.Warnf("stream subscribe %s: %v", e.Symbol, err)
				}
			}
		}
	}

	// Housekeeping scheduler
	retention := time.Duration(cfg.Alerts.RetentionDays) * 24 * time.Hour
	sched := scheduler.NewScheduler(st, hub, retention)
	if err := sched.RegisterAll(cfg.Alerts.CleanupCron); err != nil {
		log.Fatalf("register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// HTTP API
	srv := server.New(cfg.Server.ListenAddr, st, engine, ws, src, toasts)
	srv.Start()

	log.Info("stockwatch is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnf("http shutdown: %v", err)
	}
	cancel()
	log.Info("stockwatch stopped")
}
