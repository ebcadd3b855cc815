package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/terrasense/agriops/internal/activity"
	"github.com/terrasense/agriops/internal/catalog"
	"github.com/terrasense/agriops/internal/eventbus"
	"github.com/terrasense/agriops/internal/ngsi"
	"github.com/terrasense/agriops/internal/seed"
	"github.com/terrasense/agriops/internal/server"
	"github.com/terrasense/agriops/internal/wire"
	"github.com/terrasense/agriops/internal/worker"

	_ "modernc.org/sqlite"
)

func syncInterval() time.Duration {
	if v := os.Getenv("SYNC_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var repo catalog.Repository
	var auditStore activity.Store
	if brokerURL := os.Getenv("BROKER_URL"); brokerURL != "" {
		broker := ngsi.NewClient(brokerURL, os.Getenv("NGSI_TENANT"))
		repo = broker
		log.Printf("using context broker at %s", brokerURL)

		// Optional local mirror: reads come from SQLite, kept fresh by
		// the sync worker; mutations still go to the broker.
		if cacheDSN := os.Getenv("CACHE_DB"); cacheDSN != "" {
			db, err := sql.Open("sqlite", cacheDSN)
			if err != nil {
				log.Fatalf("opening cache database: %v", err)
			}
			defer db.Close()
			db.SetMaxOpenConns(1)

			cache := catalog.NewSQLiteStore(db)
			if err := cache.CreateTable(ctx); err != nil {
				log.Fatalf("creating cache schema: %v", err)
			}
			sync := worker.NewCatalogSyncWorker(broker, cache, syncInterval())
			if err := sync.SyncOnce(ctx); err != nil {
				log.Printf("initial catalog sync: %v", err)
			}
			go sync.Run(ctx)
			repo = catalog.NewMirror(broker, cache)
			log.Printf("mirroring catalog into %s", cacheDSN)

			audit := activity.NewSQLiteStore(db)
			if err := audit.CreateTable(ctx); err != nil {
				log.Fatalf("creating audit schema: %v", err)
			}
			auditStore = audit
		}
	} else {
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			dsn = "file:agriops.db"
		}
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			log.Fatalf("opening database: %v", err)
		}
		defer db.Close()
		db.SetMaxOpenConns(1)

		store := catalog.NewSQLiteStore(db)
		if err := store.CreateTable(ctx); err != nil {
			log.Fatalf("creating schema: %v", err)
		}
		if os.Getenv("SEED_DEMO") == "1" {
			if err := seed.Demo(ctx, store); err != nil {
				log.Fatalf("seeding demo data: %v", err)
			}
		}
		repo = store
		log.Printf("using local catalog at %s", dsn)

		audit := activity.NewSQLiteStore(db)
		if err := audit.CreateTable(ctx); err != nil {
			log.Fatalf("creating audit schema: %v", err)
		}
		auditStore = audit
	}
	if auditStore == nil {
		auditStore = activity.NewMemoryStore()
	}

	hub := wire.NewHub()
	bus := eventbus.New(256)
	bus.Subscribe("log", eventbus.NewLogConsumer())
	bus.Subscribe("audit", activity.NewRecorder(auditStore))
	bus.Subscribe("wire", hub)
	bus.Start(ctx)

	port := 8080
	if p := os.Getenv("PORT"); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	if err := server.Run(ctx, server.Config{
		Port:     port,
		Repo:     repo,
		Bus:      bus,
		Hub:      hub,
		Activity: auditStore,
	}); err != nil {
		log.Printf("server stopped: %v", err)
	}
	bus.Stop()
}
