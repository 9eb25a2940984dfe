package main

import (
	"context"
	"log"
	"time"

	"tendersum/internal/activities"
	"tendersum/internal/config"
	"tendersum/internal/storage"
	"tendersum/internal/workflows"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)

	var store storage.SummaryStore
	if cfg.StoreBackend == "memory" {
		store = storage.NewMemoryStore()
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		db, err := storage.NewDB(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatal(err)
		}
		defer db.Close()
		store = storage.NewPostgresStore(db)
	}

	a, err := activities.New(cfg, store)
	if err != nil {
		log.Fatal(err)
	}
	activities.Register(w, a)

	log.Printf("tendersum worker listening on %s queue=%s summary_providers=%q", cfg.TemporalAddress, cfg.TemporalTaskQueue, cfg.SummaryProviders)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatal(err)
	}
}
