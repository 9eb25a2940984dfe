package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"tendersum/internal/api"
	"tendersum/internal/config"
	"tendersum/internal/storage"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()

	store, closeStore, err := buildStore(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer closeStore()

	tc, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		log.Fatal(err)
	}
	defer tc.Close()

	h, err := api.NewServer(cfg, store, tc)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("tendersum api listening on %s store=%s summary_providers=%q", cfg.APIAddr, cfg.StoreBackend, cfg.SummaryProviders)
	if err := http.ListenAndServe(cfg.APIAddr, h.Routes()); err != nil {
		log.Fatal(err)
	}
}

func buildStore(cfg config.Config) (storage.SummaryStore, func(), error) {
	if cfg.StoreBackend == "memory" {
		return storage.NewMemoryStore(), func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, nil, err
	}
	return storage.NewPostgresStore(db), db.Close, nil
}
