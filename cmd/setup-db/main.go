package main

import (
	"context"
	"flag"
	"log"
	"os"

	"tendersum/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	migration := flag.String("migration", "migrations/001_init.sql", "path to the schema SQL file")
	flag.Parse()

	_ = godotenv.Load(".env")
	cfg := config.Load()

	sqlBytes, err := os.ReadFile(*migration)
	if err != nil {
		log.Fatal("read migration: ", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal("connect postgres: ", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, string(sqlBytes)); err != nil {
		log.Fatal("apply migration: ", err)
	}
	log.Printf("applied %s", *migration)
}
