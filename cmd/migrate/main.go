package main

import (
	"context"
	"log"
	"os"
	"time"

	"dixonq/internal/config"
	"dixonq/internal/container"

	"github.com/joho/godotenv"
)

// migrate applies the evaluation ledger schema to DATABASE_URL, or to the
// URL given as the only argument.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if len(os.Args) > 2 {
		log.Fatal("Usage: migrate [database_url]")
	}
	if len(os.Args) == 2 {
		cfg.Database.URL = os.Args[1]
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	log.Printf("Starting migration on %s database", cfg.Database.Driver)
	db, err := container.OpenDatabase(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	defer db.Close()

	log.Println("Migration complete")
}
