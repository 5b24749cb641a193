package main

import (
	"context"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"surveyprep/adapters/postgres"
	"surveyprep/internal/config"
	"surveyprep/internal/errors"
	"surveyprep/ports"
	"surveyprep/ui"
)

func main() {
	// .env is optional; environment variables win either way.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	history, err := initHistory(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize run history: %v", err)
	}

	server, err := ui.NewServer(cfg, history)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	if err := server.Start(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}

// initHistory connects the optional run-history store. No DATABASE_URL
// means history stays disabled.
func initHistory(cfg *config.Config) (ports.RunRepository, error) {
	if cfg.Database.URL == "" {
		log.Println("DATABASE_URL not set, run history disabled")
		return nil, nil
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	if err := postgres.Migrate(context.Background(), db); err != nil {
		return nil, errors.Wrap(err, "failed to migrate run history schema")
	}
	return postgres.NewRunRepository(db), nil
}
