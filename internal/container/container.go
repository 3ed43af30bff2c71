package container

import (
	"context"
	"fmt"
	"log"

	"dixonq/adapters/postgres"
	"dixonq/internal/config"
	"dixonq/internal/errors"
	"dixonq/internal/migration"
	"dixonq/internal/streams"
	"dixonq/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config

	// Infrastructure, nil when no ledger is configured
	DB *sqlx.DB

	// Repositories (data access layer)
	EvaluationRepo ports.EvaluationRepository

	Registry *streams.Registry
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	return &Container{Config: cfg}, nil
}

// OpenDatabase connects to the configured ledger and applies migrations
func OpenDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	if !cfg.Enabled() {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}

	db, err := sqlx.ConnectContext(ctx, cfg.Driver, cfg.URL)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to database", err)
	}
	if cfg.Driver == "sqlite3" {
		// sqlite allows a single writer
		db.SetMaxOpenConns(1)
	}

	migrator := migration.NewRunner()
	if err := migrator.Run(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "database migration failed")
	}
	log.Printf("[Container] %s ledger ready (schema %s)", cfg.Driver, migrator.Version())
	return db, nil
}

// InitWithDatabase wires the evaluation ledger onto db
func (c *Container) InitWithDatabase(db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}
	if err := db.Ping(); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}

	c.DB = db
	c.EvaluationRepo = postgres.NewEvaluationRepository(db)
	return nil
}

// InitRegistry builds the stream registry from the classifier defaults.
// Call it after InitWithDatabase so evaluations are recorded.
func (c *Container) InitRegistry() error {
	opts := []streams.Option{streams.WithMaxStreams(c.Config.Streams.MaxStreams)}
	if c.EvaluationRepo != nil {
		opts = append(opts, streams.WithRecorder(c.EvaluationRepo))
	}

	registry, err := streams.NewRegistry(streams.Settings{
		Capacity: c.Config.Classifier.WindowSize,
		Level:    c.Config.Classifier.Confidence,
		Policy:   c.Config.Classifier.Policy,
	}, opts...)
	if err != nil {
		return err
	}
	c.Registry = registry
	return nil
}

// Shutdown releases the database connection
func (c *Container) Shutdown(ctx context.Context) error {
	if c.DB == nil {
		return nil
	}
	log.Printf("[Container] closing database connection")
	return c.DB.Close()
}
