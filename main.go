package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"dixonq/internal/config"
	"dixonq/internal/container"
	"dixonq/internal/logging"
	"dixonq/ui"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	logger := logging.FromEnv("Main")

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appContainer, err := container.New(appConfig)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if appConfig.Database.Enabled() {
		db, err := container.OpenDatabase(ctx, appConfig.Database)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		if err := appContainer.InitWithDatabase(db); err != nil {
			log.Fatalf("Failed to initialize container: %v", err)
		}
	} else {
		logger.Warnf("DATABASE_URL not set, evaluations will not be persisted")
	}
	defer appContainer.Shutdown(context.Background())

	if err := appContainer.InitRegistry(); err != nil {
		log.Fatalf("Failed to create stream registry: %v", err)
	}
	defaults := appContainer.Registry.Defaults()
	logger.Infof("stream defaults: window=%d confidence=%s policy=%s",
		defaults.Capacity, defaults.Level, defaults.Policy)

	gin.SetMode(appConfig.Server.GinMode)
	server := ui.NewServer(appContainer.Registry, appContainer.EvaluationRepo)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(":" + appConfig.Server.Port)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	case <-ctx.Done():
		logger.Infof("shutting down (timeout %s)", appConfig.Server.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), appConfig.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("graceful shutdown failed: %v", err)
		}
	}
}
