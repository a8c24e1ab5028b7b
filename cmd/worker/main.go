package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"premarket-access-be/internal/bootstrap"
	"premarket-access-be/internal/config"
	"premarket-access-be/internal/pkg/logger"
	"premarket-access-be/internal/tracer"
	"premarket-access-be/pkg/database"
)

// The worker runs scheduled charge timeouts from the asynq queue and the
// periodic sweep that catches any timeout whose task was lost.
func main() {
	cfg := config.Load()

	shutdownTracer := tracer.InitTracer(cfg.Tracing)
	defer shutdownTracer(context.Background())

	gormDB, err := database.NewGormDB(cfg.Database.Driver, cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	container, err := bootstrap.NewContainer(gormDB, cfg, logger.NewIsolatedLogger(cfg.App.WorkerLogFilePath))
	if err != nil {
		log.Fatalf("Failed to bootstrap container: %v", err)
	}
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go container.Sweeper.Run(ctx)
	go func() {
		if err := container.Relay.Run(ctx); err != nil {
			log.Printf("Background relay error: %v", err)
		}
	}()

	srv, mux := container.NewTimeoutServer(cfg.App.WorkerConcurrency)
	if err := srv.Start(mux); err != nil {
		log.Fatalf("Failed to start timeout worker: %v", err)
	}
	log.Printf("✅ Timeout worker running (concurrency %d)", cfg.App.WorkerConcurrency)

	<-ctx.Done()
	srv.Shutdown()
}
