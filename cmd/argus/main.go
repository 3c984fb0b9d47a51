package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lucid-vigil/argus/pkg/analytics"
	"github.com/lucid-vigil/argus/pkg/analytics/baseline"
	"github.com/lucid-vigil/argus/pkg/analytics/model"
	"github.com/lucid-vigil/argus/pkg/api"
	"github.com/lucid-vigil/argus/pkg/collector"
	"github.com/lucid-vigil/argus/pkg/config"
	"github.com/lucid-vigil/argus/pkg/events"
	"github.com/lucid-vigil/argus/pkg/logger"
	"github.com/lucid-vigil/argus/pkg/scheduler"
	"github.com/lucid-vigil/argus/pkg/storage"
)

func main() {
	// Load configuration first
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger based on config
	logger.InitLogger(cfg.LogLevel)

	log.Info().Msg("Argus analytics engine starting...")
	log.Info().Msgf("Configuration loaded: LogLevel=%s, APIPort=%s", cfg.LogLevel, cfg.APIPort)

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())

	// Set up a channel to listen for OS signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Goroutine to handle graceful shutdown
	go func() {
		sig := <-sigChan
		log.Info().Msgf("Received signal: %s. Shutting down gracefully...", sig)
		cancel()
	}()

	// Pick the persistence backend: file-backed when a data dir is
	// configured, in-memory otherwise.
	var modelRepo model.Repository
	var baselineRepo baseline.Repository
	if cfg.DataDir != "" {
		fileStore, err := storage.NewFileStore(log.Logger, cfg.DataDir)
		if err != nil {
			log.Fatal().Err(err).Str("data_dir", cfg.DataDir).Msg("Failed to open data directory")
		}
		// Watch blocks until shutdown, so it gets its own goroutine.
		go func() {
			if err := fileStore.Watch(ctx); err != nil {
				log.Warn().Err(err).Msg("Data directory watch unavailable, external edits will not be picked up")
			}
		}()
		modelRepo = fileStore
		baselineRepo = fileStore
	} else {
		memStore := storage.NewMemoryStore()
		modelRepo = memStore
		baselineRepo = memStore
		log.Info().Msg("No data_dir configured, using in-memory storage")
	}

	// Event bus carries analytics lifecycle events to subscribers.
	bus := events.NewEventBus(log.Logger, 100)
	bus.Start(ctx)

	engine := analytics.New(analytics.Options{
		Logger:        log.Logger,
		ModelRepo:     modelRepo,
		BaselineRepo:  baselineRepo,
		Bus:           bus,
		TrainingDelay: cfg.TrainingDelay(),
	})

	// Start API server in a goroutine
	server := api.NewServer(log.Logger, engine)
	go server.Start(cfg.APIPort)

	// Initialize and start the scheduler
	sched := scheduler.NewScheduler(log.Logger)

	if cfg.Collector.Enabled {
		ac := collector.NewActivityCollector(log.Logger, engine.Anomaly, cfg.Collector.EntityID)
		sched.Register(ac, cfg.CollectorInterval())
	}

	sched.Start(ctx)

	<-ctx.Done()

	sched.Wait()
	bus.Stop()

	log.Info().Msg("Argus analytics engine stopped.")
	time.Sleep(1 * time.Second) // Give some time for cleanup
}
