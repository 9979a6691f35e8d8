// userdir - user directory service
//
// This is the main entry point for the userdir daemon. It serves a REST
// API for user record management with pagination and search, and pushes
// change notifications to WebSocket subscribers (and optionally to an
// MQTT broker).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/pkarlsen/userdir/migrations"

	"github.com/pkarlsen/userdir/internal/api"
	"github.com/pkarlsen/userdir/internal/infrastructure/config"
	"github.com/pkarlsen/userdir/internal/infrastructure/database"
	"github.com/pkarlsen/userdir/internal/infrastructure/logging"
	"github.com/pkarlsen/userdir/internal/infrastructure/metrics"
	"github.com/pkarlsen/userdir/internal/infrastructure/mqtt"
	"github.com/pkarlsen/userdir/internal/user"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel the root context on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting userdir",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open the record store
	repo, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	// Seed demo data (no-op when the store already holds records)
	if cfg.Seed.Enabled {
		created, seedErr := user.Seed(ctx, repo, cfg.Seed.Count)
		if seedErr != nil {
			return fmt.Errorf("seeding demo data: %w", seedErr)
		}
		if created > 0 {
			log.Info("demo data seeded", "records", created)
		} else {
			log.Info("seeding skipped, store already has records")
		}
	}

	// Connect to the MQTT broker (optional event sink)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT disabled")
	}

	// Connect the metrics writer (optional)
	var metricsClient *metrics.Client
	if cfg.Metrics.Enabled {
		metricsClient, err = metrics.Connect(cfg.Metrics)
		if err != nil {
			return fmt.Errorf("connecting metrics writer: %w", err)
		}
		defer func() {
			log.Info("closing metrics writer")
			if closeErr := metricsClient.Close(); closeErr != nil {
				log.Error("error closing metrics writer", "error", closeErr)
			}
		}()
		log.Info("metrics writer connected",
			"url", cfg.Metrics.URL,
			"org", cfg.Metrics.Org,
			"bucket", cfg.Metrics.Bucket,
		)

		metricsClient.SetOnError(func(err error) {
			log.Error("metrics write error", "error", err)
		})
	} else {
		log.Info("metrics disabled")
	}

	// Start the API server
	server, err := api.New(api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Logger:  log,
		Repo:    repo,
		MQTT:    mqttClient,
		Metrics: metricsClient,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. Metrics writer (if enabled)
	// 3. MQTT (if enabled)
	// 4. Store

	log.Info("userdir stopped")
	return nil
}

// openStore opens the configured record store and returns it along with
// a cleanup function.
func openStore(ctx context.Context, cfg *config.Config, log *logging.Logger) (user.Repository, func(), error) {
	switch cfg.Storage.Driver {
	case "memory":
		log.Info("using in-memory store")
		return user.NewMemoryRepository(), func() {}, nil

	case "sqlite":
		db, err := database.Open(database.Config{
			Path:        cfg.Storage.SQLite.Path,
			WALMode:     cfg.Storage.SQLite.WALMode,
			BusyTimeout: cfg.Storage.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("opening database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close() //nolint:errcheck // already failing, close is best-effort
			return nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		log.Info("database connected", "path", cfg.Storage.SQLite.Path)

		closeStore := func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}
		return user.NewSQLiteRepository(db.DB), closeStore, nil

	default:
		// Config validation rejects unknown drivers; belt and braces.
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// getConfigPath returns the configuration file path.
// Uses USERDIR_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("USERDIR_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
