// Flostat Core - Water Infrastructure Control Service
//
// This is the main entry point for the Flostat core service. It drives
// the sump/pump/valve/tank control engine, the schedule lifecycle and
// the dashboard-facing HTTP API over MQTT, Redis, SQLite, InfluxDB and FCM.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/syedsohail-123/flostat-dashbaord-sub001/migrations"

	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/api"
	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/audit"
	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/control"
	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/device"
	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/infrastructure/config"
	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/infrastructure/database"
	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/infrastructure/logging"
	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/infrastructure/mqtt"
	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/infrastructure/redis"
	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/notify"
	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/schedule"
	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/telemetry"
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
	log.Info("starting Flostat core",
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

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Connect to Redis for live device status
	redisClient := redis.NewClient(cfg.Redis)
	defer func() {
		log.Info("closing Redis connection")
		if closeErr := redisClient.Close(); closeErr != nil {
			log.Error("error closing Redis", "error", closeErr)
		}
	}()
	if pingErr := redis.Ping(ctx, redisClient); pingErr != nil {
		return fmt.Errorf("connecting to Redis: %w", pingErr)
	}
	log.Info("Redis connected", "addr", cfg.Redis.Addr)

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
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

	// Connect to InfluxDB for level history (optional)
	levels, err := telemetry.Connect(cfg.InfluxDB)
	if err != nil {
		if !errors.Is(err, telemetry.ErrDisabled) {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		log.Info("level history disabled")
		levels = nil
	} else {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := levels.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		levels.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"bucket", cfg.InfluxDB.Bucket,
		)
	}

	// Repositories and stores
	catalog := device.NewSQLiteCatalog(db.DB)
	blocks := device.NewSQLiteBlocks(db.DB)
	auditRepo := audit.NewSQLiteRepository(db.DB)
	scheduleRepo := schedule.NewSQLiteRepository(db.DB)
	statusStore := device.NewRedisStatusStore(redisClient)

	// Push alerts (optional; disabled notifier is a cheap no-op)
	notifier := notify.NewFCMNotifier(cfg.FCM, notify.StaticTokenSource(cfg.FCM.Tokens), log)
	if cfg.FCM.Enabled {
		log.Info("FCM alerts enabled", "orgs", len(cfg.FCM.Tokens))
	} else {
		log.Info("FCM alerts disabled")
	}

	// Control plane
	thresholds := control.ThresholdPolicy{
		DefaultMin: cfg.Thresholds.DefaultMin,
		DefaultMax: cfg.Thresholds.DefaultMax,
	}
	publisher := control.NewStatusPublisher(
		statusStore, mqttClient, auditRepo, notifier, levelSink(levels), thresholds,
		log.With("component", "publisher"),
	)

	scheduleService := schedule.NewService(
		scheduleRepo, catalog, mqttClient, schedule.DefaultSafetyOffset(),
		log.With("component", "schedule"),
	)

	engine := control.NewEngine(
		catalog, statusStore, control.NewModeResolver(blocks), publisher,
		scheduleService, thresholds, log.With("component", "control"),
	)

	// Hardware schedule acknowledgements
	ackConsumer := schedule.NewAckConsumer(
		scheduleRepo, mqttClient, byte(cfg.MQTT.QoS),
		log.With("component", "schedule-ack"),
	)
	if ackErr := ackConsumer.Start(); ackErr != nil {
		return fmt.Errorf("subscribing to schedule acks: %w", ackErr)
	}
	log.Info("schedule ack consumer started")

	// HTTP API
	apiServer, err := api.New(api.Deps{
		Config:    cfg.Server,
		Logger:    log.With("component", "api"),
		Engine:    engine,
		Status:    statusStore,
		Catalog:   catalog,
		Blocks:    blocks,
		Schedules: scheduleService,
		Audit:     auditRepo,
		Transport: mqttClient,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, levels); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT
	// 4. Redis
	// 5. Database

	log.Info("Flostat core stopped")
	return nil
}

// levelSink converts a possibly-nil recorder into the publisher's sink.
// A nil *LevelRecorder inside a non-nil interface would dodge the
// publisher's nil check, so the conversion happens here.
func levelSink(levels *telemetry.LevelRecorder) control.LevelSink {
	if levels == nil {
		return nil
	}
	return levels
}

// getConfigPath returns the configuration file path.
// Uses FLOSTAT_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("FLOSTAT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - levels: Level recorder to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, levels *telemetry.LevelRecorder) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if levels != nil {
		if err := levels.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
