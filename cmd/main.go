package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agrotrace/internal/handlers"
	"agrotrace/internal/hub"
	"agrotrace/internal/ledger"
	"agrotrace/internal/logger"
	"agrotrace/internal/mqtt"
	"agrotrace/internal/poller"
	"agrotrace/internal/repository"
	"agrotrace/internal/repository/db"
	"agrotrace/internal/server"
	"agrotrace/internal/service"

	"github.com/spf13/viper"
)

const (
	defaultWatchdogTick  = 1 * time.Minute
	defaultPollTick      = 5 * time.Minute
	defaultLedgerTimeout = 15 * time.Second
)

func main() {
	// load config.yml first so the log level is configurable
	if err := loadConfig(); err != nil {
		fallback := logger.Get(logger.InfoLevel)
		fallback.Fatalw("error reading config", "err", err)
	}

	log := logger.Get(viper.GetString("log.level"))

	// open DB
	database, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := database.Close(); cerr != nil {
			log.Fatalw("failed to close sqlite", "err", cerr)
		}
	}()

	// wire dependencies
	repos := repository.NewRepository(database)
	broadcast := hub.New(viper.GetInt("hub.buffer"), log)
	ledgerClient := ledger.NewHTTPClient(viper.GetString("ledger.base_url"), ledgerTimeout())
	services := service.NewService(repos, broadcast, ledgerClient, serviceConfig(), log)
	apiHandler := handlers.NewHandler(services, broadcast, log)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// telemetry producers
	consumer := startMQTT(services, log)
	if consumer != nil {
		defer consumer.Close()
	}
	startPoller(ctx, repos, services, log)

	// background loops
	go services.Watchdog.Run(ctx, durationOr("watchdog.interval", defaultWatchdogTick))
	go services.LedgerSync.Run(ctx)

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	return viper.ReadInConfig()
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "agrotrace.db")
		dbPath = "agrotrace.db"
	}
	return db.InitDB(dbPath)
}

func serviceConfig() service.Config {
	return service.Config{
		DedupWindow: viper.GetDuration("alerts.dedup_window"),
		Ingest: service.IngestConfig{
			PersistAttempts: viper.GetInt("ingest.persist_attempts"),
			PersistDelay:    viper.GetDuration("ingest.persist_delay"),
		},
		Sync: service.SyncConfig{
			Workers:         viper.GetInt("sync.workers"),
			MaxAttempts:     viper.GetInt("sync.max_attempts"),
			BaseDelay:       viper.GetDuration("sync.base_delay"),
			MaxDelay:        viper.GetDuration("sync.max_delay"),
			PollInterval:    viper.GetDuration("sync.poll_interval"),
			ConfirmInterval: viper.GetDuration("sync.confirm_interval"),
		},
		SigningKey: viper.GetString("auth.signing_key"),
		TokenTTL:   viper.GetDuration("auth.token_ttl"),
	}
}

func ledgerTimeout() time.Duration {
	return durationOr("ledger.timeout", defaultLedgerTimeout)
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if d := viper.GetDuration(key); d > 0 {
		return d
	}
	return fallback
}

// startMQTT connects the broker consumer when a broker is configured.
// Ingestion still works without it: HTTP push and the poller share the
// same Ingestor.
func startMQTT(services *service.Service, log *logger.Logger) *mqtt.Consumer {
	broker := viper.GetString("mqtt.broker")
	if broker == "" {
		log.Infow("mqtt.broker not set; MQTT ingestion disabled")
		return nil
	}

	consumer, err := mqtt.NewConsumer(mqtt.Config{
		Broker:   broker,
		ClientID: viper.GetString("mqtt.client_id"),
		Username: viper.GetString("mqtt.username"),
		Password: viper.GetString("mqtt.password"),
		Topic:    viper.GetString("mqtt.topic"),
	}, services.Ingestor, log)
	if err != nil {
		log.Fatalw("failed to connect mqtt broker", "broker", broker, "err", err)
	}
	return consumer
}

// startPoller runs the pull-based producer when a gateway URL is configured.
func startPoller(ctx context.Context, repos *repository.Repository, services *service.Service, log *logger.Logger) {
	baseURL := viper.GetString("poll.base_url")
	if baseURL == "" {
		log.Infow("poll.base_url not set; scheduled polling disabled")
		return
	}

	provider := poller.NewHTTPProvider(baseURL, durationOr("poll.timeout", defaultLedgerTimeout))
	p := poller.New(provider, repos.Sensors, services.Ingestor, log)
	go p.Run(ctx, durationOr("poll.interval", defaultPollTick))
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
