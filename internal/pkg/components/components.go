package components

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"bank-api/internal/actor"
	"bank-api/internal/api/handlers"
	"bank-api/internal/api/routes"
	"bank-api/internal/config"
	"bank-api/internal/domain/money"
	"bank-api/internal/domain/rates"
	"bank-api/internal/infrastructure/events"
	"bank-api/internal/infrastructure/messaging"
	"bank-api/internal/infrastructure/messaging/kafka"
	"bank-api/internal/pkg/logging"
	"bank-api/internal/registry"
	"bank-api/internal/storage"

	"github.com/gin-gonic/gin"
)

// Container holds all application components and their dependencies.
type Container struct {
	Config         *config.Config
	Storage        *storage.Pool
	Rates          *rates.Table
	Refresher      *rates.Refresher
	EventBroker    *events.Broker
	EventPublisher messaging.EventPublisher
	Registry       *registry.Registry
	Router         *gin.Engine
	Server         *http.Server

	refresherCancel context.CancelFunc
}

var (
	instance     *Container
	instanceOnce sync.Once
	instanceErr  error
)

// GetInstance returns the singleton container instance. Uses sync.Once
// so it's only assembled once per process.
func GetInstance() (*Container, error) {
	instanceOnce.Do(func() {
		instance, instanceErr = newContainer()
	})
	return instance, instanceErr
}

// New creates and initializes all application components. Kept as a
// thin alias over GetInstance for callers that don't care about the
// singleton wiring.
func New() (*Container, error) {
	return GetInstance()
}

func newContainer() (*Container, error) {
	c := &Container{}

	if err := c.initConfig(); err != nil {
		return nil, fmt.Errorf("failed to initialize config: %w", err)
	}
	if err := c.initLogger(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := c.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if err := c.initRates(); err != nil {
		return nil, fmt.Errorf("failed to initialize rates table: %w", err)
	}
	if err := c.initEventBroker(); err != nil {
		return nil, fmt.Errorf("failed to initialize event broker: %w", err)
	}
	if err := c.initEventPublisher(); err != nil {
		return nil, fmt.Errorf("failed to initialize event publisher: %w", err)
	}
	if err := c.initRegistry(); err != nil {
		return nil, fmt.Errorf("failed to initialize actor registry: %w", err)
	}
	if err := c.initServer(); err != nil {
		return nil, fmt.Errorf("failed to initialize server: %w", err)
	}

	logging.Info("All components initialized successfully", nil)
	return c, nil
}

func (c *Container) initConfig() error {
	c.Config = config.Load()
	return nil
}

func (c *Container) initLogger() error {
	logging.Init(c.Config)
	logging.Info("Logger initialized", map[string]interface{}{
		"level": c.Config.Logging.Level,
	})
	return nil
}

// initStorage wires the sharded worker pool to the backend selected by
// STORAGE_BACKEND ("file", the default, or "postgres").
func (c *Container) initStorage() error {
	var backend storage.Backend
	switch c.Config.Storage.Backend {
	case "postgres":
		b, err := storage.NewPostgresBackend(context.Background(), c.Config.Storage.PostgresDSN)
		if err != nil {
			return fmt.Errorf("postgres backend: %w", err)
		}
		backend = b
	default:
		b, err := storage.NewFileBackend(c.Config.Storage.BaseFolder)
		if err != nil {
			return fmt.Errorf("file backend: %w", err)
		}
		backend = b
	}

	c.Storage = storage.NewPool(c.Config.Storage.Workers, backend)
	logging.Info("Storage pool initialized", map[string]interface{}{
		"backend": c.Config.Storage.Backend,
		"workers": c.Config.Storage.Workers,
	})
	return nil
}

// initRates seeds the process-wide rates table and starts its
// refresher. There is no external rate feed in this deployment, so
// fetch simply re-seeds from the same configured table on every tick —
// the refresher still exercises the full refresh/persist path (a real
// feed would replace only this closure).
func (c *Container) initRates() error {
	c.Rates = rates.New(c.Config.Rates.SeedTable, c.Config.Rates.PivotCurrency)

	fetch := func(_ context.Context) (rates.Snapshot, error) {
		snap := make(rates.Snapshot, len(c.Config.Rates.SeedTable))
		for code, rate := range c.Config.Rates.SeedTable {
			snap[code] = rate
		}
		return snap, nil
	}

	c.Refresher = rates.NewRefresher(c.Rates, c.Config.Rates.RefreshInterval, c.Config.Storage.ExchangeFolder, fetch, c.Storage)

	ctx, cancel := context.WithCancel(context.Background())
	c.refresherCancel = cancel
	go c.Refresher.Run(ctx)

	logging.Info("Rates table initialized", map[string]interface{}{
		"pivot":    c.Config.Rates.PivotCurrency,
		"interval": c.Config.Rates.RefreshInterval.String(),
	})
	return nil
}

func (c *Container) initEventBroker() error {
	c.EventBroker = events.GetBroker()
	logging.Info("Event broker initialized", nil)
	return nil
}

// initEventPublisher sets up the Kafka event publisher, falling back to
// a no-op when Kafka is disabled or unreachable so the process can
// still start.
func (c *Container) initEventPublisher() error {
	if os.Getenv("KAFKA_ENABLED") == "false" {
		logging.Info("Kafka disabled, using no-op event publisher", nil)
		c.EventPublisher = messaging.NewNoOpEventPublisher()
		return nil
	}

	kafkaConfig := kafka.NewConfigFromEnv()
	publisher, err := messaging.NewKafkaEventPublisher(kafkaConfig)
	if err != nil {
		logging.Warn("Failed to initialize Kafka, using no-op event publisher", map[string]interface{}{
			"error": err.Error(),
		})
		c.EventPublisher = messaging.NewNoOpEventPublisher()
		return nil
	}

	c.EventPublisher = publisher
	logging.Info("Kafka event publisher initialized", map[string]interface{}{
		"brokers": kafkaConfig.Brokers,
	})
	return nil
}

// initRegistry builds the actor registry. Every spawned actor shares
// the same storage pool, rates table (as its money.Converter) and
// default account options; OnApplied fans every persisted mutation out
// to the SSE broker and the Kafka publisher in one place, replacing the
// per-handler event construction the teacher used.
func (c *Container) initRegistry() error {
	defaultOptions := registry.DefaultOptionsFor(c.Config.Account.DefaultCurrency, c.Config.Account.DefaultLimit)

	c.Registry = registry.New(func(accountID int) actor.Deps {
		return actor.Deps{
			Storage:        c.Storage,
			Converter:      c.Rates,
			AccountFolder:  c.Config.Storage.AccountFolder,
			IdleTimeout:    c.Config.Actor.IdleTimeout,
			DefaultOptions: defaultOptions,
			OnApplied: func(accountID int, ops []money.Operation) {
				c.EventBroker.PublishOperations(accountID, ops)
				for _, op := range ops {
					event := messaging.OperationCompletedEvent{
						AccountID: accountID,
						Type:      op.Type,
						Status:    op.Status,
						Data:      op.Data,
						Timestamp: op.DateTime,
					}
					if err := c.EventPublisher.PublishOperationCompleted(event); err != nil {
						logging.Warn("failed to publish operation event", map[string]interface{}{
							"account_id": accountID,
							"error":      err.Error(),
						})
					}
				}
			},
		}
	})

	logging.Info("Actor registry initialized", nil)
	return nil
}

// initServer sets up the HTTP server with all middleware and routes.
func (c *Container) initServer() error {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	c.Router = gin.Default()

	routes.RegisterRoutes(c.Router, c.Config, handlers.Dependencies{
		Registry:  c.Registry,
		Publisher: c.EventPublisher,
		Rates:     c.Rates,
	})

	c.Server = &http.Server{
		Addr:           c.Config.Server.Host + ":" + c.Config.Server.Port,
		Handler:        c.Router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	logging.Info("HTTP server configured", map[string]interface{}{
		"address": c.Server.Addr,
	})
	return nil
}

// Start begins serving HTTP requests and blocks until a shutdown
// signal arrives.
func (c *Container) Start() error {
	logging.Info("Starting HTTP server", map[string]interface{}{
		"address": c.Server.Addr,
	})

	go func() {
		if err := c.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("Server failed to start", err, nil)
			os.Exit(1)
		}
	}()

	c.waitForShutdown()
	return nil
}

func (c *Container) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info("Shutting down server...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", err, nil)
	}

	logging.Info("Server shutdown complete", nil)
}

// Shutdown gracefully stops every long-running component.
func (c *Container) Shutdown(ctx context.Context) error {
	if err := c.Server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if c.refresherCancel != nil {
		c.refresherCancel()
	}

	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			logging.Error("Failed to close event publisher", err, nil)
		}
	}

	return nil
}

// GetConfig returns the configuration.
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// GetRouter returns the Gin router.
func (c *Container) GetRouter() *gin.Engine {
	return c.Router
}

// GetEventPublisher returns the event publisher.
func (c *Container) GetEventPublisher() messaging.EventPublisher {
	return c.EventPublisher
}

// GetRegistry returns the actor registry.
func (c *Container) GetRegistry() *registry.Registry {
	return c.Registry
}
