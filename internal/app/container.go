// Package app wires the application's dependencies together.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/taskflow-io/taskflow/internal/lifecycle/application/commands"
	"github.com/taskflow-io/taskflow/internal/lifecycle/application/queries"
	"github.com/taskflow-io/taskflow/internal/lifecycle/domain"
	"github.com/taskflow-io/taskflow/internal/lifecycle/engine"
	"github.com/taskflow-io/taskflow/internal/lifecycle/infrastructure/persistence"
	"github.com/taskflow-io/taskflow/internal/lifecycle/scheduler"
	"github.com/taskflow-io/taskflow/internal/shared/infrastructure/database"
	_ "github.com/taskflow-io/taskflow/internal/shared/infrastructure/database/postgres"
	_ "github.com/taskflow-io/taskflow/internal/shared/infrastructure/database/sqlite"
	"github.com/taskflow-io/taskflow/internal/shared/infrastructure/eventbus"
	"github.com/taskflow-io/taskflow/internal/shared/infrastructure/migrations"
	"github.com/taskflow-io/taskflow/internal/shared/infrastructure/outbox"
	"github.com/taskflow-io/taskflow/pkg/config"
)

// Container holds all application dependencies.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Infrastructure
	DBConn         database.Connection
	RedisClient    *redis.Client
	EventPublisher eventbus.Publisher
	UnitOfWork     *database.GenericUnitOfWork

	// Repositories
	Repository domain.Repository
	OutboxRepo outbox.Repository

	// Engine
	Propagator *engine.Propagator
	Locker     commands.ProjectLocker

	// Command handlers
	RunTickHandler       *commands.RunTickHandler
	CancelProjectHandler *commands.CancelProjectHandler
	CancelPhaseHandler   *commands.CancelPhaseHandler
	SeedDemoHandler      *commands.SeedDemoHandler

	// Query handlers
	StatusSummaryHandler *queries.ProjectStatusSummaryHandler

	// Background workers
	SchedulerDriver *scheduler.Driver
	OutboxProcessor *outbox.Processor
}

// NewContainer creates and initializes all application dependencies.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Container{
		Config: cfg,
		Logger: logger,
	}

	conn, err := database.NewConnection(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	c.DBConn = conn
	logger.Info("database connected", "driver", conn.Driver())

	if err := migrations.Run(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Redis is optional. Without it, project locks only serialize within
	// this process.
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("invalid redis URL: %w", err)
		}
		client := redis.NewClient(opt)
		if err := client.Ping(ctx).Err(); err != nil {
			if !cfg.IsDevelopment() {
				_ = conn.Close()
				return nil, fmt.Errorf("failed to connect to redis: %w", err)
			}
			logger.Warn("redis not available, using in-process project locks", "error", err)
			_ = client.Close()
		} else {
			c.RedisClient = client
			logger.Info("redis connected")
		}
	}

	if c.RedisClient != nil {
		c.Locker = scheduler.NewRedisLocker(c.RedisClient, cfg.LockTTL, logger)
	} else {
		c.Locker = scheduler.NewLocalLocker()
	}

	publisher, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, logger)
	if err != nil {
		if !cfg.IsDevelopment() {
			c.closePartial()
			return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		logger.Warn("RabbitMQ not available, events will be discarded", "error", err)
		c.EventPublisher = eventbus.NewNoopPublisher(logger)
	} else {
		c.EventPublisher = publisher
	}

	c.UnitOfWork = database.NewUnitOfWork(conn)
	c.Repository = persistence.NewRepository(conn)
	if conn.Driver() == database.DriverPostgres {
		c.OutboxRepo = outbox.NewPostgresRepository(conn)
	} else {
		c.OutboxRepo = outbox.NewSQLiteRepository(conn)
	}

	c.Propagator = engine.NewPropagator(logger)

	c.RunTickHandler = commands.NewRunTickHandler(c.Repository, c.OutboxRepo, c.Propagator, c.UnitOfWork, c.Locker, logger)
	c.CancelProjectHandler = commands.NewCancelProjectHandler(c.Repository, c.OutboxRepo, c.Propagator, c.UnitOfWork, c.Locker, logger)
	c.CancelPhaseHandler = commands.NewCancelPhaseHandler(c.Repository, c.OutboxRepo, c.Propagator, c.UnitOfWork, c.Locker, logger)
	c.SeedDemoHandler = commands.NewSeedDemoHandler(c.Repository, c.UnitOfWork)
	c.StatusSummaryHandler = queries.NewProjectStatusSummaryHandler(c.Repository)

	c.SchedulerDriver = scheduler.NewDriver(c.RunTickHandler, c.Repository, scheduler.DriverConfig{
		Interval:        cfg.TickInterval,
		TickTimeout:     cfg.TickTimeout,
		BreakerFailures: uint32(cfg.BreakerFailures),
		BreakerCooldown: cfg.BreakerCooldown,
	}, logger)

	c.OutboxProcessor = outbox.NewProcessor(c.OutboxRepo, c.EventPublisher, outbox.ProcessorConfig{
		PollInterval: cfg.OutboxPollInterval,
		BatchSize:    cfg.OutboxBatchSize,
		MaxRetries:   cfg.OutboxMaxRetries,
	}, logger)

	logger.Info("application container initialized")
	return c, nil
}

// NewDevelopmentContainer creates a container backed by a local SQLite file,
// in-process locks, and a noop event publisher. Used by the CLI so it works
// without any external services.
func NewDevelopmentContainer(ctx context.Context, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	dbCfg := database.DefaultLocalConfig()
	if cfg.DatabaseURL != "" {
		dbCfg = database.Config{URL: cfg.DatabaseURL}
	} else if err := database.EnsureDirectory(dbCfg.SQLitePath); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	conn, err := database.NewConnection(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := migrations.Run(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	c := &Container{
		Config:         cfg,
		Logger:         logger,
		DBConn:         conn,
		EventPublisher: eventbus.NewNoopPublisher(logger),
		Locker:         scheduler.NewLocalLocker(),
	}

	c.UnitOfWork = database.NewUnitOfWork(conn)
	c.Repository = persistence.NewRepository(conn)
	if conn.Driver() == database.DriverPostgres {
		c.OutboxRepo = outbox.NewPostgresRepository(conn)
	} else {
		c.OutboxRepo = outbox.NewSQLiteRepository(conn)
	}

	c.Propagator = engine.NewPropagator(logger)

	c.RunTickHandler = commands.NewRunTickHandler(c.Repository, c.OutboxRepo, c.Propagator, c.UnitOfWork, c.Locker, logger)
	c.CancelProjectHandler = commands.NewCancelProjectHandler(c.Repository, c.OutboxRepo, c.Propagator, c.UnitOfWork, c.Locker, logger)
	c.CancelPhaseHandler = commands.NewCancelPhaseHandler(c.Repository, c.OutboxRepo, c.Propagator, c.UnitOfWork, c.Locker, logger)
	c.SeedDemoHandler = commands.NewSeedDemoHandler(c.Repository, c.UnitOfWork)
	c.StatusSummaryHandler = queries.NewProjectStatusSummaryHandler(c.Repository)

	return c, nil
}

// Close releases all resources held by the container.
func (c *Container) Close() error {
	if c.OutboxProcessor != nil && c.OutboxProcessor.IsRunning() {
		c.OutboxProcessor.Stop()
	}
	if c.SchedulerDriver != nil && c.SchedulerDriver.IsRunning() {
		c.SchedulerDriver.Stop()
	}
	return c.closePartial()
}

func (c *Container) closePartial() error {
	var firstErr error

	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("failed to close event publisher", "error", err)
			firstErr = err
		}
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("failed to close redis client", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if c.DBConn != nil {
		if err := c.DBConn.Close(); err != nil {
			c.Logger.Warn("failed to close database connection", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
