package bootstrap

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dramakit/drama/common/bus"
	"github.com/dramakit/drama/common/config"
	"github.com/dramakit/drama/common/logger"
	"github.com/dramakit/drama/common/metrics"
	"github.com/dramakit/drama/common/queue"
	"github.com/dramakit/drama/common/state"
	"github.com/dramakit/drama/common/storage"
)

// Setup initializes all service components
// This is the main entry point for all services
func Setup(ctx context.Context, serviceName string, opts ...Option) (*Components, error) {
	// Apply options
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	components := &Components{
		cleanupFuncs: make([]func() error, 0),
	}

	// 1. Load configuration
	var err error
	if options.customConfig != nil {
		components.Config = options.customConfig
	} else {
		components.Config, err = config.Load(serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	// 2. Initialize logger
	if options.customLogger != nil {
		components.Logger = options.customLogger
	} else {
		components.Logger = logger.New(
			components.Config.Service.LogLevel,
			components.Config.Service.LogFormat,
		)
	}

	components.Logger.Info("initializing service", "service", serviceName)

	// 3. Initialize state store (if not skipped)
	if !options.skipDB {
		components.Logger.Info("connecting to state store")
		components.Mongo, err = state.Connect(ctx, components.Config.Mongo.DNS)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to state store: %w", err)
		}
		components.Tasks = state.NewMongoTaskStore(components.Mongo, components.Config.Mongo.Database)
		components.Workflows = state.NewMongoWorkflowStore(components.Mongo, components.Config.Mongo.Database)

		components.addCleanup(func() error {
			components.Logger.Info("closing state store connection")
			return components.Mongo.Disconnect(context.Background())
		})
	}

	// 4. Initialize job queue (if not skipped)
	if !options.skipQueue {
		components.Logger.Info("connecting to job queue", "addr", components.Config.Queue.Addr)
		components.Redis = redis.NewClient(&redis.Options{
			Addr:     components.Config.Queue.Addr,
			Password: components.Config.Queue.Password,
			DB:       components.Config.Queue.DB,
		})
		if err := components.Redis.Ping(ctx).Err(); err != nil {
			components.Shutdown(ctx)
			return nil, fmt.Errorf("failed to connect to job queue: %w", err)
		}
		components.Queue = queue.NewRedis(components.Redis)

		components.addCleanup(func() error {
			components.Logger.Info("closing job queue")
			return components.Queue.Close()
		})
	}

	// 5. Initialize streaming bus (if not skipped)
	if !options.skipBus {
		components.Logger.Info("initializing streaming bus", "broker", components.Config.Kafka.Conn())
		components.Bus = bus.NewKafka(components.Config.Kafka.Conn())
	}

	// 6. Storage backend selection and metrics
	components.NewStorage = storage.GetAvailable(components.Config, components.Logger)
	components.Metrics = metrics.NewDefault()

	components.Logger.Info("service initialization complete",
		"service", serviceName,
		"state_store", components.Mongo != nil,
		"queue", components.Queue != nil,
		"bus", components.Bus != nil,
	)

	return components, nil
}

// MustSetup is like Setup but panics on error
// Useful for services that can't recover from initialization failure
func MustSetup(ctx context.Context, serviceName string, opts ...Option) *Components {
	components, err := Setup(ctx, serviceName, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to setup service %s: %v", serviceName, err))
	}
	return components
}
