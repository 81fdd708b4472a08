package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"

	"github.com/gartstein/wastedesk/internal/wastedesk/config"
	"github.com/gartstein/wastedesk/internal/wastedesk/controller"
	"github.com/gartstein/wastedesk/internal/wastedesk/db"
	"github.com/gartstein/wastedesk/internal/wastedesk/events"
	"github.com/gartstein/wastedesk/internal/wastedesk/handlers"
	"github.com/gartstein/wastedesk/internal/wastedesk/metrics"
)

const connectRetries = 5

// initLogger builds a production logger, or a development one outside production.
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zcfg := zap.NewDevelopmentConfig()
	if cfg.Environment == "production" {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

func retry(ctx context.Context, op func() error) error {
	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), connectRetries)
	return backoff.Retry(op, backoff.WithContext(b, ctx))
}

// openStore connects to the configured document store, retrying while the backend comes up.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (db.DocumentStore, error) {
	var store db.DocumentStore
	err := retry(ctx, func() error {
		var err error
		switch cfg.StorageDriver {
		case "redis":
			store, err = db.NewRedisStore(ctx, cfg.RedisURL)
		default:
			store, err = db.NewRepository(cfg.Database())
		}
		if err != nil {
			logger.Warn("Storage not ready", zap.String("driver", cfg.StorageDriver), zap.Error(err))
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	logger.Info("Storage ready", zap.String("driver", cfg.StorageDriver))
	return store, nil
}

func seedStore(ctx context.Context, store db.DocumentStore, logger *zap.Logger) error {
	fixtures, err := db.LoadFixtures()
	if err != nil {
		return err
	}
	report, err := db.NewSeeder(store, fixtures, logger).InitializeIfAbsent(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed storage: %w", err)
	}
	logger.Info("Seed applied",
		zap.Int("previous_version", report.PreviousVersion),
		zap.Int("version", report.Version),
		zap.Strings("written", report.Written),
	)
	return nil
}

func seed(ctx context.Context, rt *app) error {
	store, err := openStore(ctx, rt.cfg, rt.logger)
	if err != nil {
		return err
	}
	defer store.Close()
	return seedStore(ctx, store, rt.logger)
}

// wireEvents publishes domain events to Kafka and feeds the audit log from
// the topic. Without brokers events go straight to the audit log.
func wireEvents(ctx context.Context, cfg *config.Config, svc *controller.Service, logger *zap.Logger) (func(), error) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("No Kafka brokers configured, handling events in-process")
		svc.SetProducer(events.NewDirectProducer(svc.AuditHandler(), logger))
		return func() {}, nil
	}

	var producer *events.Producer
	err := retry(ctx, func() error {
		var err error
		producer, err = events.NewProducer(cfg.KafkaBrokers, logger, cfg.Topic)
		if err != nil {
			logger.Warn("Kafka not ready", zap.Strings("brokers", cfg.KafkaBrokers), zap.Error(err))
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Kafka producer: %w", err)
	}
	svc.SetProducer(producer)

	consumer := events.NewConsumer(cfg.KafkaBrokers, cfg.GroupID, cfg.Topic, logger)
	consumer.RegisterHandler(svc.AuditHandler())
	consumerCtx, cancel := context.WithCancel(ctx)
	consumer.Start(consumerCtx)

	return func() {
		producer.Close()
		cancel()
		<-consumer.Done()
		consumer.Close()
	}, nil
}

func serve(ctx context.Context, rt *app) error {
	cfg, logger := rt.cfg, rt.logger

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.SeedOnStart {
		if err := seedStore(ctx, store, logger); err != nil {
			return err
		}
	}

	m := metrics.New()
	svc := controller.NewService(db.NewCollections(store), events.NopProducer{}, m, logger)
	closeEvents, err := wireEvents(ctx, cfg, svc, logger)
	if err != nil {
		return err
	}
	defer closeEvents()

	server := handlers.NewServer(cfg.GRPCPort, cfg.HTTPPort, logger, grpc.UnaryInterceptor(handlers.UnaryInterceptor(logger, m)))
	server.RegisterGRPCHandler(handlers.NewResolutionHandler(svc, logger))
	server.RegisterDocumentHandler(handlers.NewDocumentHandler(svc, logger))
	if err := server.RegisterHTTPGateway(handlers.NewHTTPHandler(svc, logger), m); err != nil {
		return fmt.Errorf("failed to register HTTP gateway: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()
	return waitForShutdown(server, errCh, logger)
}

// waitForShutdown blocks until an interrupt or SIGTERM is received, or a server fails, then shuts down servers.
func waitForShutdown(server *handlers.Server, errCh <-chan error, logger *zap.Logger) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
	case err := <-errCh:
		if err != nil {
			server.Stop()
			return fmt.Errorf("failed to start servers: %w", err)
		}
	}

	server.Stop()
	logger.Info("Servers stopped properly")
	return nil
}
