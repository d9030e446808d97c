package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joaodurante/order-saga/internal/adapters/cache"
	eventadapter "github.com/joaodurante/order-saga/internal/adapters/events"
	httpadapter "github.com/joaodurante/order-saga/internal/adapters/http"
	"github.com/joaodurante/order-saga/internal/adapters/postgres"
	"github.com/joaodurante/order-saga/internal/inventory"
	"github.com/joaodurante/order-saga/internal/orchestrator"
	"github.com/joaodurante/order-saga/internal/order"
	"github.com/joaodurante/order-saga/internal/participant"
	"github.com/joaodurante/order-saga/internal/payment"
	"github.com/joaodurante/order-saga/internal/ports"
	"github.com/joaodurante/order-saga/internal/productvalidation"
	"github.com/joaodurante/order-saga/internal/saga"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Runtime is one wired process: its workers, optional servers and the
// cleanup for everything it opened.
type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	workers    []func(ctx context.Context) error
	cleanupFn  func(ctx context.Context)
}

func newLogger(serviceID string) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).
		With("service", serviceID)
	slog.SetDefault(logger)
	return logger
}

func (r *Runtime) buildBus(ctx context.Context, topics []string, closers *[]io.Closer) (ports.EventPublisher, ports.Consumer) {
	publisher := ports.EventPublisher(eventadapter.NewLoggingPublisher(r.logger))
	consumer := ports.Consumer(eventadapter.NewNoopConsumer())
	if len(r.cfg.KafkaBrokers) == 0 {
		return publisher, consumer
	}
	kafkaPublisher, err := eventadapter.NewKafkaPublisher(r.cfg.KafkaBrokers)
	if err != nil {
		r.logger.WarnContext(ctx, "kafka publisher disabled, using logging publisher", "error", err)
	} else {
		publisher = kafkaPublisher
		*closers = append(*closers, kafkaPublisher)
	}
	if len(topics) > 0 {
		kafkaConsumer, err := eventadapter.NewKafkaConsumer(r.cfg.KafkaBrokers, r.cfg.ConsumerGroup, topics)
		if err != nil {
			r.logger.WarnContext(ctx, "kafka consumer disabled, using noop consumer", "error", err)
		} else {
			consumer = kafkaConsumer
			*closers = append(*closers, kafkaConsumer)
		}
	}
	return publisher, consumer
}

// BuildOrchestrator wires the pure saga router: no database, just the
// routing table between a consumer and a publisher.
func BuildOrchestrator(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath, "orchestrator")
	if err != nil {
		return nil, err
	}
	r := &Runtime{cfg: cfg, logger: newLogger(cfg.ServiceID)}

	routing, err := saga.NewRoutingTable(saga.DefaultRules())
	if err != nil {
		return nil, err
	}

	var closers []io.Closer
	publisher, consumer := r.buildBus(ctx, []string{
		saga.TopicStartSaga,
		saga.TopicOrchestrator,
		saga.TopicFinishSuccess,
		saga.TopicFinishFail,
	}, &closers)

	service := orchestrator.NewService(r.logger, routing, publisher)
	worker := eventadapter.NewConsumerWorker(r.logger, consumer, map[string]eventadapter.HandlerFunc{
		saga.TopicStartSaga:     service.HandleStartSaga,
		saga.TopicOrchestrator:  service.HandleContinueSaga,
		saga.TopicFinishSuccess: service.HandleFinishSuccess,
		saga.TopicFinishFail:    service.HandleFinishFail,
	}, cfg.ConsumerPollInterval)

	r.workers = append(r.workers, worker.Run)
	r.cleanupFn = closeAll(closers)
	return r, nil
}

// BuildOrder wires the order API: HTTP + gRPC health servers, the event
// store, the start-saga outbox and the notify-ending consumer.
func BuildOrder(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath, "order-service")
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	r := &Runtime{cfg: cfg, logger: newLogger(cfg.ServiceID)}

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := postgres.RunMigrations(ctx, db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	var closers []io.Closer
	closers = append(closers, sqlDB)

	cacheStore := ports.Cache(cache.NewNoopCache())
	if cfg.RedisURL != "" {
		redisClient, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			r.logger.WarnContext(ctx, "redis disabled, queries go straight to the database", "error", err)
		} else {
			cacheStore = cache.NewRedisCache(redisClient)
			closers = append(closers, redisClient)
		}
	}

	publisher, consumer := r.buildBus(ctx, []string{saga.TopicNotifyEnding}, &closers)

	repos := postgres.NewRepositories(db)
	service := order.NewService(r.logger, repos.Orders, repos.Events, repos.Outbox, cacheStore, cfg.EventCacheTTL)

	handler := httpadapter.NewHandler(service)
	r.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           httpadapter.NewRouter(handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.grpcServer = grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(r.grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		closeAll(closers)(ctx)
		return nil, err
	}
	r.grpcLis = lis

	outboxWorker := eventadapter.NewOutboxWorker(r.logger, repos.Outbox, publisher, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
	consumerWorker := eventadapter.NewConsumerWorker(r.logger, consumer, map[string]eventadapter.HandlerFunc{
		saga.TopicNotifyEnding: service.HandleNotifyEnding,
	}, cfg.ConsumerPollInterval)

	r.workers = append(r.workers, outboxWorker.Run, consumerWorker.Run)
	r.cleanupFn = closeAll(closers)
	return r, nil
}

// BuildInventory wires the inventory participant.
func BuildInventory(ctx context.Context, configPath string) (*Runtime, error) {
	return buildParticipant(ctx, configPath, "inventory-service",
		participant.Config{
			Source:          saga.SourceInventory,
			SuccessMessage:  "Inventory updated successfully.",
			FailureMessage:  "Fail to update inventory.",
			RollbackMessage: "Rollback executed for inventory.",
		},
		saga.TopicInventoryOK, saga.TopicInventoryFail,
		func(logger *slog.Logger, repos postgres.Repositories) (participant.Action, participant.Guard) {
			service := inventory.NewService(logger, repos.Inventory)
			return service, service
		})
}

// BuildPayment wires the payment participant.
func BuildPayment(ctx context.Context, configPath string) (*Runtime, error) {
	return buildParticipant(ctx, configPath, "payment-service",
		participant.Config{
			Source:          saga.SourcePayment,
			SuccessMessage:  "Payment realized successfully.",
			FailureMessage:  "Fail to realize payment.",
			RollbackMessage: "Refund realized successfully.",
		},
		saga.TopicPaymentOK, saga.TopicPaymentFail,
		func(logger *slog.Logger, repos postgres.Repositories) (participant.Action, participant.Guard) {
			service := payment.NewService(logger, repos.Payments)
			return service, service
		})
}

// BuildProductValidation wires the product validation participant.
func BuildProductValidation(ctx context.Context, configPath string) (*Runtime, error) {
	return buildParticipant(ctx, configPath, "product-validation-service",
		participant.Config{
			Source:          saga.SourceProductValidation,
			SuccessMessage:  "Products validated successfully.",
			FailureMessage:  "Fail to validate products.",
			RollbackMessage: "Rollback executed on product validation.",
		},
		saga.TopicProductValidationOK, saga.TopicProductValidationFail,
		func(logger *slog.Logger, repos postgres.Repositories) (participant.Action, participant.Guard) {
			service := productvalidation.NewService(logger, repos.Validations)
			return service, service
		})
}

func buildParticipant(
	ctx context.Context,
	configPath, role string,
	pcfg participant.Config,
	forwardTopic, rollbackTopic string,
	build func(logger *slog.Logger, repos postgres.Repositories) (participant.Action, participant.Guard),
) (*Runtime, error) {
	cfg, err := LoadConfig(configPath, role)
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	r := &Runtime{cfg: cfg, logger: newLogger(cfg.ServiceID)}

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := postgres.RunMigrations(ctx, db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	var closers []io.Closer
	closers = append(closers, sqlDB)

	publisher, consumer := r.buildBus(ctx, []string{forwardTopic, rollbackTopic}, &closers)

	action, guard := build(r.logger, postgres.NewRepositories(db))
	part := participant.New(r.logger, pcfg, action, guard, publisher)
	worker := eventadapter.NewConsumerWorker(r.logger, consumer, map[string]eventadapter.HandlerFunc{
		forwardTopic:  part.HandleProcess,
		rollbackTopic: part.HandleRollback,
	}, cfg.ConsumerPollInterval)

	r.workers = append(r.workers, worker.Run)
	r.cleanupFn = closeAll(closers)
	return r, nil
}

// Run starts every server and worker of the runtime and blocks until a
// signal or a failure, then shuts everything down.
func (r *Runtime) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, len(r.workers)+2)

	if r.httpServer != nil {
		go func() {
			if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}
	if r.grpcServer != nil {
		go func() {
			if err := r.grpcServer.Serve(r.grpcLis); err != nil {
				errCh <- err
			}
		}()
	}
	for _, worker := range r.workers {
		run := worker
		go func() {
			if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		r.logger.ErrorContext(ctx, "runtime failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if r.httpServer != nil {
		_ = r.httpServer.Shutdown(shutdownCtx)
	}
	if r.grpcServer != nil {
		r.grpcServer.GracefulStop()
	}
	if r.cleanupFn != nil {
		r.cleanupFn(shutdownCtx)
	}
	return nil
}

func closeAll(closers []io.Closer) func(context.Context) {
	return func(context.Context) {
		for _, closer := range closers {
			_ = closer.Close()
		}
	}
}
