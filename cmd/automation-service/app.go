package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"lookout/internal/automation"
	"lookout/internal/automation/action"
	"lookout/internal/config"
	"lookout/internal/constants"
	"lookout/internal/logger"
	"lookout/pkg/bootstrap"
	"lookout/pkg/health"
	"lookout/pkg/logging"
	"lookout/pkg/metrics"
	"lookout/pkg/migrations"
	"lookout/pkg/tracing"
)

const serviceName = "automation-service"

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	db             *sql.DB
	redis          *redis.Client
	mongoClient    *mongo.Client
	mqtt           *action.MQTTClient
	handler        *automation.EventHandler
	server         *http.Server
	tracerProvider *tracing.TracerProvider
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(serviceName)
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	tp, err := tracing.Init(a.Config.Tracing, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	if err := a.initDatabases(ctx); err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := a.InitBroker(serviceName); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	mqttClient, err := bootstrap.InitMQTT(a.Config, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize mqtt: %w", err)
	}
	a.mqtt = mqttClient

	deps := bootstrap.AutomationDeps{
		DB:       a.db,
		Redis:    a.redis,
		Producer: a.Producer,
		MQTT:     mqttClient,
	}
	if a.mongoClient != nil {
		deps.Mongo = a.dbConnector.MongoDatabase(a.mongoClient)
	}

	pipeline, _, err := bootstrap.NewAutomationPipeline(a.Config, deps, serviceName, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to build automation pipeline: %w", err)
	}
	a.handler = automation.NewEventHandler(pipeline, a.Logger.Component("consumer"))

	metrics.RegisterAutomationMetrics()
	metrics.RegisterBrokerMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	a.initHTTPServer()
	return nil
}

func (a *App) initDatabases(ctx context.Context) error {
	db, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	if db == nil {
		return fmt.Errorf("database.postgres.host is required")
	}
	a.db = db

	if a.Config.Automation.CooldownStore == config.StoreRedis || a.Config.Automation.CooldownStore == "" {
		rdb, err := a.dbConnector.InitRedis(ctx)
		if err != nil {
			return err
		}
		a.redis = rdb
	}

	if a.Config.Automation.AuditStore == config.StoreMongoDB {
		client, err := a.dbConnector.InitMongoDB(ctx)
		if err != nil {
			return err
		}
		a.mongoClient = client
		if client != nil {
			if err := migrations.EnsureAutomationLogIndexes(ctx, a.dbConnector.MongoDatabase(client), constants.AutomationLogsCollection); err != nil {
				a.Logger.WarnwCtx(ctx, "Failed to ensure automation log indexes", "error", err)
			}
		}
	}

	return nil
}

func (a *App) initHTTPServer() {
	mux := http.NewServeMux()

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewPostgreSQLChecker(a.db))
	if a.redis != nil {
		healthRegistry.Register(health.NewRedisChecker(a.redis))
	}
	if a.mongoClient != nil {
		healthRegistry.Register(health.NewMongoDBChecker(a.mongoClient))
	}
	if a.mqtt != nil {
		healthRegistry.Register(health.Optional(health.NewCheckerFunc("mqtt", func(context.Context) error {
			if !a.mqtt.IsConnected() {
				return fmt.Errorf("mqtt client is not connected")
			}
			return nil
		})))
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		h := healthRegistry.Check(r.Context())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(h.HTTPStatus())
		json.NewEncoder(w).Encode(h)
	})
	mux.Handle("/metrics", promhttp.Handler())

	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler: mux,
	}
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(gCtx, "HTTP server starting", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	topic := a.Config.Broker.Kafka.EventsTopic
	g.Go(func() error {
		a.Logger.InfowCtx(logging.WithServiceName(gCtx, serviceName), "Consuming persisted events", "topic", topic)
		return a.Consumer.Consume(gCtx, topic, a.handler.Handle)
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.InfowCtx(logging.WithServiceName(ctx, serviceName), "Shutting down automation service")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.mqtt != nil {
			a.mqtt.Disconnect()
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(ctx, a.redis, a.db, a.mongoClient)...)
		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
