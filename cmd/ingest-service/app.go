package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"lookout/internal/automation"
	"lookout/internal/automation/action"
	"lookout/internal/config"
	"lookout/internal/constants"
	"lookout/internal/entitlement"
	"lookout/internal/ingestion"
	"lookout/internal/logger"
	"lookout/pkg/bootstrap"
	"lookout/pkg/health"
	"lookout/pkg/logging"
	"lookout/pkg/metrics"
	"lookout/pkg/middleware"
	"lookout/pkg/ratelimit"
	"lookout/pkg/tracing"
)

const serviceName = "ingest-service"

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	db             *sql.DB
	redis          *redis.Client
	mongoClient    *mongo.Client
	mqtt           *action.MQTTClient
	runner         *automation.Runner
	handoff        ingestion.Handoff
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

	db, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	if db == nil {
		return fmt.Errorf("database.postgres.host is required")
	}
	a.db = db

	metrics.RegisterIngestionMetrics()

	if err := a.initAutomation(ctx); err != nil {
		return fmt.Errorf("failed to initialize automation: %w", err)
	}

	a.initHTTPServer(ctx)
	return nil
}

// initAutomation selects how persisted events reach the rule pipeline: an in-process
// worker pool, the events topic, or nowhere.
func (a *App) initAutomation(ctx context.Context) error {
	switch a.Config.Automation.Mode {
	case config.AutomationModeDisabled:
		a.Logger.WarnwCtx(ctx, "Automation disabled, events will only be stored")
		return nil

	case config.AutomationModeBroker:
		if err := a.InitProducer(serviceName); err != nil {
			return err
		}
		metrics.RegisterBrokerMetrics()
		a.handoff = ingestion.NewBrokerHandoff(a.Producer, a.Config.Broker.Kafka.EventsTopic, serviceName)
		return nil
	}

	deps := bootstrap.AutomationDeps{DB: a.db}

	if a.Config.Automation.CooldownStore == config.StoreRedis || a.Config.Automation.CooldownStore == "" {
		rdb, err := a.dbConnector.InitRedis(ctx)
		if err != nil {
			return err
		}
		a.redis = rdb
		deps.Redis = rdb
	}

	if a.Config.Automation.AuditStore == config.StoreMongoDB {
		client, err := a.dbConnector.InitMongoDB(ctx)
		if err != nil {
			return err
		}
		a.mongoClient = client
		if client != nil {
			deps.Mongo = a.dbConnector.MongoDatabase(client)
		}
	}

	if len(a.Config.Broker.Kafka.Brokers) > 0 {
		if err := a.InitProducer(serviceName); err != nil {
			return err
		}
		metrics.RegisterBrokerMetrics()
		deps.Producer = a.Producer
	}

	mqttClient, err := bootstrap.InitMQTT(a.Config, a.Logger)
	if err != nil {
		return err
	}
	a.mqtt = mqttClient
	deps.MQTT = mqttClient

	pipeline, _, err := bootstrap.NewAutomationPipeline(a.Config, deps, serviceName, a.Logger)
	if err != nil {
		return err
	}

	metrics.RegisterAutomationMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	a.runner = automation.NewRunner(pipeline, a.Config.Automation.Workers, a.Config.Automation.QueueSize, a.Logger.Component("runner"))
	a.handoff = a.runner
	return nil
}

func (a *App) initHTTPServer(ctx context.Context) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.Config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(serviceName))
	}
	router.Use(middleware.RecoveryMiddleware(a.Logger))
	router.Use(middleware.LoggerMiddleware(a.Logger))
	router.Use(middleware.RequestIDMiddleware())

	checker := entitlement.NewService(entitlement.NewRepository(a.db), a.Config.Entitlement.Timeout, a.Logger.Component("entitlement"))
	svc := ingestion.NewService(checker, ingestion.NewEventRepository(a.db), a.handoff, a.Config.Automation.Mode, a.Logger.Component("ingestion")).
		WithHandoffTimeout(a.Config.Automation.HandoffTimeout)

	auth := ingestion.NewEdgeAuthenticator(
		ingestion.NewEdgeRepository(a.db),
		a.Config.Ingestion.EdgeAuth.MaxClockSkew,
		a.Config.Ingestion.MaxBodyBytes,
		a.Logger.Component("edge-auth"),
	)
	edgeMiddlewares := []gin.HandlerFunc{auth.Middleware()}
	if a.Config.Ingestion.RateLimit.Enabled {
		limit := ratelimit.FromConfig(a.Config.Ingestion.RateLimit)
		edgeMiddlewares = append(edgeMiddlewares, ratelimit.KeyedRateLimitMiddleware(ctx, limit, ratelimit.HeaderKey(constants.HeaderEdgeKey)))
		a.Logger.InfowCtx(ctx, "Per-edge rate limiting enabled", "rps", limit.RPS, "burst", limit.Burst)
	}

	ingestion.NewHandler(svc, a.Logger).RegisterRoutes(router, edgeMiddlewares...)

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewPostgreSQLChecker(a.db))
	if a.redis != nil {
		healthRegistry.Register(health.NewRedisChecker(a.redis))
	}
	if a.mongoClient != nil {
		healthRegistry.Register(health.Optional(health.NewMongoDBChecker(a.mongoClient)))
	}

	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		c.JSON(h.HTTPStatus(), h)
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      router,
		ReadTimeout:  a.Config.Server.ReadTimeoutSeconds,
		WriteTimeout: a.Config.Server.WriteTimeoutSeconds,
	}
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	if a.runner != nil {
		g.Go(func() error {
			a.Logger.InfowCtx(gCtx, "Inline automation runner starting", "workers", a.Config.Automation.Workers)
			return a.runner.Run(gCtx)
		})
	}

	g.Go(func() error {
		a.Logger.InfowCtx(gCtx, "HTTP server starting", "port", a.Config.Server.Port, "automation_mode", a.Config.Automation.Mode)
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

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.InfowCtx(logging.WithServiceName(ctx, serviceName), "Shutting down ingest service")

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
