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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	"lookout/internal/automation"
	"lookout/internal/automation/action"
	"lookout/internal/config"
	"lookout/internal/constants"
	"lookout/internal/entitlement"
	"lookout/internal/logger"
	"lookout/internal/management"
	"lookout/pkg/bootstrap"
	"lookout/pkg/cel"
	"lookout/pkg/health"
	"lookout/pkg/metrics"
	"lookout/pkg/middleware"
	"lookout/pkg/ratelimit"
	"lookout/pkg/tracing"
)

const serviceName = "management-service"

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	db             *sql.DB
	redis          *redis.Client
	mongoClient    *mongo.Client
	mqtt           *action.MQTTClient
	server         *http.Server
	router         *gin.Engine
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

	if err := a.initDatabase(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	svc, err := a.initService(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}

	a.initRouter(ctx, svc)

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  a.Config.Server.ReadTimeoutSeconds,
		WriteTimeout: a.Config.Server.WriteTimeoutSeconds,
	}
	return nil
}

func (a *App) initDatabase(ctx context.Context) error {
	db, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	if db == nil {
		return fmt.Errorf("database.postgres.host is required")
	}
	a.db = db
	return nil
}

// initService builds the rule admin service. Rule tests dispatch through the same
// pipeline the automation service runs, so its stores are connected here too.
func (a *App) initService(ctx context.Context) (management.Service, error) {
	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return nil, err
	}

	deps := bootstrap.AutomationDeps{DB: a.db}

	if a.Config.Automation.CooldownStore == config.StoreRedis || a.Config.Automation.CooldownStore == "" {
		rdb, err := a.dbConnector.InitRedis(ctx)
		if err != nil {
			a.Logger.WarnwCtx(ctx, "Redis unavailable, rule tests disabled", "error", err)
		}
		a.redis = rdb
		deps.Redis = rdb
	}

	if a.Config.Automation.AuditStore == config.StoreMongoDB {
		client, err := a.dbConnector.InitMongoDB(ctx)
		if err != nil {
			return nil, err
		}
		a.mongoClient = client
		if client != nil {
			deps.Mongo = a.dbConnector.MongoDatabase(client)
		}
	}

	if len(a.Config.Broker.Kafka.Brokers) > 0 {
		if err := a.InitProducer(serviceName); err != nil {
			return nil, err
		}
		deps.Producer = a.Producer
	}

	mqttClient, err := bootstrap.InitMQTT(a.Config, a.Logger)
	if err != nil {
		a.Logger.WarnwCtx(ctx, "MQTT unavailable, edge command tests will fail", "error", err)
	}
	a.mqtt = mqttClient
	deps.MQTT = mqttClient

	opts := []management.ServiceOption{
		management.WithAudit(management.NewAuditLogger(a.db)),
		management.WithEntitlements(entitlement.NewService(entitlement.NewRepository(a.db), a.Config.Entitlement.Timeout, a.Logger.Component("entitlement"))),
	}

	pipeline, logs, err := bootstrap.NewAutomationPipeline(a.Config, deps, serviceName, a.Logger)
	if err != nil {
		a.Logger.WarnwCtx(ctx, "Automation pipeline unavailable, rule tests disabled", "error", err)
		if logs, err = automation.NewLogStore(a.Config.Automation.AuditStore, a.db, deps.Mongo); err != nil {
			return nil, err
		}
	} else {
		opts = append(opts, management.WithRuleTester(pipeline))
	}

	return management.NewService(management.NewRepository(a.db), logs, evaluator, a.Logger.Component("management"), opts...), nil
}

func (a *App) initRouter(ctx context.Context, svc management.Service) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.Config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(serviceName))
	}

	router.Use(middleware.RecoveryMiddleware(a.Logger))
	router.Use(middleware.LoggerMiddleware(a.Logger))
	router.Use(middleware.RequestIDMiddleware())

	if a.Config.Management.RateLimit.Enabled {
		rateLimitConfig := ratelimit.FromConfig(a.Config.Management.RateLimit)
		router.Use(ratelimit.KeyedRateLimitMiddleware(ctx, rateLimitConfig, ratelimit.ClientIPKey))
		a.Logger.InfowCtx(ctx, "Rate limiting enabled", "rps", rateLimitConfig.RPS, "burst", rateLimitConfig.Burst)
	}

	management.NewHandler(svc, a.Logger).RegisterRoutes(router)

	metrics.RegisterManagementMetrics()
	metrics.RegisterAutomationMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewPostgreSQLChecker(a.db))
	if a.redis != nil {
		healthRegistry.Register(health.Optional(health.NewRedisChecker(a.redis)))
	}
	if a.mongoClient != nil {
		healthRegistry.Register(health.NewMongoDBChecker(a.mongoClient))
	}

	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		c.JSON(h.HTTPStatus(), h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	a.router = router
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		a.Logger.InfowCtx(ctx, "Server listening", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return a.Shutdown(ctx)
	case err := <-errChan:
		return err
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.InfowCtx(ctx, "Shutting down server")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			if err := a.server.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
			}
		}

		if a.mqtt != nil {
			a.mqtt.Disconnect()
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(context.Background()); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(ctx, a.redis, a.db, a.mongoClient)...)
		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
