package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shenikar/geo_incident_system/internal/config"
	v1 "github.com/shenikar/geo_incident_system/internal/handler/http/v1"
	"github.com/shenikar/geo_incident_system/internal/repository"
	"github.com/shenikar/geo_incident_system/internal/routing"
	"github.com/shenikar/geo_incident_system/internal/service"
	"github.com/shenikar/geo_incident_system/internal/webhook"
	"github.com/shenikar/geo_incident_system/pkg/logger"
	"github.com/shenikar/geo_incident_system/pkg/postgres"
	redisclient "github.com/shenikar/geo_incident_system/pkg/redis"
	"github.com/sirupsen/logrus"

	_ "github.com/shenikar/geo_incident_system/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const migrationsDir = "migrations"

// loadPlanner читает дорожный граф и собирает планировщик с политикой риска из конфигурации
func loadPlanner(ctx context.Context, db *pgxpool.Pool, cfg *config.Config, log *logrus.Logger) (*routing.Planner, error) {
	roads := repository.NewRoadRepository(db)

	nodes, err := roads.LoadNodes(ctx)
	if err != nil {
		return nil, err
	}
	edges, err := roads.LoadEdges(ctx)
	if err != nil {
		return nil, err
	}

	graph, err := routing.NewGraph(nodes, edges)
	if err != nil {
		return nil, fmt.Errorf("failed to build road graph: %w", err)
	}

	policy, err := routing.NewMultiplierPolicy(cfg.RiskMultiplierLow, cfg.RiskMultiplierMedium, cfg.RiskMultiplierHigh)
	if err != nil {
		return nil, fmt.Errorf("invalid risk multipliers: %w", err)
	}

	log.WithFields(logrus.Fields{
		"nodes": graph.NodeCount(),
		"arcs":  graph.ArcCount(),
	}).Info("Road graph loaded")

	return routing.NewPlanner(graph, routing.NewCostAdjuster(policy), cfg.RouteMaxExpansions), nil
}

// @title Geo Incident System API
// @version 1.0
// @description Crowd-sourced incident aggregation and risk-aware routing.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
func main() {
	// Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	log := logger.New(cfg.LogLevel)

	// Контекст для graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Запуск миграций
	log.Info("Running database migrations...")
	if err := postgres.RunMigrations(cfg.DatabaseURL, migrationsDir); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}
	log.Info("Database migrations applied successfully")

	// Подключение к PostgreSQL
	dbpool, err := postgres.NewPostgresDB(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer dbpool.Close()
	log.Info("Successfully connected to PostgreSQL")

	// Инициализация Redis клиента
	redisClient, err := redisclient.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Info("Successfully connected to Redis")

	// Дорожный граф неизменен на время работы процесса
	planner, err := loadPlanner(ctx, dbpool, cfg, log)
	if err != nil {
		log.Fatalf("Failed to load road graph: %v", err)
	}

	// Издатель и воркер вебхуков
	webhookPublisher := webhook.NewRedisWebhookPublisher(redisClient)
	webhookWorker := webhook.NewWebhookWorker(redisClient, log, cfg)
	webhookWorker.Start(ctx)

	// Инициализация репозиториев
	incidentRepo := repository.NewIncidentRepository(dbpool, redisClient, cfg.IncidentCacheTTL)
	creationGuard := repository.NewRedisCreationGuard(redisClient, cfg.CreationGuardTTL, cfg.CreationGuardWait)

	// Инициализация сервисов
	incidentService := service.NewIncidentService(incidentRepo, creationGuard, webhookPublisher, log, cfg)
	routeService := service.NewRouteService(incidentRepo, planner, log, cfg)

	// Инициализация хэндлеров
	handler := v1.NewHandler(incidentService, routeService, log, cfg)

	// Настройка Gin роутера
	router := gin.Default()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	// Добавление маршрута для Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: router,
	}

	// Запуск сервера в горутине
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Error starting HTTP server: %v", err)
		}
	}()
	log.Infof("HTTP server started on port %s", cfg.HTTPPort)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Received shutdown signal, shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server gracefully stopped")
}
