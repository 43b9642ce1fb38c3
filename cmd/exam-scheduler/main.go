package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/exam-scheduler/api/swagger"
	"github.com/noah-isme/exam-scheduler/internal/handler"
	internalmiddleware "github.com/noah-isme/exam-scheduler/internal/middleware"
	"github.com/noah-isme/exam-scheduler/internal/models"
	"github.com/noah-isme/exam-scheduler/internal/repository"
	"github.com/noah-isme/exam-scheduler/internal/service"
	"github.com/noah-isme/exam-scheduler/pkg/cache"
	"github.com/noah-isme/exam-scheduler/pkg/config"
	"github.com/noah-isme/exam-scheduler/pkg/database"
	"github.com/noah-isme/exam-scheduler/pkg/events"
	"github.com/noah-isme/exam-scheduler/pkg/logger"
	corsmiddleware "github.com/noah-isme/exam-scheduler/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/exam-scheduler/pkg/middleware/requestid"
	"github.com/noah-isme/exam-scheduler/pkg/storage"
)

// @title Exam Scheduler API
// @version 1.0.0
// @description Exam timetable generation, conflict analysis, quality scoring and schedule versioning
// @BasePath /
// @schemes http

type optimizer interface {
	Optimize(ctx context.Context, problem *models.SchedulingProblem) (*models.SchedulingSolution, error)
}

type problemLoader interface {
	Load(ctx context.Context, problem *models.SchedulingProblem) error
}

type objectStore interface {
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
	URL(ctx context.Context, key string) (string, error)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()

	store, err := newObjectStore(ctx, cfg.Exports, logr)
	if err != nil {
		logr.Fatal("failed to init export storage", zap.Error(err), zap.String("backend", cfg.Exports.Backend))
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	conflictRepo := repository.NewConflictRepository(db)
	versionRepo := repository.NewScheduleVersionRepository(db)
	qualityRepo := repository.NewQualityMetricRepository(db)

	publisher := service.NewEventPublisher(events.NewRedisBus(redisClient), cfg.Events, logr)
	publisher.Start(ctx)
	defer publisher.Stop()

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)
	analyzer := service.NewConflictAnalyzerService(conflictRepo, cacheSvc, publisher, metrics, validate, logr)
	scorer := service.NewQualityScorerService(logr)
	fallback := service.NewFallbackService(metrics, logr, service.FallbackConfig{EnhancementPasses: cfg.Scheduler.EnhancementPasses})
	versions := service.NewScheduleVersionService(versionRepo, qualityRepo, publisher, validate, logr)
	sessions := service.NewSessionTracker(cfg.Sessions.TTL, cfg.Sessions.CleanupInterval, metrics)
	exports := service.NewExportService(versions, store, logr, nil, nil)

	var delegate optimizer
	if cfg.Optimizer.Enabled {
		delegate = service.NewOptimizerClient(cfg.Optimizer, nil, logr)
	}
	var loader problemLoader
	if cfg.Upstream.Enabled {
		loader = service.NewProblemLoader(cfg.Upstream, nil, validate, logr)
	}

	scheduling := service.NewSchedulingService(analyzer, scorer, fallback, versions, delegate, loader, sessions, publisher, metrics, validate, logr, service.SchedulingConfig{
		DefaultStrategy:   models.SolvingStrategy(cfg.Scheduler.DefaultStrategy),
		SolveTimeout:      cfg.Scheduler.SolveTimeout,
		MaxBacktrackNodes: cfg.Scheduler.MaxBacktrackNodes,
		AnnealingSeed:     cfg.Scheduler.AnnealingSeed,
		MaxRepairPasses:   cfg.Scheduler.MaxRepairPasses,
	})

	metricsHandler := handler.NewMetricsHandler(metrics, map[string]handler.DependencyCheck{
		"postgres": db.PingContext,
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}, logr)
	examHandler := handler.NewExamScheduleHandler(scheduling, analyzer, versions, exports)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	examHandler.Register(r.Group(cfg.APIPrefix))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func newObjectStore(ctx context.Context, cfg config.ExportsConfig, logr *zap.Logger) (objectStore, error) {
	if cfg.Backend == config.ExportBackendMinIO {
		return storage.NewMinIOStorage(ctx, cfg)
	}
	local, err := storage.NewLocalStorage(cfg.StorageDir)
	if err != nil {
		return nil, err
	}
	go pruneExports(ctx, local, cfg.URLTTL, logr)
	return local, nil
}

// pruneExports drops local exports once their links would have expired.
func pruneExports(ctx context.Context, local *storage.LocalStorage, ttl time.Duration, logr *zap.Logger) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := local.CleanupOlderThan(ttl)
			if err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(deleted) > 0 {
				logr.Info("expired exports removed", zap.Int("count", len(deleted)))
			}
		}
	}
}
