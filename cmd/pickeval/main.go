package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pickeval/internal/config"
	cronrunner "pickeval/internal/cron"
	"pickeval/internal/db"
	"pickeval/internal/handler"
	"pickeval/internal/logger"
	gormrepository "pickeval/internal/repository/gorm"
	"pickeval/internal/service"
)

func main() {
	cfgPath := os.Getenv("PICKEVAL_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("PICKEVAL_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)

	backtestSvc := &service.BacktestService{
		Repo:     store,
		Logger:   logger,
		Defaults: cfg.Backtest,
	}
	trackerSvc := &service.TrackerService{
		Repo:   store,
		Logger: logger,
		Config: cfg.Tracker,
	}
	lessonSvc := &service.LessonService{
		Repo:   store,
		Logger: logger,
		Config: cfg.Lessons,
	}
	compareSvc := &service.CompareService{
		Backtest: backtestSvc,
		Presets:  cfg.Scenarios,
		Logger:   logger,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	catalogHandler := &handler.CatalogHandler{Repo: store, Logger: logger}
	catalogHandler.Register(engine)
	backtestHandler := &handler.BacktestHandler{Service: backtestSvc, Repo: store, Logger: logger}
	backtestHandler.Register(engine)
	trackerHandler := &handler.TrackerHandler{Service: trackerSvc, Repo: store, Logger: logger}
	trackerHandler.Register(engine)
	lessonHandler := &handler.LessonHandler{Service: lessonSvc, Repo: store, Logger: logger}
	lessonHandler.Register(engine)
	compareHandler := &handler.CompareHandler{Service: compareSvc, Logger: logger}
	compareHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		_, err = cronRunner.Add(cfg.Cron.Tracker, func(ctx context.Context) {
			result, err := trackerSvc.Track(ctx)
			if err != nil {
				logger.Warn("cron tracker run failed", zap.Error(err))
				return
			}
			logger.Info("cron tracker run ok",
				zap.Int("imported", result.Imported),
				zap.Int("updated", result.Updated),
				zap.Int("closed", result.Closed),
			)
		})
		if err != nil {
			logger.Warn("cron register tracker failed", zap.Error(err))
		}

		_, err = cronRunner.Add(cfg.Cron.Lessons, func(ctx context.Context) {
			result, err := lessonSvc.Detect(ctx)
			if err != nil {
				logger.Warn("cron lesson detection failed", zap.Error(err))
				return
			}
			logger.Info("cron lesson detection ok", zap.Int("lessons", result.LessonsAdded))
		})
		if err != nil {
			logger.Warn("cron register lessons failed", zap.Error(err))
		}

		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
