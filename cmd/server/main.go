package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"loanhub/internal/adapters/http/middleware"
	"loanhub/internal/adapters/http/routes"
	"loanhub/internal/adapters/persistence/models"
	"loanhub/internal/config"
	"loanhub/internal/core/services"
	"loanhub/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	_ "loanhub/docs" // Swagger docs
)

// @title loanhub API
// @version 1.0
// @description 대출 상담 건 관리 시스템 API
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.AppMode)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if !cfg.EnvFileLoaded {
		zl.Warn(".env file not found, using environment variables")
	}

	db, err := config.ConnectDatabase(cfg, zl)
	if err != nil {
		zl.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := config.CloseDatabase(db); err != nil {
			zl.Error("failed to close database", zap.Error(err))
		}
	}()

	if err := models.AutoMigrate(db); err != nil {
		zl.Fatal("failed to auto migrate", zap.Error(err))
	}
	zl.Info("database migration completed")

	if err := config.NewSeeder(db, zl).Run(); err != nil {
		zl.Warn("seeding failed", zap.Error(err))
	}

	ctr, err := routes.NewContainer(db, cfg, zl, prometheus.DefaultRegisterer)
	if err != nil {
		zl.Fatal("failed to wire services", zap.Error(err))
	}

	loc, _ := cfg.Location()
	cronService := services.NewCronService(ctr.Cases, loc, zl)
	if err := cronService.ScheduleUrgencySweep(cfg.Schedule.UrgencySweepCron); err != nil {
		zl.Fatal("failed to schedule urgency sweep", zap.Error(err))
	}
	cronService.Start()
	defer cronService.Stop()

	app := fiber.New(fiber.Config{
		AppName:      "loanhub API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	middleware.Setup(app, cfg)
	routes.Setup(app, ctr, cfg, zl, prometheus.DefaultGatherer)

	go gracefulShutdown(app, zl)

	zl.Info("server starting", zap.String("port", cfg.Port), zap.String("mode", cfg.AppMode))
	if err := app.Listen(":" + cfg.Port); err != nil {
		zl.Error("server stopped with error", zap.Error(err))
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App, zl *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down server")
	if err := app.Shutdown(); err != nil {
		zl.Error("error during shutdown", zap.Error(err))
	}
	zl.Info("server stopped gracefully")
}
