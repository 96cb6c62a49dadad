package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bean-loyalty/config"
	"bean-loyalty/handlers"
	"bean-loyalty/middleware"
	"bean-loyalty/models"
	"bean-loyalty/services"
	"bean-loyalty/utils"
	"bean-loyalty/workers"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration: ", err)
	}

	logger, err := utils.NewLogger(cfg.IsProduction())
	if err != nil {
		log.Fatal("failed to build logger: ", err)
	}
	defer logger.Sync()

	db, err := openDatabase(cfg, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	customerService := services.NewCustomerService(db, logger)
	saleService := services.NewSaleService(db, logger)
	rewardService := services.NewRewardService(db, logger)
	flashDropService := services.NewFlashDropService(db, logger)
	activityService := services.NewActivityService(db, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var exporter services.DailyExporter
	if cfg.R2.Enabled() {
		store, err := utils.InitR2(ctx, cfg.R2.AccountID, cfg.R2.AccessKeyID, cfg.R2.AccessKeySecret, cfg.R2.Bucket)
		if err != nil {
			logger.Fatal("failed to initialize R2 client", zap.Error(err))
		}
		exporter = workers.NewActivityExporter(activityService, store, logger)
	} else {
		logger.Warn("⚠️  R2 not configured, daily activity export disabled")
	}

	var profileSync services.ProfileSyncer
	if cfg.ProfileSync.Enabled() {
		profileSync = workers.NewProfileSyncWorker(db, cfg.ProfileSync.URL, cfg.ProfileSync.Path, cfg.ProfileSync.Token, utils.HTTPClient, logger)
	}

	sched, err := services.StartLoyaltyScheduler(ctx, services.SchedulerDeps{
		Customers:           customerService,
		FlashDrops:          flashDropService,
		Exporter:            exporter,
		ProfileSync:         profileSync,
		TierInterval:        cfg.TierReconcileInterval,
		ProfileSyncInterval: cfg.ProfileSync.Interval,
		Log:                 logger,
	})
	if err != nil {
		logger.Fatal("failed to start scheduler", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		BodyLimit:             1 * 1024 * 1024,
		DisableStartupMessage: cfg.IsProduction(),
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed
	app.Use(middleware.GatewayAuthMiddleware(cfg.GatewayToken, logger))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Email, X-User-Roles",
		AllowCredentials: true,
		MaxAge:           86400,
	}))
	app.Use(middleware.UserContextMiddleware(logger))

	var sseAuth fiber.Handler
	if cfg.AuthServiceURL != "" {
		authClient := services.NewAuthServiceClient(cfg.AuthServiceURL, cfg.AuthServiceToken, utils.HTTPClient)
		sseAuth = middleware.SSEAuthMiddleware(authClient, logger)
	} else {
		logger.Warn("⚠️  AUTH_SERVICE_URL not set, activity stream disabled")
	}

	svc := handlers.Services{
		Customers:  customerService,
		Sales:      saleService,
		Rewards:    rewardService,
		FlashDrops: flashDropService,
		Activity:   activityService,
	}
	handlers.SetupLoyaltyRoutes(app, svc, sseAuth)
	handlers.SetupAdminRoutes(app, svc)

	go func() {
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	}()

	logger.Info("✅ BEAN loyalty service running",
		zap.Int("port", cfg.Port),
		zap.String("db_driver", cfg.DatabaseDriver),
		zap.Strings("cors_origins", cfg.AllowedOrigins),
		zap.Duration("tier_reconcile_interval", cfg.TierReconcileInterval),
	)

	<-ctx.Done()
	logger.Info("Shutting down server...")
	if err := sched.Shutdown(); err != nil {
		logger.Warn("scheduler shutdown", zap.Error(err))
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
}

func openDatabase(cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DatabaseURL)
	default:
		dialector = postgres.Open(cfg.DatabaseURL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  utils.NewGormLogger(logger, gormlogger.Warn, 200*time.Millisecond),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	if cfg.DatabaseDriver == "sqlite" {
		// SQLite allows one writer; serialise through a single connection.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}
