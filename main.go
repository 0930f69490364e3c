package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ze-club/config"
	"ze-club/handlers"
	"ze-club/logging"
	"ze-club/models"
	"ze-club/services"
	"ze-club/utils"
	"ze-club/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ze-club:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, dotenvLoaded, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	if !dotenvLoaded {
		log.Info("no .env file found, reading environment variables directly")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if err := models.Migrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	storage, err := newStorage(ctx, cfg, log)
	if err != nil {
		return err
	}

	var mailer services.Mailer = services.NoopMailer{}
	if cfg.ResendAPIKey != "" {
		rm, err := services.NewResendMailer(cfg.ResendAPIKey, cfg.MailFrom, log)
		if err != nil {
			return err
		}
		mailer = rm
	} else {
		log.Warn("RESEND_API_KEY not set, redemption mail disabled")
	}

	var verifier services.SessionVerifier
	if cfg.AuthServiceURL != "" {
		verifier = services.NewAuthServiceClient(cfg.AuthServiceURL, cfg.AuthServiceToken)
	} else {
		verifier = services.NewJWTVerifier(cfg.SessionSecret)
	}

	settings := services.NewSiteSettingsService(db, log)
	if _, err := settings.EnsureSiteSettings(ctx); err != nil {
		return fmt.Errorf("ensure site settings: %w", err)
	}
	badges := services.NewBadgeService(db, log)
	if err := badges.EnsureBadgeTypes(ctx); err != nil {
		return fmt.Errorf("seed badge types: %w", err)
	}

	deps := handlers.Deps{
		DB:            db,
		Verifier:      verifier,
		Members:       services.NewMemberService(db, log),
		Ledger:        services.NewLedgerService(db, log, badges, mailer),
		Missions:      services.NewMissionService(db, log, storage),
		Rewards:       services.NewRewardService(db, log, storage),
		Events:        services.NewEventService(db, log, storage),
		Announcements: services.NewAnnouncementService(db, log),
		Settings:      settings,
		Badges:        badges,
	}

	scheduler := services.NewScheduler(db, log, cfg.SchedulerInterval)
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer func() { _ = scheduler.Shutdown() }()

	if cfg.SyncServiceURL != "" {
		workers.NewMemberSyncWorker(db, log, cfg.SyncServiceURL, cfg.SyncServiceToken, cfg.SyncInterval).Start(ctx)
	}

	handlers.RegisterParsers()
	app := fiber.New(fiber.Config{
		BodyLimit:    32 * 1024 * 1024,
		ErrorHandler: handlers.ErrorHandler(log),
	})
	app.Use(logging.Middleware(log))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Origins(),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, Idempotency-Key, Cache-Control",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID, Idempotent-Replayed",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	handlers.SetupHealthRoutes(app, db)
	handlers.SetupClubRoutes(app, deps)
	handlers.SetupAdminRoutes(app, deps)
	if ds, ok := storage.(*utils.DiskStore); ok {
		app.Static("/uploads", ds.Dir)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(fmt.Sprintf(":%d", cfg.Port))
	}()
	log.Info("server running", zap.Int("port", cfg.Port), zap.String("cors_origins", cfg.Origins()))

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}

func newStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (utils.Storage, error) {
	if cfg.R2Enabled() {
		store, err := utils.NewR2Store(ctx, utils.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			AccessKeySecret: cfg.R2AccessSecret,
			Bucket:          cfg.R2Bucket,
			CDNBaseURL:      cfg.CDNBaseURL,
		})
		if err != nil {
			return nil, err
		}
		log.Info("uploads stored in R2", zap.String("bucket", cfg.R2Bucket))
		return store, nil
	}
	log.Warn("R2 not configured, storing uploads on local disk", zap.String("dir", cfg.UploadDir))
	return utils.NewDiskStore(cfg.UploadDir, "/uploads")
}
