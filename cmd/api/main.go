package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"enrollapi/internal/config"
	"enrollapi/internal/database"
	"enrollapi/internal/database/migration"
	handlers "enrollapi/internal/http/handler"
	"enrollapi/internal/http/middleware"
	"enrollapi/internal/mail"
	"enrollapi/internal/otel"
	"enrollapi/internal/repository/postgres"
	"enrollapi/internal/service"
	"enrollapi/internal/session"
	"enrollapi/internal/storage"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	loc := time.UTC

	// Tracing is a no-op when OTEL_SDK_DISABLED=true.
	shutdownTracer, err := otel.Init(ctx, loc)
	if err != nil {
		logger.Fatal("failed to initialize tracing", zap.Error(err))
	}
	defer shutdownTracer(ctx)

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, loc, cfg.Database.Host); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	rdb, err := database.NewRedis(cfg.Redis)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Initialize reusable S3-compatible object storage client (MinIO-supported)
	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		logger.Fatal("failed to initialize object storage", zap.Error(err))
	}

	mailer := mail.NewSMTP(cfg.SMTP, logger)
	sessions := session.NewStore(rdb)

	// Initialize repositories and services
	applicantRepo := postgres.NewApplicantPostgres(db)
	userRepo := postgres.NewUserPostgres(db)
	studentRepo := postgres.NewStudentPostgres(db)
	announcementRepo := postgres.NewAnnouncementPostgres(db)
	eventRepo := postgres.NewEventPostgres(db)
	teacherRepo := postgres.NewTeacherPostgres(db)

	sessionTTL := time.Duration(cfg.Enroll.SessionTTLSec) * time.Second
	enrolleeSvc := service.NewEnrolleeService(applicantRepo, sessions, objStore, sessionTTL, logger)
	adminSvc := service.NewApplicantAdminService(applicantRepo, studentRepo, objStore, mailer, logger)
	authSvc := service.NewAuthService(userRepo, rdb, mailer, cfg.Auth, logger)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger())

	reg := prometheus.NewRegistry()
	promMW, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		logger.Fatal("failed to initialize metrics", zap.Error(err))
	}
	app.Use(promMW.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Register HTTP routes with injected services
	handlers.RegisterRoutes(app, handlers.Deps{
		DB:            db,
		Redis:         rdb,
		Enrollees:     enrolleeSvc,
		Applicants:    adminSvc,
		Auth:          authSvc,
		Mailer:        mailer,
		Students:      studentRepo,
		Announcements: announcementRepo,
		Events:        eventRepo,
		Teachers:      teacherRepo,
	})

	addr := ":" + cfg.Port

	if err := app.Listen(addr); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}
