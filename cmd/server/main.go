package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/sevahub/sevahub-backend/internal/aiclient"
	"github.com/sevahub/sevahub-backend/internal/certificate"
	"github.com/sevahub/sevahub-backend/internal/config"
	"github.com/sevahub/sevahub-backend/internal/database"
	"github.com/sevahub/sevahub-backend/internal/handler"
	"github.com/sevahub/sevahub-backend/internal/logger"
	"github.com/sevahub/sevahub-backend/internal/mailer"
	"github.com/sevahub/sevahub-backend/internal/middleware"
	"github.com/sevahub/sevahub-backend/internal/repository"
	"github.com/sevahub/sevahub-backend/internal/router"
	"github.com/sevahub/sevahub-backend/internal/service"
	"github.com/sevahub/sevahub-backend/internal/storage"
	"github.com/sevahub/sevahub-backend/internal/validator"
	"github.com/sevahub/sevahub-backend/internal/worker"
	"golang.org/x/sync/errgroup"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting SevaHub Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── External Providers ────────────────────────────────────────────
	store, err := storage.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	mail, err := mailer.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize mailer")
	}
	ai := aiclient.New(cfg.AIBaseURL, cfg.AIAPIKey, cfg.AIModel, cfg.AITimeout)
	renderer := certificate.NewRenderer()

	// ─── Initialize Repositories ───────────────────────────────────────
	studentRepo := repository.NewStudentRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)
	roleRepo := repository.NewRoleRepository(pool)
	attendanceRepo := repository.NewAttendanceRepository(pool)
	eventRepo := repository.NewEventRepository(pool)
	participationRepo := repository.NewParticipationRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	campaignRepo := repository.NewCampaignRepository(pool)
	dashboardRepo := repository.NewDashboardRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	notificationService := service.NewNotificationService(notificationRepo, rdb, log)
	mediaService := service.NewMediaService(store, cfg.MaxUploadBytes, log)
	studentService := service.NewStudentService(studentRepo, authService, log)
	adminService := service.NewAdminService(adminRepo, roleRepo)
	adminUserService := service.NewAdminUserService(adminRepo, roleRepo, authService, log)
	adminRoleService := service.NewAdminRoleService(roleRepo)
	attendanceService := service.NewAttendanceService(studentRepo, attendanceRepo, log)
	eventService := service.NewEventService(pool, eventRepo, participationRepo, studentRepo, notificationService, rdb, log)
	participationService := service.NewParticipationService(pool, studentRepo, eventRepo, participationRepo, mediaService, notificationService, log)
	reportService := service.NewReportService(ai, participationRepo, eventRepo, log)
	certificateService := service.NewCertificateService(eventRepo, store, renderer, cfg.MaxUploadBytes, log)
	dispatcher := service.NewCertificateDispatcher(
		eventRepo, participationRepo, store, renderer, mail, notificationService, rdb,
		service.DispatchOptions{
			Workers:  cfg.CertSendWorkers,
			Interval: cfg.CertSendInterval,
			LockTTL:  cfg.CertDispatchLockTTL,
		},
		log,
	)
	campaignService := service.NewCampaignService(campaignRepo, rdb, log)
	dashboardService := service.NewDashboardService(dashboardRepo)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:          handler.NewAuthHandler(authService, studentService, adminService, log),
		StudentPortal: handler.NewStudentPortalHandler(studentService, attendanceService, eventService, log),
		StudentMgmt:   handler.NewStudentManagementHandler(studentService, attendanceService, log),
		Attendance:    handler.NewAttendanceHandler(attendanceService, cfg.MaxUploadBytes, log),
		Event:         handler.NewEventHandler(eventService, participationService, log),
		Participation: handler.NewParticipationHandler(participationService, reportService, cfg.MaxUploadBytes, log),
		Certificate:   handler.NewCertificateHandler(rdb, certificateService, dispatcher, cfg.MaxUploadBytes, log),
		Campaign:      handler.NewCampaignHandler(campaignService, log),
		Notification:  handler.NewNotificationHandler(notificationService, log),
		Media:         handler.NewMediaHandler(mediaService, cfg.MaxUploadBytes, log),
		WS:            handler.NewWSHandler(rdb, notificationService, log, cfg.AllowedOrigins),
		AdminUser:     handler.NewAdminUserHandler(adminUserService, log),
		AdminRole:     handler.NewAdminRoleHandler(adminRoleService, log),
		Dashboard:     handler.NewDashboardHandler(dashboardService, log),
		System:        handler.NewSystemHandler(rdb, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	workers, workerCtx := errgroup.WithContext(workerCtx)

	emailWorker := worker.NewEmailWorker(rdb, campaignRepo, mail, cfg.EmailSendInterval, log)
	certificateWorker := worker.NewCertificateWorker(rdb, dispatcher, log)
	reminders := worker.NewReminderScheduler(eventRepo, participationRepo, notificationService, mail,
		cfg.ReminderCron, cfg.ReminderLeadTime, log)

	workers.Go(func() error { emailWorker.Start(workerCtx); return nil })
	workers.Go(func() error { certificateWorker.Start(workerCtx); return nil })
	workers.Go(func() error { return reminders.Start(workerCtx) })

	// ─── Setup Router ──────────────────────────────────────────────────
	limiter := middleware.NewRateLimiter(rdb, cfg.AuthRateLimit, time.Minute, log)
	r := router.SetupRouter(authService, limiter, handlers, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")
	case <-workerCtx.Done():
		log.Error().Msg("A background worker stopped unexpectedly, shutting down")
	}

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for in-flight jobs.
	workerCancel()
	if err := workers.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker exited with error")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
