package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/sevahub/sevahub-backend/internal/config"
	"github.com/sevahub/sevahub-backend/internal/handler"
	"github.com/sevahub/sevahub-backend/internal/metrics"
	"github.com/sevahub/sevahub-backend/internal/middleware"
	"github.com/sevahub/sevahub-backend/internal/model"
	"github.com/sevahub/sevahub-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth          *handler.AuthHandler
	StudentPortal *handler.StudentPortalHandler
	StudentMgmt   *handler.StudentManagementHandler
	Attendance    *handler.AttendanceHandler
	Event         *handler.EventHandler
	Participation *handler.ParticipationHandler
	Certificate   *handler.CertificateHandler
	Campaign      *handler.CampaignHandler
	Notification  *handler.NotificationHandler
	Media         *handler.MediaHandler
	WS            *handler.WSHandler
	AdminUser     *handler.AdminUserHandler
	AdminRole     *handler.AdminRoleHandler
	Dashboard     *handler.DashboardHandler
	System        *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	auth middleware.TokenValidator,
	limiter *middleware.RateLimiter,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID first so the access log and every response envelope carry it.
	router.Use(middleware.RequestID(), middleware.RequestLogger(log))

	if cfg.MetricsEnabled {
		router.Use(metrics.Middleware())
		router.GET("/metrics", metrics.Handler())
	}

	router.Use(middleware.Brotli())

	// Locally stored uploads are immutable (random names), so cache for a year.
	if cfg.StorageDriver == config.StorageDriverLocal {
		uploadsGroup := router.Group("/uploads")
		uploadsGroup.Use(middleware.CacheControl(31536000))
		{
			uploadsGroup.Static("/", cfg.UploadDir)
		}
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	authAPI := router.Group("/api/v1/auth")
	authAPI.Use(limiter.Middleware(), middleware.NoStore())
	{
		authAPI.POST("/student/login", handlers.Auth.StudentLogin)
		authAPI.POST("/admin/login", handlers.Auth.AdminLogin)

		// Authenticated profile routes
		authAPI.POST("/student/logout", middleware.RequireStudentJWT(auth), handlers.Auth.Logout)
		authAPI.POST("/admin/logout", middleware.RequireAdminJWT(auth), handlers.Auth.Logout)
		authAPI.GET("/student/me", middleware.RequireStudentJWT(auth), handlers.Auth.GetStudentProfile)
		authAPI.GET("/admin/me", middleware.RequireAdminJWT(auth), handlers.Auth.GetAdminProfile)
	}

	// ─── 2. Student Group (JWT) ────────────────────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(middleware.RequireStudentJWT(auth), middleware.NoStore())
	{
		studentAPI.GET("/eligibility", handlers.StudentPortal.GetEligibility)
		studentAPI.GET("/attendance", handlers.StudentPortal.GetAttendance)

		studentAPI.GET("/events", handlers.StudentPortal.ListEvents)
		studentAPI.GET("/events/:id", handlers.StudentPortal.GetEvent)
		studentAPI.POST("/events/:id/register", handlers.Participation.Register)

		studentAPI.GET("/participations", handlers.Participation.ListMine)
		studentAPI.GET("/participations/:id", handlers.Participation.GetMine)
		studentAPI.DELETE("/participations/:id", handlers.Participation.Cancel)
		studentAPI.POST("/participations/:id/evidence", handlers.Participation.UploadEvidence)
		studentAPI.DELETE("/participations/:id/evidence/:evidence_id", handlers.Participation.DeleteEvidence)
		studentAPI.POST("/participations/:id/report", handlers.Participation.GenerateReport)

		studentAPI.GET("/notifications", handlers.Notification.List)
		studentAPI.POST("/notifications/read", handlers.Notification.MarkRead)
	}

	// ─── 3. WebSocket Group (Query Token Auth) ─────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(auth))
	{
		ws.GET("/notifications", handlers.WS.NotificationStream)
	}

	// ─── 4. Admin Group (JWT + RBAC) ───────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(auth))
	{
		// Dashboard
		adminAPI.GET("/dashboard",
			handlers.Dashboard.GetDashboardData, // Open to all admins
		)

		// System Monitoring
		adminAPI.GET("/system/metrics",
			handlers.System.SystemMetricsSSE, // Open to all admins
		)

		adminAPI.GET("/notifications", handlers.Notification.List)
		adminAPI.POST("/notifications/read", handlers.Notification.MarkRead)

		// Media upload
		adminAPI.POST("/media/upload",
			middleware.RequirePermission(model.PermissionEventsWrite),
			handlers.Media.UploadMedia,
		)

		// Student management
		adminAPI.GET("/students",
			middleware.RequirePermission(model.PermissionStudentsRead),
			handlers.StudentMgmt.ListStudents,
		)
		adminAPI.GET("/students/:id",
			middleware.RequirePermission(model.PermissionStudentsRead),
			handlers.StudentMgmt.GetStudent,
		)
		adminAPI.POST("/students",
			middleware.RequirePermission(model.PermissionStudentsWrite),
			handlers.StudentMgmt.CreateStudent,
		)
		adminAPI.PUT("/students/:id",
			middleware.RequirePermission(model.PermissionStudentsWrite),
			handlers.StudentMgmt.UpdateStudent,
		)
		adminAPI.DELETE("/students/:id",
			middleware.RequirePermission(model.PermissionStudentsWrite),
			handlers.StudentMgmt.DeleteStudent,
		)

		// Attendance import
		adminAPI.POST("/attendance/import",
			middleware.RequirePermission(model.PermissionAttendanceImport),
			handlers.Attendance.ImportAttendance,
		)
		adminAPI.POST("/attendance/import/sheet",
			middleware.RequirePermission(model.PermissionAttendanceImport),
			handlers.Attendance.ImportAttendanceSheet,
		)

		// Event management
		adminAPI.GET("/events",
			middleware.RequirePermission(model.PermissionEventsRead),
			handlers.Event.ListEvents,
		)
		adminAPI.GET("/events/:id",
			middleware.RequirePermission(model.PermissionEventsRead),
			handlers.Event.GetEvent,
		)
		adminAPI.POST("/events",
			middleware.RequirePermission(model.PermissionEventsWrite),
			handlers.Event.CreateEvent,
		)
		adminAPI.PUT("/events/:id",
			middleware.RequirePermission(model.PermissionEventsWrite),
			handlers.Event.UpdateEvent,
		)
		adminAPI.PATCH("/events/:id/status",
			middleware.RequirePermission(model.PermissionEventsWrite),
			handlers.Event.UpdateEventStatus,
		)
		adminAPI.DELETE("/events/:id",
			middleware.RequirePermission(model.PermissionEventsWrite),
			handlers.Event.DeleteEvent,
		)
		adminAPI.GET("/events/:id/participations",
			middleware.RequireAnyPermission(model.PermissionEventsRead, model.PermissionParticipationsReview),
			handlers.Event.ListParticipations,
		)

		// Participation review
		adminAPI.GET("/participations/:id",
			middleware.RequireAnyPermission(model.PermissionEventsRead, model.PermissionParticipationsReview),
			handlers.Participation.GetParticipation,
		)
		adminAPI.POST("/participations/:id/approve",
			middleware.RequirePermission(model.PermissionParticipationsReview),
			handlers.Participation.Approve,
		)
		adminAPI.POST("/participations/:id/reject",
			middleware.RequirePermission(model.PermissionParticipationsReview),
			handlers.Participation.Reject,
		)
		adminAPI.POST("/participations/:id/attended",
			middleware.RequirePermission(model.PermissionParticipationsReview),
			handlers.Participation.MarkAttended,
		)

		// Certificate layout
		certGroup := adminAPI.Group("/events/:id/certificate")
		certGroup.Use(middleware.RequirePermission(model.PermissionCertificatesConfigure))
		{
			certGroup.GET("", handlers.Certificate.GetConfig)
			certGroup.PUT("", handlers.Certificate.SaveConfig)
			certGroup.POST("/fields", handlers.Certificate.PlaceField)
			certGroup.DELETE("/fields/:field", handlers.Certificate.ClearField)
			certGroup.POST("/template", handlers.Certificate.UploadTemplate)
			certGroup.DELETE("/template", handlers.Certificate.RemoveTemplate)
			certGroup.GET("/preview", handlers.Certificate.Preview)
		}

		// Certificate dispatch
		sendGroup := adminAPI.Group("/events/:id/certificates")
		sendGroup.Use(middleware.RequirePermission(model.PermissionCertificatesSend))
		{
			sendGroup.POST("/send", handlers.Certificate.Dispatch)
			sendGroup.POST("/retry", handlers.Certificate.RetryFailed)
		}
		adminAPI.GET("/events/:id/certificates/progress",
			middleware.RequireAnyPermission(model.PermissionCertificatesSend, model.PermissionEventsRead),
			handlers.Certificate.DispatchProgressSSE,
		)
		adminAPI.POST("/participations/:id/certificate",
			middleware.RequirePermission(model.PermissionCertificatesSend),
			handlers.Certificate.IssueSingle,
		)

		// Bulk email
		emailGroup := adminAPI.Group("/emails")
		emailGroup.Use(middleware.RequirePermission(model.PermissionEmailsSend))
		{
			emailGroup.POST("/preview", handlers.Campaign.PreviewRecipients)
			emailGroup.POST("", handlers.Campaign.CreateCampaign)
			emailGroup.GET("", handlers.Campaign.ListCampaigns)
			emailGroup.GET("/:id", handlers.Campaign.GetCampaign)
		}

		// Admin User Management
		adminAPI.GET("/admins",
			middleware.RequirePermission(model.PermissionAdminsRead),
			handlers.AdminUser.ListAdmins,
		)
		adminAPI.POST("/admins",
			middleware.RequirePermission(model.PermissionAdminsWrite),
			handlers.AdminUser.CreateAdmin,
		)
		adminAPI.PUT("/admins/:id",
			middleware.RequirePermission(model.PermissionAdminsWrite),
			handlers.AdminUser.UpdateAdmin,
		)
		adminAPI.DELETE("/admins/:id",
			middleware.RequirePermission(model.PermissionAdminsWrite),
			handlers.AdminUser.DeleteAdmin,
		)

		// Roles for selection on the admin form
		adminAPI.GET("/roles",
			middleware.RequireAnyPermission(model.PermissionAdminsRead, model.PermissionRolesRead),
			handlers.AdminRole.ListRoles,
		)
		adminAPI.GET("/roles/permissions",
			middleware.RequirePermission(model.PermissionRolesRead),
			handlers.AdminRole.GetPermissions,
		)
		adminAPI.GET("/roles/:id",
			middleware.RequirePermission(model.PermissionRolesRead),
			handlers.AdminRole.GetRole,
		)
		adminAPI.POST("/roles",
			middleware.RequirePermission(model.PermissionRolesWrite),
			handlers.AdminRole.CreateRole,
		)
		adminAPI.PUT("/roles/:id",
			middleware.RequirePermission(model.PermissionRolesWrite),
			handlers.AdminRole.UpdateRole,
		)
		adminAPI.DELETE("/roles/:id",
			middleware.RequirePermission(model.PermissionRolesWrite),
			handlers.AdminRole.DeleteRole,
		)
	}

	return router
}
