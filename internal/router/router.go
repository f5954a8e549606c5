package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/cecproctor/proctor-backend/internal/config"
	"github.com/cecproctor/proctor-backend/internal/handler"
	"github.com/cecproctor/proctor-backend/internal/middleware"
	"github.com/cecproctor/proctor-backend/internal/response"
	"github.com/cecproctor/proctor-backend/internal/service"
)

// publicSettingsMaxAge matches the server-side settings cache TTL.
const publicSettingsMaxAge = 300

// Handlers groups all handler instances for route setup.
type Handlers struct {
	StudentPortal *handler.StudentPortalHandler
	StudentMgmt   *handler.StudentManagementHandler
	TeacherMgmt   *handler.TeacherManagementHandler
	Exam          *handler.ExamHandler
	Violation     *handler.ViolationHandler
	Activity      *handler.ActivityHandler
	Setting       *handler.SettingHandler
	Dashboard     *handler.DashboardHandler
	Monitor       *handler.MonitorHandler
	WS            *handler.WSHandler
	System        *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	tokenService *service.TokenService,
	sessionService *service.SessionService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())

	router.Use(middleware.BrotliWithConfig(middleware.BrotliConfig{
		SkipPrefixes: []string{"/ws/", "/api/v1/admin/system/metrics"},
	}))

	api := router.Group("/api/v1")
	api.GET("/health", handlers.System.Health)

	// ─── 0. Public Group ───────────────────────────────────────────────
	publicAPI := api.Group("/public")
	{
		publicAPI.GET("/settings", middleware.CacheControl(publicSettingsMaxAge), handlers.Setting.GetPublicSettings)
	}

	// ─── 1. Student Join (Rate Limited) ────────────────────────────────
	joinLimiter := middleware.NewRateLimiter(cfg.JoinRatePerMinute, time.Minute)
	studentAPI := api.Group("/student")
	{
		studentAPI.POST("/join", joinLimiter.Middleware(), middleware.NoStore(), handlers.StudentPortal.JoinExam)
	}

	// ─── 2. Proctor Group (Session Token) ──────────────────────────────
	proctorAPI := api.Group("/proctor")
	proctorAPI.Use(
		middleware.RequireSessionToken(tokenService),
		middleware.LoadSession(sessionService),
		middleware.NoStore(),
	)
	{
		proctorAPI.GET("/session", handlers.StudentPortal.GetSession)
		proctorAPI.POST("/violations", handlers.StudentPortal.ReportViolation)
		proctorAPI.POST("/activity", handlers.StudentPortal.RecordActivity)
		proctorAPI.POST("/submit", handlers.StudentPortal.SubmitExam)
	}

	// ─── 3. WebSocket Group (Session Token) ────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(
		middleware.RequireSessionToken(tokenService),
		middleware.LoadSession(sessionService),
	)
	{
		ws.GET("/proctor/stream", handlers.WS.ProctorStream)
	}

	// ─── 4. Admin Group ────────────────────────────────────────────────
	adminAPI := api.Group("/admin")
	{
		adminAPI.GET("/dashboard", handlers.Dashboard.GetAdminDashboard)
		adminAPI.GET("/system/metrics", handlers.System.SystemMetricsSSE)

		studentsGroup := adminAPI.Group("/students")
		{
			studentsGroup.GET("", handlers.StudentMgmt.ListStudents)
			studentsGroup.POST("", handlers.StudentMgmt.CreateStudent)
			studentsGroup.GET("/:id", handlers.StudentMgmt.GetStudent)
			studentsGroup.PUT("/:id", handlers.StudentMgmt.UpdateStudent)
			studentsGroup.DELETE("/:id", handlers.StudentMgmt.DeleteStudent)
		}

		teachersGroup := adminAPI.Group("/teachers")
		{
			teachersGroup.GET("", handlers.TeacherMgmt.ListTeachers)
			teachersGroup.POST("", handlers.TeacherMgmt.CreateTeacher)
			teachersGroup.GET("/:id", handlers.TeacherMgmt.GetTeacher)
			teachersGroup.PUT("/:id", handlers.TeacherMgmt.UpdateTeacher)
			teachersGroup.DELETE("/:id", handlers.TeacherMgmt.DeleteTeacher)
		}

		adminAPI.GET("/logs", handlers.Activity.ListLogs)
		adminAPI.POST("/logs", handlers.Activity.AppendLog)

		settingsGroup := adminAPI.Group("/settings")
		{
			settingsGroup.GET("", handlers.Setting.GetSettings)
			settingsGroup.PUT("", handlers.Setting.UpdateSettings)
		}
	}

	// ─── 5. Teacher Group ──────────────────────────────────────────────
	teacherAPI := api.Group("/teacher")
	{
		teacherAPI.GET("/dashboard", handlers.Dashboard.GetTeacherDashboard)

		examsGroup := teacherAPI.Group("/exams")
		{
			examsGroup.GET("", handlers.Exam.ListExams)
			examsGroup.POST("", handlers.Exam.CreateExam)
			examsGroup.GET("/:id", handlers.Exam.GetExam)
			examsGroup.PUT("/:id", handlers.Exam.UpdateExam)
			examsGroup.DELETE("/:id", handlers.Exam.DeleteExam)
			examsGroup.POST("/:id/activate", handlers.Exam.ActivateExam)
			examsGroup.POST("/:id/complete", handlers.Exam.CompleteExam)
			examsGroup.POST("/:id/cancel", handlers.Exam.CancelExam)
			examsGroup.GET("/:id/sessions", handlers.Exam.ListSessions)
			examsGroup.GET("/:id/monitor", handlers.Monitor.MonitorExamSSE)
		}

		violationsGroup := teacherAPI.Group("/violations")
		{
			violationsGroup.GET("", handlers.Violation.ListViolations)
			violationsGroup.GET("/stats", handlers.Violation.GetViolationStats)
		}
	}

	return router
}
