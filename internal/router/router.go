package router

import (
	"net/http"
	"time"

	"github.com/eduverge/eduverge-backend/internal/config"
	"github.com/eduverge/eduverge-backend/internal/handler"
	"github.com/eduverge/eduverge-backend/internal/middleware"
	"github.com/eduverge/eduverge-backend/internal/response"
	"github.com/eduverge/eduverge-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth          *handler.AuthHandler
	StudentPortal *handler.StudentPortalHandler
	Assessment    *handler.AssessmentHandler
	WS            *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
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
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/student/login", handlers.Auth.StudentLogin)
		auth.POST("/faculty/login", handlers.Auth.FacultyLogin)

		// Authenticated profile routes
		auth.POST("/student/logout", middleware.RequireStudentJWT(authService), handlers.Auth.StudentLogout)
		auth.GET("/student/me", middleware.RequireStudentJWT(authService), handlers.Auth.GetStudentProfile)
	}

	// ─── 2. Student Group (JWT + Single Device) ────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleDeviceLogin(authService),
	)
	{
		studentAPI.GET("/lobby", handlers.StudentPortal.GetLobby)
		studentAPI.POST("/assessments/:assessment_id/session", handlers.StudentPortal.ResolveSession)
		studentAPI.GET("/assessments/:assessment_id/state", handlers.StudentPortal.GetState)
		studentAPI.GET("/assessments/:assessment_id/questions", handlers.StudentPortal.GetQuestions)
		studentAPI.POST("/assessments/:assessment_id/answers", handlers.StudentPortal.Autosave)
		studentAPI.POST("/assessments/:assessment_id/submit", handlers.StudentPortal.Submit)
		studentAPI.GET("/sessions/:session_id/result", handlers.StudentPortal.GetResult)
	}

	// ─── 3. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/assessments/:assessment_id/stream", handlers.WS.AttemptStream)
	}

	// ─── 4. Faculty Group (JWT) ────────────────────────────────────────
	facultyAPI := router.Group("/api/v1/faculty")
	facultyAPI.Use(middleware.RequireFacultyJWT(authService))
	{
		facultyAPI.GET("/assessments", handlers.Assessment.ListMine)
		facultyAPI.POST("/assessments", handlers.Assessment.Create)
		facultyAPI.GET("/assessments/:assessment_id", handlers.Assessment.GetOne)
		facultyAPI.PUT("/assessments/:assessment_id/questions", handlers.Assessment.ReplaceQuestions)
		facultyAPI.POST("/assessments/:assessment_id/publish", handlers.Assessment.Publish)
	}

	return router
}
