package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/xushnid/supertest-backend/internal/config"
	"github.com/xushnid/supertest-backend/internal/handler"
	"github.com/xushnid/supertest-backend/internal/middleware"
	"github.com/xushnid/supertest-backend/internal/response"
	"github.com/xushnid/supertest-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Test    *handler.TestHandler
	Session *handler.SessionHandler
	WS      *handler.WSHandler
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
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally. Question payloads compress well.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for the public participant surface (60 requests per
	// minute per IP).
	publicLimiter := middleware.NewRateLimiter(60, time.Minute)

	// ─── 1. Public Participant Group (No Auth, Rate Limited) ───────────
	public := router.Group("/api/v1")
	public.Use(publicLimiter.Middleware())
	{
		public.GET("/session", handlers.Session.GetSession)
		public.POST("/submit", handlers.Session.SubmitResult)
	}

	// ─── 2. Auth Group ─────────────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/login", handlers.Auth.Login)
		auth.GET("/me", middleware.RequireOperatorJWT(authService), handlers.Auth.Me)
	}

	// ─── 3. Operator Group (JWT) ───────────────────────────────────────
	operatorAPI := router.Group("/api/v1/operator")
	operatorAPI.Use(middleware.RequireOperatorJWT(authService))
	{
		operatorAPI.POST("/tests", handlers.Test.CreateTest)
		operatorAPI.GET("/tests", handlers.Test.ListTests)
		operatorAPI.GET("/tests/:test_id", handlers.Test.GetTest)
		operatorAPI.DELETE("/tests/:test_id", handlers.Test.DeleteTest)
		operatorAPI.POST("/tests/:test_id/bank", handlers.Test.UploadBank)
		operatorAPI.GET("/tests/:test_id/bank/export", handlers.Test.ExportBank)
		operatorAPI.POST("/tests/:test_id/activate", handlers.Test.ActivateTest)
		operatorAPI.POST("/tests/:test_id/deactivate", handlers.Test.DeactivateTest)
		operatorAPI.GET("/tests/:test_id/leaderboard", handlers.Test.GetLeaderboard)
	}

	// ─── 4. WebSocket Group (Operator WS Auth) ─────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireOperatorWSAuth(authService))
	{
		ws.GET("/operator/tests/:test_id/leaderboard", handlers.WS.LeaderboardStream)
	}

	return router
}
