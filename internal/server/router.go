package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/openhealth/shared-backend/internal/handlers"
	"github.com/openhealth/shared-backend/internal/middleware"
)

type RouterConfig struct {
	AllowedOrigins []string

	AuthMiddleware      *middleware.AuthMiddleware
	RateLimiter         *middleware.RateLimitMiddleware
	HealthHandler       *handlers.HealthHandler
	AuthHandler         *handlers.AuthHandler
	UserHandler         *handlers.UserHandler
	ChatHandler         *handlers.ChatHandler
	ConversationHandler *handlers.ConversationHandler
	VentureHandler      *handlers.VentureHandler
	MeetingHandler      *handlers.MeetingHandler
	AdminHandler        *handlers.AdminHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", cfg.HealthHandler.Check)

	api := router.Group("/api")
	api.POST("/auth/register", cfg.AuthHandler.Register)
	api.POST("/auth/login", cfg.AuthHandler.Login)
	api.POST("/auth/admin/login", cfg.AuthHandler.AdminLogin)
	api.POST("/auth/refresh", cfg.AuthHandler.Refresh)

	// ===============
	// || Protected ||
	// ===============
	protected := api.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	protected.Use(cfg.RateLimiter.Limit())

	protected.POST("/auth/logout", cfg.AuthHandler.Logout)

	protected.GET("/user", cfg.UserHandler.Me)
	protected.PATCH("/user", cfg.UserHandler.UpdateMe)
	protected.DELETE("/user", cfg.UserHandler.DeleteMe)

	protected.POST("/chat", cfg.ChatHandler.Chat)

	protected.GET("/conversations", cfg.ConversationHandler.List)
	protected.GET("/conversations/:id", cfg.ConversationHandler.Get)
	protected.POST("/conversations/:id/archive", cfg.ConversationHandler.Archive)

	protected.GET("/ventures", cfg.VentureHandler.List)
	protected.GET("/ventures/:id", cfg.VentureHandler.Get)

	protected.GET("/meetings", cfg.MeetingHandler.List)
	protected.POST("/meetings/:id/confirm", cfg.MeetingHandler.Confirm)
	protected.POST("/meetings/:id/cancel", cfg.MeetingHandler.Cancel)

	// ===============
	// || Admin     ||
	// ===============
	admin := protected.Group("/admin")
	admin.Use(cfg.AuthMiddleware.RequireAdmin())

	admin.GET("/ventures", cfg.AdminHandler.ListVentures)
	admin.PATCH("/ventures/:id/status", cfg.AdminHandler.UpdateVentureStatus)
	admin.POST("/ventures/:id/rescore", cfg.AdminHandler.RescoreVenture)
	admin.GET("/ventures/:id/breakdown", cfg.AdminHandler.VentureBreakdown)

	admin.POST("/conversations/:id/flag", cfg.AdminHandler.FlagConversation)
	admin.POST("/conversations/:id/unflag", cfg.AdminHandler.UnflagConversation)

	admin.GET("/schemas", cfg.AdminHandler.ListSchemas)
	admin.POST("/schemas", cfg.AdminHandler.CreateSchema)
	admin.POST("/schemas/:id/activate", cfg.AdminHandler.ActivateSchema)

	admin.GET("/weights", cfg.AdminHandler.ListWeights)
	admin.POST("/weights", cfg.AdminHandler.CreateWeights)
	admin.POST("/weights/:id/activate", cfg.AdminHandler.ActivateWeights)

	admin.GET("/audit-log", cfg.AdminHandler.ListAuditLog)

	return router
}
