// Package api provides HTTP routing and server configuration for the IFPass
// API. It wires together handlers, middleware, and services to create the
// application's endpoints.
package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eduardobaptist/ifpass-api/internal/api/handlers"
	"github.com/eduardobaptist/ifpass-api/internal/api/middleware"
	"github.com/eduardobaptist/ifpass-api/internal/config"
	"github.com/eduardobaptist/ifpass-api/internal/crypto"
	"github.com/eduardobaptist/ifpass-api/internal/database"
	"github.com/eduardobaptist/ifpass-api/internal/database/models"
	"github.com/eduardobaptist/ifpass-api/internal/service"
)

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, db *database.Database, logger *zap.Logger) *gin.Engine {
	// Set Gin mode
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.CORSMiddleware(cfg))

	// Initialize services
	signer := crypto.NewSigner(cfg.App.Secret)
	userService := service.NewUserService(db, cfg)
	eventService := service.NewEventService(db)
	subscriptionService := service.NewSubscriptionService(db, eventService)
	certService := service.NewCertificateService(db, signer)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, logger)
	userHandler := handlers.NewUserHandler(userService, logger)
	eventHandler := handlers.NewEventHandler(eventService, logger)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionService, eventService, logger)
	certHandler := handlers.NewCertificateHandler(certService, subscriptionService, logger)

	// Public routes
	public := router.Group("/api/v1")
	{
		// Auth routes
		public.POST("/auth/register", authHandler.Register)
		public.POST("/auth/login", authHandler.Login)

		// Certificate validation is open to third parties
		public.GET("/certificates/validate", certHandler.Validate)
		public.POST("/certificates/validate", certHandler.Validate)
	}

	// Protected routes (require authentication)
	protected := router.Group("/api/v1")
	protected.Use(middleware.AuthMiddleware(cfg))
	{
		// Auth
		protected.GET("/auth/me", authHandler.GetCurrentUser)

		// Events
		protected.GET("/events", eventHandler.ListEvents)
		protected.GET("/events/:id", eventHandler.GetEvent)
		protected.GET("/events/:id/subscriptions", subscriptionHandler.EventSubscriptions)
		protected.POST("/events", middleware.RequireRole(models.RoleOrganizer), eventHandler.CreateEvent)
		protected.PUT("/events/:id", middleware.RequireRole(models.RoleOrganizer), eventHandler.UpdateEvent)
		protected.DELETE("/events/:id", middleware.RequireRole(models.RoleOrganizer), eventHandler.DeleteEvent)

		// Subscriptions
		protected.POST("/subscriptions/subscribe", subscriptionHandler.Subscribe)
		protected.POST("/subscriptions/attend", subscriptionHandler.CheckIn)
		protected.POST("/subscriptions/:id/cancel", subscriptionHandler.Cancel)
		protected.GET("/subscriptions/my-subscriptions", subscriptionHandler.MySubscriptions)

		// Certificates
		protected.POST("/certificates/issue", certHandler.Issue)
		protected.GET("/certificates/my-certificates", certHandler.MyCertificates)
		protected.GET("/certificates/:id", certHandler.GetCertificate)

		// User administration
		users := protected.Group("/users")
		users.Use(middleware.RequireRole(models.RoleAdmin))
		{
			users.GET("", userHandler.ListUsers)
			users.GET("/:id", userHandler.GetUser)
			users.PUT("/:id", userHandler.UpdateUser)
			users.DELETE("/:id", userHandler.DeleteUser)
		}
	}

	return router
}
