package routes

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"angeleyes-http-service/config"
	"angeleyes-http-service/controllers"
	_ "angeleyes-http-service/docs"
	"angeleyes-http-service/middleware"
	"angeleyes-http-service/services/container"
)

// SetupRouter initializes and returns the configured router
func SetupRouter(db *gorm.DB, cfg *config.Config) *gin.Engine {
	serviceContainer := container.NewServiceContainer(db, cfg, nil)
	return SetupRouterWithContainer(serviceContainer, cfg)
}

// SetupRouterWithContainer wires routes onto an existing service container
func SetupRouterWithContainer(serviceContainer *container.ServiceContainer, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, Accept, Origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Initialize the auth middleware
	middleware.InitAuthMiddleware(cfg, serviceContainer.GetDB())

	// Swagger documentation route
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	registerRoutes(r, serviceContainer)
	return r
}

// registerRoutes configures all API routes
func registerRoutes(
	r *gin.Engine,
	container *container.ServiceContainer,
) {
	api := r.Group("/api")
	registerPublicRoutes(api, container)
	registerAuthenticatedRoutes(api, container)
}

// registerPublicRoutes registers routes that need no authentication
func registerPublicRoutes(
	api *gin.RouterGroup,
	container *container.ServiceContainer,
) {
	// Health check
	api.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
	api.GET("/health", controllers.HandleHealthFunc(container, "check"))

	// Auth routes, rate limited against credential stuffing
	authLimiter := middleware.CombinedRateLimiter(5, 10)
	api.POST("/auth/register", authLimiter, controllers.HandleJWTFunc(container, "register"))
	api.POST("/auth/login", authLimiter, controllers.HandleJWTFunc(container, "login"))
}

// registerAuthenticatedRoutes registers routes behind the auth middleware
func registerAuthenticatedRoutes(
	api *gin.RouterGroup,
	container *container.ServiceContainer,
) {
	auth := api.Group("/")
	auth.Use(middleware.Authentication())

	// Baby profile routes
	auth.Group("/babies").GET("", controllers.HandleBabyFunc(container, "getBabies"))
	auth.Group("/babies").GET("/:id", controllers.HandleBabyFunc(container, "getBaby"))
	auth.Group("/babies").POST("", controllers.HandleBabyFunc(container, "createBaby"))
	auth.Group("/babies").PUT("/:id", controllers.HandleBabyFunc(container, "updateBaby"))
	auth.Group("/babies").DELETE("/:id", controllers.HandleBabyFunc(container, "deleteBaby"))
	auth.Group("/babies").GET("/:id/statistics", controllers.HandleBabyFunc(container, "getBabyStatistics"))

	// Caregiver routes
	auth.Group("/babies").POST("/:id/parents", controllers.HandleBabyFunc(container, "addParent"))
	auth.Group("/babies").POST("/:id/caregivers", controllers.HandleBabyFunc(container, "addCaregiver"))
	auth.Group("/babies").PUT("/:id/caregivers/:caregiver_id", controllers.HandleBabyFunc(container, "updateCaregiver"))
	auth.Group("/babies").DELETE("/:id/caregivers/:caregiver_id", controllers.HandleBabyFunc(container, "removeCaregiver"))

	// Emergency contact and milestone routes
	auth.Group("/babies").POST("/:id/emergency-contacts", controllers.HandleBabyFunc(container, "addEmergencyContact"))
	auth.Group("/babies").GET("/:id/emergency-contacts", controllers.HandleBabyFunc(container, "getEmergencyContacts"))
	auth.Group("/babies").POST("/:id/milestones", controllers.HandleBabyFunc(container, "addMilestone"))
	auth.Group("/babies").GET("/:id/milestones", controllers.HandleBabyFunc(container, "getMilestones"))

	// Monitoring session routes
	auth.Group("/monitoring").POST("/sessions", controllers.HandleMonitoringFunc(container, "startSession"))
	auth.Group("/monitoring").GET("/sessions/:id", controllers.HandleMonitoringFunc(container, "getSession"))
	auth.Group("/monitoring").POST("/sessions/:id/end", controllers.HandleMonitoringFunc(container, "endSession"))
	auth.Group("/monitoring").PATCH("/sessions/:id/settings", controllers.HandleMonitoringFunc(container, "updateSettings"))
	auth.Group("/monitoring").POST("/sessions/:id/alerts/:alert_id/acknowledge", controllers.HandleMonitoringFunc(container, "acknowledgeSessionAlert"))
	auth.Group("/monitoring").GET("/babies/:baby_id/active", controllers.HandleMonitoringFunc(container, "getActiveSession"))
	auth.Group("/monitoring").GET("/babies/:baby_id/sessions", controllers.HandleMonitoringFunc(container, "listSessions"))
	auth.Group("/monitoring").GET("/babies/:baby_id/stream-token", controllers.HandleMonitoringFunc(container, "getStreamToken"))

	// Detection routes
	auth.Group("/detections").POST("", controllers.HandleDetectionFunc(container, "ingestDetection"))
	auth.Group("/detections").GET("/:id", controllers.HandleDetectionFunc(container, "getDetection"))
	auth.Group("/detections").GET("/babies/:baby_id", controllers.HandleDetectionFunc(container, "listDetections"))
	auth.Group("/detections").GET("/babies/:baby_id/statistics", controllers.HandleDetectionFunc(container, "getStatistics"))
	auth.Group("/detections").PUT("/:id/status", controllers.HandleDetectionFunc(container, "updateStatus"))
	auth.Group("/detections").POST("/:id/resolve", controllers.HandleDetectionFunc(container, "resolveDetection"))
	auth.Group("/detections").POST("/:id/escalate", controllers.HandleDetectionFunc(container, "escalateDetection"))
	auth.Group("/detections").PUT("/alerts/:id", controllers.HandleDetectionFunc(container, "acknowledgeAlert"))

	// Websocket notification stream
	auth.GET("/ws/notifications", controllers.HandleWebSocketFunc(container, "subscribe"))
}
