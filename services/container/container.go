package container

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"angeleyes-http-service/config"
	"angeleyes-http-service/services"
)

// ServiceContainer manages dependency injection for all services
type ServiceContainer struct {
	db     *gorm.DB
	config *config.Config
	redis  *redis.Client

	// Base services
	jwtService services.InterfaceJWTService

	// Data storage services
	redisService *services.RedisService

	// Delivery services
	pushService         services.InterfacePushService
	notificationService services.InterfaceNotificationService
	streamService       services.InterfaceStreamService

	// Business services
	userService       services.InterfaceUserService
	babyService       services.InterfaceBabyService
	monitoringService services.InterfaceMonitoringService
	detectionService  services.InterfaceDetectionService

	mu sync.RWMutex
}

// NewServiceContainer creates a new service container
func NewServiceContainer(db *gorm.DB, cfg *config.Config, redisClient *redis.Client) *ServiceContainer {
	if db == nil {
		panic("database connection is nil")
	}

	if cfg == nil {
		panic("config is nil")
	}

	// Probe the Redis connection
	if redisClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("Redis connection test failed: %v, caching disabled", err)
		}
	}

	container := &ServiceContainer{
		db:     db,
		config: cfg,
		redis:  redisClient,
	}
	container.initializeServices()
	return container
}

// initializeServices initializes all services
func (c *ServiceContainer) initializeServices() {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Base services
	c.jwtService = services.NewJWTService(c.config, c.db)

	// Storage services
	if c.redis != nil {
		c.redisService = services.NewRedisService(c.config)
	}

	// Delivery services
	c.pushService = services.NewPushService(c.config)
	c.notificationService = services.NewNotificationHub()
	c.streamService = services.NewStreamService(c.config)

	// Business services
	c.userService = services.NewUserService(c.db, c.config)
	c.babyService = services.NewBabyService(c.db, c.config, c.redisService)
	c.monitoringService = services.NewMonitoringService(c.db, c.config, c.babyService, c.notificationService)
	c.detectionService = services.NewDetectionService(c.db, c.config, c.babyService, c.notificationService, c.pushService, c.redisService)
}

// GetService returns a service by name
func (c *ServiceContainer) GetService(name string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch name {
	case "config":
		return c.config
	case "db":
		return c.db
	case "jwt":
		return c.jwtService
	case "redis":
		return c.redisService
	case "push":
		return c.pushService
	case "notification":
		return c.notificationService
	case "stream":
		return c.streamService
	case "user":
		return c.userService
	case "baby":
		return c.babyService
	case "monitoring":
		return c.monitoringService
	case "detection":
		return c.detectionService
	default:
		return nil
	}
}

// GetDB returns the database connection
func (c *ServiceContainer) GetDB() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

// GetConfig returns the application configuration
func (c *ServiceContainer) GetConfig() *config.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}
