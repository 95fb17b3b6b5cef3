package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"angeleyes-http-service/services"
	"angeleyes-http-service/services/container"
)

// HealthController reports service health
type HealthController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewHealthController creates a new health controller
func NewHealthController(ctx *gin.Context, container *container.ServiceContainer) *HealthController {
	return &HealthController{
		Ctx:       ctx,
		Container: container,
	}
}

// Check reports the health of the service and its dependencies
// @Summary      Health check
// @Description  Reports database and push broker health
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health [get]
func (c *HealthController) Check() {
	dbStatus := "up"
	sqlDB, err := c.Container.GetDB().DB()
	if err != nil || sqlDB.Ping() != nil {
		dbStatus = "down"
	}

	pushStatus := "disabled"
	if push, ok := c.Container.GetService("push").(services.InterfacePushService); ok && push != nil {
		if push.IsAvailable() {
			pushStatus = "up"
		} else if c.Container.GetConfig().MQTTBrokerURL != "" {
			pushStatus = "down"
		}
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": gin.H{
			"status":    "ok",
			"database":  dbStatus,
			"push":      pushStatus,
			"timestamp": time.Now(),
		},
	})
}

// HandleHealthFunc routes a health request to the controller method
func HandleHealthFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewHealthController(ctx, container)

		switch method {
		case "check":
			controller.Check()
		default:
			ctx.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "invalid method",
				"data":    nil,
			})
		}
	}
}
