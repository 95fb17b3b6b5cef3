package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"angeleyes-http-service/config"
	"angeleyes-http-service/middleware"
	"angeleyes-http-service/services"
	"angeleyes-http-service/services/container"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Mobile clients connect from app webviews, origin checks happen at
	// the gateway
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketController upgrades connections onto the notification hub
type WebSocketController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewWebSocketController creates a new websocket controller
func NewWebSocketController(ctx *gin.Context, container *container.ServiceContainer) *WebSocketController {
	return &WebSocketController{
		Ctx:       ctx,
		Container: container,
	}
}

// Subscribe upgrades the connection and serves notification events
// @Summary      Subscribe to notifications
// @Description  Upgrades to a websocket. Clients then send {"action":"subscribe","baby_id":N} to join a baby's event stream.
// @Tags         Notifications
// @Security     BearerAuth
// @Success      101
// @Failure      401  {object}  ErrorResponse
// @Router       /ws/notifications [get]
func (c *WebSocketController) Subscribe() {
	userID, ok := middleware.GetUserID(c.Ctx)
	if !ok {
		c.Ctx.JSON(http.StatusUnauthorized, gin.H{
			"code":    401,
			"message": "authentication required",
			"data":    nil,
		})
		return
	}

	conn, err := upgrader.Upgrade(c.Ctx.Writer, c.Ctx.Request, nil)
	if err != nil {
		config.Error("[WS] upgrade failed: %v", err)
		return
	}

	hub := c.Container.GetService("notification").(services.InterfaceNotificationService)
	babyService := c.Container.GetService("baby").(services.InterfaceBabyService)

	client := hub.NewClient(conn, userID)

	go client.WritePump()
	go client.ReadPump(func(userID, babyID uint) bool {
		return babyService.HasAccess(userID, babyID)
	})
}

// HandleWebSocketFunc routes a websocket request to the controller method
func HandleWebSocketFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewWebSocketController(ctx, container)

		switch method {
		case "subscribe":
			controller.Subscribe()
		default:
			ctx.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "invalid method",
				"data":    nil,
			})
		}
	}
}
