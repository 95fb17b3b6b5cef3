package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"angeleyes-http-service/middleware"
	"angeleyes-http-service/models"
	"angeleyes-http-service/services"
	"angeleyes-http-service/services/container"
)

// InterfaceMonitoringController defines the monitoring controller interface
type InterfaceMonitoringController interface {
	StartSession()
	EndSession()
	UpdateSettings()
	GetSession()
	GetActiveSession()
	ListSessions()
	AcknowledgeSessionAlert()
	GetStreamToken()
}

// MonitoringController handles monitoring session requests
type MonitoringController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewMonitoringController creates a new monitoring controller
func NewMonitoringController(ctx *gin.Context, container *container.ServiceContainer) *MonitoringController {
	return &MonitoringController{
		Ctx:       ctx,
		Container: container,
	}
}

// StartSessionRequest is the session start payload
type StartSessionRequest struct {
	BabyID      uint                  `json:"baby_id" binding:"required" example:"1"`
	SessionType string                `json:"session_type" example:"Sleep"`
	Settings    *models.SettingsPatch `json:"settings"`
	DeviceIDs   []string              `json:"device_ids" example:"cam-nursery-01"`
}

// UpdateSettingsRequest is the partial settings payload
type UpdateSettingsRequest struct {
	Settings models.SettingsPatch `json:"settings" binding:"required"`
}

func (c *MonitoringController) currentUser() (uint, bool) {
	userID, ok := middleware.GetUserID(c.Ctx)
	if !ok {
		c.Ctx.JSON(http.StatusUnauthorized, gin.H{
			"code":    401,
			"message": "authentication required",
			"data":    nil,
		})
	}
	return userID, ok
}

func (c *MonitoringController) idParam(name string) (uint, bool) {
	idUint, err := strconv.ParseUint(c.Ctx.Param(name), 10, 32)
	if err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "invalid " + name,
			"data":    nil,
		})
		return 0, false
	}
	return uint(idUint), true
}

// StartSession starts a monitoring session
// @Summary      Start monitoring session
// @Description  Starts a session for a baby. Only one session per baby can be active at a time.
// @Tags         Monitoring
// @Accept       json
// @Produce      json
// @Param        request body StartSessionRequest true "Session parameters"
// @Security     BearerAuth
// @Success      201  {object}  map[string]interface{}
// @Failure      409  {object}  ErrorResponse "A session is already active"
// @Router       /monitoring/sessions [post]
func (c *MonitoringController) StartSession() {
	userID, ok := c.currentUser()
	if !ok {
		return
	}

	var req StartSessionRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "invalid request parameters: " + err.Error(),
			"data":    nil,
		})
		return
	}

	monitoringService := c.Container.GetService("monitoring").(services.InterfaceMonitoringService)
	session, err := monitoringService.StartSession(req.BabyID, userID, models.SessionType(req.SessionType), req.Settings, req.DeviceIDs)
	if err != nil {
		handleServiceError(c.Ctx, err)
		return
	}

	c.Ctx.JSON(http.StatusCreated, gin.H{
		"code":    0,
		"message": "success",
		"data":    session,
	})
}

// EndSession ends an active session
// @Summary      End monitoring session
// @Description  Ends an active session and returns its final statistics
// @Tags         Monitoring
// @Produce      json
// @Param        id path int true "Session ID"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse "Session is not active"
// @Router       /monitoring/sessions/{id}/end [post]
func (c *MonitoringController) EndSession() {
	userID, ok := c.currentUser()
	if !ok {
		return
	}
	sessionID, ok := c.idParam("id")
	if !ok {
		return
	}

	monitoringService := c.Container.GetService("monitoring").(services.InterfaceMonitoringService)
	session, err := monitoringService.EndSession(sessionID, userID)
	if err != nil {
		handleServiceError(c.Ctx, err)
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": gin.H{
			"session":  session,
			"duration": session.DurationFormatted(),
		},
	})
}

// UpdateSettings applies a partial settings update
// @Summary      Update session settings
// @Description  Merges the supplied fields into the active session's settings
// @Tags         Monitoring
// @Accept       json
// @Produce      json
// @Param        id path int true "Session ID"
// @Param        request body UpdateSettingsRequest true "Settings patch"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  ErrorResponse
// @Router       /monitoring/sessions/{id}/settings [patch]
func (c *MonitoringController) UpdateSettings() {
	userID, ok := c.currentUser()
	if !ok {
		return
	}
	sessionID, ok := c.idParam("id")
	if !ok {
		return
	}

	var req UpdateSettingsRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "invalid request parameters: " + err.Error(),
			"data":    nil,
		})
		return
	}

	monitoringService := c.Container.GetService("monitoring").(services.InterfaceMonitoringService)
	session, err := monitoringService.UpdateSettings(sessionID, userID, req.Settings)
	if err != nil {
		handleServiceError(c.Ctx, err)
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    session.Settings,
	})
}

// GetSession returns one session
// @Summary      Get session details
// @Tags         Monitoring
// @Produce      json
// @Param        id path int true "Session ID"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  ErrorResponse
// @Router       /monitoring/sessions/{id} [get]
func (c *MonitoringController) GetSession() {
	userID, ok := c.currentUser()
	if !ok {
		return
	}
	sessionID, ok := c.idParam("id")
	if !ok {
		return
	}

	monitoringService := c.Container.GetService("monitoring").(services.InterfaceMonitoringService)
	session, err := monitoringService.GetSession(sessionID, userID)
	if err != nil {
		handleServiceError(c.Ctx, err)
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": gin.H{
			"session":  session,
			"duration": session.DurationFormatted(),
		},
	})
}

// GetActiveSession returns the baby's active session
// @Summary      Get active session
// @Tags         Monitoring
// @Produce      json
// @Param        baby_id path int true "Baby ID"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  ErrorResponse "No active session"
// @Router       /monitoring/babies/{baby_id}/active [get]
func (c *MonitoringController) GetActiveSession() {
	userID, ok := c.currentUser()
	if !ok {
		return
	}
	babyID, ok := c.idParam("baby_id")
	if !ok {
		return
	}

	monitoringService := c.Container.GetService("monitoring").(services.InterfaceMonitoringService)
	session, err := monitoringService.GetActiveSession(babyID, userID)
	if err != nil {
		handleServiceError(c.Ctx, err)
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    session,
	})
}

// ListSessions pages through session history
// @Summary      List sessions
// @Description  Pages through a baby's session history, newest first
// @Tags         Monitoring
// @Produce      json
// @Param        baby_id path int true "Baby ID"
// @Param        page query int false "Page number, default 1"
// @Param        page_size query int false "Page size, default 20"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  ErrorResponse
// @Router       /monitoring/babies/{baby_id}/sessions [get]
func (c *MonitoringController) ListSessions() {
	userID, ok := c.currentUser()
	if !ok {
		return
	}
	babyID, ok := c.idParam("baby_id")
	if !ok {
		return
	}

	var query models.PaginationQuery
	if err := c.Ctx.ShouldBindQuery(&query); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "invalid pagination parameters",
			"data":    nil,
		})
		return
	}

	monitoringService := c.Container.GetService("monitoring").(services.InterfaceMonitoringService)
	sessions, pagination, err := monitoringService.ListSessions(babyID, userID, query)
	if err != nil {
		handleServiceError(c.Ctx, err)
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": gin.H{
			"sessions":   sessions,
			"pagination": pagination,
		},
	})
}

// AcknowledgeSessionAlert acknowledges a session alert
// @Summary      Acknowledge session alert
// @Tags         Monitoring
// @Produce      json
// @Param        id path int true "Session ID"
// @Param        alert_id path int true "Alert ID"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  ErrorResponse
// @Router       /monitoring/sessions/{id}/alerts/{alert_id}/acknowledge [post]
func (c *MonitoringController) AcknowledgeSessionAlert() {
	userID, ok := c.currentUser()
	if !ok {
		return
	}
	sessionID, ok := c.idParam("id")
	if !ok {
		return
	}
	alertID, ok := c.idParam("alert_id")
	if !ok {
		return
	}

	monitoringService := c.Container.GetService("monitoring").(services.InterfaceMonitoringService)
	alert, err := monitoringService.AcknowledgeSessionAlert(sessionID, alertID, userID)
	if err != nil {
		handleServiceError(c.Ctx, err)
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    alert,
	})
}

// GetStreamToken issues live stream credentials
// @Summary      Get live stream token
// @Description  Issues TRTC credentials for the baby's video room, requires view live stream permission
// @Tags         Monitoring
// @Produce      json
// @Param        baby_id path int true "Baby ID"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  ErrorResponse
// @Router       /monitoring/babies/{baby_id}/stream-token [get]
func (c *MonitoringController) GetStreamToken() {
	userID, ok := c.currentUser()
	if !ok {
		return
	}
	babyID, ok := c.idParam("baby_id")
	if !ok {
		return
	}

	babyService := c.Container.GetService("baby").(services.InterfaceBabyService)
	perms, err := babyService.PermissionsFor(userID, babyID)
	if err != nil {
		handleServiceError(c.Ctx, err)
		return
	}
	if !perms.ViewLiveStream {
		handleServiceError(c.Ctx, services.ErrPermissionDenied)
		return
	}

	streamService := c.Container.GetService("stream").(services.InterfaceStreamService)
	token, err := streamService.GetUserSig(strconv.FormatUint(uint64(userID), 10))
	if err != nil {
		c.Ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "failed to generate stream token",
			"data":    nil,
		})
		return
	}
	token.RoomID = streamService.RoomIDForBaby(babyID)

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    token,
	})
}

// HandleMonitoringFunc routes a monitoring request to the controller method
func HandleMonitoringFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewMonitoringController(ctx, container)

		switch method {
		case "startSession":
			controller.StartSession()
		case "endSession":
			controller.EndSession()
		case "updateSettings":
			controller.UpdateSettings()
		case "getSession":
			controller.GetSession()
		case "getActiveSession":
			controller.GetActiveSession()
		case "listSessions":
			controller.ListSessions()
		case "acknowledgeSessionAlert":
			controller.AcknowledgeSessionAlert()
		case "getStreamToken":
			controller.GetStreamToken()
		default:
			ctx.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "invalid method",
				"data":    nil,
			})
		}
	}
}
