package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"angeleyes-http-service/middleware"
	"angeleyes-http-service/models"
	"angeleyes-http-service/services"
	"angeleyes-http-service/services/container"
)

// InterfaceDetectionController defines the detection controller interface
type InterfaceDetectionController interface {
	IngestDetection()
	GetDetection()
	ListDetections()
	UpdateStatus()
	ResolveDetection()
	EscalateDetection()
	AcknowledgeAlert()
	GetStatistics()
}

// DetectionController handles detection ingestion and review requests
type DetectionController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewDetectionController creates a new detection controller
func NewDetectionController(ctx *gin.Context, container *container.ServiceContainer) *DetectionController {
	return &DetectionController{
		Ctx:       ctx,
		Container: container,
	}
}

// IngestDetectionRequest is the detection event payload from the AI
// pipeline
type IngestDetectionRequest struct {
	BabyID      uint                 `json:"baby_id" binding:"required" example:"1"`
	SessionID   uint                 `json:"session_id" binding:"required" example:"12"`
	Type        string               `json:"type" binding:"required" example:"UnsafeSleeping"`
	Severity    string               `json:"severity" binding:"required" example:"High"`
	Confidence  float64              `json:"confidence" binding:"required" example:"0.92"`
	Description string               `json:"description" example:"Baby rolled onto stomach"`
	Data        models.DetectionData `json:"data"`
	DetectedAt  *time.Time           `json:"detected_at"`
}

// UpdateStatusRequest moves a detection through its review states
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required" example:"Investigating"`
}

// ResolveRequest closes a detection
type ResolveRequest struct {
	Notes         string `json:"notes" example:"Repositioned the baby"`
	FalsePositive bool   `json:"false_positive" example:"false"`
}

// EscalateRequest raises a detection's escalation level, naming the user
// the detection is handed to
type EscalateRequest struct {
	ToUserID uint   `json:"to_user_id" binding:"required" example:"7"`
	Reason   string `json:"reason" binding:"required" example:"No response after 5 minutes"`
}

// AlertActionRequest records the recipient's reaction to an alert
type AlertActionRequest struct {
	Action string `json:"action" binding:"required" example:"Acknowledged"`
}

func (c *DetectionController) currentUser() (uint, bool) {
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

func (c *DetectionController) idParam(name string) (uint, bool) {
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

// IngestDetection records a detection event
// @Summary      Ingest detection
// @Description  Records an AI detection, updates session statistics and fans out alerts
// @Tags         Detection
// @Accept       json
// @Produce      json
// @Param        request body IngestDetectionRequest true "Detection event"
// @Security     BearerAuth
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /detections [post]
func (c *DetectionController) IngestDetection() {
	userID, ok := c.currentUser()
	if !ok {
		return
	}

	var req IngestDetectionRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "invalid request parameters: " + err.Error(),
			"data":    nil,
		})
		return
	}

	input := &services.DetectionInput{
		BabyID:      req.BabyID,
		SessionID:   req.SessionID,
		UserID:      userID,
		Type:        models.DetectionType(req.Type),
		Severity:    models.DetectionSeverity(req.Severity),
		Confidence:  req.Confidence,
		Description: req.Description,
		Data:        req.Data,
		DetectedAt:  req.DetectedAt,
	}

	detectionService := c.Container.GetService("detection").(services.InterfaceDetectionService)
	detection, err := detectionService.IngestDetection(input)
	if err != nil {
		handleServiceError(c.Ctx, err)
		return
	}

	c.Ctx.JSON(http.StatusCreated, gin.H{
		"code":    0,
		"message": "success",
		"data":    detection,
	})
}

// GetDetection returns one detection with its alerts and escalations
// @Summary      Get detection details
// @Tags         Detection
// @Produce      json
// @Param        id path int true "Detection ID"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  ErrorResponse
// @Router       /detections/{id} [get]
func (c *DetectionController) GetDetection() {
	userID, ok := c.currentUser()
	if !ok {
		return
	}
	detectionID, ok := c.idParam("id")
	if !ok {
		return
	}

	detectionService := c.Container.GetService("detection").(services.InterfaceDetectionService)
	detection, err := detectionService.GetDetection(detectionID, userID)
	if err != nil {
		handleServiceError(c.Ctx, err)
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": gin.H{
			"detection":      detection,
			"severity_color": detection.Severity.SeverityColor(),
		},
	})
}

// ListDetections pages through a baby's detections
// @Summary      List detections
// @Description  Pages through detections with optional type, severity, status and time filters
// @Tags         Detection
// @Produce      json
// @Param        baby_id path int true "Baby ID"
// @Param        type query string false "Detection type"
// @Param        severity query string false "Severity"
// @Param        status query string false "Status"
// @Param        page query int false "Page number, default 1"
// @Param        page_size query int false "Page size, default 20"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  ErrorResponse
// @Router       /detections/babies/{baby_id} [get]
func (c *DetectionController) ListDetections() {
	userID, ok := c.currentUser()
	if !ok {
		return
	}
	babyID, ok := c.idParam("baby_id")
	if !ok {
		return
	}

	var filter services.DetectionFilter
	if err := c.Ctx.ShouldBindQuery(&filter); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "invalid filter parameters",
			"data":    nil,
		})
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

	detectionService := c.Container.GetService("detection").(services.InterfaceDetectionService)
	detections, pagination, err := detectionService.ListDetections(babyID, userID, filter, query)
	if err != nil {
		handleServiceError(c.Ctx, err)
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": gin.H{
			"detections": detections,
			"pagination": pagination,
		},
	})
}

// UpdateStatus moves a detection through its review state machine
// @Summary      Update detection status
// @Tags         Detection
// @Accept       json
// @Produce      json
// @Param        id path int true "Detection ID"
// @Param        request body UpdateStatusRequest true "Target status"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /detections/{id}/status [put]
func (c *DetectionController) UpdateStatus() {
	userID, ok := c.currentUser()
	if !ok {
		return
	}
	detectionID, ok := c.idParam("id")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "invalid request parameters: " + err.Error(),
			"data":    nil,
		})
		return
	}

	detectionService := c.Container.GetService("detection").(services.InterfaceDetectionService)
	detection, err := detectionService.UpdateStatus(detectionID, userID, models.DetectionStatus(req.Status))
	if err != nil {
		handleServiceError(c.Ctx, err)
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    detection,
	})
}

// ResolveDetection closes a detection
// @Summary      Resolve detection
// @Description  Closes a detection as resolved or as a false positive
// @Tags         Detection
// @Accept       json
// @Produce      json
// @Param        id path int true "Detection ID"
// @Param        request body ResolveRequest true "Resolution"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  ErrorResponse
// @Router       /detections/{id}/resolve [post]
func (c *DetectionController) ResolveDetection() {
	userID, ok := c.currentUser()
	if !ok {
		return
	}
	detectionID, ok := c.idParam("id")
	if !ok {
		return
	}

	var req ResolveRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "invalid request parameters: " + err.Error(),
			"data":    nil,
		})
		return
	}

	detectionService := c.Container.GetService("detection").(services.InterfaceDetectionService)
	detection, err := detectionService.Resolve(detectionID, userID, req.Notes, req.FalsePositive)
	if err != nil {
		handleServiceError(c.Ctx, err)
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    detection,
	})
}

// EscalateDetection raises a detection's escalation level
// @Summary      Escalate detection
// @Description  Raises the escalation level by one and hands the detection to another user, capped at the maximum level
// @Tags         Detection
// @Accept       json
// @Produce      json
// @Param        id path int true "Detection ID"
// @Param        request body EscalateRequest true "Escalation reason"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse "Level limit reached or detection closed"
// @Router       /detections/{id}/escalate [post]
func (c *DetectionController) EscalateDetection() {
	userID, ok := c.currentUser()
	if !ok {
		return
	}
	detectionID, ok := c.idParam("id")
	if !ok {
		return
	}

	var req EscalateRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "invalid request parameters: " + err.Error(),
			"data":    nil,
		})
		return
	}

	detectionService := c.Container.GetService("detection").(services.InterfaceDetectionService)
	detection, err := detectionService.Escalate(detectionID, userID, req.ToUserID, req.Reason)
	if err != nil {
		handleServiceError(c.Ctx, err)
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": gin.H{
			"detection":        detection,
			"escalation_level": detection.EscalationLevel,
		},
	})
}

// AcknowledgeAlert records the recipient's reaction to an alert
// @Summary      Acknowledge alert
// @Description  Records what the recipient did about their alert
// @Tags         Detection
// @Accept       json
// @Produce      json
// @Param        id path int true "Alert ID"
// @Param        request body AlertActionRequest true "Action taken"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  ErrorResponse
// @Router       /detections/alerts/{id} [put]
func (c *DetectionController) AcknowledgeAlert() {
	userID, ok := c.currentUser()
	if !ok {
		return
	}
	alertID, ok := c.idParam("id")
	if !ok {
		return
	}

	var req AlertActionRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "invalid request parameters: " + err.Error(),
			"data":    nil,
		})
		return
	}

	detectionService := c.Container.GetService("detection").(services.InterfaceDetectionService)
	alert, err := detectionService.AcknowledgeAlert(alertID, userID, models.AlertAction(req.Action))
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

// GetStatistics reports detection activity over a window of days
// @Summary      Detection statistics
// @Description  Aggregates detections by type and severity over the last N days
// @Tags         Detection
// @Produce      json
// @Param        baby_id path int true "Baby ID"
// @Param        days query int false "Reporting window in days, default 7"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  ErrorResponse
// @Router       /detections/babies/{baby_id}/statistics [get]
func (c *DetectionController) GetStatistics() {
	userID, ok := c.currentUser()
	if !ok {
		return
	}
	babyID, ok := c.idParam("baby_id")
	if !ok {
		return
	}

	days, _ := strconv.Atoi(c.Ctx.DefaultQuery("days", "7"))

	detectionService := c.Container.GetService("detection").(services.InterfaceDetectionService)
	report, err := detectionService.GetStatistics(babyID, userID, days)
	if err != nil {
		handleServiceError(c.Ctx, err)
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    report,
	})
}

// HandleDetectionFunc routes a detection request to the controller method
func HandleDetectionFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewDetectionController(ctx, container)

		switch method {
		case "ingestDetection":
			controller.IngestDetection()
		case "getDetection":
			controller.GetDetection()
		case "listDetections":
			controller.ListDetections()
		case "updateStatus":
			controller.UpdateStatus()
		case "resolveDetection":
			controller.ResolveDetection()
		case "escalateDetection":
			controller.EscalateDetection()
		case "acknowledgeAlert":
			controller.AcknowledgeAlert()
		case "getStatistics":
			controller.GetStatistics()
		default:
			ctx.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "invalid method",
				"data":    nil,
			})
		}
	}
}
