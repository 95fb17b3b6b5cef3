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

// InterfaceBabyController defines the baby controller interface
type InterfaceBabyController interface {
	GetBabies()
	GetBaby()
	CreateBaby()
	UpdateBaby()
	DeleteBaby()
	GetBabyStatistics()
	AddParent()
	AddCaregiver()
	UpdateCaregiver()
	RemoveCaregiver()
	AddEmergencyContact()
	GetEmergencyContacts()
	AddMilestone()
	GetMilestones()
}

// BabyController handles baby profile and caregiver requests
type BabyController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewBabyController creates a new baby controller
func NewBabyController(ctx *gin.Context, container *container.ServiceContainer) *BabyController {
	return &BabyController{
		Ctx:       ctx,
		Container: container,
	}
}

// BabyRequest is the baby creation payload
type BabyRequest struct {
	FirstName    string    `json:"first_name" binding:"required" example:"Emma"`
	LastName     string    `json:"last_name" binding:"required" example:"Miller"`
	DateOfBirth  time.Time `json:"date_of_birth" binding:"required" example:"2025-11-02T00:00:00Z"`
	Gender       string    `json:"gender" binding:"required" example:"Female"`
	ProfilePhoto string    `json:"profile_photo" example:"https://cdn.example.com/emma.jpg"`
}

// UpdateBabyRequest is the baby update payload
type UpdateBabyRequest struct {
	FirstName    string     `json:"first_name" example:"Emma"`
	LastName     string     `json:"last_name" example:"Miller"`
	DateOfBirth  *time.Time `json:"date_of_birth"`
	Gender       string     `json:"gender" example:"Female"`
	ProfilePhoto string     `json:"profile_photo"`
}

// ParentRequest grants another user parent ownership
type ParentRequest struct {
	UserID uint `json:"user_id" binding:"required" example:"4"`
}

// CaregiverRequest is the caregiver grant payload
type CaregiverRequest struct {
	UserID      uint                  `json:"user_id" binding:"required" example:"7"`
	Role        string                `json:"role" binding:"required" example:"Grandparent"`
	Permissions *models.PermissionSet `json:"permissions"`
}

// CaregiverPermissionsRequest replaces a caregiver's permissions
type CaregiverPermissionsRequest struct {
	Permissions models.PermissionSet `json:"permissions" binding:"required"`
}

// EmergencyContactRequest is the emergency contact payload
type EmergencyContactRequest struct {
	Name         string `json:"name" binding:"required" example:"Dr. Reed"`
	Relationship string `json:"relationship" binding:"required" example:"Pediatrician"`
	PhoneNumber  string `json:"phone_number" binding:"required" example:"+15559876543"`
	IsPrimary    bool   `json:"is_primary" example:"true"`
}

// MilestoneRequest is the milestone payload
type MilestoneRequest struct {
	Title       string     `json:"title" binding:"required" example:"First steps"`
	Description string     `json:"description" example:"Walked across the living room"`
	AchievedAt  *time.Time `json:"achieved_at"`
}

// currentUser reads the authenticated user ID or aborts with 401
func (c *BabyController) currentUser() (uint, bool) {
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

// babyIDParam parses the :id path parameter
func (c *BabyController) babyIDParam() (uint, bool) {
	idUint, err := strconv.ParseUint(c.Ctx.Param("id"), 10, 32)
	if err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "invalid baby ID",
			"data":    nil,
		})
		return 0, false
	}
	return uint(idUint), true
}

// GetBabies lists the caller's babies
// @Summary      List babies
// @Description  Lists every baby the caller parents or cares for
// @Tags         Baby
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  ErrorResponse
// @Router       /babies [get]
func (c *BabyController) GetBabies() {
	userID, ok := c.currentUser()
	if !ok {
		return
	}

	babyService := c.Container.GetService("baby").(services.InterfaceBabyService)
	babies, err := babyService.GetBabiesForUser(userID)
	if err != nil {
		handleServiceError(c.Ctx, err)
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    babies,
	})
}

// GetBaby returns one baby profile
// @Summary      Get baby details
// @Description  Returns a baby profile with caregivers and contacts
// @Tags         Baby
// @Produce      json
// @Param        id path int true "Baby ID"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /babies/{id} [get]
func (c *BabyController) GetBaby() {
	userID, ok := c.currentUser()
	if !ok {
		return
	}
	babyID, ok := c.babyIDParam()
	if !ok {
		return
	}

	babyService := c.Container.GetService("baby").(services.InterfaceBabyService)
	baby, err := babyService.GetBabyByID(babyID, userID)
	if err != nil {
		handleServiceError(c.Ctx, err)
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": gin.H{
			"baby":          baby,
			"age_in_months": baby.AgeInMonths(),
			"age_in_days":   baby.AgeInDays(),
			"permissions":   baby.PermissionsFor(userID),
		},
	})
}

// CreateBaby creates a baby profile owned by the caller
// @Summary      Create baby
// @Description  Creates a baby profile with the caller as parent
// @Tags         Baby
// @Accept       json
// @Produce      json
// @Param        request body BabyRequest true "Baby parameters"
// @Security     BearerAuth
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /babies [post]
func (c *BabyController) CreateBaby() {
	userID, ok := c.currentUser()
	if !ok {
		return
	}

	var req BabyRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "invalid request parameters: " + err.Error(),
			"data":    nil,
		})
		return
	}

	baby := &models.Baby{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		DateOfBirth:  req.DateOfBirth,
		Gender:       models.Gender(req.Gender),
		ProfilePhoto: req.ProfilePhoto,
		Parents:      []models.User{{ID: userID}},
	}

	babyService := c.Container.GetService("baby").(services.InterfaceBabyService)
	if err := babyService.CreateBaby(baby); err != nil {
		handleServiceError(c.Ctx, err)
		return
	}

	c.Ctx.JSON(http.StatusCreated, gin.H{
		"code":    0,
		"message": "success",
		"data":    baby,
	})
}

// UpdateBaby updates a baby profile
// @Summary      Update baby
// @Description  Applies profile changes, requires edit profile permission (parents)
// @Tags         Baby
// @Accept       json
// @Produce      json
// @Param        id path int true "Baby ID"
// @Param        request body UpdateBabyRequest true "Fields to update"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  ErrorResponse
// @Router       /babies/{id} [put]
func (c *BabyController) UpdateBaby() {
	userID, ok := c.currentUser()
	if !ok {
		return
	}
	babyID, ok := c.babyIDParam()
	if !ok {
		return
	}

	var req UpdateBabyRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "invalid request parameters: " + err.Error(),
			"data":    nil,
		})
		return
	}

	updates := make(map[string]interface{})
	if req.FirstName != "" {
		updates["first_name"] = req.FirstName
	}
	if req.LastName != "" {
		updates["last_name"] = req.LastName
	}
	if req.DateOfBirth != nil {
		updates["date_of_birth"] = *req.DateOfBirth
	}
	if req.Gender != "" {
		updates["gender"] = req.Gender
	}
	if req.ProfilePhoto != "" {
		updates["profile_photo"] = req.ProfilePhoto
	}

	babyService := c.Container.GetService("baby").(services.InterfaceBabyService)
	baby, err := babyService.UpdateBaby(babyID, userID, updates)
	if err != nil {
		handleServiceError(c.Ctx, err)
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    baby,
	})
}

// DeleteBaby deactivates a baby profile
// @Summary      Delete baby
// @Description  Deactivates a baby profile, parent only
// @Tags         Baby
// @Produce      json
// @Param        id path int true "Baby ID"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  ErrorResponse
// @Router       /babies/{id} [delete]
func (c *BabyController) DeleteBaby() {
	userID, ok := c.currentUser()
	if !ok {
		return
	}
	babyID, ok := c.babyIDParam()
	if !ok {
		return
	}

	babyService := c.Container.GetService("baby").(services.InterfaceBabyService)
	if err := babyService.DeactivateBaby(babyID, userID); err != nil {
		handleServiceError(c.Ctx, err)
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    nil,
	})
}

// GetBabyStatistics returns aggregate monitoring statistics
// @Summary      Get baby statistics
// @Description  Aggregates sessions and detections across the baby's history
// @Tags         Baby
// @Produce      json
// @Param        id path int true "Baby ID"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  ErrorResponse
// @Router       /babies/{id}/statistics [get]
func (c *BabyController) GetBabyStatistics() {
	userID, ok := c.currentUser()
	if !ok {
		return
	}
	babyID, ok := c.babyIDParam()
	if !ok {
		return
	}

	babyService := c.Container.GetService("baby").(services.InterfaceBabyService)
	stats, err := babyService.GetBabyStatistics(babyID, userID)
	if err != nil {
		handleServiceError(c.Ctx, err)
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    stats,
	})
}

// AddParent grants parent ownership to another user
// @Summary      Add parent
// @Description  Grants a user full parent ownership, existing parents only
// @Tags         Baby
// @Accept       json
// @Produce      json
// @Param        id path int true "Baby ID"
// @Param        request body ParentRequest true "Parent parameters"
// @Security     BearerAuth
// @Success      201  {object}  map[string]interface{}
// @Failure      403  {object}  ErrorResponse
// @Router       /babies/{id}/parents [post]
func (c *BabyController) AddParent() {
	userID, ok := c.currentUser()
	if !ok {
		return
	}
	babyID, ok := c.babyIDParam()
	if !ok {
		return
	}

	var req ParentRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "invalid request parameters: " + err.Error(),
			"data":    nil,
		})
		return
	}

	babyService := c.Container.GetService("baby").(services.InterfaceBabyService)
	if err := babyService.AddParent(babyID, userID, req.UserID); err != nil {
		handleServiceError(c.Ctx, err)
		return
	}

	c.Ctx.JSON(http.StatusCreated, gin.H{
		"code":    0,
		"message": "success",
		"data":    nil,
	})
}

// AddCaregiver grants caregiver access
// @Summary      Add caregiver
// @Description  Grants a user caregiver access, requires manage users permission
// @Tags         Baby
// @Accept       json
// @Produce      json
// @Param        id path int true "Baby ID"
// @Param        request body CaregiverRequest true "Caregiver parameters"
// @Security     BearerAuth
// @Success      201  {object}  map[string]interface{}
// @Failure      403  {object}  ErrorResponse
// @Router       /babies/{id}/caregivers [post]
func (c *BabyController) AddCaregiver() {
	userID, ok := c.currentUser()
	if !ok {
		return
	}
	babyID, ok := c.babyIDParam()
	if !ok {
		return
	}

	var req CaregiverRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "invalid request parameters: " + err.Error(),
			"data":    nil,
		})
		return
	}

	babyService := c.Container.GetService("baby").(services.InterfaceBabyService)
	caregiver, err := babyService.AddCaregiver(babyID, userID, req.UserID, models.CaregiverRole(req.Role), req.Permissions)
	if err != nil {
		handleServiceError(c.Ctx, err)
		return
	}

	c.Ctx.JSON(http.StatusCreated, gin.H{
		"code":    0,
		"message": "success",
		"data":    caregiver,
	})
}

// UpdateCaregiver replaces a caregiver's permissions
// @Summary      Update caregiver permissions
// @Tags         Baby
// @Accept       json
// @Produce      json
// @Param        id path int true "Baby ID"
// @Param        caregiver_id path int true "Caregiver ID"
// @Param        request body CaregiverPermissionsRequest true "Permission set"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  ErrorResponse
// @Router       /babies/{id}/caregivers/{caregiver_id} [put]
func (c *BabyController) UpdateCaregiver() {
	userID, ok := c.currentUser()
	if !ok {
		return
	}
	babyID, ok := c.babyIDParam()
	if !ok {
		return
	}
	caregiverID, err := strconv.ParseUint(c.Ctx.Param("caregiver_id"), 10, 32)
	if err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "invalid caregiver ID",
			"data":    nil,
		})
		return
	}

	var req CaregiverPermissionsRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "invalid request parameters: " + err.Error(),
			"data":    nil,
		})
		return
	}

	babyService := c.Container.GetService("baby").(services.InterfaceBabyService)
	caregiver, err := babyService.UpdateCaregiverPermissions(babyID, userID, uint(caregiverID), req.Permissions)
	if err != nil {
		handleServiceError(c.Ctx, err)
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    caregiver,
	})
}

// RemoveCaregiver revokes caregiver access
// @Summary      Remove caregiver
// @Tags         Baby
// @Produce      json
// @Param        id path int true "Baby ID"
// @Param        caregiver_id path int true "Caregiver ID"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  ErrorResponse
// @Router       /babies/{id}/caregivers/{caregiver_id} [delete]
func (c *BabyController) RemoveCaregiver() {
	userID, ok := c.currentUser()
	if !ok {
		return
	}
	babyID, ok := c.babyIDParam()
	if !ok {
		return
	}
	caregiverID, err := strconv.ParseUint(c.Ctx.Param("caregiver_id"), 10, 32)
	if err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "invalid caregiver ID",
			"data":    nil,
		})
		return
	}

	babyService := c.Container.GetService("baby").(services.InterfaceBabyService)
	if err := babyService.RemoveCaregiver(babyID, userID, uint(caregiverID)); err != nil {
		handleServiceError(c.Ctx, err)
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    nil,
	})
}

// AddEmergencyContact adds an emergency contact
// @Summary      Add emergency contact
// @Tags         Baby
// @Accept       json
// @Produce      json
// @Param        id path int true "Baby ID"
// @Param        request body EmergencyContactRequest true "Contact parameters"
// @Security     BearerAuth
// @Success      201  {object}  map[string]interface{}
// @Failure      403  {object}  ErrorResponse
// @Router       /babies/{id}/emergency-contacts [post]
func (c *BabyController) AddEmergencyContact() {
	userID, ok := c.currentUser()
	if !ok {
		return
	}
	babyID, ok := c.babyIDParam()
	if !ok {
		return
	}

	var req EmergencyContactRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "invalid request parameters: " + err.Error(),
			"data":    nil,
		})
		return
	}

	contact := &models.EmergencyContact{
		Name:         req.Name,
		Relationship: req.Relationship,
		PhoneNumber:  req.PhoneNumber,
		IsPrimary:    req.IsPrimary,
	}

	babyService := c.Container.GetService("baby").(services.InterfaceBabyService)
	if err := babyService.AddEmergencyContact(babyID, userID, contact); err != nil {
		handleServiceError(c.Ctx, err)
		return
	}

	c.Ctx.JSON(http.StatusCreated, gin.H{
		"code":    0,
		"message": "success",
		"data":    contact,
	})
}

// GetEmergencyContacts lists emergency contacts
// @Summary      List emergency contacts
// @Tags         Baby
// @Produce      json
// @Param        id path int true "Baby ID"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  ErrorResponse
// @Router       /babies/{id}/emergency-contacts [get]
func (c *BabyController) GetEmergencyContacts() {
	userID, ok := c.currentUser()
	if !ok {
		return
	}
	babyID, ok := c.babyIDParam()
	if !ok {
		return
	}

	babyService := c.Container.GetService("baby").(services.InterfaceBabyService)
	contacts, err := babyService.GetEmergencyContacts(babyID, userID)
	if err != nil {
		handleServiceError(c.Ctx, err)
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    contacts,
	})
}

// AddMilestone records a milestone
// @Summary      Add milestone
// @Tags         Baby
// @Accept       json
// @Produce      json
// @Param        id path int true "Baby ID"
// @Param        request body MilestoneRequest true "Milestone parameters"
// @Security     BearerAuth
// @Success      201  {object}  map[string]interface{}
// @Failure      403  {object}  ErrorResponse
// @Router       /babies/{id}/milestones [post]
func (c *BabyController) AddMilestone() {
	userID, ok := c.currentUser()
	if !ok {
		return
	}
	babyID, ok := c.babyIDParam()
	if !ok {
		return
	}

	var req MilestoneRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "invalid request parameters: " + err.Error(),
			"data":    nil,
		})
		return
	}

	milestone := &models.Milestone{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.AchievedAt != nil {
		milestone.AchievedAt = *req.AchievedAt
	}

	babyService := c.Container.GetService("baby").(services.InterfaceBabyService)
	if err := babyService.AddMilestone(babyID, userID, milestone); err != nil {
		handleServiceError(c.Ctx, err)
		return
	}

	c.Ctx.JSON(http.StatusCreated, gin.H{
		"code":    0,
		"message": "success",
		"data":    milestone,
	})
}

// GetMilestones lists milestones
// @Summary      List milestones
// @Tags         Baby
// @Produce      json
// @Param        id path int true "Baby ID"
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  ErrorResponse
// @Router       /babies/{id}/milestones [get]
func (c *BabyController) GetMilestones() {
	userID, ok := c.currentUser()
	if !ok {
		return
	}
	babyID, ok := c.babyIDParam()
	if !ok {
		return
	}

	babyService := c.Container.GetService("baby").(services.InterfaceBabyService)
	milestones, err := babyService.GetMilestones(babyID, userID)
	if err != nil {
		handleServiceError(c.Ctx, err)
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    milestones,
	})
}

// HandleBabyFunc routes a baby request to the controller method
func HandleBabyFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewBabyController(ctx, container)

		switch method {
		case "getBabies":
			controller.GetBabies()
		case "getBaby":
			controller.GetBaby()
		case "createBaby":
			controller.CreateBaby()
		case "updateBaby":
			controller.UpdateBaby()
		case "deleteBaby":
			controller.DeleteBaby()
		case "getBabyStatistics":
			controller.GetBabyStatistics()
		case "addParent":
			controller.AddParent()
		case "addCaregiver":
			controller.AddCaregiver()
		case "updateCaregiver":
			controller.UpdateCaregiver()
		case "removeCaregiver":
			controller.RemoveCaregiver()
		case "addEmergencyContact":
			controller.AddEmergencyContact()
		case "getEmergencyContacts":
			controller.GetEmergencyContacts()
		case "addMilestone":
			controller.AddMilestone()
		case "getMilestones":
			controller.GetMilestones()
		default:
			ctx.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "invalid method",
				"data":    nil,
			})
		}
	}
}
