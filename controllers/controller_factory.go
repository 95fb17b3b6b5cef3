package controllers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"angeleyes-http-service/internal/error/code"
	"angeleyes-http-service/internal/error/response"
	"angeleyes-http-service/services"
	"angeleyes-http-service/services/container"
)

// BaseController is the base interface for all controllers
type BaseController interface {
	// GetContainer returns the service container
	GetContainer() *container.ServiceContainer
	// GetContext returns the Gin context
	GetContext() *gin.Context
}

// BaseControllerImpl is the base controller implementation
type BaseControllerImpl struct {
	Container *container.ServiceContainer
	Context   *gin.Context
}

// GetContainer implements the BaseController interface
func (c *BaseControllerImpl) GetContainer() *container.ServiceContainer {
	return c.Container
}

// GetContext implements the BaseController interface
func (c *BaseControllerImpl) GetContext() *gin.Context {
	return c.Context
}

// ControllerFactory creates controllers
type ControllerFactory struct {
	Container *container.ServiceContainer
}

// NewControllerFactory creates a new controller factory
func NewControllerFactory(container *container.ServiceContainer) *ControllerFactory {
	return &ControllerFactory{
		Container: container,
	}
}

// ErrorResponse documents the error envelope in Swagger
type ErrorResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// handleServiceError maps service layer errors onto response codes
func handleServiceError(ctx *gin.Context, err error) {
	var alreadyActive *services.AlreadyActiveError
	var validation *services.ValidationError

	switch {
	case errors.As(err, &alreadyActive):
		response.Fail(ctx, code.ErrSessionAlreadyActive, gin.H{
			"existing_session_id": alreadyActive.ExistingSessionID,
		})
	case errors.As(err, &validation):
		response.ParamError(ctx, validation.Message)
	case errors.Is(err, services.ErrUserNotFound):
		response.Fail(ctx, code.ErrUserNotFound, nil)
	case errors.Is(err, services.ErrEmailTaken):
		response.Fail(ctx, code.ErrUserAlreadyExist, nil)
	case errors.Is(err, services.ErrInvalidLogin):
		response.Fail(ctx, code.ErrUserPasswordIncorrect, nil)
	case errors.Is(err, services.ErrBabyNotFound):
		response.Fail(ctx, code.ErrBabyNotFound, nil)
	case errors.Is(err, services.ErrAccessDenied):
		response.Fail(ctx, code.ErrAccessDenied, nil)
	case errors.Is(err, services.ErrPermissionDenied):
		response.Fail(ctx, code.ErrPermissionDenied, nil)
	case errors.Is(err, services.ErrCaregiverNotFound):
		response.Fail(ctx, code.ErrCaregiverNotFound, nil)
	case errors.Is(err, services.ErrCaregiverExists):
		response.Fail(ctx, code.ErrCaregiverAlreadyExist, nil)
	case errors.Is(err, services.ErrSessionNotFound):
		response.Fail(ctx, code.ErrSessionNotFound, nil)
	case errors.Is(err, services.ErrSessionNotActive):
		response.Fail(ctx, code.ErrSessionNotActive, nil)
	case errors.Is(err, services.ErrDetectionNotFound):
		response.Fail(ctx, code.ErrDetectionNotFound, nil)
	case errors.Is(err, services.ErrAlertNotFound):
		response.Fail(ctx, code.ErrAlertNotFound, nil)
	case errors.Is(err, services.ErrDetectionClosed):
		response.Fail(ctx, code.ErrDetectionResolved, nil)
	case errors.Is(err, services.ErrEscalationLimit):
		response.Fail(ctx, code.ErrEscalationLimit, nil)
	default:
		response.ServerError(ctx)
	}
}
