package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/scholarstream/api/internal/app/models/dto"
	"github.com/scholarstream/api/internal/app/services"
	"github.com/scholarstream/api/internal/middleware"
)

// Controllers groups every HTTP handler set
type Controllers struct {
	User        *UserController
	Scholarship *ScholarshipController
	Review      *ReviewController
	Application *ApplicationController
	Payment     *PaymentController
	Health      *HealthController
}

// parseIDParam reads a UUID path parameter, answering 400 when malformed
func parseIDParam(ctx *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param(name))
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid ID format")
		errorDetail = errorDetail.WithField(name).WithDetails("ID must be a valid UUID")
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return uuid.Nil, false
	}
	return id, true
}

// actorFrom returns the authenticated caller. Routes using it sit behind Authenticate.
func actorFrom(ctx *gin.Context) services.Actor {
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		return services.Actor{}
	}
	return services.NewActor(principal.Email, principal.Name)
}

func respond(ctx *gin.Context, status int, data interface{}, message string) {
	ctx.JSON(status, dto.APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
}
