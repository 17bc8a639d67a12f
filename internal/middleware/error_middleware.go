package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/scholarstream/api/internal/app/models/dto"
	"github.com/scholarstream/api/internal/pkg/apperrors"
	"github.com/scholarstream/api/internal/pkg/logger"
)

// HandleAPIError translates a service error into the error envelope.
// Only messages carried by apperrors.CustomError reach the client.
func HandleAPIError(c *gin.Context, err error) {
	var (
		status int
		detail *dto.ErrorDetail
	)

	switch {
	case errors.Is(err, apperrors.ErrUnauthenticated), errors.Is(err, apperrors.ErrTokenNotFound):
		status = http.StatusUnauthorized
		detail = dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
	case errors.Is(err, apperrors.ErrPermissionDenied):
		status = http.StatusForbidden
		detail = dto.NewErrorDetail(dto.ErrorCodeForbidden, apperrors.PublicMessage(err, "Permission denied"))
	case errors.Is(err, apperrors.ErrResourceNotFound):
		status = http.StatusNotFound
		detail = dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, apperrors.PublicMessage(err, "Resource not found"))
	case errors.Is(err, apperrors.ErrValidationFailed):
		status = http.StatusBadRequest
		detail = dto.NewErrorDetail(dto.ErrorCodeValidationFailed, apperrors.PublicMessage(err, "Validation failed"))
	case errors.Is(err, apperrors.ErrConflict):
		status = http.StatusConflict
		detail = dto.NewErrorDetail(dto.ErrorCodeConflict, apperrors.PublicMessage(err, "Conflict"))
	case errors.Is(err, apperrors.ErrPaymentGateway):
		logger.Error().Err(causeOf(err)).Str("path", c.Request.URL.Path).Msg("Payment provider error")
		status = http.StatusInternalServerError
		detail = dto.NewErrorDetail(dto.ErrorCodePaymentFailed, apperrors.PublicMessage(err, "Payment provider error"))
	default:
		logger.Error().Err(err).Str("method", c.Request.Method).Str("path", c.Request.URL.Path).Msg("Unhandled error")
		status = http.StatusInternalServerError
		detail = dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error")
	}

	c.AbortWithStatusJSON(status, dto.NewErrorResponse(detail))
}

func causeOf(err error) error {
	var ce *apperrors.CustomError
	if errors.As(err, &ce) && ce.Cause != nil {
		return ce.Cause
	}
	return err
}
