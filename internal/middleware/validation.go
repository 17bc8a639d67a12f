package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/scholarstream/api/internal/app/models/dto"
)

func abortValidation(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
}

// BindJSON binds and validates the request body. On failure the request is
// aborted with 400 and false is returned.
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		abortValidation(c, err)
		return false
	}
	return true
}

// BindQuery binds and validates query parameters
func BindQuery(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		abortValidation(c, err)
		return false
	}
	return true
}
