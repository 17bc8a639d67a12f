package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/scholarstream/api/internal/app/models/dto"
	"github.com/scholarstream/api/internal/app/repositories"
	"github.com/scholarstream/api/internal/pkg/logger"
)

// HealthController serves the banner and liveness endpoints
type HealthController struct {
	pinger repositories.Pinger
}

// NewHealthController creates a new HealthController
func NewHealthController(pinger repositories.Pinger) *HealthController {
	return &HealthController{pinger: pinger}
}

// Banner answers on the root path
func (c *HealthController) Banner(ctx *gin.Context) {
	respond(ctx, http.StatusOK, dto.BannerResponse{Service: "ScholarStream API", Status: "running"}, "")
}

// Health pings the store
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.HealthResponse}
// @Failure 503 {object} dto.APIResponse{data=dto.HealthResponse}
// @Router /health [get]
func (c *HealthController) Health(ctx *gin.Context) {
	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	if err := c.pinger.Ping(pingCtx); err != nil {
		logger.Warn().Err(err).Msg("Health check failed")
		ctx.JSON(http.StatusServiceUnavailable, dto.APIResponse{
			Success:   false,
			Data:      dto.HealthResponse{Status: "degraded", Database: "down"},
			Timestamp: time.Now(),
		})
		return
	}
	respond(ctx, http.StatusOK, dto.HealthResponse{Status: "ok", Database: "up"}, "")
}
