package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/coursehub/internal/app/models/dto"
	"github.com/yigit/coursehub/internal/app/repositories"
)

const healthPingTimeout = 2 * time.Second

// HealthController reports liveness and store reachability
type HealthController struct {
	store  repositories.Pinger
	logger zerolog.Logger
}

// NewHealthController creates a new HealthController
func NewHealthController(store repositories.Pinger, logger zerolog.Logger) *HealthController {
	return &HealthController{store: store, logger: logger}
}

// Health pings the backing store
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Failure 503 {object} dto.HealthResponse
// @Router /health [get]
func (c *HealthController) Health(ctx *gin.Context) {
	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), healthPingTimeout)
	defer cancel()

	if err := c.store.Ping(pingCtx); err != nil {
		c.logger.Error().Err(err).Msg("Health check failed")
		ctx.JSON(http.StatusServiceUnavailable, dto.HealthResponse{Status: "degraded", DB: "disconnected"})
		return
	}
	ctx.JSON(http.StatusOK, dto.HealthResponse{Status: "ok", DB: "connected"})
}
