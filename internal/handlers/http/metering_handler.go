package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/core/domain"
	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/core/ports"
	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/pkg/validation"
)

// MeteringHandler exposes the pay-per-second usage API. Billing tickers POST
// ticks while a viewer watches; settlement reads the accumulated count.
type MeteringHandler struct {
	metering ports.MeteringService
}

func NewMeteringHandler(metering ports.MeteringService) *MeteringHandler {
	return &MeteringHandler{metering: metering}
}

func (h *MeteringHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.POST("/streams/:stream_id/ticks", h.RecordTick)
		api.GET("/streams/:stream_id/ticks", h.GetTickCount)
	}
}

func (h *MeteringHandler) RecordTick(c *gin.Context) {
	streamID := c.Param("stream_id")
	if err := validation.ValidateStreamID(streamID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req struct {
		ViewerID string `json:"viewer_id" binding:"required"`
		Ticks    uint64 `json:"ticks"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Ticks == 0 {
		req.Ticks = 1
	}

	total, err := h.metering.RecordTick(
		c.Request.Context(),
		domain.StreamID(streamID),
		domain.ConnectionID(req.ViewerID),
		req.Ticks,
	)
	if err != nil {
		if errors.Is(err, domain.ErrViewerNotInStream) {
			c.JSON(http.StatusForbidden, gin.H{"error": "viewer is not watching this stream"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stream_id": streamID,
		"ticks":     total,
	})
}

func (h *MeteringHandler) GetTickCount(c *gin.Context) {
	streamID := c.Param("stream_id")
	if err := validation.ValidateStreamID(streamID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	usage, err := h.metering.TickCount(c.Request.Context(), domain.StreamID(streamID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"usage": usage})
}
