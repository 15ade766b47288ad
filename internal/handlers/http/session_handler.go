package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/core/domain"
	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/core/ports"
	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/pkg/validation"
)

// SessionHandler exposes read-only session state. Broadcasters use it to
// enumerate their viewers; dashboards use it for live stream listings.
type SessionHandler struct {
	directory ports.SessionDirectory
	registry  ports.ConnectionRegistry
}

func NewSessionHandler(directory ports.SessionDirectory, registry ports.ConnectionRegistry) *SessionHandler {
	return &SessionHandler{
		directory: directory,
		registry:  registry,
	}
}

func (h *SessionHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.GET("/sessions", h.ListSessions)
		api.GET("/sessions/:stream_id", h.GetSession)
	}
}

func (h *SessionHandler) ListSessions(c *gin.Context) {
	sessions, err := h.directory.ListSessions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	type sessionView struct {
		StreamID       domain.StreamID       `json:"stream_id"`
		BroadcasterID  domain.ConnectionID   `json:"broadcaster_id,omitempty"`
		ViewerIDs      []domain.ConnectionID `json:"viewer_ids"`
		ViewerCount    int                   `json:"viewer_count"`
		HasBroadcaster bool                  `json:"has_broadcaster"`
	}

	views := make([]sessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, sessionView{
			StreamID:       sess.StreamID,
			BroadcasterID:  sess.BroadcasterID,
			ViewerIDs:      sess.ViewerIDs,
			ViewerCount:    len(sess.ViewerIDs),
			HasBroadcaster: sess.BroadcasterID != "",
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions":    views,
		"connections": h.registry.Count(),
	})
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	streamID := c.Param("stream_id")
	if err := validation.ValidateStreamID(streamID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.directory.Session(c.Request.Context(), domain.StreamID(streamID))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session": gin.H{
			"stream_id":       sess.StreamID,
			"broadcaster_id":  sess.BroadcasterID,
			"viewer_ids":      sess.ViewerIDs,
			"viewer_count":    len(sess.ViewerIDs),
			"has_broadcaster": sess.BroadcasterID != "",
		},
	})
}
