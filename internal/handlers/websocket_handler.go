package handlers

import (
	"net/http"

	"quiz-backend/internal/services"
	"quiz-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

// WebSocketHandler attaches clients to the real-time quiz event stream
type WebSocketHandler struct {
	pushService *services.WebSocketPushService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(pushService *services.WebSocketPushService) *WebSocketHandler {
	return &WebSocketHandler{pushService: pushService}
}

// StreamHandler upgrades the connection. ?escrow=0x... narrows delivery to
// one quiz; omitted means all events.
// GET /ws
func (h *WebSocketHandler) StreamHandler(c *gin.Context) {
	escrow := c.Query("escrow")
	if escrow != "" {
		if !utils.IsValidAddress(escrow) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "Invalid escrow address",
				"code":    "INVALID_ADDRESS",
			})
			return
		}
		escrow = utils.NormalizeAddress(escrow)
	}

	h.pushService.HandleWebSocket(c.Writer, c.Request, escrow)
}

// ConnectionStatsHandler reports connected client counts
// GET /api/ws/stats
func (h *WebSocketHandler) ConnectionStatsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"active_connections": h.pushService.GetActiveConnections(),
	})
}
