package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/middleware"
)

// StreamOrderStatus handles GET /api/v1/stream/orders. It upgrades to a
// websocket that receives the caller's order status changes.
func (h *Handlers) StreamOrderStatus(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live updates are disabled"})
		return
	}

	h.hub.ServeWS(c, middleware.UserID(c))
}
