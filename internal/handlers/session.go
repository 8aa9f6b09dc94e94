package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/middleware"
)

// OpenSession handles POST /api/v1/session. It is called once after sign-in
// and returns the user's cart.
func (h *Handlers) OpenSession(c *gin.Context) {
	userID := middleware.UserID(c)

	session, err := h.sessions.Open(c.Request.Context(), userID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
		"cart":    session.Snapshot(),
	})
}

// CloseSession handles DELETE /api/v1/session (logout).
func (h *Handlers) CloseSession(c *gin.Context) {
	userID := middleware.UserID(c)

	h.sessions.Close(userID)
	if h.hub != nil {
		h.hub.CloseUser(userID)
	}

	h.logger.Info("User signed out", logging.Fields{"user_id": userID})
	c.Status(http.StatusNoContent)
}
